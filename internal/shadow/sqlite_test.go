package shadow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-fleet/migrations" // registers embedded migrations
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "fleet.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteStore(db.DB)
}

func gatewayPatch(id, site string) *Patch {
	return &Patch{
		ID: id,
		Admin: Properties{
			AttrDeviceType: "Gateway",
			AttrSiteID:     site,
		},
		Desired: Properties{"LogLevel": "Information"},
	}
}

func TestSQLiteStoreCreateGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, gatewayPatch("gw-1", "site-a"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if token == "" {
		t.Fatal("Create() returned empty token")
	}

	rec, err := store.Get(ctx, "gw-1", "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.ConcurrencyToken != token {
		t.Errorf("token = %q, want %q", rec.ConcurrencyToken, token)
	}
	if rec.Admin[AttrSiteID] != "site-a" {
		t.Errorf("SiteId = %v", rec.Admin[AttrSiteID])
	}
	if rec.Desired["LogLevel"] != "Information" {
		t.Errorf("desired LogLevel = %v", rec.Desired["LogLevel"])
	}
	if rec.Reported != nil {
		t.Errorf("Reported = %v, want nil", rec.Reported)
	}
	if rec.ConnectionState != nil {
		t.Errorf("ConnectionState = %v, want nil", *rec.ConnectionState)
	}

	if _, err := store.Create(ctx, gatewayPatch("gw-1", "site-b")); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate Create() error = %v, want ErrAlreadyExists", err)
	}
}

func TestSQLiteStoreGetNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get(context.Background(), "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreModuleIDScopesRecords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	p := gatewayPatch("edge-1", "site-a")
	p.ModuleID = "discovery"
	if _, err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := store.Get(ctx, "edge-1", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() without module error = %v, want ErrNotFound", err)
	}
	rec, err := store.Get(ctx, "edge-1", "discovery")
	if err != nil {
		t.Fatalf("Get() with module error = %v", err)
	}
	if rec.ModuleID != "discovery" {
		t.Errorf("ModuleID = %q", rec.ModuleID)
	}
}

func TestSQLiteStoreUpdateConcurrency(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, gatewayPatch("gw-1", "site-a"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	patch := &Patch{Admin: Properties{AttrSiteID: "site-b"}}
	newToken, err := store.Update(ctx, "gw-1", "", patch, token)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if newToken == token {
		t.Error("Update() must rotate the concurrency token")
	}

	// The old token is now stale.
	if _, err := store.Update(ctx, "gw-1", "", patch, token); !errors.Is(err, ErrConcurrencyConflict) {
		t.Errorf("stale Update() error = %v, want ErrConcurrencyConflict", err)
	}

	// An empty token is unconditional.
	if _, err := store.Update(ctx, "gw-1", "", &Patch{Desired: Properties{"LogLevel": "Debug"}}, ""); err != nil {
		t.Errorf("unconditional Update() error = %v", err)
	}

	rec, err := store.Get(ctx, "gw-1", "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Admin[AttrSiteID] != "site-b" || rec.Desired["LogLevel"] != "Debug" {
		t.Errorf("record after updates = %+v", rec)
	}

	if _, err := store.Update(ctx, "missing", "", patch, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := store.Update(ctx, "gw-1", "", &Patch{ID: "other"}, ""); !errors.Is(err, ErrInvalidPatch) {
		t.Errorf("Update(mismatched id) error = %v, want ErrInvalidPatch", err)
	}
}

func TestSQLiteStoreDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, gatewayPatch("gw-1", "site-a"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, "gw-1", "", "stale"); !errors.Is(err, ErrConcurrencyConflict) {
		t.Errorf("Delete(stale) error = %v, want ErrConcurrencyConflict", err)
	}
	if err := store.Delete(ctx, "gw-1", "", token); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "gw-1", "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, p := range []*Patch{
		gatewayPatch("gw-1", "site-a"),
		gatewayPatch("gw-2", "site-b"),
		{ID: "sup-1", Admin: Properties{AttrDeviceType: "Supervisor", AttrSiteID: "site-a"}},
		{ID: "gw-3", Admin: Properties{AttrDeviceType: "Gateway", AttrSiteID: "site-a", AttrIsDisabled: true}},
	} {
		if _, err := store.Create(ctx, p); err != nil {
			t.Fatalf("Create(%s) error = %v", p.ID, err)
		}
	}

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"all enabled", Query{}, []string{"gw-1", "gw-2", "sup-1"}},
		{"include disabled", Query{IncludeDisabled: true}, []string{"gw-1", "gw-2", "gw-3", "sup-1"}},
		{"by type", Query{DeviceType: "Gateway"}, []string{"gw-1", "gw-2"}},
		{"by site", Query{SiteID: "site-a"}, []string{"gw-1", "sup-1"}},
		{"type and site", Query{DeviceType: "Gateway", SiteID: "site-a", IncludeDisabled: true}, []string{"gw-1", "gw-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := store.List(ctx, tt.q)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var got []string
			for _, r := range recs {
				got = append(got, r.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("List()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSQLiteStoreReport(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, gatewayPatch("gw-1", "site-a"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	connected := true
	reported := Properties{"__type__": "Gateway", "Version": "2.1.0", "MaxWorkers": int64(4)}
	if err := store.Report(ctx, "gw-1", "", reported, &connected); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if err := store.Report(ctx, "gw-1", "", Properties{"MaxWorkers": nil}, nil); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	rec, err := store.Get(ctx, "gw-1", "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.ConcurrencyToken != token {
		t.Error("Report() must not rotate the concurrency token")
	}
	if rec.Reported["Version"] != "2.1.0" {
		t.Errorf("reported Version = %v", rec.Reported["Version"])
	}
	if _, ok := rec.Reported["MaxWorkers"]; ok {
		t.Error("reported MaxWorkers should have been removed")
	}
	if rec.ConnectionState == nil || !*rec.ConnectionState {
		t.Error("ConnectionState should be true")
	}

	if err := store.Report(ctx, "gw-1", "", Properties{"Locales": EncodeList([]any{"en", "de", "fr"})}, nil); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if err := store.Report(ctx, "gw-1", "", Properties{"Locales": EncodeList([]any{"en"})}, nil); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	rec, err = store.Get(ctx, "gw-1", "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if locales, _ := DecodeStrings(rec.Reported["Locales"]); len(locales) != 1 || locales[0] != "en" {
		t.Errorf("reported Locales = %v, want [en]", locales)
	}
	if rec.Reported["Version"] != "2.1.0" {
		t.Error("reporting Locales dropped Version")
	}

	if err := store.Report(ctx, "missing", "", reported, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Report(missing) error = %v, want ErrNotFound", err)
	}
}
