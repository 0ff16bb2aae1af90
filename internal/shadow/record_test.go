package shadow

import "testing"

func TestApplyMergesNestedMaps(t *testing.T) {
	rec := &Record{
		ID: "dev-1",
		Admin: Properties{
			"SiteId": "site-a",
			"Capabilities": Properties{
				"DA": true,
				"HD": true,
			},
		},
	}
	patch := &Patch{
		Admin: Properties{
			"SiteId": "site-b",
			"Capabilities": Properties{
				"HD": nil,
				"AC": true,
			},
		},
	}

	got := Apply(rec, patch)

	if got.Admin["SiteId"] != "site-b" {
		t.Errorf("SiteId = %v, want site-b", got.Admin["SiteId"])
	}
	caps, _ := AsProperties(got.Admin["Capabilities"])
	want := Properties{"DA": true, "AC": true}
	if !Equal(caps, want) {
		t.Errorf("Capabilities = %v, want %v", caps, want)
	}

	// Input must not be mutated.
	if rec.Admin["SiteId"] != "site-a" {
		t.Error("Apply mutated the input record")
	}
	origCaps, _ := AsProperties(rec.Admin["Capabilities"])
	if _, ok := origCaps["HD"]; !ok {
		t.Error("Apply mutated a nested map of the input record")
	}
}

func TestApplyNilDeletes(t *testing.T) {
	rec := &Record{ID: "dev-1", Admin: Properties{"NotSeenSince": "2026-01-01T00:00:00Z", "IsDisabled": true}}
	got := Apply(rec, &Patch{Admin: Properties{"NotSeenSince": nil, "IsDisabled": false}})

	if _, ok := got.Admin["NotSeenSince"]; ok {
		t.Error("NotSeenSince should be deleted")
	}
	if got.Admin["IsDisabled"] != false {
		t.Errorf("IsDisabled = %v, want false", got.Admin["IsDisabled"])
	}
}

func TestApplyCreatesRecord(t *testing.T) {
	tests := []struct {
		name  string
		rec   *Record
		patch *Patch
	}{
		{
			name:  "nil record",
			rec:   nil,
			patch: &Patch{ID: "new", Admin: Properties{"DeviceType": "Gateway"}},
		},
		{
			name:  "re-keyed patch",
			rec:   &Record{ID: "old", ConcurrencyToken: "t1", Admin: Properties{"Stale": "x"}},
			patch: &Patch{ID: "new", Admin: Properties{"DeviceType": "Gateway"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.rec, tt.patch)
			if got.ID != "new" {
				t.Errorf("ID = %q, want new", got.ID)
			}
			if got.ConcurrencyToken != "" {
				t.Errorf("ConcurrencyToken = %q, want empty", got.ConcurrencyToken)
			}
			if _, ok := got.Admin["Stale"]; ok {
				t.Error("re-keyed record carried stale attributes")
			}
			if got.Admin["DeviceType"] != "Gateway" {
				t.Errorf("DeviceType = %v", got.Admin["DeviceType"])
			}
		})
	}
}

func TestApplyKeepsAdminNonNil(t *testing.T) {
	got := Apply(nil, &Patch{ID: "x"})
	if got.Admin == nil {
		t.Fatal("Admin must never be nil")
	}
	if got.Desired != nil {
		t.Errorf("Desired = %v, want nil", got.Desired)
	}
}

func TestRecordDeviceType(t *testing.T) {
	tests := []struct {
		name string
		rec  *Record
		want string
	}{
		{"admin", &Record{Admin: Properties{"DeviceType": "Endpoint", "Type": "Gateway"}}, "Endpoint"},
		{"reported", &Record{Admin: Properties{}, Reported: Properties{"__type__": "Supervisor"}}, "Supervisor"},
		{"legacy", &Record{Admin: Properties{"Type": "Publisher"}}, "Publisher"},
		{"none", &Record{Admin: Properties{}}, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.DeviceType(); got != tt.want {
				t.Errorf("DeviceType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPatchIsEmpty(t *testing.T) {
	var nilPatch *Patch
	if !nilPatch.IsEmpty() {
		t.Error("nil patch should be empty")
	}
	if !(&Patch{ID: "x", ConcurrencyToken: "t"}).IsEmpty() {
		t.Error("patch without properties should be empty")
	}
	if (&Patch{Desired: Properties{"LogLevel": "Debug"}}).IsEmpty() {
		t.Error("patch with desired changes should not be empty")
	}
}

func TestMergeReported(t *testing.T) {
	current := Properties{
		"Version":  "1.0",
		"Locales":  EncodeList([]any{"en", "de", "fr"}),
		"Settings": Properties{"Port": int64(4840), "Debug": true},
	}

	tests := []struct {
		name     string
		reported Properties
		want     Properties
	}{
		{
			name:     "shrinking list drops stale indices",
			reported: Properties{"Locales": EncodeList([]any{"en"})},
			want: Properties{
				"Version":  "1.0",
				"Locales":  Properties{"0": "en"},
				"Settings": Properties{"Port": int64(4840), "Debug": true},
			},
		},
		{
			name:     "nested map replaced whole",
			reported: Properties{"Settings": Properties{"Port": int64(4841)}},
			want: Properties{
				"Version":  "1.0",
				"Locales":  EncodeList([]any{"en", "de", "fr"}),
				"Settings": Properties{"Port": int64(4841)},
			},
		},
		{
			name:     "nil removes",
			reported: Properties{"Version": nil},
			want: Properties{
				"Locales":  EncodeList([]any{"en", "de", "fr"}),
				"Settings": Properties{"Port": int64(4840), "Debug": true},
			},
		},
		{
			name:     "empty report keeps state",
			reported: nil,
			want:     current,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeReported(current, tt.reported)
			if !Equal(got, tt.want) {
				t.Errorf("MergeReported() = %v, want %v", got, tt.want)
			}
		})
	}

	if locales, _ := AsProperties(current["Locales"]); len(locales) != 3 {
		t.Error("MergeReported() mutated its input")
	}
}
