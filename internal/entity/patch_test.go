package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-fleet/internal/shadow"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func siteServer() *ApplicationRegistration {
	r := validServer()
	r.SiteID = Ptr("site-1")
	return r
}

func sampleEndpoint() *EndpointRegistration {
	r := &EndpointRegistration{
		ApplicationID:   Ptr("uas0123"),
		SupervisorID:    Ptr("gw1_module_supervisor"),
		EndpointURL:     Ptr("opc.tcp://host:4840/ua"),
		AlternativeURLs: []string{"opc.tcp://10.0.0.5:4840/ua"},
		SecurityMode:    Ptr(SecurityModeSign),
		SecurityPolicy:  Ptr("http://opcfoundation.org/UA/SecurityPolicy#Basic256Sha256"),
		SecurityLevel:   Ptr(3),
		AuthenticationMethods: []AuthenticationMethod{
			{ID: "anon", CredentialType: CredentialTypeNone},
		},
	}
	r.SiteID = Ptr("site-1")
	return r
}

func sampleDiscoverer() *DiscovererRegistration {
	r := &DiscovererRegistration{
		LogLevel:            Ptr(LogLevelDebug),
		Discovery:           Ptr(DiscoveryModeFast),
		PortProbeTimeout:    Ptr(1500 * time.Millisecond),
		MaxPortProbes:       Ptr(20),
		DiscoveryURLs:       []string{"opc.tcp://a:4840", "opc.tcp://b:4840"},
		AddressRangesToScan: Ptr("10.0.0.0/24"),
	}
	r.DeviceID = "gw1"
	r.ModuleID = Ptr("discovery")
	r.SiteID = Ptr("site-1")
	return r
}

// create builds and applies the create patch for r, as the store would.
func create(t *testing.T, r Registration) *shadow.Record {
	t.Helper()
	p, err := BuildPatchAt(nil, r, testNow)
	if err != nil {
		t.Fatalf("BuildPatchAt(nil) error = %v", err)
	}
	rec := shadow.Apply(nil, p)
	rec.ConcurrencyToken = "etag-1"
	return rec
}

func mustDecode(t *testing.T, rec *shadow.Record, kind Kind) Registration {
	t.Helper()
	r, ok := Decode(rec, kind)
	if !ok {
		t.Fatalf("Decode(%s) failed", kind)
	}
	return r
}

// assertSameFields compares every stored field of two registrations in
// encoded form.
func assertSameFields(t *testing.T, got, want Registration) {
	t.Helper()
	if got.Kind() != want.Kind() {
		t.Fatalf("kind = %s, want %s", got.Kind(), want.Kind())
	}
	for _, f := range schemas[want.Kind()].fields {
		if f.isDerived() {
			continue
		}
		if !shadow.Equal(f.get(got), f.get(want)) {
			t.Errorf("%s = %v, want %v", f.name, f.get(got), f.get(want))
		}
	}
	g, w := got.Base(), want.Base()
	if !equalPtr(g.SiteID, w.SiteID) {
		t.Errorf("SiteID = %v, want %v", deref(g.SiteID), deref(w.SiteID))
	}
	if !equalPtr(g.IsDisabled, w.IsDisabled) {
		t.Errorf("IsDisabled = %v, want %v", g.IsDisabled, w.IsDisabled)
	}
}

func TestBuildPatchRoundTrip(t *testing.T) {
	supervisor := &SupervisorRegistration{LogLevel: Ptr(LogLevelVerbose)}
	supervisor.DeviceID = "gw1"
	supervisor.ModuleID = Ptr("supervisor")

	publisher := &PublisherRegistration{
		JobOrchestratorURL: Ptr("https://jobs.example.com"),
		MaxWorkers:         Ptr(4),
		HeartbeatInterval:  Ptr(30 * time.Second),
		Capabilities:       []string{"Cloud", "Edge"},
	}
	publisher.DeviceID = "gw1"
	publisher.ModuleID = Ptr("publisher")

	tests := []struct {
		name string
		r    Registration
	}{
		{"application", siteServer()},
		{"endpoint", sampleEndpoint()},
		{"gateway", &GatewayRegistration{Common: Common{DeviceID: "gw1", SiteID: Ptr("site-1")}}},
		{"supervisor", supervisor},
		{"discoverer", sampleDiscoverer()},
		{"publisher", publisher},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := IdentityKey(tt.r)
			if err != nil {
				t.Fatalf("IdentityKey() error = %v", err)
			}

			rec := create(t, tt.r)
			if got := ModuleDeviceID(rec.ID, rec.ModuleID); got != key {
				t.Errorf("record identity = %q, want %q", got, key)
			}
			if rec.DeviceType() != string(tt.r.Kind()) {
				t.Errorf("DeviceType = %q, want %q", rec.DeviceType(), tt.r.Kind())
			}

			got := mustDecode(t, rec, tt.r.Kind())
			assertSameFields(t, got, tt.r)
			if got.Base().ID() != key {
				t.Errorf("decoded ID = %q, want %q", got.Base().ID(), key)
			}
		})
	}
}

func TestBuildPatchIdempotent(t *testing.T) {
	tests := []struct {
		name string
		r    Registration
	}{
		{"application", siteServer()},
		{"endpoint", sampleEndpoint()},
		{"discoverer", sampleDiscoverer()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := mustDecode(t, create(t, tt.r), tt.r.Kind())

			p, err := BuildPatchAt(existing, tt.r, testNow)
			if err != nil {
				t.Fatalf("BuildPatchAt() error = %v", err)
			}
			if !p.IsEmpty() {
				t.Errorf("re-applying the same update produced admin=%v desired=%v", p.Admin, p.Desired)
			}
			if p.ConcurrencyToken != "etag-1" {
				t.Errorf("ConcurrencyToken = %q, want etag-1", p.ConcurrencyToken)
			}
		})
	}
}

func TestBuildPatchRekeyForcesCreate(t *testing.T) {
	existing := mustDecode(t, create(t, siteServer()), KindApplication)

	update := &ApplicationRegistration{ApplicationURI: Ptr("urn:example:other")}
	p, err := BuildPatchAt(existing, update, testNow)
	if err != nil {
		t.Fatalf("BuildPatchAt() error = %v", err)
	}

	if p.ID == existing.Base().DeviceID {
		t.Fatal("identity change must produce a new record ID")
	}
	if p.ConcurrencyToken != "" {
		t.Errorf("ConcurrencyToken = %q, want empty for create", p.ConcurrencyToken)
	}
	if p.Admin["ProductUri"] != "urn:example:product" {
		t.Errorf("ProductUri = %v, want carried over from existing", p.Admin["ProductUri"])
	}
	if p.Admin["ApplicationUri"] != "urn:example:other" {
		t.Errorf("ApplicationUri = %v, want urn:example:other", p.Admin["ApplicationUri"])
	}

	rec := shadow.Apply(nil, p)
	got := mustDecode(t, rec, KindApplication)
	want, _ := IdentityKey(got)
	if got.Base().DeviceID != want {
		t.Errorf("re-created DeviceID = %q, want %q", got.Base().DeviceID, want)
	}
}

func TestBuildPatchCaseOnlyChangeKeepsIdentity(t *testing.T) {
	existing := mustDecode(t, create(t, siteServer()), KindApplication)

	p, err := BuildPatchAt(existing, &ApplicationRegistration{ApplicationURI: Ptr("URN:example:server")}, testNow)
	if err != nil {
		t.Fatalf("BuildPatchAt() error = %v", err)
	}
	if p.ID != existing.Base().DeviceID {
		t.Errorf("ID = %q, want unchanged %q", p.ID, existing.Base().DeviceID)
	}
	if p.Admin["ApplicationUri"] != "URN:example:server" {
		t.Errorf("ApplicationUri = %v, want new spelling", p.Admin["ApplicationUri"])
	}
	if _, ok := p.Admin["ApplicationUriLC"]; ok {
		t.Error("lowercased URI did not change and must not be written")
	}
}

func TestBuildPatchSetDiff(t *testing.T) {
	app := siteServer()
	app.Capabilities = []string{"DA", "HD"}
	rec := create(t, app)
	existing := mustDecode(t, rec, KindApplication)

	p, err := BuildPatchAt(existing, &ApplicationRegistration{Capabilities: []string{"DA", "AC"}}, testNow)
	if err != nil {
		t.Fatalf("BuildPatchAt() error = %v", err)
	}
	caps, ok := shadow.AsProperties(p.Admin["Capabilities"])
	if !ok {
		t.Fatalf("Capabilities patch = %v, want a map", p.Admin["Capabilities"])
	}
	if v, present := caps["HD"]; !present || v != nil {
		t.Errorf("HD = %v (present %v), want explicit nil", v, present)
	}

	got := mustDecode(t, shadow.Apply(rec, p), KindApplication).(*ApplicationRegistration)
	if len(got.Capabilities) != 2 || got.Capabilities[0] != "AC" || got.Capabilities[1] != "DA" {
		t.Errorf("Capabilities = %v, want [AC DA]", got.Capabilities)
	}
}

func TestBuildPatchComparesStateAgainstDesired(t *testing.T) {
	rec := create(t, sampleEndpoint())
	// The supervisor connected with a different URL than requested.
	rec.Reported = shadow.Properties{"EndpointUrl": "opc.tcp://fallback:4840/ua"}
	existing := mustDecode(t, rec, KindEndpoint).(*EndpointRegistration)

	if deref(existing.EndpointURL) != "opc.tcp://fallback:4840/ua" {
		t.Fatalf("consolidated EndpointURL = %q, want reported value", deref(existing.EndpointURL))
	}
	if existing.IsInSync() {
		t.Error("endpoint with drifted URL should be out of sync")
	}

	p, err := BuildPatchAt(existing, &EndpointRegistration{EndpointURL: Ptr("opc.tcp://host:4840/ua")}, testNow)
	if err != nil {
		t.Fatalf("BuildPatchAt() error = %v", err)
	}
	if !p.IsEmpty() {
		t.Errorf("requesting the already desired URL produced admin=%v desired=%v", p.Admin, p.Desired)
	}
}

func TestBuildPatchDisableEnable(t *testing.T) {
	rec := create(t, sampleDiscoverer())
	existing := mustDecode(t, rec, KindDiscoverer)

	disable := &DiscovererRegistration{}
	disable.IsDisabled = Ptr(true)
	p, err := BuildPatchAt(existing, disable, testNow)
	if err != nil {
		t.Fatalf("disable: BuildPatchAt() error = %v", err)
	}
	if p.Admin[shadow.AttrIsDisabled] != true {
		t.Errorf("IsDisabled = %v, want true", p.Admin[shadow.AttrIsDisabled])
	}
	rec = shadow.Apply(rec, p)
	disabled := mustDecode(t, rec, KindDiscoverer)
	if !disabled.Base().Disabled() {
		t.Fatal("entity should be disabled")
	}
	if ns := disabled.Base().NotSeenSince; ns == nil || !ns.Equal(testNow) {
		t.Errorf("NotSeenSince = %v, want %v", ns, testNow)
	}

	// Disabling again must not move the timestamp.
	p, err = BuildPatchAt(disabled, disable, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("re-disable: BuildPatchAt() error = %v", err)
	}
	if !p.IsEmpty() {
		t.Errorf("re-disable produced admin=%v", p.Admin)
	}

	enable := &DiscovererRegistration{}
	enable.IsDisabled = Ptr(false)
	p, err = BuildPatchAt(disabled, enable, testNow)
	if err != nil {
		t.Fatalf("enable: BuildPatchAt() error = %v", err)
	}
	v, present := p.Admin[shadow.AttrNotSeenSince]
	if !present || v != nil {
		t.Errorf("NotSeenSince patch = %v (present %v), want explicit nil", v, present)
	}
	enabled := mustDecode(t, shadow.Apply(rec, p), KindDiscoverer)
	if enabled.Base().Disabled() || enabled.Base().NotSeenSince != nil {
		t.Errorf("after enable: disabled=%v NotSeenSince=%v", enabled.Base().Disabled(), enabled.Base().NotSeenSince)
	}
	assertSameFields(t, enabled, Overlay(existing, enable))
}

func TestBuildPatchErrors(t *testing.T) {
	app := mustDecode(t, create(t, siteServer()), KindApplication)

	tests := []struct {
		name     string
		existing Registration
		updated  Registration
		wantErr  error
	}{
		{"nil update", app, nil, ErrInvalidRegistration},
		{"kind mismatch", app, sampleEndpoint(), ErrKindMismatch},
		{"missing identity", nil, &ApplicationRegistration{ApplicationURI: Ptr("urn:x")}, ErrMissingIdentityField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPatchAt(tt.existing, tt.updated, testNow)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("BuildPatchAt() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
