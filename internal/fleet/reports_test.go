package fleet

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nerrad567/gray-logic-fleet/internal/entity"
	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-fleet/internal/shadow"
)

func TestParseReport(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"reported only", `{"reported":{"Version":"1.0"}}`, false},
		{"connected only", `{"connected":false}`, false},
		{"both", `{"reported":{"LogLevel":"Debug"},"connected":true}`, false},
		{"empty object", `{}`, true},
		{"not json", `online`, true},
		{"wrong shape", `{"reported":"Debug"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReport([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseReport() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidReport) {
				t.Errorf("ParseReport() error = %v, want ErrInvalidReport", err)
			}
		})
	}
}

func TestReport_PropertiesNormalized(t *testing.T) {
	r, err := ParseReport([]byte(`{
		"reported": {
			"MaxWorkers": 8,
			"Ratio": 0.5,
			"Tags": ["a", "b"],
			"Discovery": {"Port": 4840, "Enabled": true}
		}
	}`))
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}
	props := r.properties()

	if v, ok := props["MaxWorkers"].(int64); !ok || v != 8 {
		t.Errorf("MaxWorkers = %#v, want int64(8)", props["MaxWorkers"])
	}
	if v, ok := props["Ratio"].(float64); !ok || v != 0.5 {
		t.Errorf("Ratio = %#v, want 0.5", props["Ratio"])
	}
	if !shadow.Equal(props["Tags"], shadow.EncodeList([]any{"a", "b"})) {
		t.Errorf("Tags = %#v, want encoded list", props["Tags"])
	}
	nested, ok := props["Discovery"].(shadow.Properties)
	if !ok {
		t.Fatalf("Discovery = %T, want shadow.Properties", props["Discovery"])
	}
	if v, ok := nested["Port"].(int64); !ok || v != 4840 {
		t.Errorf("Discovery.Port = %#v, want int64(4840)", nested["Port"])
	}
	if nested["Enabled"] != true {
		t.Errorf("Discovery.Enabled = %#v, want true", nested["Enabled"])
	}

	connOnly, err := ParseReport([]byte(`{"connected":true}`))
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}
	if connOnly.properties() != nil {
		t.Errorf("properties() = %v, want nil for a connection-only report", connOnly.properties())
	}
}

func TestReportHandler(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustRegister(t, r, testSupervisor("gw1"))
	handle := ReportHandler(r)
	topics := mqtt.Topics{}

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{"event topic", topics.FleetEvent("supervisors", "gw1_module_supervisor"), `{"connected":true}`, ErrInvalidReport},
		{"unknown resource", topics.FleetReported("widgets", "gw1"), `{"connected":true}`, ErrInvalidReport},
		{"bad payload", topics.FleetReported("supervisors", "gw1_module_supervisor"), `{}`, ErrInvalidReport},
		{"unknown entity", topics.FleetReported("supervisors", "gw9_module_supervisor"), `{"connected":true}`, ErrEntityNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handle(tt.topic, []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("handler error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("applies report", func(t *testing.T) {
		err := handle(topics.FleetReported("supervisors", "gw1_module_supervisor"),
			[]byte(`{"reported":{"Version":"3.1.0"},"connected":true}`))
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		got, err := r.Get(context.Background(), entity.KindSupervisor, "gw1_module_supervisor", false)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		sup := got.(*entity.SupervisorRegistration)
		if sup.Version == nil || *sup.Version != "3.1.0" {
			t.Errorf("Version = %v, want 3.1.0", sup.Version)
		}
		if !sup.Connected {
			t.Error("Connected = false after connected report")
		}
	})
}

func TestReportHandler_SetReportedAsArray(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	pub := &entity.PublisherRegistration{Capabilities: []string{"Cloud", "Edge"}}
	pub.DeviceID = "gw1"
	pub.ModuleID = entity.Ptr("publisher")
	id := mustRegister(t, r, pub).Base().ID()

	handle := ReportHandler(r)
	err := handle(mqtt.Topics{}.FleetReported("publishers", id),
		[]byte(`{"reported":{"Capabilities":["Edge","Cloud"]}}`))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}

	got, err := r.Get(ctx, entity.KindPublisher, id, false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	caps := got.(*entity.PublisherRegistration).Capabilities
	if fmt.Sprint(caps) != "[Cloud Edge]" {
		t.Errorf("Capabilities = %v, want [Cloud Edge]", caps)
	}
	if !got.IsInSync() {
		t.Error("IsInSync() = false, want true when reported capabilities match desired")
	}
}

func TestReportHandler_ShrinkingList(t *testing.T) {
	r, _, pub := newTestRegistry(t)
	ctx := context.Background()

	disc := &entity.DiscovererRegistration{Locales: []string{"en"}}
	disc.DeviceID = "gw1"
	disc.ModuleID = entity.Ptr("discovery")
	id := mustRegister(t, r, disc).Base().ID()
	topic := mqtt.Topics{}.FleetReported("discoverers", id)
	handle := ReportHandler(r)

	steps := []struct {
		payload    string
		wantLocale string
		wantInSync bool
	}{
		{`{"reported":{"Locales":["en","de","fr"]}}`, "[en de fr]", false},
		{`{"reported":{"Locales":["en"]}}`, "[en]", true},
	}
	for _, step := range steps {
		if err := handle(topic, []byte(step.payload)); err != nil {
			t.Fatalf("handler(%s) error = %v", step.payload, err)
		}
		got, err := r.Get(ctx, entity.KindDiscoverer, id, false)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if locales := got.(*entity.DiscovererRegistration).Locales; fmt.Sprint(locales) != step.wantLocale {
			t.Errorf("after %s: Locales = %v, want %s", step.payload, locales, step.wantLocale)
		}
		if got.IsInSync() != step.wantInSync {
			t.Errorf("after %s: IsInSync() = %v, want %v", step.payload, got.IsInSync(), step.wantInSync)
		}
	}

	want := []EventType{EventCreated, EventSyncChanged, EventSyncChanged}
	if !equalTypes(pub.types(), want) {
		t.Errorf("events = %v, want %v", pub.types(), want)
	}
}
