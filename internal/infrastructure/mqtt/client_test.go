package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-fleet-test",
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name string
		fn   func() string
		want string
	}{
		{
			name: "FleetEvent",
			fn: func() string {
				return Topics{}.FleetEvent("supervisors", "gw1_module_supervisor")
			},
			want: "graylogic/fleet/supervisors/gw1_module_supervisor/event",
		},
		{
			name: "FleetReported",
			fn: func() string {
				return Topics{}.FleetReported("discoverers", "gw1_module_discovery")
			},
			want: "graylogic/fleet/discoverers/gw1_module_discovery/reported",
		},
		{
			name: "SystemStatus",
			fn: func() string {
				return Topics{}.SystemStatus()
			},
			want: "graylogic/system/status",
		},
		{
			name: "AllFleetReports",
			fn: func() string {
				return Topics{}.AllFleetReports()
			},
			want: "graylogic/fleet/+/+/reported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.want {
				t.Errorf("%s() = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseFleetReportTopic(t *testing.T) {
	tests := []struct {
		name         string
		topic        string
		wantResource string
		wantID       string
		wantOK       bool
	}{
		{
			name:         "round trip",
			topic:        Topics{}.FleetReported("publishers", "gw1_module_publisher"),
			wantResource: "publishers",
			wantID:       "gw1_module_publisher",
			wantOK:       true,
		},
		{name: "event leaf", topic: Topics{}.FleetEvent("publishers", "gw1_module_publisher")},
		{name: "other prefix", topic: "graylogic/system/status"},
		{name: "missing id", topic: "graylogic/fleet/publishers//reported"},
		{name: "too deep", topic: "graylogic/fleet/publishers/a/b/reported"},
		{name: "empty", topic: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resource, id, ok := ParseFleetReportTopic(tt.topic)
			if ok != tt.wantOK {
				t.Fatalf("ParseFleetReportTopic(%q) ok = %v, want %v", tt.topic, ok, tt.wantOK)
			}
			if resource != tt.wantResource || id != tt.wantID {
				t.Errorf("ParseFleetReportTopic(%q) = (%q, %q), want (%q, %q)",
					tt.topic, resource, id, tt.wantResource, tt.wantID)
			}
		})
	}
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.MQTTConfig)
		wantBroker string
		wantUser   string
		wantTLS    bool
	}{
		{
			name:       "plain tcp",
			mutate:     func(*config.MQTTConfig) {},
			wantBroker: "tcp://127.0.0.1:1883",
		},
		{
			name: "tls with credentials",
			mutate: func(c *config.MQTTConfig) {
				c.Broker.TLS = true
				c.Broker.Port = 8883
				c.Auth.Username = "fleetd"
				c.Auth.Password = "secret"
			},
			wantBroker: "ssl://127.0.0.1:8883",
			wantUser:   "fleetd",
			wantTLS:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			opts := buildClientOptions(cfg)

			if len(opts.Servers) != 1 || opts.Servers[0].String() != tt.wantBroker {
				t.Errorf("Servers = %v, want [%s]", opts.Servers, tt.wantBroker)
			}
			if opts.ClientID != cfg.Broker.ClientID {
				t.Errorf("ClientID = %q, want %q", opts.ClientID, cfg.Broker.ClientID)
			}
			if opts.Username != tt.wantUser {
				t.Errorf("Username = %q, want %q", opts.Username, tt.wantUser)
			}
			if (opts.TLSConfig != nil) != tt.wantTLS {
				t.Errorf("TLSConfig set = %v, want %v", opts.TLSConfig != nil, tt.wantTLS)
			}
			if !opts.AutoReconnect {
				t.Error("AutoReconnect = false, want true")
			}
		})
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "fleetd-1")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	wantTopic := Topics{}.SystemStatus()
	if opts.WillTopic != wantTopic {
		t.Errorf("WillTopic = %q, want %q", opts.WillTopic, wantTopic)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}

	var p statusPayload
	if err := json.Unmarshal(opts.WillPayload, &p); err != nil {
		t.Fatalf("unmarshal will payload: %v", err)
	}
	if p.Status != statusOffline || p.Reason != "unexpected_disconnect" {
		t.Errorf("will payload = %+v, want offline/unexpected_disconnect", p)
	}
}

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus string
		wantReason string
	}{
		{"online", buildOnlinePayload("fleetd-1"), statusOnline, ""},
		{"offline", buildOfflinePayload("fleetd-1"), statusOffline, "graceful_shutdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p statusPayload
			if err := json.Unmarshal([]byte(tt.payload), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if p.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", p.Status, tt.wantStatus)
			}
			if p.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", p.Reason, tt.wantReason)
			}
			if p.Service != serviceName || p.ClientID != "fleetd-1" {
				t.Errorf("identity = %q/%q, want %q/%q", p.Service, p.ClientID, serviceName, "fleetd-1")
			}
			if p.Timestamp == "" {
				t.Error("Timestamp is empty")
			}
		})
	}

	if strings.Contains(buildOnlinePayload("x"), "reason") {
		t.Error("online payload should omit reason")
	}
}

// =============================================================================
// Disconnected Client Tests
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}
	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() with cancelled ctx error = %v, want context.Canceled", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}
	topic := Topics{}.FleetEvent("gateways", "gw1")

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("{}"), 1, ErrInvalidTopic},
		{"single-level wildcard", "graylogic/fleet/+/gw1/event", []byte("{}"), 1, ErrInvalidTopic},
		{"multi-level wildcard", "graylogic/#", []byte("{}"), 1, ErrInvalidTopic},
		{"invalid qos", topic, []byte("{}"), 3, ErrInvalidQoS},
		{"oversized payload", topic, make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", topic, []byte("{}"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }
	topic := Topics{}.AllFleetReports()

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, handler, ErrInvalidTopic},
		{"invalid qos", topic, 3, handler, ErrInvalidQoS},
		{"nil handler", topic, 1, nil, ErrSubscribeFailed},
		{"not connected", topic, 1, handler, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after failed subscribes, want 0", client.SubscriptionCount())
	}
	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe(topic); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

func TestWrapHandler_LogsErrors(t *testing.T) {
	logger := &mockLogger{}
	client := &Client{}
	client.SetLogger(logger)

	topic := Topics{}.FleetReported("gateways", "gw1")
	var gotTopic string
	var gotPayload string
	wrapped := client.wrapHandler(func(topic string, payload []byte) error {
		gotTopic = topic
		gotPayload = string(payload)
		return errors.New("bad report")
	})
	wrapped(nil, fakeMessage{topic: topic, payload: []byte(`{"connected":true}`)})

	if gotTopic != topic || gotPayload != `{"connected":true}` {
		t.Errorf("handler got (%q, %q)", gotTopic, gotPayload)
	}
	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one entry", logger.warns)
	}
}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	logger := &mockLogger{}
	client := &Client{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(string, []byte) error {
		panic("boom")
	})
	wrapped(nil, fakeMessage{topic: "graylogic/fleet/gateways/gw1/reported"})

	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want one entry", logger.errors)
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	client := &Client{}
	wrapped := client.wrapHandler(func(string, []byte) error {
		panic("boom")
	})

	// Must not propagate the panic.
	wrapped(nil, fakeMessage{topic: "graylogic/fleet/gateways/gw1/reported"})
}

func TestSetLogger(t *testing.T) {
	client := &Client{}
	client.SetLogger(&mockLogger{})
	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}
	client.SetLogger(nil)
	if client.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}
