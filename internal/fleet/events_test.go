package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-fleet/internal/entity"
)

type capturedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakeMessagePublisher struct {
	messages []capturedMessage
	err      error
}

func (f *fakeMessagePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.messages = append(f.messages, capturedMessage{topic, payload, qos, retained})
	return f.err
}

func TestMQTTEventPublisher_PublishEvent(t *testing.T) {
	client := &fakeMessagePublisher{}
	pub := NewMQTTEventPublisher(client, 1)

	ev := Event{
		EventID:  "e-1",
		Type:     EventSyncChanged,
		Kind:     entity.KindDiscoverer,
		EntityID: "gw1_module_discovery",
		SiteID:   "gw1",
		InSync:   entity.Ptr(false),
	}
	if err := pub.PublishEvent(context.Background(), ev); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}

	if len(client.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(client.messages))
	}
	msg := client.messages[0]
	if msg.topic != "graylogic/fleet/discoverers/gw1_module_discovery/event" {
		t.Errorf("topic = %q", msg.topic)
	}
	if msg.qos != 1 || msg.retained {
		t.Errorf("qos = %d retained = %v, want 1/false", msg.qos, msg.retained)
	}

	var decoded map[string]any
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	checks := map[string]any{
		"event_id": "e-1",
		"event":    "sync_changed",
		"kind":     "Discoverer",
		"id":       "gw1_module_discovery",
		"site_id":  "gw1",
		"in_sync":  false,
	}
	for k, want := range checks {
		if decoded[k] != want {
			t.Errorf("payload[%q] = %v, want %v", k, decoded[k], want)
		}
	}
	if _, ok := decoded["previous_id"]; ok {
		t.Error("payload carries previous_id for a non-rekey event")
	}
}

func TestMQTTEventPublisher_PublishError(t *testing.T) {
	client := &fakeMessagePublisher{err: errors.New("not connected")}
	pub := NewMQTTEventPublisher(client, 0)

	err := pub.PublishEvent(context.Background(), Event{Type: EventCreated, Kind: entity.KindGateway, EntityID: "gw1"})
	if err == nil {
		t.Fatal("PublishEvent() expected error")
	}
}
