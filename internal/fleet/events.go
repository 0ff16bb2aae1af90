package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-fleet/internal/entity"
	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/mqtt"
)

// EventType names a registry change.
type EventType string

// Event types.
const (
	EventCreated      EventType = "created"
	EventUpdated      EventType = "updated"
	EventRekeyed      EventType = "rekeyed"
	EventDeleted      EventType = "deleted"
	EventDisabled     EventType = "disabled"
	EventEnabled      EventType = "enabled"
	EventSyncChanged  EventType = "sync_changed"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
)

// Event is a change notification for one entity.
type Event struct {
	EventID    string      `json:"event_id"`
	Type       EventType   `json:"event"`
	Kind       entity.Kind `json:"kind"`
	EntityID   string      `json:"id"`
	PreviousID string      `json:"previous_id,omitempty"`
	SiteID     string      `json:"site_id,omitempty"`
	InSync     *bool       `json:"in_sync,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

func newEvent(t EventType, r entity.Registration, now time.Time) Event {
	c := r.Base()
	return Event{
		EventID:   uuid.NewString(),
		Type:      t,
		Kind:      r.Kind(),
		EntityID:  c.ID(),
		SiteID:    siteOf(r),
		Timestamp: now.UTC(),
	}
}

// EventPublisher delivers registry events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, e Event) error
}

type noopPublisher struct{}

func (noopPublisher) PublishEvent(context.Context, Event) error { return nil }

// MessagePublisher is the publish side of an MQTT client.
type MessagePublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTEventPublisher publishes events as JSON on
// graylogic/fleet/{kind}/{id}/event. Events are not retained.
type MQTTEventPublisher struct {
	client MessagePublisher
	qos    byte
}

// NewMQTTEventPublisher creates an event publisher over client.
func NewMQTTEventPublisher(client MessagePublisher, qos byte) *MQTTEventPublisher {
	return &MQTTEventPublisher{client: client, qos: qos}
}

// PublishEvent implements EventPublisher.
func (p *MQTTEventPublisher) PublishEvent(_ context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	topic := mqtt.Topics{}.FleetEvent(e.Kind.Resource(), e.EntityID)
	if err := p.client.Publish(topic, payload, p.qos, false); err != nil {
		return fmt.Errorf("publishing %s event: %w", e.Type, err)
	}
	return nil
}

func siteOf(r entity.Registration) string {
	if s := r.Base().SiteID; s != nil {
		return *s
	}
	return ""
}
