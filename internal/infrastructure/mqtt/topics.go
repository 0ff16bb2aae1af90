package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
//
// Fleet topics use the scheme graylogic/fleet/{kind}/{id}/{leaf}, where
// {kind} is the plural resource name ("supervisors") and {id} the
// service-model ID of the entity.
const (
	// TopicPrefixFleet is the base for all fleet entity topics.
	TopicPrefixFleet = "graylogic/fleet"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Fleet topic leaves.
const (
	leafEvent    = "event"
	leafReported = "reported"
)

// Topics provides builders for Gray Logic MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.FleetEvent("supervisors", "gw1_module_supervisor")
//	// Returns: "graylogic/fleet/supervisors/gw1_module_supervisor/event"
type Topics struct{}

// =============================================================================
// Fleet Topics
// =============================================================================

// FleetEvent returns the topic registry change events for an entity are
// published on.
//
// Example: graylogic/fleet/applications/uas3f.../event
func (Topics) FleetEvent(resource, id string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixFleet, resource, id, leafEvent)
}

// FleetReported returns the topic an agent publishes its reported state
// on.
//
// Example: graylogic/fleet/discoverers/gw1_module_discovery/reported
func (Topics) FleetReported(resource, id string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixFleet, resource, id, leafReported)
}

// ParseFleetReportTopic extracts the resource and entity ID from a topic
// built by FleetReported.
func ParseFleetReportTopic(topic string) (resource, id string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixFleet+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != leafReported || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllFleetReports returns a pattern matching every agent report.
//
// Pattern: graylogic/fleet/+/+/reported
func (Topics) AllFleetReports() string {
	return fmt.Sprintf("%s/+/+/%s", TopicPrefixFleet, leafReported)
}
