package entity

import (
	"fmt"
	"strings"
)

// Kind discriminates the six registration variants.
type Kind string

// Registration kinds, as stored in the DeviceType attribute.
const (
	KindApplication Kind = "Application"
	KindEndpoint    Kind = "Endpoint"
	KindGateway     Kind = "Gateway"
	KindSupervisor  Kind = "Supervisor"
	KindDiscoverer  Kind = "Discoverer"
	KindPublisher   Kind = "Publisher"
)

// AllKinds returns all registration kinds.
func AllKinds() []Kind {
	return []Kind{
		KindApplication,
		KindEndpoint,
		KindGateway,
		KindSupervisor,
		KindDiscoverer,
		KindPublisher,
	}
}

// ParseKind parses a kind name. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds() {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Resource returns the plural, lowercase collection name used in URLs and
// topics, e.g. "applications".
func (k Kind) Resource() string {
	return strings.ToLower(string(k)) + "s"
}

// KindFromResource is the inverse of Kind.Resource.
func KindFromResource(resource string) (Kind, error) {
	for _, k := range AllKinds() {
		if k.Resource() == resource {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: resource %q", ErrUnknownKind, resource)
}

// New returns an empty registration of the given kind.
func New(kind Kind) (Registration, error) {
	s, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s.create(), nil
}

// moduleSeparator joins a device ID and module ID into one identity.
const moduleSeparator = "_module_"

// ModuleDeviceID composes the identity of a module running on a device.
// An empty module ID yields the device ID unchanged.
func ModuleDeviceID(deviceID, moduleID string) string {
	if moduleID == "" {
		return deviceID
	}
	return deviceID + moduleSeparator + moduleID
}

// ParseModuleDeviceID splits an identity built by ModuleDeviceID.
func ParseModuleDeviceID(id string) (deviceID, moduleID string) {
	deviceID, moduleID, _ = strings.Cut(id, moduleSeparator)
	return deviceID, moduleID
}
