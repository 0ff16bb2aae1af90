package entity

import "time"

// Registration is one decoded fleet entity. The concrete types are
// *ApplicationRegistration, *EndpointRegistration, *GatewayRegistration,
// *SupervisorRegistration, *DiscovererRegistration and
// *PublisherRegistration; use a type switch to reach kind-specific fields.
type Registration interface {
	// Kind returns the registration's discriminator.
	Kind() Kind

	// Base returns the fields shared by every kind.
	Base() *Common

	// Desired returns the desired-only view this registration was resolved
	// against, or nil when the record carries no desired configuration.
	Desired() Registration

	// IsInSync reports whether reported state matches desired configuration
	// for every sync-relevant field.
	IsInSync() bool

	sealed()
}

// Common holds the fields shared by every registration kind.
type Common struct {
	DeviceID         string
	ModuleID         *string
	ConcurrencyToken string

	IsDisabled   *bool
	NotSeenSince *time.Time
	SiteID       *string

	// Connected is derived from the record's connection state and never
	// written back.
	Connected bool

	desired Registration
	inSync  bool
}

// Base returns c.
func (c *Common) Base() *Common { return c }

// Desired returns the desired-only companion view.
func (c *Common) Desired() Registration { return c.desired }

// IsInSync reports the resolved in-sync flag.
func (c *Common) IsInSync() bool { return c.inSync }

// Disabled reports whether IsDisabled is set to true.
func (c *Common) Disabled() bool { return c.IsDisabled != nil && *c.IsDisabled }

// ID returns the record identity: the device ID joined with the module ID
// when one is set.
func (c *Common) ID() string {
	return ModuleDeviceID(c.DeviceID, deref(c.ModuleID))
}

func (c *Common) sealed() {}

func (c *Common) copyFrom(src *Common) {
	c.DeviceID = src.DeviceID
	c.ModuleID = clonePtr(src.ModuleID)
	c.ConcurrencyToken = src.ConcurrencyToken
	c.IsDisabled = clonePtr(src.IsDisabled)
	c.NotSeenSince = clonePtr(src.NotSeenSince)
	c.SiteID = clonePtr(src.SiteID)
	c.Connected = src.Connected
	c.desired = src.desired
	c.inSync = src.inSync
}

// Clone returns a deep copy of r, companions included.
func Clone(r Registration) Registration {
	if r == nil {
		return nil
	}
	s := schemas[r.Kind()]
	out := s.create()
	out.Base().copyFrom(r.Base())
	for _, f := range s.fields {
		if f.isDerived() {
			continue
		}
		if v := f.get(r); v != nil {
			f.set(out, v)
		}
	}
	return out
}

// Ptr returns a pointer to v. It keeps optional-field literals short.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
