package entity

import "github.com/nerrad567/gray-logic-fleet/internal/shadow"

// View selects which state a registration is decoded from.
type View int

const (
	// ViewConsolidated reads state fields reported-over-desired.
	ViewConsolidated View = iota

	// ViewDesired reads state fields from desired configuration only.
	ViewDesired
)

// String returns the view name.
func (v View) String() string {
	if v == ViewDesired {
		return "desired"
	}
	return "consolidated"
}

// attrConnected is the reported fallback for the connection state.
const attrConnected = "Connected"

// DecodeView decodes a single view of rec without resolving it.
//
// The kind comes from hint when given, otherwise from the record's
// discriminator. A hint that contradicts the discriminator, an unknown
// kind, or a desired view of a record without desired configuration all
// return (nil, false): "not this kind of entity" is not an error.
// rec is never modified.
func DecodeView(rec *shadow.Record, hint Kind, view View) (Registration, bool) {
	if rec == nil {
		return nil, false
	}
	kind, ok := selectKind(rec, hint)
	if !ok {
		return nil, false
	}
	if view == ViewDesired && rec.Desired == nil {
		return nil, false
	}

	s := schemas[kind]
	r := s.create()
	c := r.Base()

	c.DeviceID = rec.ID
	if rec.ModuleID != "" {
		c.ModuleID = Ptr(rec.ModuleID)
	}
	c.ConcurrencyToken = rec.ConcurrencyToken

	// Administrative attributes first.
	if b, ok := shadow.Bool(rec.Admin[shadow.AttrIsDisabled]); ok {
		c.IsDisabled = Ptr(b)
	}
	if t, ok := shadow.Time(rec.Admin[shadow.AttrNotSeenSince]); ok {
		c.NotSeenSince = Ptr(t)
	}
	site := rec.Admin[shadow.AttrSiteID]
	if site == nil {
		site = stateValue(rec, view, shadow.AttrSiteID)
	}
	if str, ok := shadow.String(site); ok && str != "" {
		c.SiteID = Ptr(str)
	}

	for _, f := range s.fields {
		if f.isDerived() {
			continue
		}
		var v any
		switch f.scope {
		case scopeAdmin:
			v = rec.Admin[f.name]
		case scopeState:
			v = stateValue(rec, view, f.name)
		case scopeReported:
			if view == ViewConsolidated {
				v = rec.Reported[f.name]
			}
		}
		if v != nil {
			f.set(r, v)
		}
	}

	if view == ViewConsolidated {
		c.Connected = connected(rec)
	}
	return r, true
}

// Decode decodes rec and resolves its consolidated view against its
// desired view. The result carries the desired companion and the in-sync
// flag.
func Decode(rec *shadow.Record, hint Kind) (Registration, bool) {
	consolidated, ok := DecodeView(rec, hint, ViewConsolidated)
	if !ok {
		return nil, false
	}
	desired, _ := DecodeView(rec, consolidated.Kind(), ViewDesired)
	effective, _ := Resolve(consolidated, desired)
	return effective, true
}

// DecodeServerState decodes the operator's view of rec: desired
// configuration back-filled from the consolidated view. Records without
// desired configuration decode as with Decode.
func DecodeServerState(rec *shadow.Record, hint Kind) (Registration, bool) {
	consolidated, ok := DecodeView(rec, hint, ViewConsolidated)
	if !ok {
		return nil, false
	}
	desired, ok := DecodeView(rec, consolidated.Kind(), ViewDesired)
	if !ok {
		effective, _ := Resolve(consolidated, nil)
		return effective, true
	}
	effective, _ := ResolveServerState(consolidated, desired)
	return effective, true
}

// DecodeAny decodes rec as whatever kind its discriminator names.
func DecodeAny(rec *shadow.Record) (Registration, bool) {
	return Decode(rec, "")
}

// DecodeApplication decodes rec as an application.
func DecodeApplication(rec *shadow.Record) (*ApplicationRegistration, bool) {
	return decodeAs[*ApplicationRegistration](rec, KindApplication)
}

// DecodeEndpoint decodes rec as an endpoint.
func DecodeEndpoint(rec *shadow.Record) (*EndpointRegistration, bool) {
	return decodeAs[*EndpointRegistration](rec, KindEndpoint)
}

// DecodeGateway decodes rec as a gateway.
func DecodeGateway(rec *shadow.Record) (*GatewayRegistration, bool) {
	return decodeAs[*GatewayRegistration](rec, KindGateway)
}

// DecodeSupervisor decodes rec as a supervisor.
func DecodeSupervisor(rec *shadow.Record) (*SupervisorRegistration, bool) {
	return decodeAs[*SupervisorRegistration](rec, KindSupervisor)
}

// DecodeDiscoverer decodes rec as a discoverer.
func DecodeDiscoverer(rec *shadow.Record) (*DiscovererRegistration, bool) {
	return decodeAs[*DiscovererRegistration](rec, KindDiscoverer)
}

// DecodePublisher decodes rec as a publisher.
func DecodePublisher(rec *shadow.Record) (*PublisherRegistration, bool) {
	return decodeAs[*PublisherRegistration](rec, KindPublisher)
}

func decodeAs[R Registration](rec *shadow.Record, kind Kind) (R, bool) {
	var zero R
	r, ok := Decode(rec, kind)
	if !ok {
		return zero, false
	}
	typed, ok := r.(R)
	return typed, ok
}

// selectKind picks the kind from the hint or the record's discriminator.
func selectKind(rec *shadow.Record, hint Kind) (Kind, bool) {
	discriminator := rec.DeviceType()
	if hint != "" {
		if _, known := schemas[hint]; !known {
			return "", false
		}
		if discriminator != "" && discriminator != string(hint) {
			return "", false
		}
		return hint, true
	}
	kind := Kind(discriminator)
	if _, known := schemas[kind]; !known {
		return "", false
	}
	return kind, true
}

func stateValue(rec *shadow.Record, view View, name string) any {
	if view == ViewDesired {
		return rec.Desired[name]
	}
	return resolveField(rec.Reported[name], rec.Desired[name], nil)
}

func connected(rec *shadow.Record) bool {
	if rec.ConnectionState != nil {
		return *rec.ConnectionState
	}
	if b, ok := shadow.Bool(rec.Reported[attrConnected]); ok {
		return b
	}
	return false
}
