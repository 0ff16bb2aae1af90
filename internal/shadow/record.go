package shadow

import "time"

// Well-known administrative attribute names shared by every entity kind.
const (
	AttrDeviceType   = "DeviceType"
	AttrSiteID       = "SiteId"
	AttrIsDisabled   = "IsDisabled"
	AttrNotSeenSince = "NotSeenSince"

	// AttrLegacyType is the discriminator written by older registries.
	AttrLegacyType = "Type"

	// AttrReportedType is the discriminator an agent writes into reported state.
	AttrReportedType = "__type__"
)

// Properties is a property bag: string keys mapping to scalars
// (string, bool, int64, float64) or nested Properties.
type Properties map[string]any

// Clone returns a deep copy of the bag. A nil bag clones to nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Properties:
		return t.Clone()
	case map[string]any:
		return Properties(t).Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Record is the persisted shadow of one entity.
type Record struct {
	ID               string
	ModuleID         string
	ConcurrencyToken string

	Admin    Properties
	Desired  Properties
	Reported Properties

	// ConnectionState is the transport-level connectivity flag, if known.
	ConnectionState *bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Admin = r.Admin.Clone()
	out.Desired = r.Desired.Clone()
	out.Reported = r.Reported.Clone()
	if r.ConnectionState != nil {
		c := *r.ConnectionState
		out.ConnectionState = &c
	}
	return &out
}

// DeviceType returns the kind discriminator stored in the record, checking
// the admin attribute, then the reported type marker, then the legacy
// admin attribute. Returns "" when none is present.
func (r *Record) DeviceType() string {
	if r == nil {
		return ""
	}
	if s, ok := r.Admin[AttrDeviceType].(string); ok && s != "" {
		return s
	}
	if s, ok := r.Reported[AttrReportedType].(string); ok && s != "" {
		return s
	}
	if s, ok := r.Admin[AttrLegacyType].(string); ok && s != "" {
		return s
	}
	return ""
}

// Patch is a partial update to a shadow record.
//
// Admin and Desired are merge patches: nested maps merge, nil deletes.
// A patch whose ID differs from the target record's ID describes a new
// record (re-keying). ConcurrencyToken is informational; stores take the
// expected token as an explicit argument.
type Patch struct {
	ID               string
	ModuleID         string
	ConcurrencyToken string

	Admin   Properties
	Desired Properties
}

// IsEmpty reports whether the patch carries no property changes.
func (p *Patch) IsEmpty() bool {
	return p == nil || (len(p.Admin) == 0 && len(p.Desired) == 0)
}

// Apply returns the record that results from applying p to rec.
//
// Neither argument is modified. When rec is nil, or p names a different
// ID, the result is a new record built from the patch alone.
func Apply(rec *Record, p *Patch) *Record {
	if p == nil {
		return rec.Clone()
	}

	var out *Record
	if rec == nil || (p.ID != "" && p.ID != rec.ID) {
		out = &Record{ID: p.ID, ModuleID: p.ModuleID}
	} else {
		out = rec.Clone()
	}

	out.Admin = mergeInto(out.Admin, p.Admin)
	if out.Admin == nil {
		out.Admin = Properties{}
	}
	if len(p.Desired) > 0 {
		out.Desired = mergeInto(out.Desired, p.Desired)
	}
	return out
}

// Merge applies a merge patch to dst and returns the result. dst is not
// modified.
func Merge(dst, patch Properties) Properties {
	return mergeInto(dst.Clone(), patch)
}

// MergeReported applies an agent report to stored reported state. Each
// reported top-level property replaces the stored value whole, so a list
// or set that shrank loses its stale entries. A nil value removes the
// property; properties the report omits are kept. current is not modified.
func MergeReported(current, reported Properties) Properties {
	if len(reported) == 0 {
		return current.Clone()
	}
	patch := make(Properties, len(reported))
	for k, v := range reported {
		patch[k] = WithDeletions(current[k], v)
	}
	return Merge(current, patch)
}

// mergeInto applies patch to dst in place. dst may be nil.
func mergeInto(dst, patch Properties) Properties {
	if len(patch) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(Properties, len(patch))
	}
	for k, v := range patch {
		if v == nil {
			delete(dst, k)
			continue
		}
		sub, isMap := AsProperties(v)
		if !isMap {
			dst[k] = cloneValue(v)
			continue
		}
		existing, _ := AsProperties(dst[k])
		merged := mergeInto(existing.Clone(), sub)
		if merged == nil {
			merged = Properties{}
		}
		dst[k] = merged
	}
	return dst
}

// AsProperties returns v as a property bag, accepting both map spellings a
// decoded value can carry.
func AsProperties(v any) (Properties, bool) {
	switch t := v.(type) {
	case Properties:
		return t, true
	case map[string]any:
		return Properties(t), true
	default:
		return nil, false
	}
}
