package entity

import "github.com/nerrad567/gray-logic-fleet/internal/shadow"

// resolveField is the single precedence rule for state values: reported
// beats desired, desired beats the default.
func resolveField(reported, desired, def any) any {
	if reported != nil {
		return reported
	}
	if desired != nil {
		return desired
	}
	return def
}

// Resolve combines the consolidated view with the desired-only view.
//
// The effective registration is a copy of consolidated carrying desired as
// its companion. With no desired view there is nothing to drift from and
// the entity is in sync. A desired view of another kind is ignored.
// Neither input is modified.
func Resolve(consolidated, desired Registration) (Registration, bool) {
	if consolidated == nil {
		return nil, false
	}
	effective := Clone(consolidated)
	c := effective.Base()

	if desired == nil || desired.Kind() != consolidated.Kind() {
		c.desired = nil
		c.inSync = true
		return effective, true
	}

	c.desired = companion(desired)
	c.inSync = inSync(consolidated, desired)
	return effective, c.inSync
}

// ResolveServerState returns the desired view as the effective
// registration, with unset fields the operator never expressed (site,
// connection, log level, agent-reported values) back-filled from the
// consolidated view. The in-sync flag is computed exactly as in Resolve.
func ResolveServerState(consolidated, desired Registration) (Registration, bool) {
	if desired == nil || consolidated == nil || desired.Kind() != consolidated.Kind() {
		return Resolve(consolidated, nil)
	}

	effective := Clone(desired)
	c := effective.Base()
	from := consolidated.Base()

	if c.SiteID == nil {
		c.SiteID = clonePtr(from.SiteID)
	}
	c.Connected = from.Connected

	for _, f := range schemas[effective.Kind()].fields {
		if !f.backfill && f.scope != scopeReported {
			continue
		}
		if f.isDerived() || f.get(effective) != nil {
			continue
		}
		if v := f.get(consolidated); v != nil {
			f.set(effective, v)
		}
	}

	c.desired = companion(desired)
	c.inSync = inSync(consolidated, desired)
	return effective, c.inSync
}

// inSync is the drift predicate. A sync field is in sync when the desired
// side expresses no preference (unset or the default) or equals the
// consolidated value, defaults applied.
func inSync(consolidated, desired Registration) bool {
	for _, f := range schemas[consolidated.Kind()].fields {
		if !f.sync {
			continue
		}
		if !fieldInSync(f, consolidated, desired) {
			return false
		}
	}
	return true
}

func fieldInSync(f binding, consolidated, desired Registration) bool {
	want := f.get(desired)
	if want == nil || (f.def != nil && shadow.Equal(want, f.def)) {
		return true
	}
	have := resolveField(f.get(consolidated), nil, f.def)
	return shadow.Equal(want, have)
}

// OutOfSyncFields lists the sync fields on which desired and consolidated
// disagree, in table order. It is empty exactly when Resolve reports in
// sync.
func OutOfSyncFields(consolidated, desired Registration) []string {
	if consolidated == nil || desired == nil || consolidated.Kind() != desired.Kind() {
		return nil
	}
	var out []string
	for _, f := range schemas[consolidated.Kind()].fields {
		if f.sync && !fieldInSync(f, consolidated, desired) {
			out = append(out, f.name)
		}
	}
	return out
}

// companion returns a copy of the desired view stripped of its own
// companions, so views never nest.
func companion(desired Registration) Registration {
	d := Clone(desired)
	d.Base().desired = nil
	d.Base().inSync = false
	return d
}
