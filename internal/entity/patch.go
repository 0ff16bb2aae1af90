package entity

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-fleet/internal/shadow"
)

// BuildPatch computes the shadow patch that moves existing to updated,
// stamping disable times with the current time. See BuildPatchAt.
func BuildPatch(existing, updated Registration) (*shadow.Patch, error) {
	return BuildPatchAt(existing, updated, time.Now())
}

// BuildPatchAt computes the shadow patch that moves existing to updated.
//
// Only fields updated sets are considered; unset fields keep their
// existing value. A field is emitted when its encoded value differs from
// the existing one: administrative fields compare against existing, state
// fields against existing's desired companion when it has one. Map-encoded
// values carry nil for stale keys so the merge removes them.
//
// When existing is nil, or the identity key changes, the patch is a full
// create of the overlay of existing and updated: Patch.ID is the new key
// and the concurrency token is cleared so the write is unconditional.
//
// Re-applying the same update to the patched record yields an empty patch.
func BuildPatchAt(existing, updated Registration, now time.Time) (*shadow.Patch, error) {
	if updated == nil {
		return nil, fmt.Errorf("%w: nil registration", ErrInvalidRegistration)
	}
	if existing != nil && existing.Kind() != updated.Kind() {
		return nil, fmt.Errorf("%w: %s updated as %s", ErrKindMismatch, existing.Kind(), updated.Kind())
	}

	key, changed, err := ResolveIdentity(existing, updated)
	if err != nil {
		return nil, err
	}
	if changed {
		return createPatch(Overlay(existing, updated), key, now), nil
	}
	return diffPatch(existing, updated, now), nil
}

// createPatch writes every set field of r.
func createPatch(r Registration, key string, now time.Time) *shadow.Patch {
	id, moduleID := RecordKey(r.Kind(), key)
	p := &shadow.Patch{
		ID:       id,
		ModuleID: moduleID,
		Admin:    shadow.Properties{shadow.AttrDeviceType: string(r.Kind())},
	}

	c := r.Base()
	if c.SiteID != nil {
		p.Admin[shadow.AttrSiteID] = *c.SiteID
	}
	if c.IsDisabled != nil {
		p.Admin[shadow.AttrIsDisabled] = *c.IsDisabled
	}
	if c.Disabled() {
		since := now
		if c.NotSeenSince != nil {
			since = *c.NotSeenSince
		}
		p.Admin[shadow.AttrNotSeenSince] = shadow.FormatTime(since)
	}

	desired := shadow.Properties{}
	for _, f := range schemas[r.Kind()].fields {
		if f.scope == scopeReported {
			continue
		}
		v := f.get(r)
		if v == nil {
			continue
		}
		if f.scope == scopeAdmin {
			p.Admin[f.name] = v
		} else {
			desired[f.name] = v
		}
	}
	if len(desired) > 0 {
		p.Desired = desired
	}
	return p
}

// diffPatch writes the fields of updated that differ from existing.
func diffPatch(existing, updated Registration, now time.Time) *shadow.Patch {
	c, u := existing.Base(), updated.Base()
	p := &shadow.Patch{
		ID:               c.DeviceID,
		ModuleID:         deref(c.ModuleID),
		ConcurrencyToken: c.ConcurrencyToken,
	}
	admin := shadow.Properties{}
	desired := shadow.Properties{}

	if u.SiteID != nil && !equalPtr(u.SiteID, c.SiteID) {
		admin[shadow.AttrSiteID] = *u.SiteID
	}
	if u.IsDisabled != nil {
		disable := *u.IsDisabled
		if !equalPtr(u.IsDisabled, c.IsDisabled) {
			admin[shadow.AttrIsDisabled] = disable
		}
		switch {
		case disable && !c.Disabled():
			admin[shadow.AttrNotSeenSince] = shadow.FormatTime(now)
		case !disable && c.NotSeenSince != nil:
			admin[shadow.AttrNotSeenSince] = nil
		}
	}

	base := existing.Desired()
	var derivedBase Registration
	for _, f := range schemas[existing.Kind()].fields {
		if f.scope == scopeReported {
			continue
		}
		next := f.get(updated)
		if next == nil {
			continue
		}

		var prev any
		switch {
		case f.isDerived():
			if derivedBase == nil {
				derivedBase = stored(existing)
			}
			prev = f.get(derivedBase)
		case f.scope == scopeState && base != nil:
			prev = f.get(base)
		default:
			prev = f.get(existing)
		}
		if shadow.Equal(next, prev) {
			continue
		}

		if f.scope == scopeAdmin {
			admin[f.name] = shadow.WithDeletions(prev, next)
		} else {
			desired[f.name] = shadow.WithDeletions(prev, next)
		}
	}

	if len(admin) > 0 {
		p.Admin = admin
	}
	if len(desired) > 0 {
		p.Desired = desired
	}
	return p
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
