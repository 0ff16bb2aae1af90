package entity

import (
	"crypto/sha1" //nolint:gosec // certificate thumbprints are SHA-1 by definition
	"encoding/hex"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-fleet/internal/shadow"
)

// scope says which property bag a field lives in.
type scope int

const (
	// scopeAdmin fields live in the record's administrative attributes.
	scopeAdmin scope = iota

	// scopeState fields live in desired configuration and are echoed back
	// by the agent in reported state.
	scopeState

	// scopeReported fields are written by the agent only and never patched.
	scopeReported
)

// binding maps one registration field to its shadow property. Values
// crossing a binding are always in property-bag encoding, so a single
// shadow.Equal comparison covers scalars, lists and sets alike.
type binding struct {
	name  string
	scope scope

	// get returns the encoded value, or nil when the field is unset.
	get func(Registration) any

	// set decodes v into the field. Nil for derived fields.
	set func(Registration, any)

	// sync marks fields compared by the in-sync predicate; def is the
	// value assumed when neither side has one.
	sync bool
	def  any

	// backfill marks fields copied from the consolidated view into a
	// server-state view that lacks them.
	backfill bool
}

func (b binding) isDerived() bool { return b.set == nil }

func (b binding) synced(def any) binding {
	b.sync = true
	b.def = def
	return b
}

func (b binding) backfilled() binding {
	b.backfill = true
	return b
}

// schema is the field table of one kind.
type schema struct {
	kind   Kind
	create func() Registration
	fields []binding
}

var schemas = map[Kind]*schema{}

func register(kind Kind, create func() Registration, fields ...binding) {
	schemas[kind] = &schema{kind: kind, create: create, fields: fields}
}

func optional[R Registration, T any](name string, sc scope, ptr func(R) **T, enc func(T) any, dec func(any) (T, bool)) binding {
	return binding{
		name:  name,
		scope: sc,
		get: func(r Registration) any {
			p := *ptr(r.(R))
			if p == nil {
				return nil
			}
			return enc(*p)
		},
		set: func(r Registration, v any) {
			if v == nil {
				*ptr(r.(R)) = nil
				return
			}
			if t, ok := dec(v); ok {
				*ptr(r.(R)) = &t
			}
		},
	}
}

func stringField[R Registration](name string, sc scope, ptr func(R) **string) binding {
	return optional(name, sc, ptr, func(s string) any { return s }, shadow.String)
}

func boolField[R Registration](name string, sc scope, ptr func(R) **bool) binding {
	return optional(name, sc, ptr, func(b bool) any { return b }, shadow.Bool)
}

func intField[R Registration](name string, sc scope, ptr func(R) **int) binding {
	return optional(name, sc, ptr,
		func(i int) any { return int64(i) },
		func(v any) (int, bool) {
			n, ok := shadow.Int64(v)
			return int(n), ok
		})
}

func enumField[R Registration, E ~string](name string, sc scope, ptr func(R) **E) binding {
	return optional(name, sc, ptr,
		func(e E) any { return string(e) },
		func(v any) (E, bool) {
			s, ok := shadow.String(v)
			return E(s), ok
		})
}

// durationField stores durations in time.Duration string form ("1m30s").
// Bare integers are read as milliseconds.
func durationField[R Registration](name string, sc scope, ptr func(R) **time.Duration) binding {
	return optional(name, sc, ptr,
		func(d time.Duration) any { return d.String() },
		func(v any) (time.Duration, bool) {
			if s, ok := v.(string); ok {
				d, err := time.ParseDuration(s)
				return d, err == nil
			}
			ms, ok := shadow.Int64(v)
			return time.Duration(ms) * time.Millisecond, ok
		})
}

func timeField[R Registration](name string, sc scope, ptr func(R) **time.Time) binding {
	return optional(name, sc, ptr,
		func(t time.Time) any { return shadow.FormatTime(t) },
		shadow.Time)
}

// listField stores an ordered list index-keyed.
func listField[R Registration](name string, sc scope, ptr func(R) *[]string) binding {
	return binding{
		name:  name,
		scope: sc,
		get: func(r Registration) any {
			if s := *ptr(r.(R)); s != nil {
				return shadow.EncodeList(s)
			}
			return nil
		},
		set: func(r Registration, v any) {
			items, _ := shadow.DecodeStrings(v)
			*ptr(r.(R)) = items
		},
	}
}

// setField stores an unordered set key-presence. Decoded sets are sorted.
func setField[R Registration](name string, sc scope, ptr func(R) *[]string) binding {
	return binding{
		name:  name,
		scope: sc,
		get: func(r Registration) any {
			if s := *ptr(r.(R)); s != nil {
				return shadow.EncodeSet(s)
			}
			return nil
		},
		set: func(r Registration, v any) {
			items, _ := shadow.DecodeSet(v)
			*ptr(r.(R)) = items
		},
	}
}

// bytesField stores binary data as index-keyed base64 chunks. Undecodable
// data reads as unset.
func bytesField[R Registration](name string, sc scope, ptr func(R) *[]byte) binding {
	return binding{
		name:  name,
		scope: sc,
		get: func(r Registration) any {
			if b := *ptr(r.(R)); b != nil {
				return shadow.EncodeChunks(b, shadow.DefaultChunkSize)
			}
			return nil
		},
		set: func(r Registration, v any) {
			data, err := shadow.DecodeChunks(v)
			if err != nil {
				data = nil
			}
			*ptr(r.(R)) = data
		},
	}
}

// mapField stores a string map as a nested property bag.
func mapField[R Registration](name string, sc scope, ptr func(R) *map[string]string) binding {
	return binding{
		name:  name,
		scope: sc,
		get: func(r Registration) any {
			m := *ptr(r.(R))
			if m == nil {
				return nil
			}
			out := make(shadow.Properties, len(m))
			for k, v := range m {
				out[k] = v
			}
			return out
		},
		set: func(r Registration, v any) {
			bag, ok := shadow.AsProperties(v)
			if !ok {
				*ptr(r.(R)) = nil
				return
			}
			out := make(map[string]string, len(bag))
			for k, e := range bag {
				if s, isStr := e.(string); isStr {
					out[k] = s
				}
			}
			*ptr(r.(R)) = out
		},
	}
}

// derivedField is computed from other fields and written alongside them so
// the store can filter on it. It is never decoded.
func derivedField[R Registration](name string, sc scope, compute func(R) any) binding {
	return binding{
		name:  name,
		scope: sc,
		get:   func(r Registration) any { return compute(r.(R)) },
	}
}

func lowerOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return strings.ToLower(*s)
}

// Thumbprint returns the uppercase hex SHA-1 digest of a DER certificate,
// or "" for no certificate.
func Thumbprint(cert []byte) string {
	if len(cert) == 0 {
		return ""
	}
	sum := sha1.Sum(cert) //nolint:gosec // see import
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func thumbprintOrNil(cert []byte) any {
	if t := Thumbprint(cert); t != "" {
		return t
	}
	return nil
}
