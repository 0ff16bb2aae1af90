// Package fleet manages registered fleet entities on top of the shadow
// store.
//
// The Registry is the only writer of operator configuration. Every write
// follows the same cycle:
//
//	store.Get ──► entity.Decode ──► entity.BuildPatch ──► store.Update
//	    ▲                                                     │
//	    └────────────── ErrConcurrencyConflict ◄──────────────┘
//
// A conflict restarts the cycle from a fresh read, up to the configured
// retry limit. When a patch changes an entity's identity the registry
// creates the record under the new key and removes the old one.
//
// Agents report state over MQTT (see ReportHandler); the registry merges it
// into the record without touching the concurrency token, then emits
// sync_changed and connection events when the entity's status flips.
//
// The Auditor periodically summarises sync and connection status per kind
// and site for time-series storage.
//
// # Thread Safety
//
// Registry and Auditor are safe for concurrent use once configured. The
// Set* methods must be called before first use.
package fleet
