// Package entity is the reconciliation engine for fleet entities.
//
// It turns shadow records into typed registrations and back again:
//
//   - Decode reads a record into one of six registration kinds
//     (Application, Endpoint, Gateway, Supervisor, Discoverer, Publisher).
//   - Resolve merges the consolidated view (reported over desired) with the
//     desired-only view and decides whether the entity is in sync.
//   - BuildPatch diffs an updated registration against an existing one and
//     produces the minimal shadow patch, re-keying the record when an
//     identity-affecting field changes.
//   - Validate checks domain rules before a registration is accepted.
//   - ToServiceModel / FromServiceModel convert to and from API DTOs.
//
// Every kind is described by a declarative field table (see field.go and
// the per-kind files). One table drives decode, encode, diff, overlay and
// the in-sync predicate, so adding a field is a one-line change.
//
// # Thread Safety
//
// Everything here is a pure function over immutable inputs. No function
// performs I/O, blocks or retries; callers own the store and any retry
// loop around concurrency conflicts.
package entity
