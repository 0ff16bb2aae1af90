// Package shadow provides the device-shadow store for Gray Logic Fleet.
//
// A shadow record is the durable, per-entity document holding three
// property bags guarded by an optimistic-concurrency token:
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ Record  id / module id / concurrency token / connection state │
//	│                                                              │
//	│  Admin     administrator attributes (always present)         │
//	│  Desired   operator intent (optional)                        │
//	│  Reported  agent-observed state (optional)                   │
//	└──────────────────────────────────────────────────────────────┘
//
// Property bags only hold scalars and nested maps. Ordered lists are
// stored index-keyed ({"0":"a","1":"b"}) and sets key-presence
// ({"DA":true}); see codec.go. Patches use merge-patch semantics: nested
// maps merge recursively and a nil value deletes the key.
//
// # Usage
//
//	store := shadow.NewSQLiteStore(db.DB)
//
//	rec, err := store.Get(ctx, "uas3f2c...", "")
//	if errors.Is(err, shadow.ErrNotFound) {
//	    // not registered
//	}
//
//	token, err := store.Update(ctx, rec.ID, rec.ModuleID, patch, rec.ConcurrencyToken)
//	if errors.Is(err, shadow.ErrConcurrencyConflict) {
//	    // re-read, re-decode, retry
//	}
//
// # Thread Safety
//
// Record and Patch values are plain data; Apply never mutates its inputs.
// SQLiteStore is safe for concurrent use.
package shadow
