// Package slots is the single source of truth for the queue board: a fixed
// number of slot records indexed 0..N-1, created at startup in the free state
// and mutated only through Store.Set.
//
// Store.Set replaces the whole record. Every field missing from the incoming
// Update falls back to its default (status "free", everything else null), so a
// client that sends only a status clears the name, personal id and note of
// that slot. Values leaving the store are deep copies.
package slots
