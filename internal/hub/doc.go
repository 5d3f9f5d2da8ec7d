// Package hub keeps every connected board client in sync with the slot store.
//
// The Manager runs one loop that owns all state changes: client joins, client
// departures and slot updates are handled one at a time, in arrival order.
// A joining client is queued the full board (one "slots" message per index)
// before any later update can reach it. An accepted update is written to the
// store and the canonical record is broadcast to every client, the sender
// included.
//
// Each Client has a read goroutine feeding the Manager and a write goroutine
// draining its own outbound queue, so a slow browser only ever stalls itself.
// A client whose queue is full is dropped from the board.
//
// Bad input never reaches the sender as an error: malformed JSON, unknown
// message types and out-of-range indexes are logged and discarded.
package hub
