// Package sync reconciles the local store with the remote API.
package sync

import "context"

// Engine drains the mutation queue against the remote API and pulls
// authoritative server state into the local store.
//
// The engine is a two-state machine: Idle and Syncing. It enters Syncing
// when a cycle is admitted and returns to Idle unconditionally when the
// cycle finishes, whether or not anything failed. A failure can never
// leave the engine stuck in Syncing.
//
// A cycle has two phases:
//
//  1. Drain: queued mutations are dispatched in sequence order. Failures
//     are isolated per entry; an entry that keeps failing is retried on
//     later cycles up to the retry cap and then dropped.
//  2. Pull: each entity collection is fetched from the server and merged
//     into the local store by recency, skipping rows with unconfirmed
//     local edits. A fetch failure aborts the pull phase only.
//
// Engine errors never propagate to UI-facing callers; the observable
// effects are queue state, mirror sync tags, and the Syncing flag.
type Engine interface {
	// RunCycle runs one sync cycle. It is a no-op returning nil when
	// connectivity is down or another cycle is already in flight; at
	// most one cycle runs system-wide at any time.
	//
	// RunCycle serves all three triggers: engine start, the periodic
	// timer, and manual invocation.
	RunCycle(ctx context.Context) error

	// Syncing reports whether a cycle is currently in flight.
	Syncing() bool
}
