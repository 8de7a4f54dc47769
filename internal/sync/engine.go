package sync

import (
	"context"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/prodhub/prodhub/internal/api"
	"github.com/prodhub/prodhub/internal/connectivity"
	"github.com/prodhub/prodhub/internal/entity"
	"github.com/prodhub/prodhub/internal/store"
)

// DefaultRetryCap is how many failed dispatch attempts a queue entry gets
// before it is dropped.
const DefaultRetryCap = 3

// CycleStats summarizes one completed sync cycle.
type CycleStats struct {
	// Drained is the number of queue entries applied remotely.
	Drained int
	// Failed is the number of entries that failed and remain queued.
	Failed int
	// Dropped is the number of entries abandoned this cycle, whether by
	// retry exhaustion or permanent rejection.
	Dropped int
	// Merged is the number of local rows changed by the pull phase.
	Merged int
	// Duration is the wall-clock time of the cycle.
	Duration time.Duration
}

// Events are optional hooks observers can attach to an engine. Nil fields
// are skipped. Callbacks run on the cycle's goroutine and must not block.
type Events struct {
	CycleStarted  func()
	CycleFinished func(CycleStats)
	EntryDropped  func(entry *store.QueueEntry, err error)
}

// Config tunes an Engine. The zero value gets defaults from New.
type Config struct {
	// RetryCap bounds dispatch attempts per queue entry (default 3).
	RetryCap int

	// Logger for cycle activity. Defaults to a stderr logger.
	Logger *log.Logger

	// Events hooks, all optional.
	Events Events
}

// engine implements the Engine interface.
type engine struct {
	store    *store.Store
	client   *api.Client
	conn     connectivity.Observer
	registry map[entity.Type]entityOps
	retryCap int
	logger   *log.Logger
	events   Events

	// syncing is the Idle/Syncing flag. RunCycle admits a cycle by
	// compare-and-swapping it, which is what guarantees at most one
	// cycle system-wide.
	syncing atomic.Bool
}

// New creates an Engine over the given store, API client, and
// connectivity observer.
//
// Example:
//
//	eng := sync.New(st, client, prober, nil)
//	if err := eng.RunCycle(ctx); err != nil {
//	    return err
//	}
func New(st *store.Store, client *api.Client, conn connectivity.Observer, config *Config) Engine {
	if config == nil {
		config = &Config{}
	}
	retryCap := config.RetryCap
	if retryCap <= 0 {
		retryCap = DefaultRetryCap
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	return &engine{
		store:    st,
		client:   client,
		conn:     conn,
		registry: buildRegistry(st),
		retryCap: retryCap,
		logger:   logger,
		events:   config.Events,
	}
}

// RunCycle implements Engine.RunCycle.
func (e *engine) RunCycle(ctx context.Context) error {
	if !e.conn.Online() {
		return nil
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer e.syncing.Store(false)

	if e.events.CycleStarted != nil {
		e.events.CycleStarted()
	}

	start := time.Now()
	var stats CycleStats

	e.drain(ctx, &stats)
	e.pull(ctx, &stats)

	stats.Duration = time.Since(start)
	e.logger.Printf("Cycle complete: drained=%d failed=%d dropped=%d merged=%d in %v",
		stats.Drained, stats.Failed, stats.Dropped, stats.Merged,
		stats.Duration.Round(time.Millisecond))

	if e.events.CycleFinished != nil {
		e.events.CycleFinished(stats)
	}

	return ctx.Err()
}

// Syncing implements Engine.Syncing.
func (e *engine) Syncing() bool {
	return e.syncing.Load()
}

// drain dispatches queued mutations in sequence order. Entry failures are
// isolated: each failed entry is retried on a later cycle or dropped at
// the cap, and processing continues with the next entry either way.
func (e *engine) drain(ctx context.Context, stats *CycleStats) {
	entries, err := e.store.ListPending(ctx)
	if err != nil {
		e.logger.Printf("Failed to read queue: %v", err)
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		if err := e.dispatch(ctx, entry); err != nil {
			e.handleDispatchFailure(ctx, entry, err, stats)
			continue
		}

		// A drained delete has no local row to retag.
		if entry.Action != entity.ActionDelete {
			if err := e.store.SetSyncStatus(ctx, entry.EntityType, entry.ItemID, entity.StatusSynced); err != nil {
				e.logger.Printf("Failed to mark %s %s synced: %v", entry.EntityType, entry.ItemID, err)
			}
		}

		if err := e.store.RemoveQueueEntry(ctx, entry.ID); err != nil {
			e.logger.Printf("Failed to remove queue entry %d: %v", entry.ID, err)
			continue
		}

		stats.Drained++
	}
}

// dispatch sends one queue entry to the remote API.
func (e *engine) dispatch(ctx context.Context, entry *store.QueueEntry) error {
	ops, ok := e.registry[entry.EntityType]
	if !ok {
		// Unknown types can only come from a newer schema version; there
		// is nothing to send, so treat the entry as resolved.
		e.logger.Printf("Warning: dropping queue entry %d with unknown type %q", entry.ID, entry.EntityType)
		return nil
	}

	switch entry.Action {
	case entity.ActionCreate:
		return e.client.Create(ctx, ops.segment, entry.Payload)
	case entity.ActionUpdate:
		return e.client.Update(ctx, ops.segment, entry.ItemID, entry.Payload)
	case entity.ActionDelete:
		return e.client.Delete(ctx, ops.segment, entry.ItemID)
	default:
		e.logger.Printf("Warning: dropping queue entry %d with unknown action %q", entry.ID, entry.Action)
		return nil
	}
}

// handleDispatchFailure applies the retry policy to a failed entry.
//
// Permanent rejections (validation errors) are dropped on first failure
// and the mirror row is tagged failed: re-sending an unacceptable payload
// can never succeed. Everything else increments the retry counter and is
// dropped once the counter reaches the cap; the mirror row then stays
// pending, since no further drain will reference it.
func (e *engine) handleDispatchFailure(ctx context.Context, entry *store.QueueEntry, dispatchErr error, stats *CycleStats) {
	if api.IsValidation(dispatchErr) {
		e.logger.Printf("Dropping %s %s %s: rejected by server: %v",
			entry.Action, entry.EntityType, entry.ItemID, dispatchErr)

		if entry.Action != entity.ActionDelete {
			if err := e.store.SetSyncStatus(ctx, entry.EntityType, entry.ItemID, entity.StatusFailed); err != nil {
				e.logger.Printf("Failed to mark %s %s failed: %v", entry.EntityType, entry.ItemID, err)
			}
		}
		e.dropEntry(ctx, entry, dispatchErr, stats)
		return
	}

	e.logger.Printf("Sync error for %s %s %s (attempt %d): %v",
		entry.Action, entry.EntityType, entry.ItemID, entry.Retries+1, dispatchErr)

	if err := e.store.IncrementRetry(ctx, entry.ID); err != nil {
		e.logger.Printf("Failed to increment retries on entry %d: %v", entry.ID, err)
	}

	if entry.Retries+1 >= e.retryCap {
		e.dropEntry(ctx, entry, dispatchErr, stats)
		return
	}

	stats.Failed++
}

// dropEntry abandons a queue entry permanently.
func (e *engine) dropEntry(ctx context.Context, entry *store.QueueEntry, cause error, stats *CycleStats) {
	if err := e.store.RemoveQueueEntry(ctx, entry.ID); err != nil {
		e.logger.Printf("Failed to drop queue entry %d: %v", entry.ID, err)
		return
	}
	stats.Dropped++

	if e.events.EntryDropped != nil {
		e.events.EntryDropped(entry, cause)
	}
}

// pull fetches each entity collection and merges it locally by recency.
// A fetch failure aborts the rest of the pull phase; it is retried on the
// next scheduled cycle. The pull only adds and updates rows; it never
// removes local state, so remote deletions do not propagate here.
func (e *engine) pull(ctx context.Context, stats *CycleStats) {
	for _, typ := range entity.Types {
		ops := e.registry[typ]

		records, err := e.client.List(ctx, ops.segment)
		if err != nil {
			e.logger.Printf("Pull aborted at %s: %v", ops.segment, err)
			return
		}

		for _, raw := range records {
			changed, err := ops.merge(ctx, raw)
			if err != nil {
				e.logger.Printf("Failed to merge pulled %s record: %v", typ, err)
				continue
			}
			if changed {
				stats.Merged++
			}
		}
	}
}
