package syncer

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/mkowalski/scrawl/internal/queue"
)

// DefaultMaxRetries is the retry ceiling applied when Config leaves it zero.
const DefaultMaxRetries = 3

// DefaultAttemptTimeout bounds each remote create when Config leaves it zero.
const DefaultAttemptTimeout = 15 * time.Second

// Config holds configuration for the engine.
type Config struct {
	// MaxRetries is the retry ceiling: a pending write that has failed this
	// many times is dropped instead of retried (default: 3).
	MaxRetries int

	// AttemptTimeout bounds each individual remote create (default: 15s).
	// A timed-out attempt counts as a failure, never left pending.
	AttemptTimeout time.Duration

	// OnReport, if set, is invoked with the report of every completed pass.
	// Joined reports are not delivered.
	OnReport func(Report)

	// Logger for engine activity.
	Logger *log.Logger
}

// Engine drains the pending-write queue toward the remote store.
//
// Drain is single-flight: overlapping calls never run a second concurrent
// pass over the same entries, because two passes could both read an entry,
// both create it remotely, and produce a duplicate record.
type Engine struct {
	queue          PendingQueue
	remote         RemoteStore
	maxRetries     int
	attemptTimeout time.Duration
	onReport       func(Report)
	logger         *log.Logger

	mu      sync.Mutex
	running bool
	rerun   bool
}

// New creates an engine over the given queue and remote store.
//
// If config is nil, defaults are used. If config.Logger is nil, a default
// logger writing to stderr is used.
func New(pending PendingQueue, remote RemoteStore, config *Config) *Engine {
	if config == nil {
		config = &Config{}
	}
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	attemptTimeout := config.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	return &Engine{
		queue:          pending,
		remote:         remote,
		maxRetries:     maxRetries,
		attemptTimeout: attemptTimeout,
		onReport:       config.OnReport,
		logger:         logger,
	}
}

// SetOnReport replaces the report callback. Intended for wiring done after
// construction, before draining starts.
func (e *Engine) SetOnReport(fn func(Report)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReport = fn
}

// Drain runs one full reconciliation pass over the pending queue.
//
// If a pass is already in flight, the call marks one follow-up pass to run
// after the current one completes (items may have been appended mid-drain)
// and returns immediately with a Joined report. A reconnection event
// arriving mid-drain therefore never aborts the in-flight pass and never
// runs a parallel one.
func (e *Engine) Drain(ctx context.Context) (Report, error) {
	e.mu.Lock()
	if e.running {
		e.rerun = true
		e.mu.Unlock()
		e.logger.Printf("Drain already in progress, queued follow-up pass")
		return Report{Joined: true}, nil
	}
	e.running = true
	onReport := e.onReport
	e.mu.Unlock()

	for {
		report, err := e.drainOnce(ctx)

		if err == nil && onReport != nil {
			onReport(report)
		}

		e.mu.Lock()
		if e.rerun && err == nil && ctx.Err() == nil {
			e.rerun = false
			e.mu.Unlock()
			continue
		}
		e.running = false
		e.rerun = false
		e.mu.Unlock()

		return report, err
	}
}

// drainOnce reads a snapshot of the queue and processes it. Only a failure
// to read the queue itself aborts the pass.
func (e *Engine) drainOnce(ctx context.Context) (Report, error) {
	entries, err := e.queue.List(ctx)
	if err != nil {
		return Report{Started: time.Now().UTC()}, err
	}
	return e.drainEntries(ctx, entries)
}

// drainEntries processes one snapshot of pending writes.
//
// Entries are handled independently: one entry's failure never prevents the
// others from being attempted, and never surfaces as a hard error.
func (e *Engine) drainEntries(ctx context.Context, entries []queue.PendingWrite) (Report, error) {
	report := Report{Started: time.Now().UTC()}

	if len(entries) > 0 {
		e.logger.Printf("Draining %d pending writes", len(entries))
	}

	for _, entry := range entries {
		// An entry already at the ceiling is dropped without another
		// attempt: it must never be retried past the ceiling.
		if entry.RetryCount >= e.maxRetries {
			e.drop(ctx, &report, entry.ID, entry.Payload)
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
		remoteID, createErr := e.remote.Create(attemptCtx, entry.Payload)
		cancel()

		if createErr == nil {
			if err := e.queue.Remove(ctx, entry.ID); err != nil {
				// The remote record exists; on restart this entry is synced
				// again, which the at-least-once contract allows.
				e.logger.Printf("WARNING: synced %s but failed to remove it: %v", entry.ID, err)
			}
			report.Synced = append(report.Synced, SyncedEntry{ID: entry.ID, RemoteID: remoteID})
			e.logger.Printf("Synced pending write %s -> %s", entry.ID, remoteID)
			continue
		}

		e.logger.Printf("Remote write failed for %s: %v", entry.ID, createErr)

		count, incErr := e.queue.IncrementRetry(ctx, entry.ID)
		if incErr != nil {
			// Best-effort bookkeeping: a failed retry-count update must not
			// abort the drain. The entry keeps its old count.
			e.logger.Printf("WARNING: failed to update retry count for %s: %v", entry.ID, incErr)
			report.Retried = append(report.Retried, RetriedEntry{ID: entry.ID, RetryCount: entry.RetryCount})
			continue
		}
		if count == queue.RetryCountGone {
			// Concurrently removed; nothing left to account for.
			continue
		}

		if count >= e.maxRetries {
			e.drop(ctx, &report, entry.ID, entry.Payload)
			continue
		}

		report.Retried = append(report.Retried, RetriedEntry{ID: entry.ID, RetryCount: count})
	}

	report.Finished = time.Now().UTC()

	if report.Total() > 0 {
		e.logger.Printf("Drain complete: synced=%d retried=%d dropped=%d",
			len(report.Synced), len(report.Retried), len(report.Dropped))
	}

	return report, nil
}

// drop removes an entry that exhausted the retry ceiling and records it in
// the report so the original content is not silently lost.
func (e *Engine) drop(ctx context.Context, report *Report, id string, draft queue.StoryDraft) {
	if err := e.queue.Remove(ctx, id); err != nil {
		e.logger.Printf("WARNING: failed to remove dropped write %s: %v", id, err)
	}
	report.Dropped = append(report.Dropped, DroppedEntry{ID: id, Draft: draft})
	e.logger.Printf("Dropped pending write %s after %d failed attempts (%q)", id, e.maxRetries, draft.Title)
}
