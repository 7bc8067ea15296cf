// Package syncer reconciles the pending-write queue against the remote
// story store.
package syncer

import (
	"context"

	"github.com/mkowalski/scrawl/internal/queue"
)

// PendingQueue is the slice of the pending-write store the engine needs.
//
// The engine never appends or clears: a pending write is created by the
// boundary write path and destroyed only here, on confirmed remote success
// or on retry-ceiling exhaustion.
type PendingQueue interface {
	// List returns a snapshot of the collection in enqueue order.
	List(ctx context.Context) ([]queue.PendingWrite, error)

	// Remove deletes the entry if present; absent entries are a no-op.
	Remove(ctx context.Context, id string) error

	// IncrementRetry bumps and persists the retry count, returning the new
	// count, or queue.RetryCountGone if the entry was concurrently removed.
	IncrementRetry(ctx context.Context, id string) (int, error)
}

// RemoteStore creates story records remotely.
type RemoteStore interface {
	Create(ctx context.Context, draft queue.StoryDraft) (string, error)
}
