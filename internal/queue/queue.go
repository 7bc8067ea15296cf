// Package queue provides durable, race-free storage of the pending-write
// collection.
//
// The collection is persisted as a single JSON value in the local key-value
// store. Every mutation is a full read-modify-write of that value, executed
// through the storage's atomic Update so that concurrent writers, whether
// goroutines in this process or other processes sharing the database file,
// can never lose one another's changes.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// collectionKey is the storage key holding the serialized collection.
const collectionKey = "pending_writes"

// RetryCountGone is returned by IncrementRetry when the entry was already
// removed by a concurrent successful sync. It is not an error condition.
const RetryCountGone = -1

// KV is the durable key-value storage the queue persists into. Get and
// Delete are individually atomic; Update runs a whole read-modify-write
// cycle atomically with respect to every other writer sharing the store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Update(ctx context.Context, key string, fn func(value []byte, found bool) ([]byte, error)) error
	Delete(ctx context.Context, key string) error
}

// Store is the durable ordered collection of not-yet-confirmed writes.
type Store struct {
	kv     KV
	logger *log.Logger
}

// New creates a pending-write store over the given key-value storage.
//
// If logger is nil, a default logger writing to stderr is used.
func New(kv KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "[queue] ", log.LstdFlags)
	}
	return &Store{
		kv:     kv,
		logger: logger,
	}
}

// Append constructs a PendingWrite with a fresh id and persists the updated
// collection. Returns the new entry's id.
func (s *Store) Append(ctx context.Context, payload StoryDraft) (string, error) {
	entry := PendingWrite{
		ID:         NewID(),
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
		RetryCount: 0,
	}

	err := s.update(ctx, func(entries []PendingWrite) ([]PendingWrite, error) {
		return append(entries, entry), nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Printf("Enqueued pending write: %s (%q)", entry.ID, payload.Title)
	return entry.ID, nil
}

// List returns the current collection in enqueue order.
// The result is a snapshot, not a live view.
func (s *Store) List(ctx context.Context) ([]PendingWrite, error) {
	return s.load(ctx)
}

// Count returns the number of pending writes.
func (s *Store) Count(ctx context.Context) (int, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Remove deletes the entry with the given id.
// Returns nil if the entry doesn't exist: a concurrent successful sync may
// have already removed it.
func (s *Store) Remove(ctx context.Context, id string) error {
	removed := false
	err := s.update(ctx, func(entries []PendingWrite) ([]PendingWrite, error) {
		kept := entries[:0]
		for _, e := range entries {
			if e.ID == id {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		return kept, nil
	})
	if err != nil {
		return err
	}

	if removed {
		s.logger.Printf("Removed pending write: %s", id)
	}
	return nil
}

// IncrementRetry atomically increments and persists the retry count for the
// entry if still present, returning the new count.
//
// If the entry was concurrently removed, IncrementRetry is a no-op and
// returns RetryCountGone with a nil error.
func (s *Store) IncrementRetry(ctx context.Context, id string) (int, error) {
	count := RetryCountGone
	err := s.update(ctx, func(entries []PendingWrite) ([]PendingWrite, error) {
		for i := range entries {
			if entries[i].ID == id {
				entries[i].RetryCount++
				count = entries[i].RetryCount
				break
			}
		}
		return entries, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Clear empties the collection. Used only for explicit user-initiated
// discard, never by the sync engine.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, collectionKey); err != nil {
		return fmt.Errorf("failed to clear pending writes: %w", err)
	}

	s.logger.Printf("Cleared pending writes")
	return nil
}

// load reads and decodes the collection. An absent key is an empty
// collection, not an error.
func (s *Store) load(ctx context.Context) ([]PendingWrite, error) {
	data, ok, err := s.kv.Get(ctx, collectionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending writes: %w", err)
	}
	return decodeEntries(data, ok)
}

// update runs one atomic read-modify-write cycle over the collection.
func (s *Store) update(ctx context.Context, fn func([]PendingWrite) ([]PendingWrite, error)) error {
	return s.kv.Update(ctx, collectionKey, func(data []byte, found bool) ([]byte, error) {
		entries, err := decodeEntries(data, found)
		if err != nil {
			return nil, err
		}
		next, err := fn(entries)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("failed to encode pending writes: %w", err)
		}
		return encoded, nil
	})
}

func decodeEntries(data []byte, found bool) ([]PendingWrite, error) {
	if !found {
		return nil, nil
	}
	var entries []PendingWrite
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode pending writes: %w", err)
	}
	return entries, nil
}
