package queue

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GeoPoint is an optional location tag attached to a story draft.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StoryDraft is the creation payload for one story submission.
//
// The queue never interprets the draft; it is carried opaquely until the
// remote store accepts it.
type StoryDraft struct {
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Category string    `json:"category,omitempty"`
	Location *GeoPoint `json:"location,omitempty"`
}

// PendingWrite is a durable record of one submission not yet confirmed by
// the remote store.
type PendingWrite struct {
	// ID is the locally generated handle for the entry. It is never sent
	// to the remote store.
	ID string `json:"id"`

	// Payload is the draft to be created remotely.
	Payload StoryDraft `json:"payload"`

	// EnqueuedAt is when the write was first accepted locally.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// RetryCount is the number of failed remote attempts so far.
	RetryCount int `json:"retry_count"`
}

// NewID generates a locally unique pending-write identifier: a UTC
// timestamp prefix for human-readable ordering plus a random suffix.
//
// Example: "20260824T153012-9f3ab81c2e44d0f1"
func NewID() string {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a nanosecond suffix rather than returning an error here.
		return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102T150405"), time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405"), hex.EncodeToString(suffix))
}
