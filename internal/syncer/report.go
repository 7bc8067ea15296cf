package syncer

import (
	"time"

	"github.com/mkowalski/scrawl/internal/queue"
)

// SyncedEntry records one pending write confirmed by the remote store.
type SyncedEntry struct {
	ID       string `json:"id"`
	RemoteID string `json:"remote_id"`
}

// RetriedEntry records one pending write that failed and remains queued.
type RetriedEntry struct {
	ID         string `json:"id"`
	RetryCount int    `json:"retry_count"`
}

// DroppedEntry records one pending write removed after exhausting the retry
// ceiling. The draft is carried so the original content is discoverable and
// never silently lost.
type DroppedEntry struct {
	ID    string           `json:"id"`
	Draft queue.StoryDraft `json:"draft"`
}

// Report summarizes one drain pass.
//
// When a drain request arrives while a pass is already running, the request
// joins the in-flight pass instead of starting a second one; the returned
// report has Joined set and carries no per-entry outcomes of its own.
type Report struct {
	Synced  []SyncedEntry  `json:"synced,omitempty"`
	Retried []RetriedEntry `json:"retried,omitempty"`
	Dropped []DroppedEntry `json:"dropped,omitempty"`

	Joined   bool      `json:"joined,omitempty"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Total returns the number of entries the pass touched.
func (r Report) Total() int {
	return len(r.Synced) + len(r.Retried) + len(r.Dropped)
}
