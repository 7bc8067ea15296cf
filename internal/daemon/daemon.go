// Package daemon provides the long-running process that ingests spooled
// story drafts and keeps the pending queue drained.
//
// The daemon:
//  1. Performs an initial drain so writes that survived a restart are synced
//  2. Watches a spool directory for dropped *.json draft files
//  3. Submits each spooled draft through the boundary write path
//  4. Periodically triggers a drain as a safety net behind the
//     reconnection-triggered one
//  5. Handles graceful shutdown
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mkowalski/scrawl/internal/queue"
	"github.com/mkowalski/scrawl/internal/service"
	"github.com/mkowalski/scrawl/internal/syncer"
)

// Config holds configuration for the daemon.
type Config struct {
	// DrainInterval is how often to trigger a periodic drain
	DrainInterval time.Duration

	// DebounceInterval is how long to wait before processing spool changes
	// This batches rapid writes to the same file together
	DebounceInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DrainInterval:    30 * time.Second,
		DebounceInterval: 200 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Submitter is the slice of the boundary service the daemon needs.
type Submitter interface {
	SubmitWrite(ctx context.Context, draft queue.StoryDraft) (service.Handle, error)
	ForceSync(ctx context.Context) (syncer.Report, error)
}

// Daemon orchestrates spool watching and queue draining.
type Daemon struct {
	service  Submitter
	spoolDir string
	config   *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> timestamp
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance.
//
// The daemon requires:
//   - svc: the boundary service writes are submitted through
//   - spoolDir: directory where other local tools drop draft JSON files
//
// Use Start() to begin watching and draining.
func New(svc Submitter, spoolDir string, config *Config) (*Daemon, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if spoolDir == "" {
		return nil, fmt.Errorf("spoolDir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		service:     svc,
		spoolDir:    spoolDir,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := os.MkdirAll(d.spoolDir, 0755); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}

	// Drain whatever survived the last shutdown before accepting new work
	if _, err := d.service.ForceSync(ctx); err != nil {
		d.config.Logger.Printf("Warning: initial drain failed: %v", err)
	}

	// Ingest drafts spooled while the daemon was down
	if err := d.ingestExisting(); err != nil {
		d.config.Logger.Printf("Warning: failed to ingest existing spool files: %v", err)
	}

	if err := d.watcher.Add(d.spoolDir); err != nil {
		return fmt.Errorf("failed to watch spool directory: %w", err)
	}

	d.config.Logger.Printf("Watching spool: %s", d.spoolDir)

	// Start background goroutines
	d.wg.Add(3)
	go d.watchSpoolEvents()
	go d.processChangeQueue()
	go d.periodicDrain()

	// Wait for shutdown
	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	// Signal shutdown
	d.cancel()

	// Close watcher
	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	// Wait for goroutines to finish
	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// ingestExisting submits spool files that were present before watching began.
func (d *Daemon) ingestExisting() error {
	entries, err := os.ReadDir(d.spoolDir)
	if err != nil {
		return fmt.Errorf("failed to read spool directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		d.ingestFile(filepath.Join(d.spoolDir, entry.Name()))
	}

	return nil
}

// watchSpoolEvents monitors filesystem events and queues changes.
func (d *Daemon) watchSpoolEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// Only care about Create and Write
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// Only process .json files
			if filepath.Ext(event.Name) != ".json" {
				continue
			}

			d.config.Logger.Printf("Spool event: %s %s", event.Op, event.Name)
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue processes queued spool files with debouncing.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges ingests files that have been queued for long enough.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()

	for path, queuedAt := range d.changeQueue {
		// Only process if enough time has passed (debouncing)
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}

		delete(d.changeQueue, path)

		// File may have been ingested already or removed by hand
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		d.ingestFile(path)
	}
}

// ingestFile reads one spooled draft and submits it through the boundary.
// The file is removed on success and renamed aside when it cannot be parsed,
// so a bad draft never wedges the spool.
func (d *Daemon) ingestFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		d.config.Logger.Printf("Error reading spool file %s: %v", path, err)
		return
	}

	var draft queue.StoryDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		d.config.Logger.Printf("Rejecting malformed spool file %s: %v", path, err)
		if renameErr := os.Rename(path, path+".rejected"); renameErr != nil {
			d.config.Logger.Printf("Error setting aside %s: %v", path, renameErr)
		}
		return
	}

	handle, err := d.service.SubmitWrite(d.ctx, draft)
	if err != nil {
		// Local storage failure: leave the file in place so the next pass
		// (or the next daemon run) can try again.
		d.config.Logger.Printf("Error submitting spooled draft %s: %v", path, err)
		return
	}

	d.config.Logger.Printf("Ingested %s -> %s (%s)", filepath.Base(path), handle.ID, handle.Kind)

	if err := os.Remove(path); err != nil {
		d.config.Logger.Printf("Error removing ingested spool file %s: %v", path, err)
	}
}

// periodicDrain triggers a drain on a fixed interval. The
// reconnection-triggered drain does the real-time work; this catches writes
// queued while the status never changed (e.g. remote flapping under a
// stable network).
func (d *Daemon) periodicDrain() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if _, err := d.service.ForceSync(d.ctx); err != nil {
				d.config.Logger.Printf("Error draining queue: %v", err)
			}
		}
	}
}
