package daemon

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mkowalski/scrawl/internal/queue"
	"github.com/mkowalski/scrawl/internal/service"
	"github.com/mkowalski/scrawl/internal/syncer"
)

// recordingSubmitter captures submitted drafts and drain calls.
type recordingSubmitter struct {
	mu       sync.Mutex
	drafts   []queue.StoryDraft
	drains   int
	received chan queue.StoryDraft
}

func newRecordingSubmitter() *recordingSubmitter {
	return &recordingSubmitter{received: make(chan queue.StoryDraft, 16)}
}

func (r *recordingSubmitter) SubmitWrite(ctx context.Context, draft queue.StoryDraft) (service.Handle, error) {
	r.mu.Lock()
	r.drafts = append(r.drafts, draft)
	r.mu.Unlock()
	r.received <- draft
	return service.Handle{Kind: service.HandlePending, ID: queue.NewID()}, nil
}

func (r *recordingSubmitter) ForceSync(ctx context.Context) (syncer.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drains++
	return syncer.Report{}, nil
}

func (r *recordingSubmitter) drainCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drains
}

func testConfig() *Config {
	return &Config{
		DrainInterval:    time.Hour, // keep the periodic drain out of the way
		DebounceInterval: 20 * time.Millisecond,
		Logger:           log.New(io.Discard, "", 0),
	}
}

// startDaemon runs the daemon in the background and stops it at test end.
func startDaemon(t *testing.T, svc Submitter, spoolDir string, cfg *Config) {
	t.Helper()

	d, err := New(svc, spoolDir, cfg)
	if err != nil {
		t.Fatalf("failed to create daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("daemon exited with error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("daemon did not stop")
		}
	})
}

func writeDraft(t *testing.T, dir, name string, draft queue.StoryDraft) string {
	t.Helper()

	data, err := json.Marshal(draft)
	if err != nil {
		t.Fatalf("failed to marshal draft: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write spool file: %v", err)
	}
	return path
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, "spool", nil); err == nil {
		t.Error("expected error for nil service")
	}
	if _, err := New(newRecordingSubmitter(), "", nil); err == nil {
		t.Error("expected error for empty spool dir")
	}
}

func TestIngestsExistingSpoolFiles(t *testing.T) {
	spool := t.TempDir()
	svc := newRecordingSubmitter()

	path := writeDraft(t, spool, "draft.json", queue.StoryDraft{Title: "spooled early"})

	startDaemon(t, svc, spool, testConfig())

	select {
	case draft := <-svc.received:
		if draft.Title != "spooled early" {
			t.Errorf("got draft %+v", draft)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pre-existing spool file never ingested")
	}

	waitForGone(t, path)
}

func TestIngestsWatchedSpoolFiles(t *testing.T) {
	spool := t.TempDir()
	svc := newRecordingSubmitter()

	startDaemon(t, svc, spool, testConfig())

	// Give the watcher a moment to attach before dropping the file.
	time.Sleep(100 * time.Millisecond)
	path := writeDraft(t, spool, "dropped.json", queue.StoryDraft{Title: "spooled live", Category: "news"})

	select {
	case draft := <-svc.received:
		if draft.Title != "spooled live" || draft.Category != "news" {
			t.Errorf("got draft %+v", draft)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dropped spool file never ingested")
	}

	waitForGone(t, path)
}

func TestIgnoresNonJSONFiles(t *testing.T) {
	spool := t.TempDir()
	svc := newRecordingSubmitter()

	startDaemon(t, svc, spool, testConfig())

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(spool, "notes.txt"), []byte("not a draft"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	select {
	case draft := <-svc.received:
		t.Fatalf("non-json file was ingested: %+v", draft)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestMalformedDraftSetAside(t *testing.T) {
	spool := t.TempDir()
	svc := newRecordingSubmitter()

	startDaemon(t, svc, spool, testConfig())

	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(spool, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		if _, err := os.Stat(path + ".rejected"); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("malformed spool file never set aside")
		case <-time.After(20 * time.Millisecond):
		}
	}

	select {
	case draft := <-svc.received:
		t.Fatalf("malformed file was submitted: %+v", draft)
	default:
	}
}

func TestInitialDrainOnStart(t *testing.T) {
	spool := t.TempDir()
	svc := newRecordingSubmitter()

	startDaemon(t, svc, spool, testConfig())

	deadline := time.After(2 * time.Second)
	for svc.drainCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("daemon never ran the startup drain")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPeriodicDrain(t *testing.T) {
	spool := t.TempDir()
	svc := newRecordingSubmitter()

	cfg := testConfig()
	cfg.DrainInterval = 30 * time.Millisecond
	startDaemon(t, svc, spool, cfg)

	deadline := time.After(3 * time.Second)
	for svc.drainCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("periodic drain stalled at %d runs", svc.drainCount())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// waitForGone polls until the ingested file has been removed.
func waitForGone(t *testing.T, path string) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		select {
		case <-deadline:
			t.Errorf("ingested spool file still present: %s", path)
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}
