// Package service is the boundary of the offline-write subsystem: it accepts
// story submissions, routes them directly to the remote store or into the
// durable pending queue depending on connectivity, and exposes the pending
// collection and sync controls to the rest of the application.
//
// The service is an explicitly constructed object with injected
// collaborators, owned by the process's composition root. There are no
// package-level singletons; every collaborator can be replaced with a test
// double.
package service

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mkowalski/scrawl/internal/connectivity"
	"github.com/mkowalski/scrawl/internal/queue"
	"github.com/mkowalski/scrawl/internal/syncer"
)

// HandleKind distinguishes a confirmed remote identifier from a provisional
// local one.
type HandleKind int

const (
	// HandleRemote means the write reached the remote store; ID is the
	// remote-assigned identifier.
	HandleRemote HandleKind = iota

	// HandlePending means the write is queued locally; ID is the pending
	// id and must be treated as provisional.
	HandlePending
)

// String returns a human-readable representation of the kind.
func (k HandleKind) String() string {
	switch k {
	case HandleRemote:
		return "remote"
	case HandlePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Handle is the caller-visible result of a submission.
type Handle struct {
	Kind HandleKind
	ID   string
}

// PendingQueue is the slice of the pending-write store the service needs.
type PendingQueue interface {
	Append(ctx context.Context, payload queue.StoryDraft) (string, error)
	List(ctx context.Context) ([]queue.PendingWrite, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// RemoteStore creates story records remotely.
type RemoteStore interface {
	Create(ctx context.Context, draft queue.StoryDraft) (string, error)
}

// Drainer runs reconciliation passes over the pending queue.
type Drainer interface {
	Drain(ctx context.Context) (syncer.Report, error)
}

// Service wires the monitor, queue, remote client, and sync engine together.
type Service struct {
	monitor *connectivity.Monitor
	queue   PendingQueue
	remote  RemoteStore
	engine  Drainer
	logger  *log.Logger
}

// New creates the service and hooks the monitor's reconnection event to a
// background drain.
//
// If logger is nil, a default logger writing to stderr is used.
func New(monitor *connectivity.Monitor, pending PendingQueue, remote RemoteStore, engine Drainer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stderr, "[scrawl] ", log.LstdFlags)
	}

	s := &Service{
		monitor: monitor,
		queue:   pending,
		remote:  remote,
		engine:  engine,
		logger:  logger,
	}

	monitor.SetOnReconnect(func() {
		if _, err := s.engine.Drain(context.Background()); err != nil {
			s.logger.Printf("Reconnect drain failed: %v", err)
		}
	})

	return s
}

// SubmitWrite accepts one story submission.
//
// If the device is offline the draft goes straight to the pending queue and
// the returned handle carries the provisional local id. If online, a direct
// remote write is attempted first; on any remote failure (including going
// offline mid-request) the draft falls back to the queue. A local storage
// failure is the only error surfaced: it means the write genuinely did not
// happen anywhere.
func (s *Service) SubmitWrite(ctx context.Context, draft queue.StoryDraft) (Handle, error) {
	if !s.monitor.Current(ctx).Online() {
		return s.enqueue(ctx, draft)
	}

	remoteID, err := s.remote.Create(ctx, draft)
	if err == nil {
		return Handle{Kind: HandleRemote, ID: remoteID}, nil
	}

	s.logger.Printf("Direct write failed, queueing locally: %v", err)
	return s.enqueue(ctx, draft)
}

// enqueue appends the draft to the pending queue.
func (s *Service) enqueue(ctx context.Context, draft queue.StoryDraft) (Handle, error) {
	id, err := s.queue.Append(ctx, draft)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to queue write: %w", err)
	}
	return Handle{Kind: HandlePending, ID: id}, nil
}

// ListPending returns the pending writes in enqueue order.
func (s *Service) ListPending(ctx context.Context) ([]queue.PendingWrite, error) {
	return s.queue.List(ctx)
}

// PendingCount returns the number of pending writes.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.queue.Count(ctx)
}

// ForceSync triggers a drain. A request made while an automatic drain is in
// progress joins the existing pass rather than duplicating it.
func (s *Service) ForceSync(ctx context.Context) (syncer.Report, error) {
	return s.engine.Drain(ctx)
}

// DiscardPending empties the pending queue. This is an explicit
// user-initiated discard; the sync engine never calls it.
func (s *Service) DiscardPending(ctx context.Context) error {
	return s.queue.Clear(ctx)
}

// SubscribeConnectivity registers a listener for connectivity changes. The
// listener is invoked once immediately with the current status. The returned
// function unsubscribes; calling it twice is a no-op.
func (s *Service) SubscribeConnectivity(ctx context.Context, fn func(connectivity.Status)) func() {
	return s.monitor.Subscribe(ctx, fn)
}

// Connectivity returns the current connectivity status.
func (s *Service) Connectivity(ctx context.Context) connectivity.Status {
	return s.monitor.Current(ctx)
}
