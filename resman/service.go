package resman

import (
	"context"

	"go.uber.org/zap"
)

// Result is the reply to one resolution request. Found is false when the
// identifier did not resolve; a miss is not an error at this layer. The
// engine decides whether an absent resource is fatal to its job.
type Result struct {
	Data  []byte
	Found bool
}

// Request asks the service to resolve one resource under a per-job overlay.
// Overlay is ordered most-specific first. Reply must have capacity for one
// result so the service never blocks on send.
type Request struct {
	ID      ResourceID
	Overlay []Container
	Reply   chan<- Result
}

// Service owns the shared resource store. All mutation and lookup happens
// on the service goroutine; workers reach the store only by sending a
// Request and blocking on their private reply channel. This makes the
// one-mutator invariant structural: no other code path can touch the store,
// so the Store implementation needs no locking.
type Service struct {
	store    Store
	requests chan Request
	stopped  chan struct{}
	logger   *zap.SugaredLogger
}

// NewService creates a demand service over the given store. The store
// handle must not be retained or used by the caller afterwards.
func NewService(store Store, logger *zap.SugaredLogger) *Service {
	return &Service{
		store:    store,
		requests: make(chan Request),
		stopped:  make(chan struct{}),
		logger:   logger.Named("resman"),
	}
}

// Start launches the service goroutine. The service lives until ctx is
// cancelled; it has no drain protocol. After cancellation every Submit is
// answered with an absent result so no worker ever blocks on a dead loop.
func (s *Service) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Submit hands a request to the service. Blocks until the service accepts
// it; the caller then blocks on its reply channel, making resolution a
// synchronous RPC from the worker's perspective.
//
// A stopped service answers every request with an absent result instead of
// blocking the caller forever: workers still compiling after the service's
// context is cancelled must be able to finish and record their outcome.
func (s *Service) Submit(req Request) {
	select {
	case s.requests <- req:
	case <-s.stopped:
		req.Reply <- Result{Found: false}
	}
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.stopped)
	s.logger.Debugw("demand service started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Debugw("demand service stopped", "reason", ctx.Err())
			return
		case req := <-s.requests:
			req.Reply <- s.serve(req)
		}
	}
}

// serve resolves one request under its overlay. The overlay containers are
// removed on every exit path, including a panicking Store, so no per-job
// container ever outlives its request.
func (s *Service) serve(req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("store panicked during resolution",
				"resource", req.ID.Filename(), "panic", r)
			res = Result{Found: false}
		}
	}()
	// Register least-specific first: the store searches newest-first, so
	// the most specific entry must land on top.
	registered := make([]Container, 0, len(req.Overlay))
	defer func() {
		for i := len(registered) - 1; i >= 0; i-- {
			s.store.RemoveContainer(registered[i])
		}
	}()

	for i := len(req.Overlay) - 1; i >= 0; i-- {
		c := req.Overlay[i]
		if err := s.store.AddContainer(c); err != nil {
			s.logger.Debugw("skipping unusable overlay container",
				"container", c.String(), "error", err)
			continue
		}
		registered = append(registered, c)
	}

	if !s.store.Contains(req.ID) {
		s.logger.Debugw("resolution miss", "resource", req.ID.Filename())
		return Result{Found: false}
	}

	data, err := s.store.ReadAll(req.ID)
	if err != nil {
		s.logger.Warnw("resource vanished between contains and read",
			"resource", req.ID.Filename(), "error", err)
		return Result{Found: false}
	}
	return Result{Data: data, Found: true}
}
