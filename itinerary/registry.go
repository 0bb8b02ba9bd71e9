package itinerary

import (
	"context"
	"errors"
	"sync"
	"time"

	"luxe/apperr"
	"luxe/builder"
	"luxe/delivery"
	"luxe/models"
	"luxe/mq"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// maxFinished bounds how many completed builds the registry remembers.
const maxFinished = 256

var ErrShuttingDown = errors.New("server is shutting down")

// RunFunc executes one build under the given id.
type RunFunc func(ctx context.Context, id string, req models.TripRequest) (*builder.Result, error)

// Snapshot is the externally visible state of one build.
type Snapshot struct {
	BuildID     string           `json:"build_id"`
	Status      Status           `json:"status"`
	Stage       mq.Stage         `json:"stage,omitempty"`
	Destination string           `json:"destination"`
	Kind        string           `json:"kind,omitempty"`
	Error       string           `json:"error,omitempty"`
	Filename    string           `json:"filename,omitempty"`
	Pages       int              `json:"pages,omitempty"`
	Delivery    *delivery.Report `json:"delivery,omitempty"`
	Started     time.Time        `json:"started"`
	Finished    *time.Time       `json:"finished,omitempty"`
}

type entry struct {
	snap   Snapshot
	doc    *models.RenderedDocument
	cancel context.CancelFunc
}

// Registry tracks builds started by this process. State is in memory only.
type Registry struct {
	mu       sync.RWMutex
	builds   map[string]*entry
	finished []string
	closed   bool

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func NewRegistry() *Registry {
	base, stop := context.WithCancel(context.Background())
	return &Registry{builds: make(map[string]*entry), base: base, stop: stop}
}

// Start runs fn in the background under a fresh build id.
func (r *Registry) Start(req models.TripRequest, fn RunFunc) (string, error) {
	id := builder.NewID()
	ctx, cancel := context.WithCancel(r.base)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		return "", ErrShuttingDown
	}
	r.builds[id] = &entry{
		snap: Snapshot{
			BuildID:     id,
			Status:      StatusRunning,
			Destination: req.Destination,
			Started:     time.Now().UTC(),
		},
		cancel: cancel,
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()
		res, err := fn(ctx, id, req)
		r.complete(id, res, err)
	}()
	return id, nil
}

func (r *Registry) complete(id string, res *builder.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.builds[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	e.snap.Finished = &now
	e.cancel = nil

	if res != nil {
		e.doc = res.Document
		e.snap.Delivery = res.Delivery
		if res.Document != nil {
			e.snap.Filename = res.Document.Filename
			e.snap.Pages = res.Document.Layout.Pages
		}
	}
	switch {
	case err == nil:
		e.snap.Status = StatusSucceeded
	case errors.Is(err, context.Canceled):
		e.snap.Status = StatusCancelled
		e.snap.Kind = apperr.Kind(err)
	default:
		e.snap.Status = StatusFailed
		e.snap.Kind = apperr.Kind(err)
		e.snap.Error = err.Error()
	}

	r.finished = append(r.finished, id)
	for len(r.finished) > maxFinished {
		delete(r.builds, r.finished[0])
		r.finished = r.finished[1:]
	}
}

func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.builds[id]
	if !ok {
		return Snapshot{}, false
	}
	return e.snap, true
}

// Document returns the rendered PDF once the build got that far.
func (r *Registry) Document(id string) (*models.RenderedDocument, Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.builds[id]
	if !ok {
		return nil, Snapshot{}, false
	}
	return e.doc, e.snap, true
}

// Cancel stops a running build. It reports false when id is unknown or already finished.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.builds[id]
	if !ok || e.cancel == nil {
		return false
	}
	e.cancel()
	return true
}

// Publish records the latest stage of a build, so status polls can show progress.
func (r *Registry) Publish(_ context.Context, ev mq.Event) error {
	r.mu.Lock()
	if e, ok := r.builds[ev.BuildID]; ok {
		e.snap.Stage = ev.Stage
	}
	r.mu.Unlock()
	return nil
}

// Shutdown cancels every running build and waits for them to return.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.stop()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
