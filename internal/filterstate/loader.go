package filterstate

import (
	"context"
	"sync"

	"holdings-imports-backend/internal/client"
)

// Fetcher retrieves one page for a bundle. *client.Client implements it.
type Fetcher interface {
	FetchImports(ctx context.Context, b client.FilterBundle) (*client.Page, error)
}

// State is what a view renders.
type State struct {
	Bundle     client.FilterBundle
	Items      []client.Record
	Total      int64
	TotalPages int
	Loading    bool
	Err        string
}

// Loader issues one fetch per Load and applies only the result of the
// most recent one. Older requests are canceled and their results or
// errors are dropped.
type Loader struct {
	fetch   Fetcher
	onState func(State)

	emitMu sync.Mutex

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  State
	wg     sync.WaitGroup
}

// NewLoader returns a loader. onState, if set, is called once a Load
// starts and once the latest request settles, never concurrently. It
// must not call Load.
func NewLoader(f Fetcher, onState func(State)) *Loader {
	return &Loader{fetch: f, onState: onState, state: State{TotalPages: 1}}
}

// Load starts fetching b and supersedes any request in flight.
func (l *Loader) Load(parent context.Context, b client.FilterBundle) {
	l.emitMu.Lock()
	defer l.emitMu.Unlock()

	l.mu.Lock()
	l.gen++
	gen := l.gen
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	l.state.Bundle = b.Clone()
	l.state.Loading = true
	l.state.Err = ""
	snap := l.snapshot()
	l.wg.Add(1)
	l.mu.Unlock()

	go l.run(ctx, gen, b)
	l.emit(snap)
}

func (l *Loader) run(ctx context.Context, gen uint64, b client.FilterBundle) {
	defer l.wg.Done()
	page, err := l.fetch.FetchImports(ctx, b)

	l.emitMu.Lock()
	defer l.emitMu.Unlock()

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	l.cancel()
	l.cancel = nil
	l.state.Loading = false
	switch {
	case err == nil:
		l.state.Items = page.Items
		l.state.Total = page.Total
		l.state.TotalPages = page.TotalPages
	case client.IsAbort(err):
		// Redirected or canceled; keep what is on screen.
	default:
		l.state.Err = client.UserMessage(err)
	}
	snap := l.snapshot()
	l.mu.Unlock()

	l.emit(snap)
}

// State returns the current view state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Wait blocks until every started fetch has returned.
func (l *Loader) Wait() { l.wg.Wait() }

// Close cancels the request in flight and waits for it.
func (l *Loader) Close() {
	l.mu.Lock()
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Loader) snapshot() State {
	s := l.state
	s.Bundle = s.Bundle.Clone()
	s.Items = append([]client.Record(nil), s.Items...)
	return s
}

func (l *Loader) emit(s State) {
	if l.onState != nil {
		l.onState(s)
	}
}
