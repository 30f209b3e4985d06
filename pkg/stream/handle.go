package stream

import (
	"context"
	"sync"

	"github.com/go-go-golems/studioctl/pkg/progress"
)

// Handle is one subscription to a job kind's stream.
type Handle struct {
	kind   string
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}

	mu           sync.Mutex
	state        progress.State
	observers    []Observer
	source       Source
	closedByUser bool
	seq          uint64

	sourceOnce sync.Once
}

func newHandle(kind string, gen uint64, cancel context.CancelFunc, observers []Observer) *Handle {
	h := &Handle{
		kind:   kind,
		gen:    gen,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  progress.New(kind),
	}
	for _, o := range observers {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
	return h
}

func (h *Handle) Kind() string { return h.kind }

// Gen is unique per manager and grows with every Open.
func (h *Handle) Gen() uint64 { return h.gen }

// Done is closed once the handle stops reading its stream.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Snapshot() progress.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Clone()
}

// Observe attaches an observer. Later updates carry the full console
// buffer, so an observer attached mid-stream still sees all output.
func (h *Handle) Observe(o Observer) {
	if o == nil {
		return
	}
	h.mu.Lock()
	h.observers = append(h.observers, o)
	h.mu.Unlock()
}

// ClosedByUser reports whether Close was called before the stream ended.
func (h *Handle) ClosedByUser() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closedByUser
}

// Close unsubscribes. It is idempotent, does not signal the server, and
// suppresses the disconnected outcome the resulting transport close would
// otherwise produce.
func (h *Handle) Close() {
	h.mu.Lock()
	if !h.closedByUser && !h.state.Outcome.Done() {
		h.closedByUser = true
	}
	h.mu.Unlock()

	h.cancel()
	h.closeSource()
}

// Wait blocks until the handle is done or ctx ends and returns the state.
func (h *Handle) Wait(ctx context.Context) (progress.State, error) {
	select {
	case <-h.done:
		return h.Snapshot(), nil
	case <-ctx.Done():
		return h.Snapshot(), ctx.Err()
	}
}

// attach stores the dialed source. It returns false when the handle was
// closed while dialing; the source is then closed immediately.
func (h *Handle) attach(src Source) bool {
	h.mu.Lock()
	closed := h.closedByUser
	if !closed {
		h.source = src
	}
	h.mu.Unlock()
	if closed {
		_ = src.Close()
		return false
	}
	return true
}

func (h *Handle) closeSource() {
	h.mu.Lock()
	src := h.source
	h.mu.Unlock()
	if src == nil {
		return
	}
	h.sourceOnce.Do(func() {
		_ = src.Close()
	})
}

func (h *Handle) observersSnapshot() []Observer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Observer(nil), h.observers...)
}
