package stream

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/studioctl/pkg/bus"
	"github.com/go-go-golems/studioctl/pkg/progress"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrManagerClosed = errors.New("stream manager closed")

type Options struct {
	Dialer Dialer
	// Publisher receives stream lifecycle envelopes on bus.TopicEvents. Optional.
	Publisher message.Publisher
}

// Manager keeps at most one active stream per job kind.
type Manager struct {
	mu     sync.Mutex
	byKind map[string]*Handle
	closed bool
	gen    uint64

	dialer Dialer
	pub    message.Publisher
	now    func() time.Time
}

func NewManager(opts Options) *Manager {
	return &Manager{
		byKind: map[string]*Handle{},
		dialer: opts.Dialer,
		pub:    opts.Publisher,
		now:    time.Now,
	}
}

// Open subscribes to the stream for kind. An existing subscription for the
// same kind is closed first. Transport failures are reported through the
// handle's state as disconnected, never as an error here.
func (m *Manager) Open(ctx context.Context, kind string, observers ...Observer) (*Handle, error) {
	if err := protocol.ValidateKind(kind); err != nil {
		return nil, err
	}
	if m.dialer == nil {
		return nil, errors.New("stream manager has no dialer")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	streamCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return nil, ErrManagerClosed
	}
	m.gen++
	h := newHandle(kind, m.gen, cancel, observers)
	prev := m.byKind[kind]
	m.byKind[kind] = h
	m.mu.Unlock()

	if prev != nil {
		log.Debug().Str("kind", kind).Msg("superseding active stream")
		prev.Close()
	}

	m.publish(bus.TypeStreamStarted, StreamStarted{Kind: kind, Gen: h.gen, At: m.now()})
	go m.run(streamCtx, h)
	return h, nil
}

// Close unsubscribes h. It is safe to call more than once.
func (m *Manager) Close(h *Handle) {
	if h == nil {
		return
	}
	h.Close()
}

// CloseKind closes the active handle for kind, if any.
func (m *Manager) CloseKind(kind string) bool {
	h := m.Active(kind)
	if h == nil {
		return false
	}
	h.Close()
	return true
}

func (m *Manager) Active(kind string) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byKind[kind]
}

// Shutdown closes every active handle and rejects further Opens.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	handles := make([]*Handle, 0, len(m.byKind))
	for _, h := range m.byKind {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}

func (m *Manager) run(ctx context.Context, h *Handle) {
	defer func() {
		h.cancel()
		h.closeSource()

		m.mu.Lock()
		if m.byKind[h.kind] == h {
			delete(m.byKind, h.kind)
		}
		m.mu.Unlock()

		h.mu.Lock()
		st := h.state.Clone()
		byUser := h.closedByUser
		h.mu.Unlock()

		m.publish(bus.TypeStreamEnded, StreamEnded{
			Kind:         h.kind,
			Gen:          h.gen,
			At:           m.now(),
			Outcome:      st.Outcome,
			ClosedByUser: byUser,
			Error:        st.Error,
			State:        st,
		})
		close(h.done)
	}()

	src, err := m.dialer.Dial(ctx, h.kind)
	if err != nil {
		m.disconnect(ctx, h, errors.Wrap(err, "dial stream"))
		return
	}
	if !h.attach(src) {
		return
	}

	for {
		data, err := src.Recv()
		if err != nil {
			m.disconnect(ctx, h, err)
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			log.Debug().Err(err).Str("kind", h.kind).Msg("ignoring malformed stream frame")
			continue
		}
		if msg.Type == protocol.TypeUnknown {
			log.Debug().Str("kind", h.kind).Str("type", msg.RawType).Msg("ignoring unknown stream message")
			continue
		}

		h.mu.Lock()
		if h.closedByUser {
			h.mu.Unlock()
			return
		}
		next, changed := progress.Apply(h.state, msg)
		var seq uint64
		if changed {
			h.state = next
			h.seq++
			seq = h.seq
		}
		h.mu.Unlock()

		if changed {
			m.notify(h, Update{Kind: h.kind, Gen: h.gen, Seq: seq, Message: msg, State: next.Clone(), At: m.now()})
		}
		if next.Outcome.Done() {
			return
		}
	}
}

// disconnect records a transport loss. Cancellation of the caller's context
// counts as a client-initiated close, not a disconnect.
func (m *Manager) disconnect(ctx context.Context, h *Handle, cause error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}

	h.mu.Lock()
	if h.closedByUser {
		h.mu.Unlock()
		return
	}
	if ctx.Err() != nil && !h.state.Outcome.Done() {
		h.closedByUser = true
		h.mu.Unlock()
		return
	}
	next, changed := progress.Disconnect(h.state, reason)
	var seq uint64
	if changed {
		h.state = next
		h.seq++
		seq = h.seq
	}
	h.mu.Unlock()

	if !changed {
		return
	}
	log.Warn().Str("kind", h.kind).Str("reason", reason).Msg("stream disconnected before the job finished")
	m.notify(h, Update{Kind: h.kind, Gen: h.gen, Seq: seq, State: next.Clone(), At: m.now()})
}

func (m *Manager) notify(h *Handle, u Update) {
	for _, o := range h.observersSnapshot() {
		o(u)
	}
	m.publish(bus.TypeStreamUpdate, u)
}

func (m *Manager) publish(typ string, payload any) {
	if m.pub == nil {
		return
	}
	if err := bus.Publish(m.pub, bus.TopicEvents, typ, payload); err != nil {
		log.Debug().Err(err).Str("type", typ).Msg("publish stream event")
	}
}

// RegisterBusActions lets UI components close streams by publishing a
// CloseRequest on bus.TopicActions.
func RegisterBusActions(b *bus.Bus, m *Manager) {
	b.AddHandler("studioctl-stream-actions", bus.TopicActions, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := bus.Decode(msg)
		if err != nil {
			return nil
		}
		switch env.Type {
		case bus.TypeStreamCloseRequest:
			var req CloseRequest
			if err := env.DecodePayload(&req); err != nil {
				return nil
			}
			m.CloseKind(req.Kind)
		}
		return nil
	})
}
