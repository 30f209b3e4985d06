package stream

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/studioctl/pkg/bus"
	"github.com/go-go-golems/studioctl/pkg/progress"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
	closes atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan []byte, 64), closed: make(chan struct{})}
}

func (s *fakeSource) send(frames ...string) {
	for _, f := range frames {
		s.frames <- []byte(f)
	}
}

func (s *fakeSource) Recv() ([]byte, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-s.closed:
		return nil, errors.New("use of closed source")
	}
}

func (s *fakeSource) Close() error {
	s.closes.Add(1)
	s.once.Do(func() { close(s.closed) })
	return nil
}

func dialerFor(sources ...*fakeSource) Dialer {
	var mu sync.Mutex
	i := 0
	return DialerFunc(func(ctx context.Context, kind string) (Source, error) {
		mu.Lock()
		defer mu.Unlock()
		src := sources[i]
		i++
		return src, nil
	})
}

type recorder struct {
	ch chan Update
}

func newRecorder() *recorder { return &recorder{ch: make(chan Update, 64)} }

func (r *recorder) observe(u Update) { r.ch <- u }

func (r *recorder) next(t *testing.T) Update {
	t.Helper()
	select {
	case u := <-r.ch:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func (r *recorder) drained() []Update {
	var out []Update
	for {
		select {
		case u := <-r.ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func waitDone(t *testing.T, h *Handle) progress.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := h.Wait(ctx)
	require.NoError(t, err)
	return st
}

func TestManager_EndToEnd(t *testing.T) {
	src := newFakeSource()
	m := NewManager(Options{Dialer: dialerFor(src)})
	rec := newRecorder()

	src.send(
		`{"type":"total_units","count":4}`,
		`{}`,
		`{"type":"unit_progress","current":1}`,
		`{"type":"future_feature","x":1}`,
		`not json at all`,
		`{"type":"unit_progress","current":4}`,
		`{"type":"complete","output_files":["a.txt"]}`,
		`{"type":"output","content":"late"}`,
	)

	h, err := m.Open(context.Background(), "job", rec.observe)
	require.NoError(t, err)

	st := waitDone(t, h)
	require.Equal(t, progress.OutcomeComplete, st.Outcome)
	require.Equal(t, 100, st.Percent)
	require.Len(t, st.Artifacts, 1)
	require.Equal(t, "a.txt", st.Artifacts[0].Path)
	require.Empty(t, st.Console)
	require.Equal(t, int32(1), src.closes.Load())

	updates := rec.drained()
	require.Len(t, updates, 4)
	require.Equal(t, protocol.TypeTotalUnits, updates[0].Message.Type)
	require.Equal(t, protocol.TypeComplete, updates[3].Message.Type)
	for i, u := range updates {
		require.Equal(t, uint64(i+1), u.Seq)
	}
	require.Nil(t, m.Active("job"))
}

func TestManager_ErrorFailsAndClosesOnce(t *testing.T) {
	src := newFakeSource()
	m := NewManager(Options{Dialer: dialerFor(src)})

	src.send(`{"type":"output","content":"step 1\n"}`, `{"type":"error","content":"LLM quota exceeded"}`)
	h, err := m.Open(context.Background(), "script_builder")
	require.NoError(t, err)

	st := waitDone(t, h)
	require.Equal(t, progress.OutcomeFailed, st.Outcome)
	require.Contains(t, st.Console, "LLM quota exceeded")
	require.Equal(t, int32(1), src.closes.Load())

	h.Close()
	require.Equal(t, int32(1), src.closes.Load())
	require.False(t, h.ClosedByUser())
}

func TestManager_TransportCloseBeforeTerminalDisconnects(t *testing.T) {
	src := newFakeSource()
	m := NewManager(Options{Dialer: dialerFor(src)})
	rec := newRecorder()

	src.send(`{"type":"output","content":"working"}`)
	close(src.frames)

	h, err := m.Open(context.Background(), "podcast_builder", rec.observe)
	require.NoError(t, err)

	st := waitDone(t, h)
	require.Equal(t, progress.OutcomeDisconnected, st.Outcome)
	require.NotEqual(t, progress.OutcomeFailed, st.Outcome)
	require.Equal(t, "EOF", st.Error)

	updates := rec.drained()
	require.Len(t, updates, 2)
	require.False(t, updates[0].Disconnected())
	require.True(t, updates[1].Disconnected())
	require.Equal(t, int32(1), src.closes.Load())
}

func TestManager_ExplicitCloseSuppressesDisconnect(t *testing.T) {
	src := newFakeSource()
	m := NewManager(Options{Dialer: dialerFor(src)})
	rec := newRecorder()

	h, err := m.Open(context.Background(), "podcast_builder", rec.observe)
	require.NoError(t, err)

	src.send(`{"type":"output","content":"working"}`)
	rec.next(t)

	h.Close()
	h.Close()
	m.Close(h)

	st := waitDone(t, h)
	require.Equal(t, progress.OutcomeRunning, st.Outcome)
	require.True(t, h.ClosedByUser())
	require.Empty(t, rec.drained())
	require.Equal(t, int32(1), src.closes.Load())

	src.send(`{"type":"output","content":"more"}`)
	require.Equal(t, "working", h.Snapshot().Console)
}

func TestManager_OpenSupersedesSameKind(t *testing.T) {
	first, second := newFakeSource(), newFakeSource()
	m := NewManager(Options{Dialer: dialerFor(first, second)})
	rec := newRecorder()

	h1, err := m.Open(context.Background(), "script_builder", rec.observe)
	require.NoError(t, err)
	first.send(`{"type":"output","content":"one"}`)
	require.Equal(t, h1.Gen(), rec.next(t).Gen)

	h2, err := m.Open(context.Background(), "script_builder")
	require.NoError(t, err)
	require.Greater(t, h2.Gen(), h1.Gen())

	st1 := waitDone(t, h1)
	require.Equal(t, progress.OutcomeRunning, st1.Outcome)
	require.True(t, h1.ClosedByUser())
	require.Empty(t, rec.drained())
	require.Same(t, h2, m.Active("script_builder"))

	second.send(`{"type":"complete"}`)
	st2 := waitDone(t, h2)
	require.Equal(t, progress.OutcomeComplete, st2.Outcome)
}

func TestManager_NilObserverIsSkipped(t *testing.T) {
	src := newFakeSource()
	m := NewManager(Options{Dialer: dialerFor(src)})
	rec := newRecorder()

	h, err := m.Open(context.Background(), "script_builder", nil, rec.observe)
	require.NoError(t, err)
	h.Observe(nil)
	src.send(`{"type":"output","content":"hello"}`, `{"type":"complete"}`)

	st := waitDone(t, h)
	require.Equal(t, progress.OutcomeComplete, st.Outcome)
	require.Equal(t, "hello", rec.next(t).State.Console)
}

func TestManager_DialFailureDisconnects(t *testing.T) {
	m := NewManager(Options{Dialer: DialerFunc(func(ctx context.Context, kind string) (Source, error) {
		return nil, errors.New("connection refused")
	})})

	h, err := m.Open(context.Background(), "script_builder")
	require.NoError(t, err)
	st := waitDone(t, h)
	require.Equal(t, progress.OutcomeDisconnected, st.Outcome)
	require.Contains(t, st.Error, "connection refused")
}

func TestManager_LateObserverSeesFullConsole(t *testing.T) {
	src := newFakeSource()
	m := NewManager(Options{Dialer: dialerFor(src)})
	early := newRecorder()

	h, err := m.Open(context.Background(), "script_builder", early.observe)
	require.NoError(t, err)

	src.send(`{"type":"output","content":"a"}`, `{"type":"output","content":"b"}`)
	early.next(t)
	early.next(t)

	late := newRecorder()
	h.Observe(late.observe)
	src.send(`{"type":"output","content":"c"}`)

	u := late.next(t)
	require.Equal(t, "abc", u.State.Console)
	h.Close()
}

func TestManager_ParentCancelIsNotDisconnect(t *testing.T) {
	src := newFakeSource()
	m := NewManager(Options{Dialer: DialerFunc(func(ctx context.Context, kind string) (Source, error) {
		go func() {
			<-ctx.Done()
			_ = src.Close()
		}()
		return src, nil
	})})
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	h, err := m.Open(ctx, "script_builder", rec.observe)
	require.NoError(t, err)
	cancel()

	st := waitDone(t, h)
	require.Equal(t, progress.OutcomeRunning, st.Outcome)
	require.Empty(t, rec.drained())
}

func TestManager_InvalidKindAndShutdown(t *testing.T) {
	m := NewManager(Options{Dialer: dialerFor(newFakeSource())})
	_, err := m.Open(context.Background(), "")
	require.Error(t, err)

	h, err := m.Open(context.Background(), "script_builder")
	require.NoError(t, err)
	m.Shutdown()
	waitDone(t, h)
	require.True(t, h.ClosedByUser())

	_, err = m.Open(context.Background(), "script_builder")
	require.ErrorIs(t, err, ErrManagerClosed)

	require.False(t, NewManager(Options{}).CloseKind("missing"))
	_, err = NewManager(Options{}).Open(context.Background(), "x")
	require.Error(t, err)
}

func TestManager_PublishesLifecycleOnBus(t *testing.T) {
	b, err := bus.NewInMemoryBus()
	require.NoError(t, err)

	types := make(chan string, 16)
	var ended StreamEnded
	var endedMu sync.Mutex
	b.AddHandler("test-events", bus.TopicEvents, func(msg *message.Message) error {
		defer msg.Ack()
		env, err := bus.Decode(msg)
		if err != nil {
			return nil
		}
		if env.Type == bus.TypeStreamEnded {
			endedMu.Lock()
			_ = env.DecodePayload(&ended)
			endedMu.Unlock()
		}
		types <- env.Type
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = b.Run(ctx) }()
	<-b.Running()

	src := newFakeSource()
	m := NewManager(Options{Dialer: dialerFor(src), Publisher: b.Publisher})
	src.send(`{"type":"status_text","message":"Searching"}`, `{"type":"complete"}`)
	h, err := m.Open(ctx, "script_builder")
	require.NoError(t, err)
	waitDone(t, h)

	var got []string
	for len(got) < 4 {
		select {
		case typ := <-types:
			got = append(got, typ)
		case <-ctx.Done():
			t.Fatalf("timed out, got %v", got)
		}
	}
	// gochannel fans out each publish on its own goroutine, so only the set is stable.
	require.ElementsMatch(t, []string{bus.TypeStreamStarted, bus.TypeStreamUpdate, bus.TypeStreamUpdate, bus.TypeStreamEnded}, got)

	endedMu.Lock()
	defer endedMu.Unlock()
	require.Equal(t, progress.OutcomeComplete, ended.Outcome)
	require.False(t, ended.ClosedByUser)
	require.Equal(t, h.Gen(), ended.Gen)
}

func TestRegisterBusActions_CloseRequest(t *testing.T) {
	b, err := bus.NewInMemoryBus()
	require.NoError(t, err)

	src := newFakeSource()
	m := NewManager(Options{Dialer: dialerFor(src)})
	RegisterBusActions(b, m)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = b.Run(ctx) }()
	<-b.Running()

	h, err := m.Open(context.Background(), "podcast_builder")
	require.NoError(t, err)
	require.NoError(t, bus.Publish(b.Publisher, bus.TopicActions, bus.TypeStreamCloseRequest, CloseRequest{Kind: "podcast_builder"}))

	st := waitDone(t, h)
	require.True(t, h.ClosedByUser())
	require.Equal(t, progress.OutcomeRunning, st.Outcome)
}
