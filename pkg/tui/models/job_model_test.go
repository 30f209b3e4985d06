package models

import (
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/studioctl/pkg/bus"
	"github.com/go-go-golems/studioctl/pkg/progress"
	"github.com/go-go-golems/studioctl/pkg/stream"
	"github.com/go-go-golems/studioctl/pkg/tui"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []*message.Message
}

func (p *capturePublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		p.topics = append(p.topics, topic)
		p.msgs = append(p.msgs, m)
	}
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func fixedNow() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func newTestModel(pub message.Publisher) JobModel {
	m := NewJobModel(JobOptions{
		Kind:      "podcast_builder",
		Publisher: pub,
		OutputURL: func(p string) string { return "http://studio/outputs/" + p },
		Now:       fixedNow,
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(JobModel)
}

func update(t *testing.T, m JobModel, msg tea.Msg) (JobModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	jm, ok := next.(JobModel)
	require.True(t, ok)
	return jm, cmd
}

func stateWith(f func(*progress.State)) progress.State {
	s := progress.New("podcast_builder")
	f(&s)
	return s
}

func TestJobModel_AppliesUpdatesInSeqOrder(t *testing.T) {
	m := newTestModel(nil)

	newer := stateWith(func(s *progress.State) {
		s.Console = "line one\nline two\n"
		s.Total, s.Current, s.Percent = 4, 2, 50
		s.Status = "Rendering segment 2"
	})
	older := stateWith(func(s *progress.State) { s.Console = "line one\n" })

	m, _ = update(t, m, tui.StreamUpdateMsg{Update: stream.Update{Kind: "podcast_builder", Seq: 2, State: newer}})
	m, _ = update(t, m, tui.StreamUpdateMsg{Update: stream.Update{Kind: "podcast_builder", Seq: 1, State: older}})
	m, _ = update(t, m, tui.StreamUpdateMsg{Update: stream.Update{Kind: "script_builder", Seq: 3, State: older}})

	require.Equal(t, "line one\nline two\n", m.State().Console)
	view := m.View()
	require.Contains(t, view, "Podcast Builder")
	require.Contains(t, view, "line two")
	require.Contains(t, view, "Rendering segment 2")
	require.Contains(t, view, "2/4")
	require.Contains(t, view, "50%")
}

func TestJobModel_EndedShowsArtifactsAndBanner(t *testing.T) {
	m := newTestModel(nil)
	d := 61 * time.Second
	final := stateWith(func(s *progress.State) {
		s.Outcome = progress.OutcomeComplete
		s.Busy = false
		s.Artifacts = []progress.Artifact{progress.NewArtifact("final/show.mp4")}
		s.Duration = &d
	})

	m, _ = update(t, m, tui.StreamEndedMsg{End: stream.StreamEnded{Kind: "podcast_builder", Outcome: progress.OutcomeComplete, State: final}})
	require.True(t, m.Ended())

	// A late update from the same stream must not roll the view back.
	m, _ = update(t, m, tui.StreamUpdateMsg{Update: stream.Update{Kind: "podcast_builder", Seq: 9, State: progress.New("podcast_builder")}})
	require.Equal(t, progress.OutcomeComplete, m.State().Outcome)

	view := m.View()
	require.Contains(t, view, "Podcast Video: show.mp4")
	require.Contains(t, view, "http://studio/outputs/final/show.mp4")
	require.Contains(t, view, "finished in 00:01:01")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.Nil(t, cmd)
}

func TestJobModel_DisconnectedBannerDiffersFromFailed(t *testing.T) {
	m := newTestModel(nil)
	lost := stateWith(func(s *progress.State) { s.Outcome = progress.OutcomeDisconnected; s.Busy = false })
	m, _ = update(t, m, tui.StreamUpdateMsg{Update: stream.Update{Kind: "podcast_builder", Seq: 1, State: lost}})
	require.Contains(t, m.View(), "Connection lost")

	m = newTestModel(nil)
	failed := stateWith(func(s *progress.State) {
		s.Outcome = progress.OutcomeFailed
		s.Error = "ffmpeg exited with status 1"
	})
	m, _ = update(t, m, tui.StreamEndedMsg{End: stream.StreamEnded{Kind: "podcast_builder", State: failed}})
	require.Contains(t, m.View(), "Failed: ffmpeg exited with status 1")
}

func TestJobModel_CloseKeyPublishesRequest(t *testing.T) {
	pub := &capturePublisher{}
	m := newTestModel(pub)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.NotNil(t, cmd)
	res, ok := cmd().(tui.CloseResultMsg)
	require.True(t, ok)
	require.NoError(t, res.Err)

	pub.mu.Lock()
	require.Equal(t, []string{bus.TopicActions}, pub.topics)
	env, err := bus.Decode(pub.msgs[0])
	pub.mu.Unlock()
	require.NoError(t, err)
	require.Equal(t, bus.TypeStreamCloseRequest, env.Type)
	var req stream.CloseRequest
	require.NoError(t, env.DecodePayload(&req))
	require.Equal(t, "podcast_builder", req.Kind)

	// A second press while the close is in flight is a no-op.
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.Nil(t, cmd)

	m, _ = update(t, m, tui.StreamEndedMsg{End: stream.StreamEnded{Kind: "podcast_builder", ClosedByUser: true, State: progress.New("podcast_builder")}})
	require.True(t, m.ClosedByUser())
	require.Contains(t, m.View(), "Stream closed")
}

func TestJobModel_CloseWithoutPublisherReportsError(t *testing.T) {
	m := newTestModel(nil)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	require.Contains(t, m.View(), "close failed")
}

func TestJobModel_QuitKeys(t *testing.T) {
	m := newTestModel(nil)
	for _, k := range []tea.KeyMsg{{Type: tea.KeyCtrlC}, {Type: tea.KeyRunes, Runes: []rune("q")}} {
		_, cmd := update(t, m, k)
		require.NotNil(t, cmd)
		require.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestJobModel_StartedResetsAfterSupersede(t *testing.T) {
	m := newTestModel(nil)
	m, _ = update(t, m, tui.StreamStartedMsg{Started: stream.StreamStarted{Kind: "podcast_builder", Gen: 1, At: fixedNow()}})
	done := stateWith(func(s *progress.State) { s.Outcome = progress.OutcomeComplete; s.Console = "old\n" })
	m, _ = update(t, m, tui.StreamEndedMsg{End: stream.StreamEnded{Kind: "podcast_builder", Gen: 1, State: done}})

	m, cmd := update(t, m, tui.StreamStartedMsg{Started: stream.StreamStarted{Kind: "podcast_builder", Gen: 2, At: fixedNow()}})
	require.NotNil(t, cmd)
	require.False(t, m.Ended())
	require.Equal(t, progress.OutcomeRunning, m.State().Outcome)
	require.Empty(t, m.State().Console)

	m, _ = update(t, m, tui.StreamUpdateMsg{Update: stream.Update{Kind: "podcast_builder", Gen: 2, Seq: 1, State: stateWith(func(s *progress.State) { s.Console = "new\n" })}})
	require.Equal(t, "new\n", m.State().Console)

	// Envelopes of the superseded stream are dropped.
	m, _ = update(t, m, tui.StreamEndedMsg{End: stream.StreamEnded{Kind: "podcast_builder", Gen: 1, State: done}})
	require.False(t, m.Ended())
	require.Equal(t, "new\n", m.State().Console)
}

func TestJobModel_LateStartedDoesNotResetEndedJob(t *testing.T) {
	m := newTestModel(nil)
	final := stateWith(func(s *progress.State) {
		s.Outcome = progress.OutcomeComplete
		s.Busy = false
		s.Console = "Segment 1 done\n"
		s.Artifacts = []progress.Artifact{progress.NewArtifact("final/show.mp4")}
	})

	// The bus delivers each envelope on its own goroutine, so the started
	// envelope can arrive after the stream already ended.
	m, _ = update(t, m, tui.StreamUpdateMsg{Update: stream.Update{Kind: "podcast_builder", Gen: 1, Seq: 1, State: final}})
	m, _ = update(t, m, tui.StreamEndedMsg{End: stream.StreamEnded{Kind: "podcast_builder", Gen: 1, Outcome: progress.OutcomeComplete, State: final}})
	m, cmd := update(t, m, tui.StreamStartedMsg{Started: stream.StreamStarted{Kind: "podcast_builder", Gen: 1, At: fixedNow()}})

	require.Nil(t, cmd)
	require.True(t, m.Ended())
	require.Equal(t, progress.OutcomeComplete, m.State().Outcome)
	require.Equal(t, "Segment 1 done\n", m.State().Console)
	require.Len(t, m.State().Artifacts, 1)
	view := m.View()
	require.Contains(t, view, "Podcast Video: show.mp4")
	require.Contains(t, view, "Segment 1 done")
	require.Contains(t, view, progress.CompleteMarker)
}
