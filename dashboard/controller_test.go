package dashboard

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"listenboard/feed"
	"listenboard/model"
	"listenboard/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type stubSource struct {
	mu    sync.Mutex
	doc   *model.Feed
	err   error
	calls int
}

func (s *stubSource) Fetch(ctx context.Context) (*model.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.doc, s.err
}

func (s *stubSource) Describe() string { return "stub" }

func (s *stubSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingPublisher struct {
	mu       sync.Mutex
	panels   []map[string]template.HTML
	progress []render.Progress
}

func (p *recordingPublisher) PublishPanels(panels map[string]template.HTML) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panels = append(p.panels, panels)
}

func (p *recordingPublisher) PublishProgress(pr render.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = append(p.progress, pr)
}

func (p *recordingPublisher) lastPanels() map[string]template.HTML {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.panels) == 0 {
		return nil
	}
	return p.panels[len(p.panels)-1]
}

type recordingArchiver struct {
	mu    sync.Mutex
	items []model.RecentItem
}

func (a *recordingArchiver) Archive(ctx context.Context, items []model.RecentItem) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, items...)
	return len(items), nil
}

func (a *recordingArchiver) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// --- Helpers ---

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func activeFeed(progressMs, durationMs int, playing bool) *model.Feed {
	doc := model.NewFeed()
	doc.Timestamp = "2026-10-16T12:00:00"
	doc.CurrentPlayback = &model.CurrentPlayback{
		IsPlaying:  playing,
		ProgressMs: progressMs,
		Item: &model.Track{
			ID:           "t1",
			Name:         "Current Song",
			DurationMs:   durationMs,
			ExternalURLs: model.ExternalURLs{Spotify: "https://open.spotify.com/track/t1"},
			Artists:      []model.Artist{{Name: "Band", ExternalURLs: model.ExternalURLs{Spotify: "https://open.spotify.com/artist/b"}}},
		},
	}
	doc.TopTracks[model.TermMedium] = []model.Track{{ID: "m", Name: "Medium Hit"}}
	doc.TopTracks[model.TermShort] = []model.Track{{ID: "s", Name: "Short Hit"}}
	doc.TopArtists[model.TermMedium] = []model.Artist{{ID: "a", Name: "Medium Artist"}}
	doc.RecentlyPlayed = []model.RecentItem{{Track: model.Track{ID: "r", Name: "Earlier Song"}, PlayedAt: fixedNow.Add(-time.Hour)}}
	return doc
}

func newTestController(t *testing.T, src feed.Source, pub Publisher) *Controller {
	t.Helper()
	r, err := render.New()
	require.NoError(t, err)
	c, err := NewController(Options{
		Source:       src,
		Renderer:     r,
		Publisher:    pub,
		PollInterval: time.Hour,
		TickInterval: time.Second,
		Location:     time.UTC,
		Now:          func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return c
}

// deliver hands a result to the controller as if a fetch had finished.
func deliver(c *Controller, doc *model.Feed, err error) {
	c.issued++
	c.handleResult(context.Background(), fetchResult{gen: c.issued, reason: "test", doc: doc, err: err})
}

// --- Tests ---

func TestNewControllerInitialSnapshot(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)
	s := c.Snapshot()

	assert.False(t, s.Online)
	assert.Equal(t, DefaultTerms(), s.Terms)
	assert.Equal(t, render.ZeroProgress, s.Progress)
	assert.Contains(t, string(s.Panels[render.PanelTopTracks]), render.LoadingMessage)
	assert.Contains(t, string(s.Panels[render.PanelStatus]), render.StatusConnecting)
	assert.Contains(t, string(s.Panels[render.PanelTracksTerms]), `data-term="medium_term"`)
}

func TestNewControllerRequiresSource(t *testing.T) {
	r, err := render.New()
	require.NoError(t, err)
	_, err = NewController(Options{Renderer: r})
	assert.Error(t, err)
}

func TestActiveFeedSetsProgress(t *testing.T) {
	pub := &recordingPublisher{}
	c := newTestController(t, &stubSource{}, pub)

	deliver(c, activeFeed(50000, 200000, true), nil)
	s := c.Snapshot()

	assert.True(t, s.Online)
	assert.True(t, s.Playback.IsPlaying)
	assert.Equal(t, "25.00%", s.Progress.Width)
	assert.Equal(t, "0:50 / 3:20", s.Progress.Label)
	assert.Contains(t, string(s.Panels[render.PanelNowPlaying]), "Current Song")
	assert.Contains(t, string(s.Panels[render.PanelTopTracks]), "Medium Hit")
	assert.NotContains(t, string(s.Panels[render.PanelTopTracks]), "Short Hit")
	assert.Contains(t, string(s.Panels[render.PanelRecent]), "Earlier Song")

	require.NotEmpty(t, pub.progress)
	assert.Equal(t, s.Progress, pub.progress[len(pub.progress)-1])
}

func TestProgressClampedToFullBar(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)

	deliver(c, activeFeed(260000, 200000, true), nil)
	assert.Equal(t, "100.00%", c.Snapshot().Progress.Width)
}

func TestZeroDurationLeavesBarUnchanged(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)

	deliver(c, activeFeed(50000, 200000, true), nil)
	before := c.Snapshot().Progress

	deliver(c, activeFeed(90000, 0, true), nil)
	assert.Equal(t, before, c.Snapshot().Progress)

	c.handleTick()
	assert.Equal(t, before, c.Snapshot().Progress)
}

func TestTicksAdvanceProgressBetweenSamples(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)
	deliver(c, activeFeed(60000, 200000, true), nil)

	const n = 5
	for i := 0; i < n; i++ {
		c.handleTick()
	}
	s := c.Snapshot()
	assert.Equal(t, 60000+n*1000, s.Playback.ProgressMs)
	assert.Equal(t, "1:05 / 3:20", s.Progress.Label)

	// 新样本直接覆盖插值结果
	deliver(c, activeFeed(10000, 200000, true), nil)
	assert.Equal(t, 10000, c.Snapshot().Playback.ProgressMs)
}

func TestPausedFeedDoesNotTick(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)
	deliver(c, activeFeed(60000, 200000, false), nil)

	c.handleTick()
	assert.Equal(t, 60000, c.Snapshot().Playback.ProgressMs)
}

func TestNullPlaybackIsIdle(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)
	deliver(c, activeFeed(60000, 200000, true), nil)

	doc := activeFeed(0, 0, false)
	doc.CurrentPlayback = nil
	deliver(c, doc, nil)

	s := c.Snapshot()
	assert.False(t, s.Playback.IsPlaying)
	assert.Equal(t, render.ZeroProgress, s.Progress)
	np := string(s.Panels[render.PanelNowPlaying])
	assert.Contains(t, np, render.IdleTitle)
	assert.Contains(t, np, render.IdleSubtitle)
	assert.Contains(t, np, "np-idle")
}

func TestFetchFailureRendersOffline(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)
	deliver(c, activeFeed(60000, 200000, true), nil)

	deliver(c, nil, feed.ErrUnavailable)
	s := c.Snapshot()

	assert.False(t, s.Online)
	assert.False(t, s.Playback.IsPlaying)
	assert.Equal(t, render.ZeroProgress, s.Progress)
	np := string(s.Panels[render.PanelNowPlaying])
	assert.Contains(t, np, template.HTMLEscapeString(render.OfflineImageURL))
	assert.Contains(t, np, render.OfflineTitle)
	for _, id := range listPanels {
		assert.Contains(t, string(s.Panels[id]), render.WaitingMessage, id)
	}
	assert.Contains(t, string(s.Panels[render.PanelStatus]), render.StatusOffline)

	// 离线时进度时钟停止
	c.handleTick()
	assert.Equal(t, render.ZeroProgress, c.Snapshot().Progress)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)

	c.issued = 2
	c.handleResult(context.Background(), fetchResult{gen: 2, doc: activeFeed(90000, 200000, true)})
	c.handleResult(context.Background(), fetchResult{gen: 1, err: errors.New("slow and old")})

	s := c.Snapshot()
	assert.True(t, s.Online)
	assert.Equal(t, 90000, s.Playback.ProgressMs)
}

func TestApplyTermChangesOnlyItsButtons(t *testing.T) {
	pub := &recordingPublisher{}
	c := newTestController(t, &stubSource{}, pub)
	deliver(c, activeFeed(60000, 200000, true), nil)

	require.NoError(t, c.applyTerm(KindTracks, model.TermShort))

	changed := pub.lastPanels()
	require.Len(t, changed, 1)
	html, ok := changed[render.PanelTracksTerms]
	require.True(t, ok)
	assert.Contains(t, string(html), `class="term-btn active" data-kind="tracks" data-term="short_term"`)
	assert.Equal(t, model.TermMedium, c.Snapshot().Terms.Artists)

	// 下一次加载按新的时间窗口渲染
	deliver(c, activeFeed(60000, 200000, true), nil)
	assert.Contains(t, string(c.Snapshot().Panels[render.PanelTopTracks]), "Short Hit")

	assert.Error(t, c.applyTerm(TermKind("albums"), model.TermShort))
}

func TestChangedPanels(t *testing.T) {
	prev := &Snapshot{Panels: map[string]template.HTML{"a": "1", "b": "2"}}
	next := &Snapshot{Panels: map[string]template.HTML{"a": "1", "b": "3", "c": "4"}}

	assert.Equal(t, map[string]template.HTML{"b": "3", "c": "4"}, ChangedPanels(prev, next))
	assert.Len(t, ChangedPanels(nil, next), 3)
}

func TestRunReloadsOnTermChangeAndTrigger(t *testing.T) {
	src := &stubSource{doc: activeFeed(60000, 200000, true)}
	arch := &recordingArchiver{}
	r, err := render.New()
	require.NoError(t, err)
	c, err := NewController(Options{
		Source:       src,
		Renderer:     r,
		Archiver:     arch,
		PollInterval: time.Hour,
		TickInterval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trigger := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, trigger) }()

	require.Eventually(t, func() bool { return c.Snapshot().Online }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 1, src.Calls())
	require.Eventually(t, func() bool { return arch.Count() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.SetTerm(ctx, KindArtists, model.TermLong))
	assert.Equal(t, model.TermLong, c.Snapshot().Terms.Artists)
	require.Eventually(t, func() bool { return src.Calls() == 2 }, 2*time.Second, 5*time.Millisecond)

	trigger <- struct{}{}
	require.Eventually(t, func() bool { return src.Calls() == 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSetTermWithoutRun(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)
	assert.ErrorIs(t, c.SetTerm(context.Background(), KindTracks, model.TermShort), ErrNotRunning)
}

func TestRunWithFailingHTTPFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestController(t, feed.NewHTTPSource(ts.Client(), ts.URL+"/data/data.json"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(string(c.Snapshot().Panels[render.PanelNowPlaying]), render.OfflineTitle)
	}, 2*time.Second, 5*time.Millisecond)

	s := c.Snapshot()
	for _, id := range listPanels {
		assert.Contains(t, string(s.Panels[id]), render.WaitingMessage)
	}
}
