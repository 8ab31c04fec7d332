// Package dashboard owns the playback clock and the rendered panels.
//
// A single goroutine (Controller.Run) mutates all state. Feed fetches run in
// their own goroutines and hand results back over a channel, so the progress
// clock keeps ticking while a fetch is in flight.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync/atomic"
	"time"

	"listenboard/feed"
	"listenboard/logger"
	"listenboard/model"
	"listenboard/render"
)

// ErrNotRunning is returned by SetTerm when Run has not been started or has returned.
var ErrNotRunning = errors.New("dashboard controller is not running")

var listPanels = []string{render.PanelTopTracks, render.PanelTopArtists, render.PanelRecent}

// Publisher receives every committed change.
type Publisher interface {
	PublishPanels(panels map[string]template.HTML)
	PublishProgress(p render.Progress)
}

// Archiver stores recently played items somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, items []model.RecentItem) (int, error)
}

// Options 控制器配置
type Options struct {
	Source       feed.Source
	Renderer     *render.Renderer
	Publisher    Publisher // optional
	Archiver     Archiver  // optional
	PollInterval time.Duration
	TickInterval time.Duration
	FetchTimeout time.Duration
	Location     *time.Location
	Now          func() time.Time
}

type fetchResult struct {
	gen    uint64
	reason string
	doc    *model.Feed
	err    error
}

type termRequest struct {
	kind TermKind
	term model.Term
	done chan error
}

// Controller is the single owner of the dashboard state.
type Controller struct {
	source    feed.Source
	renderer  *render.Renderer
	publisher Publisher
	archiver  Archiver

	pollInterval time.Duration
	tickInterval time.Duration
	fetchTimeout time.Duration
	loc          *time.Location
	now          func() time.Time

	results chan fetchResult
	terms   chan termRequest
	running atomic.Bool

	// 以下字段只在 Run 所在的 goroutine 中读写
	state    PlaybackState
	selected TermSelection
	issued   uint64
	applied  uint64

	snap atomic.Pointer[Snapshot]
}

// NewController 创建控制器并渲染初始快照
func NewController(opts Options) (*Controller, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("dashboard: feed source is required")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("dashboard: renderer is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = opts.PollInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Controller{
		source:       opts.Source,
		renderer:     opts.Renderer,
		publisher:    opts.Publisher,
		archiver:     opts.Archiver,
		pollInterval: opts.PollInterval,
		tickInterval: opts.TickInterval,
		fetchTimeout: opts.FetchTimeout,
		loc:          opts.Location,
		now:          opts.Now,
		results:      make(chan fetchResult, 8),
		terms:        make(chan termRequest),
		state:        Idle(),
		selected:     DefaultTerms(),
	}

	initial := &Snapshot{
		Terms:    c.selected,
		Playback: c.state,
		Progress: render.ZeroProgress,
		Panels:   make(map[string]template.HTML),
	}
	c.setPanel(initial, render.PanelStatus)(c.renderer.Status(render.StatusConnecting))
	c.setPanel(initial, render.PanelNowPlaying)(c.renderer.NowPlaying(render.IdleView()))
	for _, id := range listPanels {
		c.setPanel(initial, id)(c.renderer.List(render.ListPanel{ID: id, Placeholder: render.LoadingMessage}))
	}
	c.renderTerms(initial, KindTracks)
	c.renderTerms(initial, KindArtists)
	initial.UpdatedAt = c.now()
	c.snap.Store(initial)

	return c, nil
}

// Snapshot returns the latest committed view. Safe from any goroutine.
func (c *Controller) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Run drives the poll timer, the progress clock and term changes until ctx
// ends. Each value on a trigger channel causes an immediate reload.
func (c *Controller) Run(ctx context.Context, triggers ...<-chan struct{}) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("dashboard: controller already running")
	}
	defer c.running.Store(false)

	poll := time.NewTicker(c.pollInterval)
	defer poll.Stop()
	tick := time.NewTicker(c.tickInterval)
	defer tick.Stop()

	reload := mergeSignals(ctx, triggers...)

	logger.Info("dashboard controller started",
		logger.String("source", c.source.Describe()),
		logger.Duration("poll", c.pollInterval),
		logger.Duration("tick", c.tickInterval))

	c.startFetch(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			logger.Info("dashboard controller stopped")
			return nil
		case <-poll.C:
			c.startFetch(ctx, "poll")
		case <-reload:
			c.startFetch(ctx, "feed changed")
		case req := <-c.terms:
			err := c.applyTerm(req.kind, req.term)
			req.done <- err
			if err == nil {
				c.startFetch(ctx, "term change")
			}
		case res := <-c.results:
			c.handleResult(ctx, res)
		case <-tick.C:
			c.handleTick()
		}
	}
}

// SetTerm selects the ranking window for one list and triggers a reload.
// The button highlight changes before the reload completes.
func (c *Controller) SetTerm(ctx context.Context, kind TermKind, term model.Term) error {
	if !c.running.Load() {
		return ErrNotRunning
	}
	req := termRequest{kind: kind, term: term, done: make(chan error, 1)}
	select {
	case c.terms <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) startFetch(ctx context.Context, reason string) {
	c.issued++
	gen := c.issued

	go func() {
		fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()

		doc, err := c.source.Fetch(fctx)
		select {
		case c.results <- fetchResult{gen: gen, reason: reason, doc: doc, err: err}:
		case <-ctx.Done():
		}
	}()
}

// handleResult applies a fetch unless a newer one has already been applied.
func (c *Controller) handleResult(ctx context.Context, res fetchResult) {
	if res.gen <= c.applied {
		logger.Debug("discarding stale feed response",
			logger.Uint64("generation", res.gen),
			logger.Uint64("applied", c.applied),
			logger.String("reason", res.reason))
		return
	}
	c.applied = res.gen

	next := c.snap.Load().clone()
	if res.err != nil {
		logger.Warn("feed unavailable",
			logger.ErrorField(res.err),
			logger.String("source", c.source.Describe()),
			logger.String("reason", res.reason))
		c.applyOffline(next)
		c.commit(next)
		return
	}

	c.applyFeed(next, res.doc)
	c.commit(next)

	if c.archiver != nil && len(res.doc.RecentlyPlayed) > 0 {
		go c.archive(ctx, res.doc.RecentlyPlayed)
	}
}

func (c *Controller) applyOffline(next *Snapshot) {
	c.state = Idle()
	next.Online = false
	next.FeedTimestamp = ""
	next.Playback = c.state
	next.Progress = render.ZeroProgress
	c.setPanel(next, render.PanelStatus)(c.renderer.Status(render.StatusOffline))
	c.setPanel(next, render.PanelNowPlaying)(c.renderer.NowPlaying(render.OfflineView()))
	for _, id := range listPanels {
		c.setPanel(next, id)(c.renderer.List(render.WaitingView(id)))
	}
}

func (c *Controller) applyFeed(next *Snapshot, doc *model.Feed) {
	c.state = Sample(doc.CurrentPlayback, c.now())

	next.Online = true
	next.FeedTimestamp = doc.Timestamp
	next.Playback = c.state
	if doc.CurrentPlayback == nil || doc.CurrentPlayback.Item == nil {
		next.Progress = render.ZeroProgress
	} else if p, ok := c.state.Progress(); ok {
		next.Progress = p
	}

	c.setPanel(next, render.PanelStatus)(c.renderer.Status(render.StatusLive))
	c.setPanel(next, render.PanelNowPlaying)(c.renderer.NowPlaying(render.NowPlayingView(doc.CurrentPlayback)))
	c.setPanel(next, render.PanelTopTracks)(c.renderer.List(render.TopTracksView(doc.TopTracks[c.selected.Tracks])))
	c.setPanel(next, render.PanelTopArtists)(c.renderer.List(render.TopArtistsView(doc.TopArtists[c.selected.Artists])))
	c.setPanel(next, render.PanelRecent)(c.renderer.List(render.RecentlyPlayedView(doc.RecentlyPlayed, c.loc)))
}

// handleTick is the progress interpolator.
func (c *Controller) handleTick() {
	moved, ok := c.state.Tick(c.tickInterval, c.now())
	if !ok {
		return
	}
	c.state = moved

	next := c.snap.Load().clone()
	next.Playback = c.state
	if p, ok := c.state.Progress(); ok {
		next.Progress = p
	}
	c.commit(next)
}

func (c *Controller) applyTerm(kind TermKind, term model.Term) error {
	switch kind {
	case KindTracks:
		c.selected.Tracks = term
	case KindArtists:
		c.selected.Artists = term
	default:
		return fmt.Errorf("unknown term group %q", kind)
	}

	next := c.snap.Load().clone()
	next.Terms = c.selected
	c.renderTerms(next, kind)
	c.commit(next)

	logger.Info("term selection changed", logger.String("kind", string(kind)), logger.String("term", string(term)))
	return nil
}

func (c *Controller) renderTerms(s *Snapshot, kind TermKind) {
	switch kind {
	case KindTracks:
		c.setPanel(s, render.PanelTracksTerms)(c.renderer.Terms(render.TermGroupView(render.PanelTracksTerms, string(kind), c.selected.Tracks)))
	case KindArtists:
		c.setPanel(s, render.PanelArtistsTerms)(c.renderer.Terms(render.TermGroupView(render.PanelArtistsTerms, string(kind), c.selected.Artists)))
	}
}

// setPanel returns a sink for a render result; on error the panel keeps its
// previous markup.
func (c *Controller) setPanel(s *Snapshot, id string) func(template.HTML, error) {
	return func(html template.HTML, err error) {
		if err != nil {
			logger.Error("panel render failed", logger.String("panel", id), logger.ErrorField(err))
			return
		}
		s.Panels[id] = html
	}
}

// commit publishes next and pushes the difference to the publisher.
func (c *Controller) commit(next *Snapshot) {
	next.UpdatedAt = c.now()
	prev := c.snap.Swap(next)

	if c.publisher == nil {
		return
	}
	if changed := ChangedPanels(prev, next); len(changed) > 0 {
		c.publisher.PublishPanels(changed)
	}
	if prev == nil || prev.Progress != next.Progress {
		c.publisher.PublishProgress(next.Progress)
	}
}

func (c *Controller) archive(ctx context.Context, items []model.RecentItem) {
	actx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	n, err := c.archiver.Archive(actx, items)
	if err != nil {
		logger.Warn("archive recently played failed", logger.ErrorField(err))
		return
	}
	if n > 0 {
		logger.Debug("archived plays", logger.Int("count", n))
	}
}

// mergeSignals fans several trigger channels into one coalescing channel.
// With no triggers it returns nil, which blocks forever in a select.
func mergeSignals(ctx context.Context, triggers ...<-chan struct{}) <-chan struct{} {
	if len(triggers) == 0 {
		return nil
	}
	out := make(chan struct{}, 1)
	for _, t := range triggers {
		if t == nil {
			continue
		}
		go func(t <-chan struct{}) {
			for {
				select {
				case _, ok := <-t:
					if !ok {
						return
					}
					select {
					case out <- struct{}{}:
					default:
					}
				case <-ctx.Done():
					return
				}
			}
		}(t)
	}
	return out
}
