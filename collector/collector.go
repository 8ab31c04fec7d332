package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listenboard/feed"
	"listenboard/logger"
	"listenboard/model"
)

// Options 采集器配置
type Options struct {
	API           API
	Sinks         []Sink
	Interval      time.Duration // realtime data: playback and recently played
	StatsInterval time.Duration // top artists and tracks
	RecentLimit   int
	TopLimit      int
	Now           func() time.Time
}

// Collector keeps the last known document and rewrites it every round.
// Stats are refreshed less often and carried over between rounds.
type Collector struct {
	api           API
	sinks         []Sink
	interval      time.Duration
	statsInterval time.Duration
	recentLimit   int
	topLimit      int
	now           func() time.Time

	doc       *model.Feed
	lastStats time.Time
}

// New 创建采集器
func New(opts Options) (*Collector, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("collector: spotify api is required")
	}
	if len(opts.Sinks) == 0 {
		return nil, fmt.Errorf("collector: at least one sink is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = 12 * time.Hour
	}
	if opts.RecentLimit <= 0 || opts.RecentLimit > 50 {
		opts.RecentLimit = 50
	}
	if opts.TopLimit <= 0 || opts.TopLimit > 50 {
		opts.TopLimit = 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Collector{
		api:           opts.API,
		sinks:         opts.Sinks,
		interval:      opts.Interval,
		statsInterval: opts.StatsInterval,
		recentLimit:   opts.RecentLimit,
		topLimit:      opts.TopLimit,
		now:           opts.Now,
		doc:           model.NewFeed(),
	}, nil
}

// Run collects immediately and then every interval until ctx ends.
func (c *Collector) Run(ctx context.Context) error {
	names := make([]string, 0, len(c.sinks))
	for _, s := range c.sinks {
		names = append(names, s.Name())
	}
	logger.Info("collector started",
		logger.Duration("interval", c.interval),
		logger.Duration("statsInterval", c.statsInterval),
		logger.Any("sinks", names))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.RunOnce(ctx); err != nil {
			logger.Error("collect round failed", logger.ErrorField(err))
		}
		select {
		case <-ctx.Done():
			logger.Info("collector stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce performs one round and writes the document to every sink. Fetch
// failures keep the previous values; the error reports sink failures only.
func (c *Collector) RunOnce(ctx context.Context) error {
	now := c.now()
	c.doc.Timestamp = now.Format(time.RFC3339)

	c.updateRealtime(ctx)
	if c.lastStats.IsZero() || now.Sub(c.lastStats) >= c.statsInterval {
		if c.updateStats(ctx) {
			c.lastStats = now
		}
	}

	data, err := feed.Encode(c.doc)
	if err != nil {
		return err
	}

	var errs []error
	for _, s := range c.sinks {
		if err := s.Write(ctx, data); err != nil {
			logger.Warn("sink write failed", logger.String("sink", s.Name()), logger.ErrorField(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) == len(c.sinks) {
		return errors.Join(errs...)
	}
	logger.Debug("feed updated", logger.String("timestamp", c.doc.Timestamp), logger.Int("failedSinks", len(errs)))
	return nil
}

// Feed returns the document built so far.
func (c *Collector) Feed() *model.Feed {
	return c.doc
}

func (c *Collector) updateRealtime(ctx context.Context) {
	cp, err := c.api.CurrentPlayback(ctx)
	if err != nil {
		logger.Warn("fetch current playback failed", logger.ErrorField(err))
	} else {
		c.doc.CurrentPlayback = cp
	}

	recent, err := c.api.RecentlyPlayed(ctx, c.recentLimit)
	if err != nil {
		logger.Warn("fetch recently played failed", logger.ErrorField(err))
		return
	}
	c.doc.RecentlyPlayed = recent
}

// updateStats reports whether every term was refreshed.
func (c *Collector) updateStats(ctx context.Context) bool {
	logger.Info("updating top artists and tracks")
	for _, term := range model.Terms {
		artists, err := c.api.TopArtists(ctx, term, c.topLimit)
		if err != nil {
			logger.Warn("fetch top artists failed", logger.String("term", string(term)), logger.ErrorField(err))
			return false
		}
		c.doc.TopArtists[term] = artists

		tracks, err := c.api.TopTracks(ctx, term, c.topLimit)
		if err != nil {
			logger.Warn("fetch top tracks failed", logger.String("term", string(term)), logger.ErrorField(err))
			return false
		}
		c.doc.TopTracks[term] = tracks
	}
	return true
}
