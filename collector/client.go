// Package collector polls the Spotify Web API and writes the feed document
// consumed by the dashboard.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"listenboard/model"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// API is the subset of the Spotify Web API the collector reads.
type API interface {
	CurrentPlayback(ctx context.Context) (*model.CurrentPlayback, error)
	RecentlyPlayed(ctx context.Context, limit int) ([]model.RecentItem, error)
	TopArtists(ctx context.Context, term model.Term, limit int) ([]model.Artist, error)
	TopTracks(ctx context.Context, term model.Term, limit int) ([]model.Track, error)
}

// Client is an HTTP client for the Spotify Web API. The wrapped http.Client is
// expected to attach credentials, normally via oauth2.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration
}

var _ API = (*Client)(nil)

// NewClient constructs a Spotify client. Zero retry settings fall back to defaults.
func NewClient(httpClient *http.Client, baseURL string, maxRetries int, backoff time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxRetries:  maxRetries,
		baseBackoff: backoff,
	}
}

type pagingArtists struct {
	Items []model.Artist `json:"items"`
}

type pagingTracks struct {
	Items []model.Track `json:"items"`
}

type pagingRecent struct {
	Items []model.RecentItem `json:"items"`
}

// CurrentPlayback returns nil when nothing is playing (204 or no item).
func (c *Client) CurrentPlayback(ctx context.Context) (*model.CurrentPlayback, error) {
	var cp model.CurrentPlayback
	found, err := c.getJSON(ctx, "/me/player", nil, &cp)
	if err != nil {
		return nil, err
	}
	if !found || cp.Item == nil {
		return nil, nil
	}
	return &cp, nil
}

// RecentlyPlayed 获取最近播放列表
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]model.RecentItem, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var page pagingRecent
	if _, err := c.getJSON(ctx, "/me/player/recently-played", q, &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []model.RecentItem{}
	}
	return page.Items, nil
}

// TopArtists 获取指定时间窗口的常听艺术家
func (c *Client) TopArtists(ctx context.Context, term model.Term, limit int) ([]model.Artist, error) {
	var page pagingArtists
	if _, err := c.getJSON(ctx, "/me/top/artists", topQuery(term, limit), &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []model.Artist{}
	}
	return page.Items, nil
}

// TopTracks 获取指定时间窗口的常听歌曲
func (c *Client) TopTracks(ctx context.Context, term model.Term, limit int) ([]model.Track, error) {
	var page pagingTracks
	if _, err := c.getJSON(ctx, "/me/top/tracks", topQuery(term, limit), &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []model.Track{}
	}
	return page.Items, nil
}

func topQuery(term model.Term, limit int) url.Values {
	return url.Values{
		"limit":      {strconv.Itoa(limit)},
		"time_range": {string(term)},
	}
}

// getJSON performs a GET and decodes the body into out. It reports false for
// 204 No Content.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) (bool, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("spotify adapter: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("spotify adapter: %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("spotify adapter: decode %s: %w", path, err)
	}
	return true, nil
}
