package model

import (
	"fmt"
	"time"
)

// Term 排行榜统计时间窗口
type Term string

const (
	TermShort  Term = "short_term"  // 约 4 周
	TermMedium Term = "medium_term" // 约 6 个月
	TermLong   Term = "long_term"   // 全部历史
)

// Terms lists every ranking window in display order.
var Terms = []Term{TermShort, TermMedium, TermLong}

// Label 按钮上显示的文字
func (t Term) Label() string {
	switch t {
	case TermShort:
		return "4 Weeks"
	case TermMedium:
		return "6 Months"
	case TermLong:
		return "All Time"
	default:
		return string(t)
	}
}

// ParseTerm 校验并解析时间窗口
func ParseTerm(s string) (Term, error) {
	for _, t := range Terms {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown term %q", s)
}

// ExternalURLs holds outbound links for a Spotify object.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// Image 封面或头像
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Artist 艺术家
type Artist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Genres       []string     `json:"genres,omitempty"`
	Images       []Image      `json:"images,omitempty"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Album 专辑
type Album struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Images       []Image      `json:"images"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Track 歌曲
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	DurationMs   int          `json:"duration_ms"`
	Artists      []Artist     `json:"artists"`
	Album        Album        `json:"album"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// CurrentPlayback is the player state at the time the collector sampled it.
// Item is nil when nothing is playing.
type CurrentPlayback struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMs int    `json:"progress_ms"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	Item       *Track `json:"item"`
}

// RecentItem 最近播放记录
type RecentItem struct {
	Track    Track     `json:"track"`
	PlayedAt time.Time `json:"played_at"`
}

// Feed is the document written by the collector and read by the dashboard.
type Feed struct {
	Timestamp       string            `json:"timestamp"`
	CurrentPlayback *CurrentPlayback  `json:"current_playback"`
	TopTracks       map[Term][]Track  `json:"top_tracks"`
	TopArtists      map[Term][]Artist `json:"top_artists"`
	RecentlyPlayed  []RecentItem      `json:"recently_played"`
}

// NewFeed 创建空的数据文档
func NewFeed() *Feed {
	return &Feed{
		TopTracks:      make(map[Term][]Track),
		TopArtists:     make(map[Term][]Artist),
		RecentlyPlayed: []RecentItem{},
	}
}
