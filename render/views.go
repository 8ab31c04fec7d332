package render

import (
	"strconv"
	"time"

	"listenboard/model"
)

// Panel identifiers. They double as DOM element ids on the page.
const (
	PanelNowPlaying   = "now-playing"
	PanelTopTracks    = "top-tracks-list"
	PanelTopArtists   = "top-artists-list"
	PanelRecent       = "recent-list"
	PanelTracksTerms  = "tracks-term"
	PanelArtistsTerms = "artists-term"
	PanelStatus       = "status"
)

// Feed connection states shown in the header.
const (
	StatusConnecting = "connecting"
	StatusLive       = "live"
	StatusOffline    = "offline"
)

// 固定文案
const (
	NoDataMessage    = "No data available."
	NoRecentMessage  = "No recent history found."
	WaitingMessage   = "Waiting for data... (Run listenboard collect)"
	IdleTitle        = "Not Playing"
	IdleSubtitle     = "Take a break..."
	OfflineTitle     = "Connection Lost"
	OfflineSubtitle  = "Check if the collector is running (listenboard collect)"
	EmptyTimeLabel   = "0:00 / 0:00"
	IdleImageURL     = "https://via.placeholder.com/120/1db954/FFFFFF?text=IDLE"
	OfflineImageURL  = "https://via.placeholder.com/120/333333/FFFFFF?text=OFFLINE"
	FallbackImageURL = "https://via.placeholder.com/50"
)

// Now-playing states.
const (
	StatePlaying = "playing"
	StatePaused  = "paused"
	StateIdle    = "idle"
	StateOffline = "offline"
)

// Link is a text with an optional outbound URL.
type Link struct {
	Text string
	URL  string
}

// Progress is what the progress bar shows.
type Progress struct {
	Width string `json:"width"` // CSS width, e.g. "28.56%"
	Label string `json:"label"` // "1:01 / 3:33"
}

// ZeroProgress 空进度条
var ZeroProgress = Progress{Width: "0%", Label: EmptyTimeLabel}

// NowPlaying is the view of the now-playing panel, without the bar.
type NowPlaying struct {
	State    string
	ImageURL string
	Title    Link
	Artists  []Link
	Subtitle string
}

// ListItem is one row of a list panel.
type ListItem struct {
	Rank     int // 0 hides the rank column
	ImageURL string
	Title    Link
	Artists  []Link
	Genres   []string
	PlayedAt string
}

// ListPanel 列表面板
type ListPanel struct {
	ID          string
	Placeholder string
	Items       []ListItem
}

// TermButton 时间窗口按钮
type TermButton struct {
	Kind   string
	Term   string
	Label  string
	Active bool
}

// TermGroup is one group of term buttons.
type TermGroup struct {
	ID      string
	Kind    string
	Buttons []TermButton
}

// FormatTime formats milliseconds as m:ss.
func FormatTime(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	sec := total % 60
	s := strconv.Itoa(total/60) + ":"
	if sec < 10 {
		s += "0"
	}
	return s + strconv.Itoa(sec)
}

// ProgressOf computes the bar for a position. ok is false when duration is
// unknown, in which case the caller keeps whatever the bar showed before.
func ProgressOf(progressMs, durationMs int) (p Progress, ok bool) {
	if durationMs <= 0 {
		return Progress{}, false
	}
	if progressMs < 0 {
		progressMs = 0
	}
	if progressMs > durationMs {
		progressMs = durationMs
	}
	pct := float64(progressMs) / float64(durationMs) * 100
	return Progress{
		Width: strconv.FormatFloat(pct, 'f', 2, 64) + "%",
		Label: FormatTime(progressMs) + " / " + FormatTime(durationMs),
	}, true
}

func artistLinks(artists []model.Artist) []Link {
	links := make([]Link, 0, len(artists))
	for _, a := range artists {
		links = append(links, Link{Text: a.Name, URL: a.ExternalURLs.Spotify})
	}
	return links
}

// thumbnail prefers the smallest of Spotify's three sizes.
func thumbnail(images []model.Image) string {
	if len(images) > 2 && images[2].URL != "" {
		return images[2].URL
	}
	if len(images) > 0 && images[0].URL != "" {
		return images[0].URL
	}
	return FallbackImageURL
}

// NowPlayingView maps the current playback section. A nil section or one
// without an item is the idle state.
func NowPlayingView(cp *model.CurrentPlayback) NowPlaying {
	if cp == nil || cp.Item == nil {
		return IdleView()
	}
	item := cp.Item
	var img string
	if len(item.Album.Images) > 0 {
		img = item.Album.Images[0].URL
	}
	state := StatePaused
	if cp.IsPlaying {
		state = StatePlaying
	}
	return NowPlaying{
		State:    state,
		ImageURL: img,
		Title:    Link{Text: item.Name, URL: item.ExternalURLs.Spotify},
		Artists:  artistLinks(item.Artists),
	}
}

// IdleView 空闲状态
func IdleView() NowPlaying {
	return NowPlaying{
		State:    StateIdle,
		ImageURL: IdleImageURL,
		Title:    Link{Text: IdleTitle},
		Subtitle: IdleSubtitle,
	}
}

// OfflineView 数据源不可用
func OfflineView() NowPlaying {
	return NowPlaying{
		State:    StateOffline,
		ImageURL: OfflineImageURL,
		Title:    Link{Text: OfflineTitle},
		Subtitle: OfflineSubtitle,
	}
}

// TopTracksView 热门歌曲
func TopTracksView(tracks []model.Track) ListPanel {
	panel := ListPanel{ID: PanelTopTracks, Placeholder: NoDataMessage}
	for i, t := range tracks {
		panel.Items = append(panel.Items, ListItem{
			Rank:     i + 1,
			ImageURL: thumbnail(t.Album.Images),
			Title:    Link{Text: t.Name, URL: t.ExternalURLs.Spotify},
			Artists:  artistLinks(t.Artists),
		})
	}
	return panel
}

// TopArtistsView shows at most two genres per artist.
func TopArtistsView(artists []model.Artist) ListPanel {
	panel := ListPanel{ID: PanelTopArtists, Placeholder: NoDataMessage}
	for i, a := range artists {
		genres := a.Genres
		if len(genres) > 2 {
			genres = genres[:2]
		}
		panel.Items = append(panel.Items, ListItem{
			Rank:     i + 1,
			ImageURL: thumbnail(a.Images),
			Title:    Link{Text: a.Name, URL: a.ExternalURLs.Spotify},
			Genres:   genres,
		})
	}
	return panel
}

// RecentlyPlayedView 最近播放，时间按 loc 显示
func RecentlyPlayedView(items []model.RecentItem, loc *time.Location) ListPanel {
	if loc == nil {
		loc = time.Local
	}
	panel := ListPanel{ID: PanelRecent, Placeholder: NoRecentMessage}
	for _, it := range items {
		panel.Items = append(panel.Items, ListItem{
			ImageURL: thumbnail(it.Track.Album.Images),
			Title:    Link{Text: it.Track.Name, URL: it.Track.ExternalURLs.Spotify},
			Artists:  artistLinks(it.Track.Artists),
			PlayedAt: it.PlayedAt.In(loc).Format("Jan 2 15:04"),
		})
	}
	return panel
}

// WaitingView is a list panel that has nothing yet because the feed is down.
func WaitingView(id string) ListPanel {
	return ListPanel{ID: id, Placeholder: WaitingMessage}
}

// TermGroupView builds the button group for kind with selected marked active.
func TermGroupView(id, kind string, selected model.Term) TermGroup {
	group := TermGroup{ID: id, Kind: kind}
	for _, t := range model.Terms {
		group.Buttons = append(group.Buttons, TermButton{
			Kind:   kind,
			Term:   string(t),
			Label:  t.Label(),
			Active: t == selected,
		})
	}
	return group
}
