package render

import (
	"bytes"
	"html/template"
	"strings"
	"testing"

	"listenboard/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestRenderListPlaceholders(t *testing.T) {
	r := newRenderer(t)

	tests := []struct {
		name  string
		panel ListPanel
		want  string
	}{
		{name: "top tracks empty", panel: TopTracksView(nil), want: NoDataMessage},
		{name: "top artists empty", panel: TopArtistsView([]model.Artist{}), want: NoDataMessage},
		{name: "recent empty", panel: RecentlyPlayedView(nil, nil), want: NoRecentMessage},
		{name: "waiting", panel: WaitingView(PanelTopTracks), want: WaitingMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := r.List(tt.panel)
			require.NoError(t, err)
			assert.Equal(t, `<div class="loading">`+template.HTMLEscapeString(tt.want)+`</div>`, string(html))
		})
	}
}

func TestRenderListItems(t *testing.T) {
	r := newRenderer(t)

	html, err := r.List(TopTracksView([]model.Track{track("Hello", "https://img/a")}))
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, `<div class="rank">1</div>`)
	assert.Contains(t, out, `<a href="https://open.spotify.com/track/Hello" class="spotify-link" target="_blank" rel="noopener">Hello</a>`)
	assert.Contains(t, out, `>First</a>, <a href="https://open.spotify.com/artist/second"`)
	assert.Contains(t, out, `src="https://img/a"`)
}

func TestRenderEscapesFeedValues(t *testing.T) {
	r := newRenderer(t)

	tr := track(`<script>alert(1)</script>`)
	tr.ExternalURLs.Spotify = "javascript:alert(1)"
	html, err := r.List(TopTracksView([]model.Track{tr}))
	require.NoError(t, err)

	out := string(html)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderNowPlaying(t *testing.T) {
	r := newRenderer(t)

	html, err := r.NowPlaying(OfflineView())
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, `src="`+template.HTMLEscapeString(OfflineImageURL)+`"`)
	assert.Contains(t, out, OfflineTitle)
	assert.Contains(t, out, "np-offline")

	html, err = r.NowPlaying(IdleView())
	require.NoError(t, err)
	assert.Contains(t, string(html), IdleTitle)
	assert.Contains(t, string(html), IdleSubtitle)
}

func TestRenderTerms(t *testing.T) {
	r := newRenderer(t)

	html, err := r.Terms(TermGroupView(PanelArtistsTerms, "artists", model.TermLong))
	require.NoError(t, err)
	out := string(html)
	assert.Equal(t, 1, strings.Count(out, "term-btn active"))
	assert.Contains(t, out, `class="term-btn active" data-kind="artists" data-term="long_term"`)
}

func TestRenderPage(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	err := r.Page(&buf, Page{
		Title:    "listenboard",
		Panels:   map[string]template.HTML{PanelNowPlaying: "<div>np</div>", PanelRecent: `<div class="loading">x</div>`, PanelStatus: "<span>live</span>"},
		Progress: Progress{Width: "42.00%", Label: "1:00 / 2:00"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `<div id="now-playing"><div>np</div></div>`)
	assert.Contains(t, out, `style="width: 42.00%"`)
	assert.Contains(t, out, "1:00 / 2:00")
	assert.Contains(t, out, `<ul id="recent-list" class="list"><div class="loading">x</div></ul>`)
	assert.Contains(t, out, `<div id="status"><span>live</span></div>`)
}

func TestRenderStatus(t *testing.T) {
	r := newRenderer(t)

	html, err := r.Status(StatusOffline)
	require.NoError(t, err)
	assert.Equal(t, `<span class="status status-offline">offline</span>`, string(html))
}
