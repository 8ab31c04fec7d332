package dashboard

import (
	"html/template"
	"time"

	"listenboard/model"
	"listenboard/render"
)

// TermKind names one of the two term button groups.
type TermKind string

const (
	KindTracks  TermKind = "tracks"
	KindArtists TermKind = "artists"
)

// ParseKind 校验按钮组名称
func ParseKind(s string) (TermKind, bool) {
	switch TermKind(s) {
	case KindTracks, KindArtists:
		return TermKind(s), true
	}
	return "", false
}

// TermSelection is the ranking window chosen for each top list.
type TermSelection struct {
	Tracks  model.Term `json:"tracks"`
	Artists model.Term `json:"artists"`
}

// DefaultTerms 默认选择中期
func DefaultTerms() TermSelection {
	return TermSelection{Tracks: model.TermMedium, Artists: model.TermMedium}
}

// Snapshot is an immutable view of the dashboard. A new one replaces the old
// one after every change; readers never see a half-applied update.
type Snapshot struct {
	Online        bool                     `json:"online"`
	Terms         TermSelection            `json:"terms"`
	Playback      PlaybackState            `json:"playback"`
	Progress      render.Progress          `json:"progress"`
	Panels        map[string]template.HTML `json:"panels"`
	FeedTimestamp string                   `json:"feedTimestamp,omitempty"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

// ChangedPanels returns the panels of next whose markup differs from prev.
// A nil prev yields every panel.
func ChangedPanels(prev, next *Snapshot) map[string]template.HTML {
	changed := make(map[string]template.HTML)
	for id, html := range next.Panels {
		if prev == nil {
			changed[id] = html
			continue
		}
		if old, ok := prev.Panels[id]; !ok || old != html {
			changed[id] = html
		}
	}
	return changed
}

func (s *Snapshot) clone() *Snapshot {
	cp := *s
	cp.Panels = make(map[string]template.HTML, len(s.Panels))
	for k, v := range s.Panels {
		cp.Panels[k] = v
	}
	return &cp
}
