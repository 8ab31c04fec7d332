package dashboard

import (
	"time"

	"listenboard/model"
	"listenboard/render"
)

// PlaybackState is the locally tracked player position. The loader replaces
// it on every successful sample; the interpolator advances it between samples.
type PlaybackState struct {
	IsPlaying  bool      `json:"isPlaying"`
	ProgressMs int       `json:"progressMs"`
	DurationMs int       `json:"durationMs"`
	SampledAt  time.Time `json:"sampledAt"`
}

// Idle 空闲状态，进度条归零
func Idle() PlaybackState {
	return PlaybackState{}
}

// Sample takes the authoritative position from the feed. Nothing playing, or
// a playback without an item, is idle.
func Sample(cp *model.CurrentPlayback, now time.Time) PlaybackState {
	if cp == nil || cp.Item == nil {
		return Idle()
	}
	return PlaybackState{
		IsPlaying:  cp.IsPlaying,
		ProgressMs: cp.ProgressMs,
		DurationMs: cp.Item.DurationMs,
		SampledAt:  now,
	}
}

// Tick advances a playing state by step, never past the duration.
// It reports whether the position moved.
func (s PlaybackState) Tick(step time.Duration, now time.Time) (PlaybackState, bool) {
	if !s.IsPlaying || s.DurationMs <= 0 || s.ProgressMs >= s.DurationMs {
		return s, false
	}
	s.ProgressMs += int(step / time.Millisecond)
	if s.ProgressMs > s.DurationMs {
		s.ProgressMs = s.DurationMs
	}
	s.SampledAt = now
	return s, true
}

// Progress is the bar for this state; ok is false when the duration is unknown.
func (s PlaybackState) Progress() (render.Progress, bool) {
	return render.ProgressOf(s.ProgressMs, s.DurationMs)
}
