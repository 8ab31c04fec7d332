package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"listenboard/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewClient(ts.Client(), ts.URL+"/v1", 3, time.Millisecond)
}

func TestCurrentPlayback(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantNil bool
		wantErr bool
	}{
		{name: "no content", status: http.StatusNoContent, wantNil: true},
		{name: "no item", status: http.StatusOK, body: `{"is_playing":false,"progress_ms":0,"item":null}`, wantNil: true},
		{
			name:   "playing",
			status: http.StatusOK,
			body:   `{"is_playing":true,"progress_ms":61000,"timestamp":1792150200000,"item":{"id":"t1","name":"Song","duration_ms":213573,"artists":[{"name":"A"}],"album":{"name":"B","images":[]}}}`,
		},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":{"status":401}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/me/player", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			cp, err := c.CurrentPlayback(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "status 401")
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cp)
				return
			}
			require.NotNil(t, cp)
			assert.True(t, cp.IsPlaying)
			assert.Equal(t, 61000, cp.ProgressMs)
			assert.Equal(t, 213573, cp.Item.DurationMs)
		})
	}
}

func TestRecentlyPlayed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/me/player/recently-played", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"items":[{"track":{"id":"t1","name":"Take On Me"},"played_at":"2026-10-16T08:15:42.123Z"}]}`))
	})

	items, err := c.RecentlyPlayed(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Take On Me", items[0].Track.Name)
	assert.Equal(t, 2026, items[0].PlayedAt.Year())
}

func TestTopListsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "short_term", r.URL.Query().Get("time_range"))
		switch r.URL.Path {
		case "/v1/me/top/artists":
			_, _ = w.Write([]byte(`{"items":[{"id":"a1","name":"a-ha","genres":["synthpop"]}]}`))
		case "/v1/me/top/tracks":
			_, _ = w.Write([]byte(`{"items":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	artists, err := c.TopArtists(context.Background(), model.TermShort, 20)
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, []string{"synthpop"}, artists[0].Genres)

	tracks, err := c.TopTracks(context.Background(), model.TermShort, 20)
	require.NoError(t, err)
	assert.NotNil(t, tracks)
	assert.Empty(t, tracks)
}

func TestClientDoRequestWithRetry(t *testing.T) {
	tests := []struct {
		name             string
		statuses         []int
		maxRetries       int
		expectedAttempts int32
		expectErr        bool
	}{
		{
			name:             "retries on 503 then succeeds",
			statuses:         []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusOK},
			maxRetries:       3,
			expectedAttempts: 3,
		},
		{
			name:             "exhausts retries on 429",
			statuses:         []int{http.StatusTooManyRequests},
			maxRetries:       2,
			expectedAttempts: 2,
			expectErr:        true,
		},
		{
			name:             "does not retry 404",
			statuses:         []int{http.StatusNotFound},
			maxRetries:       3,
			expectedAttempts: 1,
			expectErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(attempts.Add(1))
				status := tt.statuses[len(tt.statuses)-1]
				if n <= len(tt.statuses) {
					status = tt.statuses[n-1]
				}
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = w.Write([]byte(`{"items":[]}`))
				}
			}))
			defer ts.Close()

			c := NewClient(ts.Client(), ts.URL, tt.maxRetries, time.Millisecond)
			_, err := c.RecentlyPlayed(context.Background(), 10)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedAttempts, attempts.Load())
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Zero(t, parseRetryAfter(resp))

	resp.Header.Set("Retry-After", "2")
	assert.Equal(t, 2*time.Second, parseRetryAfter(resp))

	resp.Header.Set("Retry-After", "soon")
	assert.Zero(t, parseRetryAfter(resp))
}

func TestSleepWithContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepWithContext(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
