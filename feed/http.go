package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"listenboard/model"
)

// maxFeedBytes bounds the response body; a full feed with 50 recent items and
// three terms of top lists is well under 2 MB.
const maxFeedBytes = 8 << 20

// HTTPSource GETs the feed from a URL, adding a "t" query parameter so that
// intermediate caches never serve a stale document.
type HTTPSource struct {
	httpClient *http.Client
	url        string
	now        func() time.Time
}

// NewHTTPSource 创建 HTTP 数据源
func NewHTTPSource(httpClient *http.Client, rawURL string) *HTTPSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPSource{httpClient: httpClient, url: rawURL, now: time.Now}
}

func (s *HTTPSource) requestURL() (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(s.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *HTTPSource) Fetch(ctx context.Context) (*model.Feed, error) {
	target, err := s.requestURL()
	if err != nil {
		return nil, unavailable("parse url", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, unavailable("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, unavailable("get", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, unavailable("read body", err)
	}
	return Decode(data)
}

func (s *HTTPSource) Describe() string {
	return "http:" + s.url
}
