// Package feed loads the listening-data document produced by the collector.
//
// Every source reports failure as ErrUnavailable: a network error, a bad status,
// a missing file and a malformed document all look the same to the dashboard.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"listenboard/model"
)

// ErrUnavailable 数据源不可用或文档格式错误
var ErrUnavailable = errors.New("feed unavailable or malformed")

// Source fetches the current feed document.
type Source interface {
	Fetch(ctx context.Context) (*model.Feed, error)
	Describe() string
}

// Decode parses a feed document. An empty body or a JSON null is malformed.
func Decode(data []byte) (*model.Feed, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: empty document", ErrUnavailable)
	}

	doc := model.NewFeed()
	if err := json.Unmarshal(trimmed, doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrUnavailable, err)
	}
	return doc, nil
}

// Encode serialises a feed document the way the collector writes it.
func Encode(doc *model.Feed) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	return data, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
