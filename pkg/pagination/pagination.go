package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the page size when a cursor is given without a limit.
	DefaultLimit = 25
	// MaxLimit caps how many records any page can hold.
	MaxLimit = 100
)

// Params holds cursor pagination inputs from controllers or services. The
// zero value asks for the whole list.
type Params struct {
	Limit  int
	Cursor string
}

// Unbounded reports whether no paging was requested.
func (p Params) Unbounded() bool {
	return p.Limit <= 0 && strings.TrimSpace(p.Cursor) == ""
}

// NormalizeLimit enforces the default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeCursor wraps the key of the last record on a page.
func EncodeCursor(key string) string {
	if key == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// ParseCursor decodes a cursor back into a record key. An empty cursor
// yields an empty key.
func ParseCursor(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("decode cursor: %w", err)
	}
	if len(decoded) == 0 {
		return "", fmt.Errorf("invalid cursor format")
	}
	return string(decoded), nil
}

// Window pages through items sorted by descending key. It returns the records
// that follow the cursor and the cursor of the next page, empty on the last.
func Window[T any](items []T, key func(T) string, p Params) ([]T, string, error) {
	if p.Unbounded() {
		return items, "", nil
	}
	after, err := ParseCursor(p.Cursor)
	if err != nil {
		return nil, "", err
	}
	start := 0
	if after != "" {
		start = len(items)
		for i, item := range items {
			if key(item) < after {
				start = i
				break
			}
		}
	}
	limit := NormalizeLimit(p.Limit)
	end := start + limit
	if end >= len(items) {
		return items[start:], "", nil
	}
	return items[start:end], EncodeCursor(key(items[end-1])), nil
}
