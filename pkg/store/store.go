// Package store provides the hierarchical key-path document store used for
// shops, users, carts and orders. Values are JSON-shaped trees addressed by
// slash separated paths such as "carts/{uid}/{shopId}".
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidPath      = errors.New("store: invalid path")
	ErrOverlappingPaths = errors.New("store: overlapping update paths")
	ErrNotFound         = errors.New("store: no value at path")
)

// Store is the document store surface consumed by repositories.
type Store interface {
	// Get returns the subtree rooted at path. A missing path yields an empty snapshot.
	Get(ctx context.Context, path string) (Snapshot, error)
	// Set replaces the subtree at path. A nil or empty value removes it.
	Set(ctx context.Context, path string, value any) error
	// Update applies every path/value pair atomically. Nil values delete.
	Update(ctx context.Context, values map[string]any) error
	Remove(ctx context.Context, path string) error
	// NewID returns a fresh, time ordered child key for the collection at path.
	NewID(ctx context.Context, path string) (string, error)
	// ChildKeys lists up to limit direct child keys of path, ordered by key,
	// without reading their values. A limit of 0 lists all of them.
	ChildKeys(ctx context.Context, path string, limit int) ([]string, error)
}

// Snapshot is an immutable view of a subtree.
type Snapshot struct {
	key   string
	value any
}

// NewSnapshot wraps an already normalized value, mainly for tests and stubs.
func NewSnapshot(key string, value any) Snapshot {
	normalized, err := normalize(value)
	if err != nil {
		return Snapshot{key: key}
	}
	return Snapshot{key: key, value: normalized}
}

func (s Snapshot) Key() string { return s.key }

func (s Snapshot) Exists() bool { return s.value != nil }

func (s Snapshot) Value() any { return s.value }

// Child walks a relative path inside the snapshot.
func (s Snapshot) Child(path string) Snapshot {
	segments, err := splitPath(path)
	if err != nil || len(segments) == 0 {
		return Snapshot{key: s.key, value: s.value}
	}
	current := s.value
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return Snapshot{key: segments[len(segments)-1]}
		}
		current = node[segment]
	}
	return Snapshot{key: segments[len(segments)-1], value: current}
}

// Children lists direct children ordered by key.
func (s Snapshot) Children() []Snapshot {
	node, ok := s.value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		out = append(out, Snapshot{key: k, value: node[k]})
	}
	return out
}

// Decode unmarshals the snapshot into dest through its JSON form.
func (s Snapshot) Decode(dest any) error {
	if !s.Exists() {
		return ErrNotFound
	}
	raw, err := json.Marshal(s.value)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", s.key, err)
	}
	return nil
}

// Join builds a path from raw segments.
func Join(segments ...string) string {
	clean := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.Trim(segment, "/")
		if segment != "" {
			clean = append(clean, segment)
		}
	}
	return strings.Join(clean, "/")
}

// ValidKey reports whether key can be used as a single path segment.
func ValidKey(key string) bool {
	if strings.TrimSpace(key) == "" {
		return false
	}
	return !strings.ContainsAny(key, "/.#$[]")
}

func splitPath(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}
	segments := strings.Split(path, "/")
	for _, segment := range segments {
		if !ValidKey(segment) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// cleanWritePath validates a path that a write targets. The root is not writable.
func cleanWritePath(path string) (string, []string, error) {
	segments, err := splitPath(path)
	if err != nil {
		return "", nil, err
	}
	if len(segments) == 0 {
		return "", nil, fmt.Errorf("%w: root is not writable", ErrInvalidPath)
	}
	return strings.Join(segments, "/"), segments, nil
}

type pathWrite struct {
	path     string
	segments []string
	value    any
}

// prepareUpdate validates and normalizes a multi-path update.
func prepareUpdate(values map[string]any) ([]pathWrite, error) {
	writes := make([]pathWrite, 0, len(values))
	for raw, value := range values {
		path, segments, err := cleanWritePath(raw)
		if err != nil {
			return nil, err
		}
		normalized, err := normalize(value)
		if err != nil {
			return nil, err
		}
		writes = append(writes, pathWrite{path: path, segments: segments, value: normalized})
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].path < writes[j].path })
	for i := 1; i < len(writes); i++ {
		prev, cur := writes[i-1].path, writes[i].path
		if prev == cur || strings.HasPrefix(cur, prev+"/") {
			return nil, fmt.Errorf("%w: %q and %q", ErrOverlappingPaths, prev, cur)
		}
	}
	return writes, nil
}

// newID returns a UUIDv7 string; its textual form sorts by creation time.
func newID(path string) (string, error) {
	if _, err := splitPath(path); err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}
