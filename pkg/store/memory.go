package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store. Every operation holds a single lock, so
// multi-path updates are atomic with respect to readers.
type Memory struct {
	mu   sync.RWMutex
	root map[string]any
}

func NewMemory() *Memory {
	return &Memory{root: map[string]any{}}
}

func (m *Memory) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	segments, err := splitPath(path)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	key := ""
	if len(segments) > 0 {
		key = segments[len(segments)-1]
	}
	var current any = m.root
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return Snapshot{key: key}, nil
		}
		current = node[segment]
	}
	if node, ok := current.(map[string]any); ok && len(node) == 0 {
		current = nil
	}
	return Snapshot{key: key, value: deepCopy(current)}, nil
}

func (m *Memory) Set(ctx context.Context, path string, value any) error {
	return m.Update(ctx, map[string]any{path: value})
}

func (m *Memory) Update(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	writes, err := prepareUpdate(values)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		m.writeLocked(w.segments, w.value)
	}
	return nil
}

func (m *Memory) Remove(ctx context.Context, path string) error {
	return m.Set(ctx, path, nil)
}

func (m *Memory) NewID(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return newID(path)
}

func (m *Memory) ChildKeys(ctx context.Context, path string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	node := m.root
	for _, segment := range segments {
		next, ok := node[segment].(map[string]any)
		if !ok {
			return nil, nil
		}
		node = next
	}
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

func (m *Memory) writeLocked(segments []string, value any) {
	if value == nil {
		m.removeLocked(m.root, segments)
		return
	}
	node := m.root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[segment] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = deepCopy(value)
}

// removeLocked deletes the leaf path and prunes parents left empty.
func (m *Memory) removeLocked(node map[string]any, segments []string) bool {
	if len(segments) == 1 {
		delete(node, segments[0])
		return len(node) == 0
	}
	child, ok := node[segments[0]].(map[string]any)
	if !ok {
		return false
	}
	if m.removeLocked(child, segments[1:]) {
		delete(node, segments[0])
	}
	return len(node) == 0
}
