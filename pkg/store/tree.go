package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// normalize converts an arbitrary Go value into the JSON tree shape the store
// keeps: map[string]any for objects, string, float64 or bool for leaves.
// Empty objects and nulls collapse to nil, arrays become index keyed objects.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return prune(decoded)
}

func prune(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			if !ValidKey(key) {
				return nil, fmt.Errorf("%w: key %q", ErrInvalidPath, key)
			}
			pruned, err := prune(child)
			if err != nil {
				return nil, err
			}
			if pruned != nil {
				out[key] = pruned
			}
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil
	case []any:
		asMap := make(map[string]any, len(v))
		for i, child := range v {
			asMap[strconv.Itoa(i)] = child
		}
		return prune(asMap)
	default:
		return v, nil
	}
}

// deepCopy clones a normalized tree.
func deepCopy(value any) any {
	node, ok := value.(map[string]any)
	if !ok {
		return value
	}
	out := make(map[string]any, len(node))
	for k, v := range node {
		out[k] = deepCopy(v)
	}
	return out
}

// flatten writes every leaf of a normalized tree as path -> JSON literal.
func flatten(base string, value any, out map[string]string) error {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		for key, child := range v {
			if err := flatten(base+"/"+key, child, out); err != nil {
				return err
			}
		}
		return nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode leaf %s: %w", base, err)
		}
		out[base] = string(raw)
		return nil
	}
}

// insertLeaf places a decoded leaf at the relative path inside root.
func insertLeaf(root map[string]any, rel string, leaf any) {
	segments := strings.Split(rel, "/")
	node := root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[segment] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = leaf
}

// ancestors lists every strict prefix path of segments, shortest first.
func ancestors(segments []string) []string {
	out := make([]string, 0, len(segments)-1)
	for i := 1; i < len(segments); i++ {
		out = append(out, strings.Join(segments[:i], "/"))
	}
	return out
}
