package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/swiftcart-backend/pkg/db/models"
	"gorm.io/gorm"
)

const insertBatchSize = 200

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GormStore persists the document tree in the store_nodes table, one row per leaf.
type GormStore struct {
	db txRunner
}

func NewGorm(db txRunner) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, path string) (Snapshot, error) {
	segments, err := splitPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	clean := strings.Join(segments, "/")

	var rows []models.StoreNode
	if err := subtree(s.db.DB().WithContext(ctx), clean).Order("path").Find(&rows).Error; err != nil {
		return Snapshot{}, fmt.Errorf("store get %s: %w", clean, err)
	}

	key := ""
	if len(segments) > 0 {
		key = segments[len(segments)-1]
	}
	if len(rows) == 0 {
		return Snapshot{key: key}, nil
	}

	root := map[string]any{}
	for _, row := range rows {
		var leaf any
		if err := json.Unmarshal([]byte(row.Value), &leaf); err != nil {
			return Snapshot{}, fmt.Errorf("store decode %s: %w", row.Path, err)
		}
		if row.Path == clean {
			return Snapshot{key: key, value: leaf}, nil
		}
		rel := row.Path
		if clean != "" {
			rel = strings.TrimPrefix(row.Path, clean+"/")
		}
		insertLeaf(root, rel, leaf)
	}
	return Snapshot{key: key, value: root}, nil
}

func (s *GormStore) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

func (s *GormStore) Update(ctx context.Context, values map[string]any) error {
	writes, err := prepareUpdate(values)
	if err != nil {
		return err
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, w := range writes {
			if err := writeTx(tx, w); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store update: %w", err)
	}
	return nil
}

func (s *GormStore) Remove(ctx context.Context, path string) error {
	clean, _, err := cleanWritePath(path)
	if err != nil {
		return err
	}
	if err := subtree(s.db.DB().WithContext(ctx), clean).Delete(&models.StoreNode{}).Error; err != nil {
		return fmt.Errorf("store remove %s: %w", clean, err)
	}
	return nil
}

func (s *GormStore) NewID(_ context.Context, path string) (string, error) {
	return newID(path)
}

// ChildKeys scans only the path column and stops as soon as limit distinct
// children are seen, so a large subtree is never loaded whole.
func (s *GormStore) ChildKeys(ctx context.Context, path string, limit int) ([]string, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	clean := strings.Join(segments, "/")
	prefix := ""
	if clean != "" {
		prefix = clean + "/"
	}

	rows, err := subtree(s.db.DB().WithContext(ctx), clean).Select("path").Order("path").Rows()
	if err != nil {
		return nil, fmt.Errorf("store child keys %s: %w", clean, err)
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	var keys []string
	for rows.Next() {
		var leaf string
		if err := rows.Scan(&leaf); err != nil {
			return nil, fmt.Errorf("store child keys %s: %w", clean, err)
		}
		rel, ok := strings.CutPrefix(leaf, prefix)
		if !ok || rel == "" {
			continue
		}
		child, _, _ := strings.Cut(rel, "/")
		if _, dup := seen[child]; dup {
			continue
		}
		seen[child] = struct{}{}
		keys = append(keys, child)
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store child keys %s: %w", clean, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func writeTx(tx *gorm.DB, w pathWrite) error {
	if err := subtree(tx, w.path).Delete(&models.StoreNode{}).Error; err != nil {
		return err
	}
	// A scalar stored at an ancestor would shadow the new subtree.
	if parents := ancestors(w.segments); len(parents) > 0 {
		if err := tx.Where("path IN ?", parents).Delete(&models.StoreNode{}).Error; err != nil {
			return err
		}
	}
	if w.value == nil {
		return nil
	}

	leaves := map[string]string{}
	if _, isTree := w.value.(map[string]any); isTree {
		if err := flatten(w.path, w.value, leaves); err != nil {
			return err
		}
	} else {
		raw, err := json.Marshal(w.value)
		if err != nil {
			return err
		}
		leaves[w.path] = string(raw)
	}

	rows := make([]models.StoreNode, 0, len(leaves))
	for path, value := range leaves {
		rows = append(rows, models.StoreNode{Path: path, Value: value})
	}
	return tx.CreateInBatches(rows, insertBatchSize).Error
}

// subtree scopes a query to path and its descendants. A prefix comparison on
// substr avoids LIKE wildcard escaping for keys containing '_' or '%'.
func subtree(tx *gorm.DB, path string) *gorm.DB {
	if path == "" {
		return tx.Model(&models.StoreNode{})
	}
	prefix := path + "/"
	return tx.Model(&models.StoreNode{}).
		Where("path = ? OR substr(path, 1, ?) = ?", path, utf8.RuneCountInString(prefix), prefix)
}
