package models

import "time"

// StoreNode is a single leaf of the document tree, addressed by its full path.
type StoreNode struct {
	Path      string    `gorm:"column:path;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoreNode) TableName() string { return "store_nodes" }
