package specification

import (
	"gorm.io/gorm"
)

// MissingEmbedding selects notes the pipeline has not embedded yet
type MissingEmbedding struct{}

func (s MissingEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NULL")
}

// HasEmbedding selects notes that are visible to semantic search
type HasEmbedding struct{}

func (s HasEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NOT NULL")
}
