package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type Note struct {
	Id       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title    string    `gorm:"type:varchar(255);not null"`
	Content  string    `gorm:"type:text"`
	Summary  *string   `gorm:"type:text"`
	Category *string   `gorm:"type:varchar(100)"`
	// NULL until the pipeline has embedded the note. The declared width is the
	// default; cmd/migrate re-types the column to EMBEDDING_DIMENSIONS.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	UserId    uuid.UUID        `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time        `gorm:"autoCreateTime"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime"`
}

func (Note) TableName() string {
	return "notes"
}
