package entity

import (
	"time"

	"github.com/google/uuid"
)

// Note carries at most one embedding. A nil Embedding means the note has not
// been processed by the pipeline yet (or its last attempt failed).
type Note struct {
	Id        uuid.UUID
	Title     string
	Content   string
	Summary   *string
	Category  *string
	Embedding []float32
	UserId    uuid.UUID
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// EmbedInput builds the text fed to the embedding model. Title and content
// are joined so short titles still contribute to the vector.
func (n *Note) EmbedInput() string {
	return n.Title + "\n\n" + n.Content
}
