package contract

import (
	"context"

	"semantic-notes-be/internal/entity"

	"github.com/google/uuid"
)

// ScoredNote pairs a note with its cosine similarity to the query vector.
type ScoredNote struct {
	Note       *entity.Note
	Similarity float64 // 1.0 = identical direction
}

// NoteVectorRepository is the vector store: one embedding per note, ranked
// reads by cosine similarity. Every search is scoped to a single user; the
// backing engine is swappable behind this interface.
type NoteVectorRepository interface {
	// UpsertEmbedding overwrites the stored vector for noteId. Idempotent.
	// Returns apperror.ErrNoteNotFound for an unknown note and a
	// *apperror.DimensionMismatchError for a wrong-length vector (checked
	// before any write, so the prior value is never clobbered).
	UpsertEmbedding(ctx context.Context, noteId uuid.UUID, vector []float32) error

	// SearchByVector returns userId's embedded notes ranked by descending
	// cosine similarity, keeping only similarity > minSimilarity, at most
	// limit rows. Ties break on created_at descending.
	SearchByVector(ctx context.Context, userId uuid.UUID, vector []float32, limit int, minSimilarity float64) ([]*ScoredNote, error)

	// SearchByNoteId ranks the target note's neighbours (same owner, target
	// excluded) seeded by its stored vector. A missing or not-yet-embedded
	// target yields an empty slice, not an error.
	SearchByNoteId(ctx context.Context, noteId uuid.UUID, limit int) ([]*ScoredNote, error)

	// NotesMissingEmbedding lists the user's notes with no stored vector.
	NotesMissingEmbedding(ctx context.Context, userId uuid.UUID) ([]*entity.Note, error)
}
