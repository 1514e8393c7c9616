package implementation

import (
	"context"
	"errors"

	"semantic-notes-be/internal/entity"
	"semantic-notes-be/internal/mapper"
	"semantic-notes-be/internal/model"
	"semantic-notes-be/internal/pkg/apperror"
	"semantic-notes-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type NoteVectorRepositoryImpl struct {
	db         *gorm.DB
	dimensions int
	mapper     *mapper.NoteMapper
}

func NewNoteVectorRepository(db *gorm.DB, dimensions int) contract.NoteVectorRepository {
	return &NoteVectorRepositoryImpl{
		db:         db,
		dimensions: dimensions,
		mapper:     mapper.NewNoteMapper(),
	}
}

func (r *NoteVectorRepositoryImpl) UpsertEmbedding(ctx context.Context, noteId uuid.UUID, vector []float32) error {
	// Reject before touching the row so a prior vector is never clobbered
	// by a misconfigured provider.
	if len(vector) != r.dimensions {
		return &apperror.DimensionMismatchError{Want: r.dimensions, Got: len(vector)}
	}

	v := pgvector.NewVector(vector)
	res := r.db.WithContext(ctx).
		Model(&model.Note{}).
		Where("id = ?", noteId).
		Update("embedding", v)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNoteNotFound
	}
	return nil
}

// scoredNoteRow carries the note columns plus the computed similarity alias.
type scoredNoteRow struct {
	model.Note
	Similarity float64
}

func (r *NoteVectorRepositoryImpl) SearchByVector(ctx context.Context, userId uuid.UUID, vector []float32, limit int, minSimilarity float64) ([]*contract.ScoredNote, error) {
	if len(vector) != r.dimensions {
		return nil, &apperror.DimensionMismatchError{Want: r.dimensions, Got: len(vector)}
	}
	if limit <= 0 {
		limit = 10
	}

	// pgvector's <=> is cosine distance, so similarity = 1 - distance.
	// created_at DESC is the documented tie-break for equal scores.
	queryVector := pgvector.NewVector(vector)

	var rows []scoredNoteRow
	err := r.db.WithContext(ctx).
		Table("notes").
		Select("notes.*, 1 - (embedding <=> ?) AS similarity", queryVector).
		Where("user_id = ?", userId).
		Where("embedding IS NOT NULL").
		Where("1 - (embedding <=> ?) > ?", queryVector, minSimilarity).
		Order("similarity DESC, created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return r.toScoredNotes(rows), nil
}

func (r *NoteVectorRepositoryImpl) SearchByNoteId(ctx context.Context, noteId uuid.UUID, limit int) ([]*contract.ScoredNote, error) {
	if limit <= 0 {
		limit = 5
	}

	// "No similar notes yet" is a valid state: a target that is missing or
	// not yet embedded returns empty, not an error.
	var target model.Note
	err := r.db.WithContext(ctx).
		Select("id", "user_id", "embedding").
		Where("id = ?", noteId).
		Where("embedding IS NOT NULL").
		First(&target).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []*contract.ScoredNote{}, nil
		}
		return nil, err
	}

	queryVector := *target.Embedding

	var rows []scoredNoteRow
	err = r.db.WithContext(ctx).
		Table("notes").
		Select("notes.*, 1 - (embedding <=> ?) AS similarity", queryVector).
		Where("user_id = ?", target.UserId).
		Where("id != ?", noteId).
		Where("embedding IS NOT NULL").
		Order("similarity DESC, created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return r.toScoredNotes(rows), nil
}

func (r *NoteVectorRepositoryImpl) NotesMissingEmbedding(ctx context.Context, userId uuid.UUID) ([]*entity.Note, error) {
	var models []*model.Note
	err := r.db.WithContext(ctx).
		Select("id", "title", "content", "user_id", "created_at", "updated_at").
		Where("user_id = ?", userId).
		Where("embedding IS NULL").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *NoteVectorRepositoryImpl) toScoredNotes(rows []scoredNoteRow) []*contract.ScoredNote {
	scored := make([]*contract.ScoredNote, len(rows))
	for i, row := range rows {
		scored[i] = &contract.ScoredNote{
			Note:       r.mapper.ToEntity(&row.Note),
			Similarity: row.Similarity,
		}
	}
	return scored
}
