package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"semantic-notes-be/internal/config"
	"semantic-notes-be/internal/dto"
	"semantic-notes-be/internal/pkg/apperror"
	"semantic-notes-be/internal/repository/contract"
	"semantic-notes-be/internal/repository/specification"
	"semantic-notes-be/internal/repository/unitofwork"
	"semantic-notes-be/pkg/embedding"

	"github.com/google/uuid"
)

type ISearchService interface {
	SearchByText(ctx context.Context, userId uuid.UUID, req *dto.SemanticSearchRequest) (*dto.SemanticSearchResponse, error)
	FindSimilar(ctx context.Context, userId uuid.UUID, noteId uuid.UUID, limit int) (*dto.SemanticSearchResponse, error)
}

type searchService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	defaults          config.SearchConfig
	embedTimeout      time.Duration
}

func NewSearchService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	defaults config.SearchConfig,
	embedTimeout time.Duration,
) ISearchService {
	return &searchService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		defaults:          defaults,
		embedTimeout:      embedTimeout,
	}
}

// SearchByText embeds the query and ranks the user's notes by cosine
// similarity. The search path is synchronous: the caller waits for both the
// provider and the store.
func (s *searchService) SearchByText(ctx context.Context, userId uuid.UUID, req *dto.SemanticSearchRequest) (*dto.SemanticSearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperror.ErrInvalidQuery
	}

	limit := s.defaults.DefaultLimit
	if req.Limit != nil && *req.Limit > 0 {
		limit = *req.Limit
	}
	threshold := s.defaults.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	embeddingRes, err := s.embeddingProvider.Generate(embedCtx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrEmbeddingUnavailable, err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.NoteVectorRepository().SearchByVector(ctx, userId, embeddingRes.Embedding.Values, limit, threshold)
	if err != nil {
		return nil, err
	}

	return toSearchResponse(scored), nil
}

// FindSimilar ranks neighbours of an existing note. Ownership is verified
// here, not trusted from the route: a note the caller does not own behaves
// exactly like a note that does not exist, which in turn behaves like a note
// that has no embedding yet — all three come back as an empty result set.
func (s *searchService) FindSimilar(ctx context.Context, userId uuid.UUID, noteId uuid.UUID, limit int) (*dto.SemanticSearchResponse, error) {
	if limit <= 0 {
		limit = s.defaults.SimilarLimit
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: noteId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return &dto.SemanticSearchResponse{Results: []*dto.SearchResultItem{}, Count: 0}, nil
	}

	scored, err := uow.NoteVectorRepository().SearchByNoteId(ctx, noteId, limit)
	if err != nil {
		return nil, err
	}

	return toSearchResponse(scored), nil
}

func toSearchResponse(scored []*contract.ScoredNote) *dto.SemanticSearchResponse {
	results := make([]*dto.SearchResultItem, 0, len(scored))
	for _, sn := range scored {
		results = append(results, &dto.SearchResultItem{
			Id:         sn.Note.Id,
			Title:      sn.Note.Title,
			Content:    sn.Note.Content,
			Category:   sn.Note.Category,
			Summary:    sn.Note.Summary,
			Similarity: sn.Similarity,
			CreatedAt:  sn.Note.CreatedAt,
			UpdatedAt:  sn.Note.UpdatedAt,
		})
	}
	return &dto.SemanticSearchResponse{
		Results: results,
		Count:   len(results),
	}
}
