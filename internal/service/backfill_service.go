package service

import (
	"context"
	"time"

	"semantic-notes-be/internal/pkg/logger"
	"semantic-notes-be/internal/repository/unitofwork"
	"semantic-notes-be/pkg/embedding"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// IBackfillService embeds the notes a user created before the pipeline
// existed (or whose embedding attempts failed). The caller only ever learns
// "started"; progress is observable through logs.
type IBackfillService interface {
	// GenerateMissingEmbeddings starts a background run for the user and
	// returns false if one is already in flight.
	GenerateMissingEmbeddings(userId uuid.UUID) bool
}

type backfillService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	embedTimeout      time.Duration
	jobs              *gocache.Cache
	logger            logger.ILogger
}

func NewBackfillService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	embedTimeout time.Duration,
	log logger.ILogger,
) IBackfillService {
	return &backfillService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		embedTimeout:      embedTimeout,
		// TTL is a safety net in case a run dies without clearing its marker
		jobs:   gocache.New(30*time.Minute, 10*time.Minute),
		logger: log,
	}
}

func (s *backfillService) GenerateMissingEmbeddings(userId uuid.UUID) bool {
	key := userId.String()
	if _, running := s.jobs.Get(key); running {
		return false
	}
	s.jobs.SetDefault(key, time.Now())

	go s.run(userId)
	return true
}

func (s *backfillService) run(userId uuid.UUID) {
	defer s.jobs.Delete(userId.String())

	ctx := context.Background()
	uow := s.uowFactory.NewUnitOfWork(ctx)

	notes, err := uow.NoteVectorRepository().NotesMissingEmbedding(ctx, userId)
	if err != nil {
		s.logger.Error("backfill", "failed to list notes missing embeddings", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
		return
	}

	s.logger.Info("backfill", "starting embedding backfill", map[string]interface{}{
		"user_id": userId.String(),
		"notes":   len(notes),
	})

	var failed int
	for _, note := range notes {
		// One bad note must not abort the batch
		if err := s.embedOne(ctx, uow, note.Id, note.EmbedInput()); err != nil {
			failed++
			s.logger.Error("backfill", "failed to embed note, continuing", map[string]interface{}{
				"note_id": note.Id.String(),
				"error":   err.Error(),
			})
		}
	}

	s.logger.Info("backfill", "embedding backfill finished", map[string]interface{}{
		"user_id": userId.String(),
		"notes":   len(notes),
		"failed":  failed,
	})
}

func (s *backfillService) embedOne(ctx context.Context, uow unitofwork.UnitOfWork, noteId uuid.UUID, input string) error {
	embedCtx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	res, err := s.embeddingProvider.Generate(embedCtx, input, embedding.TaskRetrievalDocument)
	if err != nil {
		return err
	}

	return uow.NoteVectorRepository().UpsertEmbedding(ctx, noteId, res.Embedding.Values)
}
