package service

import (
	"context"
	"encoding/json"
	"time"

	"semantic-notes-be/internal/dto"
	"semantic-notes-be/internal/pkg/apperror"
	"semantic-notes-be/internal/pkg/logger"
	"semantic-notes-be/internal/repository/specification"
	"semantic-notes-be/internal/repository/unitofwork"
	"semantic-notes-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IConsumerService is the embedding pipeline worker. It drains the embed
// topic and keeps each note's stored vector in sync with its text. Failures
// are terminal for that attempt: logged and dropped, never retried, never
// surfaced to the request that triggered the write.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	embedTimeout      time.Duration
	logger            logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	embedTimeout time.Duration,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		embedTimeout:      embedTimeout,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Every exit path Acks: this pipeline is drop-on-failure, a stuck
	// message must never loop and a failed note stays searchable by its
	// absence until the next update or a backfill.
	defer msg.Ack()

	var payload dto.PublishEmbedNoteMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("embedding_pipeline", "failed to unmarshal embed message", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	// Global lookup, no user restriction: the message came from a committed write
	note, err := uow.NoteRepository().FindOne(ctx, specification.ByID{ID: payload.NoteId})
	if err != nil {
		cs.logger.Error("embedding_pipeline", "failed to load note", map[string]interface{}{
			"note_id": payload.NoteId.String(),
			"error":   err.Error(),
		})
		return
	}
	if note == nil {
		// Deleted between write and consume; nothing to embed
		cs.logger.Warn("embedding_pipeline", "note vanished before embedding", map[string]interface{}{
			"note_id": payload.NoteId.String(),
		})
		return
	}

	embedCtx, cancel := context.WithTimeout(ctx, cs.embedTimeout)
	defer cancel()

	res, err := cs.embeddingProvider.Generate(embedCtx, note.EmbedInput(), embedding.TaskRetrievalDocument)
	if err != nil {
		cs.logger.Error("embedding_pipeline", "embedding generation failed, dropping", map[string]interface{}{
			"note_id": note.Id.String(),
			"error":   err.Error(),
		})
		return
	}

	if err := uow.NoteVectorRepository().UpsertEmbedding(ctx, note.Id, res.Embedding.Values); err != nil {
		details := map[string]interface{}{
			"note_id": note.Id.String(),
			"error":   err.Error(),
		}
		if apperror.IsDimensionMismatch(err) {
			// Configuration defect: provider output width does not match the column
			cs.logger.Error("embedding_pipeline", "dimension mismatch, check EMBEDDING_DIMENSIONS", details)
		} else {
			cs.logger.Error("embedding_pipeline", "failed to store embedding", details)
		}
		return
	}

	cs.logger.Info("embedding_pipeline", "note embedded", map[string]interface{}{
		"note_id": note.Id.String(),
	})
}
