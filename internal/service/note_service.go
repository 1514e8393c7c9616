package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"semantic-notes-be/internal/dto"
	"semantic-notes-be/internal/entity"
	"semantic-notes-be/internal/pkg/apperror"
	"semantic-notes-be/internal/pkg/logger"
	"semantic-notes-be/internal/repository/specification"
	"semantic-notes-be/internal/repository/unitofwork"
	"semantic-notes-be/pkg/events"
	"semantic-notes-be/pkg/llm"
	pktNats "semantic-notes-be/pkg/nats"

	"github.com/google/uuid"
)

// Notes shorter than this are not worth a summary call.
const summaryMinContentLength = 80

const summarizePrompt = "Summarize the following note in at most two sentences. Reply with the summary only.\n\n"
const categorizePrompt = "Assign a single short category label (one or two words) to the following note. Reply with the label only.\n\n"

type INoteService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateNoteRequest) (*dto.CreateNoteResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowNoteResponse, error)
	List(ctx context.Context, userId uuid.UUID) ([]*dto.ShowNoteResponse, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateNoteRequest) (*dto.UpdateNoteResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
}

type noteService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	llmProvider      llm.LLMProvider
	eventPublisher   *pktNats.Publisher
	logger           logger.ILogger
}

func NewNoteService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	llmProvider llm.LLMProvider,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) INoteService {
	return &noteService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		llmProvider:      llmProvider,
		eventPublisher:   eventPublisher,
		logger:           log,
	}
}

func (c *noteService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateNoteRequest) (*dto.CreateNoteResponse, error) {
	note := entity.Note{
		Id:        uuid.New(),
		Title:     req.Title,
		Content:   req.Content,
		UserId:    userId,
		CreatedAt: time.Now(),
	}

	// AI metadata is best effort: the note is saved either way
	note.Summary, note.Category = c.enrich(ctx, req.Content)

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.NoteRepository().Create(ctx, &note); err != nil {
		return nil, err
	}

	c.scheduleEmbedding(ctx, note.Id)
	c.publishEvent(ctx, "NOTE_CREATED", note.Id, userId, note.Title)

	return &dto.CreateNoteResponse{
		Id: note.Id,
	}, nil
}

func (c *noteService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowNoteResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, apperror.ErrNoteNotFound
	}

	return toShowNoteResponse(note), nil
}

func (c *noteService) List(ctx context.Context, userId uuid.UUID) ([]*dto.ShowNoteResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	notes, err := uow.NoteRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ShowNoteResponse, len(notes))
	for i, note := range notes {
		res[i] = toShowNoteResponse(note)
	}
	return res, nil
}

func (c *noteService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateNoteRequest) (*dto.UpdateNoteResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: req.Id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, apperror.ErrNoteNotFound
	}

	now := time.Now()
	note.Title = req.Title
	note.Content = req.Content
	note.UpdatedAt = &now

	if err := uow.NoteRepository().Update(ctx, note); err != nil {
		return nil, err
	}

	// The stored vector is stale from here until the pipeline re-runs
	c.scheduleEmbedding(ctx, note.Id)

	return &dto.UpdateNoteResponse{
		Id: note.Id,
	}, nil
}

func (c *noteService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if note == nil {
		return apperror.ErrNoteNotFound
	}

	if err := uow.NoteRepository().Delete(ctx, id); err != nil {
		return err
	}

	c.publishEvent(ctx, "NOTE_DELETED", id, userId, note.Title)
	return nil
}

// scheduleEmbedding puts the note on the embed topic. The write is already
// committed, so a publish failure only delays the embedding; it never fails
// the caller's request.
func (c *noteService) scheduleEmbedding(ctx context.Context, noteId uuid.UUID) {
	payload, err := json.Marshal(dto.PublishEmbedNoteMessage{NoteId: noteId})
	if err != nil {
		c.logger.Error("note_service", "failed to marshal embed message", map[string]interface{}{
			"note_id": noteId.String(),
			"error":   err.Error(),
		})
		return
	}

	if err := c.publisherService.Publish(ctx, payload); err != nil {
		c.logger.Error("note_service", "failed to schedule embedding", map[string]interface{}{
			"note_id": noteId.String(),
			"error":   err.Error(),
		})
	}
}

func (c *noteService) enrich(ctx context.Context, content string) (summary *string, category *string) {
	if c.llmProvider == nil || strings.TrimSpace(content) == "" {
		return nil, nil
	}

	if len(content) > summaryMinContentLength {
		if s, err := c.llmProvider.Generate(ctx, summarizePrompt+content); err != nil {
			c.logger.Warn("note_service", "summary generation failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else if s = strings.TrimSpace(s); s != "" {
			summary = &s
		}
	}

	if cat, err := c.llmProvider.Generate(ctx, categorizePrompt+content); err != nil {
		c.logger.Warn("note_service", "categorization failed", map[string]interface{}{
			"error": err.Error(),
		})
	} else if cat = strings.TrimSpace(cat); cat != "" {
		category = &cat
	}

	return summary, category
}

func (c *noteService) publishEvent(ctx context.Context, eventType string, noteId, userId uuid.UUID, title string) {
	if c.eventPublisher == nil {
		return
	}

	evt := events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"title":   title,
			"note_id": noteId,
			"user_id": userId,
		},
		OccurredAt: time.Now(),
	}
	if err := c.eventPublisher.Publish(ctx, evt); err != nil {
		c.logger.Warn("note_service", "failed to publish event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

func toShowNoteResponse(note *entity.Note) *dto.ShowNoteResponse {
	return &dto.ShowNoteResponse{
		Id:        note.Id,
		Title:     note.Title,
		Content:   note.Content,
		Summary:   note.Summary,
		Category:  note.Category,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}
