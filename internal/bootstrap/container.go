package bootstrap

import (
	"log"

	"semantic-notes-be/internal/config"
	"semantic-notes-be/internal/controller"
	"semantic-notes-be/internal/pkg/logger"
	"semantic-notes-be/internal/repository/unitofwork"
	"semantic-notes-be/internal/service"
	"semantic-notes-be/pkg/embedding"
	"semantic-notes-be/pkg/embedding/jina"
	"semantic-notes-be/pkg/llm/factory"

	pktNats "semantic-notes-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController   controller.IAuthController
	NoteController   controller.INoteController
	SearchController controller.ISearchController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Shared infrastructure main.go must close on shutdown
	Logger    logger.ILogger
	NatsPub   *pktNats.Publisher
	EventBus  *gochannel.GoChannel
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db, cfg.Ai.EmbeddingDimensions)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus for the embedding pipeline
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI providers
	embeddingProvider := newEmbeddingProvider(cfg)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFaceAPIKey,
	)
	if err != nil {
		log.Printf("[WARN] LLM provider unavailable, notes are saved without AI metadata: %v", err)
		llmProvider = nil
	} else {
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	}

	// 4. NATS for domain events
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Ai.EmbedTopicName, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Ai.EmbedTopicName,
		uowFactory,
		embeddingProvider,
		cfg.Ai.EmbeddingTimeout,
		sysLogger,
	)

	authService := service.NewAuthService(uowFactory, cfg.Jwt, sysLogger)
	noteService := service.NewNoteService(uowFactory, publisherService, llmProvider, natsPub, sysLogger)
	searchService := service.NewSearchService(uowFactory, embeddingProvider, cfg.Search, cfg.Ai.EmbeddingTimeout)
	backfillService := service.NewBackfillService(uowFactory, embeddingProvider, cfg.Ai.EmbeddingTimeout, sysLogger)

	// 6. Controllers
	return &Container{
		AuthController:   controller.NewAuthController(authService),
		NoteController:   controller.NewNoteController(noteService),
		SearchController: controller.NewSearchController(searchService, backfillService),
		ConsumerService:  consumerService,
		Logger:           sysLogger,
		NatsPub:          natsPub,
		EventBus:         pubSub,
	}
}

func newEmbeddingProvider(cfg *config.Config) embedding.EmbeddingProvider {
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "openai":
		log.Printf("[INFO] Using Embedding Provider: OPENAI (%s)", cfg.Ai.OpenAIModel)
		return embedding.NewOpenAIProvider(cfg.Ai.OpenAIAPIKey, cfg.Ai.OpenAIModel)
	case "jina":
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
		return jina.NewJinaProvider(cfg.Ai.JinaAPIKey)
	default:
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
		return embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey)
	}
}
