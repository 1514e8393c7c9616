package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"semantic-notes-be/internal/dto"
	"semantic-notes-be/internal/entity"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "EMBED_NOTE_CONTENT"

type pipelineFixture struct {
	store     *fakeStore
	provider  *fakeEmbeddingProvider
	publisher IPublisherService
}

func startPipeline(t *testing.T) *pipelineFixture {
	t.Helper()

	store := newFakeStore()
	provider := newFakeEmbeddingProvider()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })

	consumer := NewConsumerService(pubSub, testTopic, newFakeFactory(store), provider, time.Second, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, consumer.Consume(ctx))

	return &pipelineFixture{
		store:     store,
		provider:  provider,
		publisher: NewPublisherService(testTopic, pubSub),
	}
}

func (f *pipelineFixture) publishEmbed(t *testing.T, noteId uuid.UUID) {
	t.Helper()
	payload, err := json.Marshal(dto.PublishEmbedNoteMessage{NoteId: noteId})
	require.NoError(t, err)
	require.NoError(t, f.publisher.Publish(context.Background(), payload))
}

func TestConsumer_EmbedsPublishedNote(t *testing.T) {
	f := startPipeline(t)

	note := &entity.Note{
		Id:      uuid.New(),
		Title:   "Raft consensus",
		Content: "Leader election and log replication",
		UserId:  uuid.New(),
	}
	f.store.addNote(note)

	f.publishEmbed(t, note.Id)

	require.Eventually(t, func() bool {
		stored := f.store.getNote(note.Id)
		return stored != nil && stored.Embedding != nil
	}, 2*time.Second, 10*time.Millisecond)

	// the pipeline feeds title and content to the provider together
	assert.Contains(t, f.provider.callsSnapshot(), note.EmbedInput())
}

func TestConsumer_UpsertIsIdempotent(t *testing.T) {
	f := startPipeline(t)

	note := &entity.Note{Id: uuid.New(), Title: "a", Content: "b", UserId: uuid.New()}
	f.store.addNote(note)

	f.publishEmbed(t, note.Id)
	f.publishEmbed(t, note.Id)

	require.Eventually(t, func() bool {
		if f.provider.callCount() < 2 {
			return false
		}
		stored := f.store.getNote(note.Id)
		return stored != nil && len(stored.Embedding) == testDimensions
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumer_DropsFailedGeneration(t *testing.T) {
	f := startPipeline(t)

	bad := &entity.Note{Id: uuid.New(), Title: "bad", Content: "will fail", UserId: uuid.New()}
	good := &entity.Note{Id: uuid.New(), Title: "good", Content: "will embed", UserId: uuid.New()}
	f.store.addNote(bad)
	f.store.addNote(good)
	f.provider.failFor[bad.EmbedInput()] = errors.New("model overloaded")

	f.publishEmbed(t, bad.Id)
	f.publishEmbed(t, good.Id)

	// the failure is dropped and does not wedge the worker
	require.Eventually(t, func() bool {
		stored := f.store.getNote(good.Id)
		return stored != nil && stored.Embedding != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Nil(t, f.store.getNote(bad.Id).Embedding)
}

func TestConsumer_SkipsVanishedNote(t *testing.T) {
	f := startPipeline(t)

	note := &entity.Note{Id: uuid.New(), Title: "ghost", Content: "deleted", UserId: uuid.New()}
	f.store.addNote(note)
	survivor := &entity.Note{Id: uuid.New(), Title: "alive", Content: "still here", UserId: uuid.New()}
	f.store.addNote(survivor)

	// deleted between the write and the consume
	require.NoError(t, (&fakeNoteRepo{store: f.store}).Delete(context.Background(), note.Id))

	f.publishEmbed(t, note.Id)
	f.publishEmbed(t, survivor.Id)

	require.Eventually(t, func() bool {
		stored := f.store.getNote(survivor.Id)
		return stored != nil && stored.Embedding != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Nil(t, f.store.getNote(note.Id))
}

func TestConsumer_IgnoresMalformedPayload(t *testing.T) {
	f := startPipeline(t)

	note := &entity.Note{Id: uuid.New(), Title: "ok", Content: "fine", UserId: uuid.New()}
	f.store.addNote(note)

	require.NoError(t, f.publisher.Publish(context.Background(), []byte("not json")))
	f.publishEmbed(t, note.Id)

	require.Eventually(t, func() bool {
		stored := f.store.getNote(note.Id)
		return stored != nil && stored.Embedding != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumer_DimensionMismatchLeavesNoteUnembedded(t *testing.T) {
	f := startPipeline(t)

	note := &entity.Note{Id: uuid.New(), Title: "wide", Content: "wrong model", UserId: uuid.New()}
	f.store.addNote(note)
	f.provider.vectors[note.EmbedInput()] = make([]float32, testDimensions+2)

	f.publishEmbed(t, note.Id)

	require.Eventually(t, func() bool {
		return f.provider.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// give the store write a moment, then confirm it never happened
	time.Sleep(50 * time.Millisecond)
	assert.Nil(t, f.store.getNote(note.Id).Embedding)
}

func TestPublisherService_RoundTrip(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })

	messages, err := pubSub.Subscribe(context.Background(), testTopic)
	require.NoError(t, err)

	publisher := NewPublisherService(testTopic, pubSub)
	noteId := uuid.New()
	payload, _ := json.Marshal(dto.PublishEmbedNoteMessage{NoteId: noteId})
	require.NoError(t, publisher.Publish(context.Background(), payload))

	select {
	case msg := <-messages:
		var decoded dto.PublishEmbedNoteMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, noteId, decoded.NoteId)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
