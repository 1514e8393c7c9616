package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"semantic-notes-be/internal/config"
	"semantic-notes-be/internal/dto"
	"semantic-notes-be/internal/entity"
	"semantic-notes-be/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultLimit:     10,
		DefaultThreshold: 0.7,
		SimilarLimit:     5,
	}
}

func newSearchFixture() (*fakeStore, *fakeEmbeddingProvider, ISearchService) {
	store := newFakeStore()
	provider := newFakeEmbeddingProvider()
	svc := NewSearchService(newFakeFactory(store), provider, testSearchConfig(), time.Second)
	return store, provider, svc
}

func addEmbeddedNote(store *fakeStore, userId uuid.UUID, title string, vector []float32, createdAt time.Time) uuid.UUID {
	note := &entity.Note{
		Id:        uuid.New(),
		Title:     title,
		Content:   "content of " + title,
		UserId:    userId,
		Embedding: vector,
		CreatedAt: createdAt,
	}
	store.addNote(note)
	return note.Id
}

func TestSearchByText_EmptyQueryRejected(t *testing.T) {
	_, _, svc := newSearchFixture()
	userId := uuid.New()

	for _, query := range []string{"", "   ", "\n\t"} {
		_, err := svc.SearchByText(context.Background(), userId, &dto.SemanticSearchRequest{Query: query})
		assert.ErrorIs(t, err, apperror.ErrInvalidQuery, "query %q", query)
	}
}

func TestSearchByText_ProviderFailure(t *testing.T) {
	_, provider, svc := newSearchFixture()
	provider.err = errors.New("connection refused")

	_, err := svc.SearchByText(context.Background(), uuid.New(), &dto.SemanticSearchRequest{Query: "golang"})
	assert.ErrorIs(t, err, apperror.ErrEmbeddingUnavailable)
}

func TestSearchByText_RanksAboveThreshold(t *testing.T) {
	store, provider, svc := newSearchFixture()
	userId := uuid.New()
	now := time.Now()

	provider.vectors["golang"] = axisVector(0)

	// cosine against axis 0: 1.0, ~0.9, ~0.6
	closeId := addEmbeddedNote(store, userId, "exact", axisVector(0), now.Add(-3*time.Hour))
	nearId := addEmbeddedNote(store, userId, "near", blendVector(0, 1, 9, 4.36), now.Add(-2*time.Hour))
	addEmbeddedNote(store, userId, "far", blendVector(0, 1, 6, 8), now.Add(-1*time.Hour))

	res, err := svc.SearchByText(context.Background(), userId, &dto.SemanticSearchRequest{Query: "golang"})
	require.NoError(t, err)

	require.Equal(t, 2, res.Count)
	assert.Equal(t, closeId, res.Results[0].Id)
	assert.Equal(t, nearId, res.Results[1].Id)
	assert.Greater(t, res.Results[0].Similarity, res.Results[1].Similarity)
}

func TestSearchByText_ThresholdIsStrict(t *testing.T) {
	store, provider, svc := newSearchFixture()
	userId := uuid.New()

	provider.vectors["query"] = axisVector(0)
	addEmbeddedNote(store, userId, "orthogonal", axisVector(1), time.Now())

	// cosine is exactly 0; a threshold of 0 must still exclude it
	threshold := 0.0
	res, err := svc.SearchByText(context.Background(), userId, &dto.SemanticSearchRequest{
		Query:     "query",
		Threshold: &threshold,
	})
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Empty(t, res.Results)
}

func TestSearchByText_LimitApplied(t *testing.T) {
	store, provider, svc := newSearchFixture()
	userId := uuid.New()

	provider.vectors["query"] = axisVector(0)
	for i := 0; i < 15; i++ {
		addEmbeddedNote(store, userId, fmt.Sprintf("note-%d", i), axisVector(0), time.Now())
	}

	// default limit
	res, err := svc.SearchByText(context.Background(), userId, &dto.SemanticSearchRequest{Query: "query"})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Count)

	// explicit limit
	limit := 3
	res, err = svc.SearchByText(context.Background(), userId, &dto.SemanticSearchRequest{Query: "query", Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
}

func TestSearchByText_TenantIsolation(t *testing.T) {
	store, provider, svc := newSearchFixture()
	alice := uuid.New()
	bob := uuid.New()

	provider.vectors["query"] = axisVector(0)
	aliceId := addEmbeddedNote(store, alice, "alice note", axisVector(0), time.Now())
	addEmbeddedNote(store, bob, "bob note", axisVector(0), time.Now())

	res, err := svc.SearchByText(context.Background(), alice, &dto.SemanticSearchRequest{Query: "query"})
	require.NoError(t, err)

	require.Equal(t, 1, res.Count)
	assert.Equal(t, aliceId, res.Results[0].Id)
}

func TestSearchByText_UnembeddedNotesInvisible(t *testing.T) {
	store, provider, svc := newSearchFixture()
	userId := uuid.New()

	provider.vectors["query"] = axisVector(0)
	store.addNote(&entity.Note{
		Id:      uuid.New(),
		Title:   "not embedded yet",
		UserId:  userId,
		Content: "pipeline has not run",
	})

	res, err := svc.SearchByText(context.Background(), userId, &dto.SemanticSearchRequest{Query: "query"})
	require.NoError(t, err)
	assert.Zero(t, res.Count)
}

func TestFindSimilar_ExcludesSelf(t *testing.T) {
	store, _, svc := newSearchFixture()
	userId := uuid.New()
	now := time.Now()

	targetId := addEmbeddedNote(store, userId, "target", axisVector(0), now)
	neighbourId := addEmbeddedNote(store, userId, "neighbour", blendVector(0, 1, 9, 1), now)

	res, err := svc.FindSimilar(context.Background(), userId, targetId, 0)
	require.NoError(t, err)

	require.Equal(t, 1, res.Count)
	assert.Equal(t, neighbourId, res.Results[0].Id)
}

func TestFindSimilar_DefaultLimit(t *testing.T) {
	store, _, svc := newSearchFixture()
	userId := uuid.New()
	now := time.Now()

	targetId := addEmbeddedNote(store, userId, "target", axisVector(0), now)
	for i := 0; i < 8; i++ {
		addEmbeddedNote(store, userId, fmt.Sprintf("neighbour-%d", i), axisVector(0), now)
	}

	res, err := svc.FindSimilar(context.Background(), userId, targetId, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Count)
}

func TestFindSimilar_MissingOrForeignNote(t *testing.T) {
	store, _, svc := newSearchFixture()
	alice := uuid.New()
	bob := uuid.New()

	bobNoteId := addEmbeddedNote(store, bob, "bob note", axisVector(0), time.Now())

	t.Run("unknown note", func(t *testing.T) {
		res, err := svc.FindSimilar(context.Background(), alice, uuid.New(), 0)
		require.NoError(t, err)
		assert.Zero(t, res.Count)
		assert.Empty(t, res.Results)
	})

	t.Run("someone else's note", func(t *testing.T) {
		res, err := svc.FindSimilar(context.Background(), alice, bobNoteId, 0)
		require.NoError(t, err)
		assert.Zero(t, res.Count)
	})
}

func TestFindSimilar_UnembeddedTarget(t *testing.T) {
	store, _, svc := newSearchFixture()
	userId := uuid.New()

	target := &entity.Note{
		Id:      uuid.New(),
		Title:   "no vector",
		UserId:  userId,
		Content: "never embedded",
	}
	store.addNote(target)
	addEmbeddedNote(store, userId, "embedded sibling", axisVector(0), time.Now())

	res, err := svc.FindSimilar(context.Background(), userId, target.Id, 0)
	require.NoError(t, err)
	assert.Zero(t, res.Count)
}
