package service

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"semantic-notes-be/internal/entity"
	"semantic-notes-be/internal/pkg/apperror"
	"semantic-notes-be/internal/repository/contract"
	"semantic-notes-be/internal/repository/specification"
	"semantic-notes-be/internal/repository/unitofwork"
	"semantic-notes-be/pkg/embedding"

	"github.com/google/uuid"
)

const testDimensions = 4

// fakeStore is the in-memory backing for all fake repositories. One store
// per test, shared by every unit of work the factory hands out.
type fakeStore struct {
	mu         sync.Mutex
	dimensions int
	users      map[uuid.UUID]*entity.User
	tokens     map[uuid.UUID]*entity.UserRefreshToken
	notes      map[uuid.UUID]*entity.Note
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		dimensions: testDimensions,
		users:      make(map[uuid.UUID]*entity.User),
		tokens:     make(map[uuid.UUID]*entity.UserRefreshToken),
		notes:      make(map[uuid.UUID]*entity.Note),
	}
}

func (s *fakeStore) addNote(note *entity.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *note
	s.notes[note.Id] = &cp
}

func (s *fakeStore) getNote(id uuid.UUID) *entity.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil
	}
	cp := *n
	return &cp
}

type fakeFactory struct {
	store *fakeStore
}

func newFakeFactory(store *fakeStore) unitofwork.RepositoryFactory {
	return &fakeFactory{store: store}
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct {
	store *fakeStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) UserRepository() contract.UserRepository {
	return &fakeUserRepo{store: u.store}
}

func (u *fakeUow) RefreshTokenRepository() contract.RefreshTokenRepository {
	return &fakeTokenRepo{store: u.store}
}

func (u *fakeUow) NoteRepository() contract.NoteRepository {
	return &fakeNoteRepo{store: u.store}
}

func (u *fakeUow) NoteVectorRepository() contract.NoteVectorRepository {
	return &fakeVectorRepo{store: u.store}
}

// noteMatches interprets the specifications the services actually use.
func noteMatches(n *entity.Note, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch s := sp.(type) {
		case specification.ByID:
			if n.Id != s.ID {
				return false
			}
		case specification.UserOwnedBy:
			if n.UserId != s.UserID {
				return false
			}
		case specification.MissingEmbedding:
			if n.Embedding != nil {
				return false
			}
		case specification.HasEmbedding:
			if n.Embedding == nil {
				return false
			}
		}
	}
	return true
}

type fakeNoteRepo struct {
	store *fakeStore
}

func (r *fakeNoteRepo) Create(ctx context.Context, note *entity.Note) error {
	r.store.addNote(note)
	return nil
}

func (r *fakeNoteRepo) Update(ctx context.Context, note *entity.Note) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.notes[note.Id]; !ok {
		return apperror.ErrNoteNotFound
	}
	existing := r.store.notes[note.Id]
	existing.Title = note.Title
	existing.Content = note.Content
	existing.UpdatedAt = note.UpdatedAt
	return nil
}

func (r *fakeNoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.notes, id)
	return nil
}

func (r *fakeNoteRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Note, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, n := range r.store.notes {
		if noteMatches(n, specs) {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeNoteRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Note, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Note
	for _, n := range r.store.notes {
		if noteMatches(n, specs) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeNoteRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	notes, _ := r.FindAll(ctx, specs...)
	return int64(len(notes)), nil
}

type fakeVectorRepo struct {
	store *fakeStore
}

func (r *fakeVectorRepo) UpsertEmbedding(ctx context.Context, noteId uuid.UUID, vector []float32) error {
	if len(vector) != r.store.dimensions {
		return &apperror.DimensionMismatchError{Want: r.store.dimensions, Got: len(vector)}
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n, ok := r.store.notes[noteId]
	if !ok {
		return apperror.ErrNoteNotFound
	}
	n.Embedding = append([]float32(nil), vector...)
	return nil
}

func (r *fakeVectorRepo) SearchByVector(ctx context.Context, userId uuid.UUID, vector []float32, limit int, minSimilarity float64) ([]*contract.ScoredNote, error) {
	if len(vector) != r.store.dimensions {
		return nil, &apperror.DimensionMismatchError{Want: r.store.dimensions, Got: len(vector)}
	}
	if limit <= 0 {
		limit = 10
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var scored []*contract.ScoredNote
	for _, n := range r.store.notes {
		if n.UserId != userId || n.Embedding == nil {
			continue
		}
		sim := cosineSimilarity(vector, n.Embedding)
		if sim > minSimilarity {
			cp := *n
			scored = append(scored, &contract.ScoredNote{Note: &cp, Similarity: sim})
		}
	}
	sortScored(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *fakeVectorRepo) SearchByNoteId(ctx context.Context, noteId uuid.UUID, limit int) ([]*contract.ScoredNote, error) {
	if limit <= 0 {
		limit = 5
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	target, ok := r.store.notes[noteId]
	if !ok || target.Embedding == nil {
		return []*contract.ScoredNote{}, nil
	}

	var scored []*contract.ScoredNote
	for _, n := range r.store.notes {
		if n.Id == noteId || n.UserId != target.UserId || n.Embedding == nil {
			continue
		}
		cp := *n
		scored = append(scored, &contract.ScoredNote{Note: &cp, Similarity: cosineSimilarity(target.Embedding, n.Embedding)})
	}
	sortScored(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *fakeVectorRepo) NotesMissingEmbedding(ctx context.Context, userId uuid.UUID) ([]*entity.Note, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Note
	for _, n := range r.store.notes {
		if n.UserId == userId && n.Embedding == nil {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func sortScored(scored []*contract.ScoredNote) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Note.CreatedAt.After(scored[j].Note.CreatedAt)
	})
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *user
	r.store.users[user.Id] = &cp
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	return r.Create(ctx, user)
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if userMatches(u, specs) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, u := range r.store.users {
		if userMatches(u, specs) {
			count++
		}
	}
	return count, nil
}

func userMatches(u *entity.User, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch s := sp.(type) {
		case specification.ByID:
			if u.Id != s.ID {
				return false
			}
		case specification.ByEmail:
			if u.Email != s.Email {
				return false
			}
		}
	}
	return true
}

type fakeTokenRepo struct {
	store *fakeStore
}

func (r *fakeTokenRepo) Create(ctx context.Context, token *entity.UserRefreshToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *token
	r.store.tokens[token.Id] = &cp
	return nil
}

func (r *fakeTokenRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.tokens {
		if tokenMatches(t, specs) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeTokenRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tokens[id]
	if !ok {
		return nil
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

func (r *fakeTokenRepo) RevokeAllForUser(ctx context.Context, userId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	for _, t := range r.store.tokens {
		if t.UserId == userId {
			t.RevokedAt = &now
		}
	}
	return nil
}

func tokenMatches(t *entity.UserRefreshToken, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch s := sp.(type) {
		case specification.ByToken:
			if t.Token != s.Token {
				return false
			}
		case specification.NotRevoked:
			if t.RevokedAt != nil {
				return false
			}
		}
	}
	return true
}

// fakeEmbeddingProvider returns registered vectors for known texts and a
// deterministic hash-seeded vector otherwise.
type fakeEmbeddingProvider struct {
	mu      sync.Mutex
	err     error
	failFor map[string]error
	vectors map[string][]float32
	calls   []string
	gate    chan struct{} // when set, Generate blocks until the gate closes
}

func newFakeEmbeddingProvider() *fakeEmbeddingProvider {
	return &fakeEmbeddingProvider{
		failFor: make(map[string]error),
		vectors: make(map[string][]float32),
	}
}

func (p *fakeEmbeddingProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, text)
	gate := p.gate
	err := p.err
	if err == nil {
		err = p.failFor[text]
	}
	vector, ok := p.vectors[text]
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		vector = deterministicVector(text, testDimensions)
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vector},
	}, nil
}

func (p *fakeEmbeddingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *fakeEmbeddingProvider) callsSnapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func deterministicVector(text string, n int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	v := make([]float32, n)
	for i := range v {
		v[i] = rng.Float32()
	}
	return v
}

// axisVector points along a single axis, handy for exact cosine scores.
func axisVector(axis int) []float32 {
	v := make([]float32, testDimensions)
	v[axis] = 1
	return v
}

// blendVector mixes two axes; cosine against axisVector(a) is
// wa / sqrt(wa^2 + wb^2).
func blendVector(a, b int, wa, wb float64) []float32 {
	v := make([]float32, testDimensions)
	v[a] = float32(wa)
	v[b] = float32(wb)
	return v
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }
