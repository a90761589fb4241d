package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"devflow/internal/database/memstore"
	"devflow/internal/engine"
	"devflow/internal/models"
	"devflow/internal/session"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type publishedEvent struct {
	QuestionID uuid.UUID
	Event      interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(questionID uuid.UUID, event interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{QuestionID: questionID, Event: event})
}

func (p *recordingPublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type fixture struct {
	store     *memstore.Store
	engine    *engine.Engine
	svc       *Service
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	eng := engine.NewEngine(actor.NewActorSystem(), store, nil, zap.NewNop(), 1)
	t.Cleanup(eng.Shutdown)

	pub := &recordingPublisher{}
	svc := New(Deps{
		Store:      store,
		Recorder:   eng,
		Publisher:  pub,
		Logger:     zap.NewNop(),
		BcryptCost: bcrypt.MinCost,
	})
	return &fixture{store: store, engine: eng, svc: svc, publisher: pub}
}

func (f *fixture) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.store.CreateUser(context.Background(), &models.User{
		ID:        id,
		Name:      name,
		Username:  name,
		Email:     name + "@example.com",
		CreatedAt: time.Now().UTC(),
	}))
	return id
}

// flush waits for queued interactions to be recorded and scored.
func (f *fixture) flush(t *testing.T) {
	t.Helper()
	result, err := f.engine.Flush(5 * time.Second)
	require.NoError(t, err)
	require.Zero(t, result.Failed)
}

func (f *fixture) reputation(t *testing.T, id uuid.UUID) int {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u.Reputation
}

func (f *fixture) question(t *testing.T, author uuid.UUID, tags ...string) *models.Question {
	t.Helper()
	q, err := f.svc.CreateQuestion(as(author), CreateQuestionParams{
		Title:   "How does " + strings.Join(tags, " and ") + " work?",
		Content: "Looking for a clear explanation.",
		Tags:    tags,
	})
	require.NoError(t, err)
	return q
}

func (f *fixture) answer(t *testing.T, author, questionID uuid.UUID) *models.Answer {
	t.Helper()
	ans, err := f.svc.CreateAnswer(as(author), CreateAnswerParams{
		QuestionID: questionID,
		Content:    strings.Repeat("A detailed answer. ", 8),
	})
	require.NoError(t, err)
	return ans
}

func (f *fixture) tag(t *testing.T, name string) *models.Tag {
	t.Helper()
	tag, err := f.store.GetTagByName(context.Background(), name)
	require.NoError(t, err)
	return tag
}

func as(userID uuid.UUID) context.Context {
	return session.WithUser(context.Background(), userID)
}
