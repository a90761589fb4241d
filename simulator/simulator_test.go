package simulator

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"devflow/internal/database/memstore"
	"devflow/internal/engine"
	"devflow/internal/handlers"
	"devflow/internal/middleware"
	"devflow/internal/services"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newEngineServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memstore.New()
	eng := engine.NewEngine(actor.NewActorSystem(), store, nil, zap.NewNop(), 1)
	tokens, err := middleware.NewTokenIssuer("simulator-secret", time.Hour)
	require.NoError(t, err)
	svc := services.New(services.Deps{Store: store, Recorder: eng, BcryptCost: bcrypt.MinCost})
	server := httptest.NewServer(handlers.NewServer(svc, tokens, nil, nil, zap.NewNop()).Router())
	t.Cleanup(func() {
		server.Close()
		eng.Shutdown()
	})
	return server
}

func TestSimulationAuditPasses(t *testing.T) {
	server := newEngineServer(t)
	cfg := SimConfig{
		EngineURL:    server.URL,
		NumUsers:     8,
		NumQuestions: 5,
		NumVotes:     300,
		NumEdits:     10,
		Workers:      6,
		ZipfS:        1.2,
		UpvoteRatio:  0.7,
		Seed:         42,
		MaxRetries:   1,
	}
	sim := NewSimulator(cfg, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	report, err := sim.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK(), "mismatches: %v", report.Mismatches)
	assert.Equal(t, 5, report.QuestionsChecked)
	assert.NotZero(t, report.TagsChecked)

	m := sim.GetMetrics()
	assert.Equal(t, 300, m.TotalVotes)
	assert.Equal(t, 10, m.TotalEdits)
	assert.Zero(t, m.ErrorCount)
}

func TestLedger(t *testing.T) {
	l := NewLedger()
	q, a, b := uuid.New(), uuid.New(), uuid.New()

	l.SetVote(q, a, "upvoted")
	l.SetVote(q, b, "downvoted")
	up, down := l.Counts(q)
	assert.Equal(t, 1, up)
	assert.Equal(t, 1, down)

	l.SetVote(q, a, "none")
	l.SetVote(q, b, "upvoted")
	up, down = l.Counts(q)
	assert.Equal(t, 1, up)
	assert.Equal(t, 0, down)

	l.SetTags(q, []string{"Go", "rust"})
	l.SetTags(uuid.New(), []string{"go"})
	assert.Equal(t, []string{"go", "rust"}, l.Tags(q))
	assert.Equal(t, map[string]int{"go": 2, "rust": 1}, l.TagUsage())
}

func TestAuditReportsDrift(t *testing.T) {
	server := newEngineServer(t)
	sim := NewSimulator(SimConfig{EngineURL: server.URL, NumUsers: 2, NumQuestions: 1, Seed: 7, MaxRetries: 1}, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, sim.createUsers(ctx))
	require.NoError(t, sim.createQuestions(ctx))

	// The ledger claims a vote the server never saw.
	sim.ledger.SetVote(sim.questions[0].ID, sim.users[1].ID, "upvoted")
	report, err := sim.Audit(ctx)
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Len(t, report.Mismatches, 1)
}
