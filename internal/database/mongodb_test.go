package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.uber.org/zap"
)

// newTestMongo starts a single-node replica set so transactions are available.
func newTestMongo(t *testing.T) *MongoDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	if !strings.Contains(uri, "directConnection") {
		sep := "?"
		if strings.Contains(uri, "?") {
			sep = "&"
		}
		uri += sep + "directConnection=true"
	}

	db, err := NewMongoDB(ctx, MongoConfig{
		URI:            uri,
		Database:       "devflow_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", ""),
		ConnectTimeout: 10 * time.Second,
		MaxRetries:     5,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	return db
}

func TestMongoTransactionRollsBack(t *testing.T) {
	db := newTestMongo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	q := &models.Question{ID: uuid.New(), Title: "t", Content: "c", Author: uuid.New(), Tags: []uuid.UUID{}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.CreateQuestion(ctx, q))

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := db.IncrementQuestionCounter(ctx, q.ID, models.CounterUpvotes, 1); err != nil {
			return err
		}
		if _, err := db.UpsertTag(ctx, "react"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := db.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Upvotes)

	_, err = db.GetTagByName(ctx, "React")
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestMongoCounterGuardAndUniqueVote(t *testing.T) {
	db := newTestMongo(t)
	ctx := context.Background()

	tag, err := db.UpsertTag(ctx, " Go ")
	require.NoError(t, err)
	assert.Equal(t, "Go", tag.Name)

	same, err := db.UpsertTag(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, same.ID)

	_, err = db.IncrementTagQuestions(ctx, tag.ID, -1)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))

	updated, err := db.IncrementTagQuestions(ctx, tag.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Questions)

	author, target := uuid.New(), uuid.New()
	vote := &models.Vote{ID: uuid.New(), Author: author, ActionID: target, ActionType: models.TargetQuestion, VoteType: models.Upvote, CreatedAt: time.Now().UTC()}
	require.NoError(t, db.CreateVote(ctx, vote))
	dup := *vote
	dup.ID = uuid.New()
	assert.True(t, utils.IsErrorCode(db.CreateVote(ctx, &dup), utils.ErrDuplicate))
}

func TestMongoReputationBatch(t *testing.T) {
	db := newTestMongo(t)
	ctx := context.Background()

	x := &models.User{ID: uuid.New(), Name: "X", Username: "userx", Email: "x@example.com", CreatedAt: time.Now().UTC()}
	y := &models.User{ID: uuid.New(), Name: "Y", Username: "usery", Email: "y@example.com", CreatedAt: time.Now().UTC()}
	require.NoError(t, db.CreateUser(ctx, x))
	require.NoError(t, db.CreateUser(ctx, y))

	require.NoError(t, db.ApplyReputationDeltas(ctx, []models.ReputationDelta{
		{UserID: x.ID, Delta: 10},
		{UserID: y.ID, Delta: 2},
	}))

	gotX, err := db.GetUser(ctx, x.ID)
	require.NoError(t, err)
	gotY, err := db.GetUser(ctx, y.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, gotX.Reputation)
	assert.Equal(t, 2, gotY.Reputation)
}
