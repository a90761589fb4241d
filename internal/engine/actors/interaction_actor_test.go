package actors

import (
	"context"
	"testing"
	"time"

	"devflow/internal/database"
	"devflow/internal/database/memstore"
	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, store *memstore.Store, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, store.CreateUser(context.Background(), &models.User{
		ID: id, Name: name, Username: name, Email: name + "@example.com",
	}))
	return id
}

func flush(t *testing.T, system *actor.ActorSystem, pid *actor.PID) *FlushResult {
	t.Helper()
	result, err := system.Root.RequestFuture(pid, &FlushMsg{}, 5*time.Second).Result()
	require.NoError(t, err)
	flushed, ok := result.(*FlushResult)
	require.True(t, ok)
	return flushed
}

func TestInteractionActorRecordsAndScores(t *testing.T) {
	system := actor.NewActorSystem()
	store := memstore.New()
	voter := seedUser(t, store, "voter")
	author := seedUser(t, store, "author")

	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewInteractionActor(store, utils.NewMetricsCollector(), nil, 1)
	}))

	target := uuid.New()
	system.Root.Send(pid, &RecordInteractionMsg{
		Interaction: models.Interaction{ID: uuid.New(), User: voter, Action: models.ActionUpvote, ActionID: target, ActionType: models.TargetQuestion, CreatedAt: time.Now()},
		AuthorID:    author,
	})

	result := flush(t, system, pid)
	assert.EqualValues(t, 1, result.Processed)
	assert.EqualValues(t, 0, result.Failed)

	ctx := context.Background()
	v, err := store.GetUser(ctx, voter)
	require.NoError(t, err)
	a, err := store.GetUser(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Reputation)
	assert.Equal(t, 10, a.Reputation)

	logged, err := store.ListInteractions(ctx, database.InteractionQuery{UserID: voter})
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, target, logged[0].ActionID)
}

func TestInteractionActorSwallowsFailures(t *testing.T) {
	system := actor.NewActorSystem()
	store := memstore.New()
	voter := seedUser(t, store, "voter")

	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewInteractionActor(store, nil, nil, 2)
	}))

	// Unknown author: the reputation batch fails and the whole write rolls back.
	system.Root.Send(pid, &RecordInteractionMsg{
		Interaction: models.Interaction{ID: uuid.New(), User: voter, Action: models.ActionUpvote, ActionID: uuid.New(), ActionType: models.TargetQuestion},
		AuthorID:    uuid.New(),
	})

	result := flush(t, system, pid)
	assert.EqualValues(t, 0, result.Processed)
	assert.EqualValues(t, 1, result.Failed)

	logged, err := store.ListInteractions(context.Background(), database.InteractionQuery{UserID: voter})
	require.NoError(t, err)
	assert.Empty(t, logged)

	v, err := store.GetUser(context.Background(), voter)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Reputation)
}
