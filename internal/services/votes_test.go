package services

import (
	"context"
	"sync"
	"testing"

	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastVoteUpvoteAndToggleOff(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	y := f.user(t, "yolanda")
	q := f.question(t, x, "react", "javascript")
	f.flush(t)
	baseX, baseY := f.reputation(t, x), f.reputation(t, y)

	result, err := f.svc.CastVote(as(y), CastVoteParams{TargetID: q.ID, TargetType: models.TargetQuestion, VoteType: models.Upvote})
	require.NoError(t, err)
	assert.Equal(t, models.VoteStateUpvoted, result.State)
	assert.Equal(t, 1, result.Upvotes)
	assert.Equal(t, 0, result.Downvotes)

	f.flush(t)
	assert.Equal(t, baseX+10, f.reputation(t, x))
	assert.Equal(t, baseY+2, f.reputation(t, y))

	vote, err := f.store.GetVote(context.Background(), y, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Upvote, vote.VoteType)

	result, err = f.svc.CastVote(as(y), CastVoteParams{TargetID: q.ID, TargetType: models.TargetQuestion, VoteType: models.Upvote})
	require.NoError(t, err)
	assert.Equal(t, models.VoteStateNone, result.State)
	assert.Equal(t, 0, result.Upvotes)

	f.flush(t)
	assert.Equal(t, baseX, f.reputation(t, x))
	assert.Equal(t, baseY, f.reputation(t, y))

	_, err = f.store.GetVote(context.Background(), y, q.ID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))

	stored, err := f.store.GetQuestion(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Upvotes)
	assert.Equal(t, 0, stored.Downvotes)
}

func TestCastVoteFlipMovesOneCount(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	y := f.user(t, "yolanda")
	q := f.question(t, x, "go")
	ans := f.answer(t, x, q.ID)
	f.flush(t)
	baseX, baseY := f.reputation(t, x), f.reputation(t, y)

	_, err := f.svc.CastVote(as(y), CastVoteParams{TargetID: ans.ID, TargetType: models.TargetAnswer, VoteType: models.Upvote})
	require.NoError(t, err)

	result, err := f.svc.CastVote(as(y), CastVoteParams{TargetID: ans.ID, TargetType: models.TargetAnswer, VoteType: models.Downvote})
	require.NoError(t, err)
	assert.Equal(t, models.VoteStateDownvoted, result.State)
	assert.Equal(t, 0, result.Upvotes)
	assert.Equal(t, 1, result.Downvotes)

	n, err := f.store.CountVotes(context.Background(), y, ans.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	f.flush(t)
	assert.Equal(t, baseX-2, f.reputation(t, x))
	assert.Equal(t, baseY-1, f.reputation(t, y))

	state, err := f.svc.HasVoted(as(y), ans.ID, models.TargetAnswer)
	require.NoError(t, err)
	assert.Equal(t, models.VoteStateDownvoted, state)
}

func TestCastVoteSelfVoteOnlyScoresAuthor(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	q := f.question(t, x, "go")
	f.flush(t)
	base := f.reputation(t, x)

	_, err := f.svc.CastVote(as(x), CastVoteParams{TargetID: q.ID, TargetType: models.TargetQuestion, VoteType: models.Upvote})
	require.NoError(t, err)
	f.flush(t)
	assert.Equal(t, base+10, f.reputation(t, x))
}

func TestCastVoteErrors(t *testing.T) {
	f := newFixture(t)
	y := f.user(t, "yolanda")

	_, err := f.svc.CastVote(context.Background(), CastVoteParams{TargetID: uuid.New(), TargetType: models.TargetQuestion, VoteType: models.Upvote})
	assert.True(t, utils.IsErrorCode(err, utils.ErrUnauthorized))

	_, err = f.svc.CastVote(as(y), CastVoteParams{TargetID: uuid.New(), TargetType: models.TargetQuestion, VoteType: models.Upvote})
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))

	_, err = f.svc.CastVote(as(y), CastVoteParams{TargetID: uuid.New(), TargetType: "comment", VoteType: models.Upvote})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = f.svc.CastVote(as(y), CastVoteParams{TargetID: uuid.New(), TargetType: models.TargetAnswer, VoteType: "sideways"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}

func TestCastVotePublishesCounters(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	y := f.user(t, "yolanda")
	q := f.question(t, x, "go")

	_, err := f.svc.CastVote(as(y), CastVoteParams{TargetID: q.ID, TargetType: models.TargetQuestion, VoteType: models.Downvote})
	require.NoError(t, err)

	events := f.publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, q.ID, events[0].QuestionID)
	assert.Equal(t, VoteEvent{Type: "vote", TargetID: q.ID, TargetType: models.TargetQuestion, Downvotes: 1}, events[0].Event)
}

func TestConcurrentVotesKeepCountersExact(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	q := f.question(t, x, "go")

	voters := make([]uuid.UUID, 20)
	for i := range voters {
		voters[i] = f.user(t, "voter"+uuid.NewString()[:8])
	}

	var wg sync.WaitGroup
	for _, v := range voters {
		wg.Add(1)
		go func(v uuid.UUID) {
			defer wg.Done()
			// up, down, up again: each voter ends upvoted.
			for _, vt := range []models.VoteType{models.Upvote, models.Downvote, models.Upvote} {
				_, err := f.svc.CastVote(as(v), CastVoteParams{TargetID: q.ID, TargetType: models.TargetQuestion, VoteType: vt})
				assert.NoError(t, err)
			}
		}(v)
	}
	wg.Wait()

	stored, err := f.store.GetQuestion(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, len(voters), stored.Upvotes)
	assert.Equal(t, 0, stored.Downvotes)
}

func TestAdjustCountGuards(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	q := f.question(t, x, "go")
	agg := NewAggregateUpdater(f.store)
	ctx := context.Background()

	_, err := agg.AdjustCount(ctx, q.ID, models.TargetQuestion, models.CounterUpvotes, -1)
	assert.True(t, utils.IsErrorCode(err, utils.ErrConflictFatal))

	_, err = agg.AdjustCount(ctx, uuid.New(), models.TargetAnswer, models.CounterUpvotes, 1)
	assert.True(t, utils.IsErrorCode(err, utils.ErrConflictFatal))

	_, err = agg.AdjustCount(ctx, q.ID, models.TargetQuestion, models.CounterUpvotes, 2)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = agg.AdjustCount(ctx, q.ID, models.TargetQuestion, models.CounterViews, 1)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	counters, err := agg.AdjustCount(ctx, q.ID, models.TargetQuestion, models.CounterDownvotes, 1)
	require.NoError(t, err)
	assert.Equal(t, models.Counters{Downvotes: 1}, counters)
}
