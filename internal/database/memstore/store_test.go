package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuestion(author uuid.UUID, title string) *models.Question {
	now := time.Now().UTC()
	return &models.Question{ID: uuid.New(), Title: title, Content: "body", Author: author, CreatedAt: now, UpdatedAt: now}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	q := newQuestion(uuid.New(), "first")
	require.NoError(t, s.CreateQuestion(ctx, q))

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.IncrementQuestionCounter(ctx, q.ID, models.CounterUpvotes, 1); err != nil {
			return err
		}
		if _, err := s.UpsertTag(ctx, "react"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Upvotes)
	_, err = s.GetTagByName(ctx, "react")
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		return s.WithTransaction(ctx, func(ctx context.Context) error {
			_, err := s.UpsertTag(ctx, "go")
			return err
		})
	})
	require.NoError(t, err)

	tag, err := s.GetTagByName(ctx, "GO")
	require.NoError(t, err)
	assert.Equal(t, "go", tag.Name)
}

func TestCounterNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	s := New()
	q := newQuestion(uuid.New(), "q")
	require.NoError(t, s.CreateQuestion(ctx, q))

	_, err := s.IncrementQuestionCounter(ctx, q.ID, models.CounterDownvotes, -1)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))

	tag, err := s.UpsertTag(ctx, "rust")
	require.NoError(t, err)
	_, err = s.IncrementTagQuestions(ctx, tag.ID, -1)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestUniqueVotePerAuthorAndTarget(t *testing.T) {
	ctx := context.Background()
	s := New()
	author, target := uuid.New(), uuid.New()

	vote := &models.Vote{ID: uuid.New(), Author: author, ActionID: target, ActionType: models.TargetQuestion, VoteType: models.Upvote}
	require.NoError(t, s.CreateVote(ctx, vote))

	dup := *vote
	dup.ID = uuid.New()
	err := s.CreateVote(ctx, &dup)
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))

	n, err := s.CountVotes(ctx, author, target)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUpsertTagIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.UpsertTag(ctx, " React ")
	require.NoError(t, err)
	second, err := s.UpsertTag(ctx, "react")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "React", second.Name)
}

func TestListQuestionsPaginatesAndFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	author := uuid.New()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		q := newQuestion(author, "question")
		q.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if i == 0 {
			q.Answers = 2
		}
		require.NoError(t, s.CreateQuestion(ctx, q))
	}

	page, isNext, err := s.ListQuestions(ctx, database.QuestionQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.True(t, isNext)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	unanswered, _, err := s.ListQuestions(ctx, database.QuestionQuery{Unanswered: true, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, unanswered, 4)

	last, isNext, err := s.ListQuestions(ctx, database.QuestionQuery{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, last, 1)
	assert.False(t, isNext)
}

func TestApplyReputationDeltasIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	user := &models.User{ID: uuid.New(), Name: "X", Username: "x", Email: "x@example.com"}
	require.NoError(t, s.CreateUser(ctx, user))

	err := s.ApplyReputationDeltas(ctx, []models.ReputationDelta{
		{UserID: user.ID, Delta: 10},
		{UserID: uuid.New(), Delta: 2},
	})
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Reputation)
}
