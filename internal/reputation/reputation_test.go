package reputation

import (
	"context"
	"testing"

	"devflow/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every action maps to exactly one row; post and delete must not bleed into
// the following case.
func TestPointTableRows(t *testing.T) {
	cases := []struct {
		action models.InteractionAction
		target models.TargetType
		want   Points
	}{
		{models.ActionUpvote, models.TargetQuestion, Points{2, 10}},
		{models.ActionUpvote, models.TargetAnswer, Points{2, 10}},
		{models.ActionDownvote, models.TargetQuestion, Points{-1, -2}},
		{models.ActionDownvote, models.TargetAnswer, Points{-1, -2}},
		{models.ActionPost, models.TargetQuestion, Points{0, 5}},
		{models.ActionPost, models.TargetAnswer, Points{0, 10}},
		{models.ActionDelete, models.TargetQuestion, Points{0, -5}},
		{models.ActionDelete, models.TargetAnswer, Points{0, -10}},
	}
	for _, c := range cases {
		got, ok := PointsFor(c.action, c.target)
		require.True(t, ok, "%s/%s", c.action, c.target)
		assert.Equal(t, c.want, got, "%s/%s", c.action, c.target)
	}

	for _, action := range []models.InteractionAction{models.ActionView, models.ActionBookmark, models.ActionEdit, models.ActionSearch} {
		_, ok := PointsFor(action, models.TargetQuestion)
		assert.False(t, ok, action)
	}
}

func TestDeltasForDistinctUsers(t *testing.T) {
	voter, author := uuid.New(), uuid.New()
	deltas := Deltas(Input{Action: models.ActionUpvote, ActionType: models.TargetQuestion, PerformerID: voter, AuthorID: author})
	assert.ElementsMatch(t, []models.ReputationDelta{
		{UserID: voter, Delta: 2},
		{UserID: author, Delta: 10},
	}, deltas)
}

func TestSelfInteractionAppliesAuthorDeltaOnce(t *testing.T) {
	user := uuid.New()
	deltas := Deltas(Input{Action: models.ActionUpvote, ActionType: models.TargetAnswer, PerformerID: user, AuthorID: user})
	assert.Equal(t, []models.ReputationDelta{{UserID: user, Delta: 10}}, deltas)

	deltas = Deltas(Input{Action: models.ActionPost, ActionType: models.TargetQuestion, PerformerID: user, AuthorID: user})
	assert.Equal(t, []models.ReputationDelta{{UserID: user, Delta: 5}}, deltas)
}

func TestRevertedVoteNegatesRow(t *testing.T) {
	voter, author := uuid.New(), uuid.New()
	deltas := Deltas(Input{Action: models.ActionDownvote, ActionType: models.TargetQuestion, PerformerID: voter, AuthorID: author, Reverted: true})
	assert.ElementsMatch(t, []models.ReputationDelta{
		{UserID: voter, Delta: 1},
		{UserID: author, Delta: 2},
	}, deltas)
}

type recordingWriter struct {
	batches [][]models.ReputationDelta
}

func (w *recordingWriter) ApplyReputationDeltas(ctx context.Context, deltas []models.ReputationDelta) error {
	w.batches = append(w.batches, deltas)
	return nil
}

func TestApplyWritesOneBatch(t *testing.T) {
	w := &recordingWriter{}
	voter, author := uuid.New(), uuid.New()

	require.NoError(t, Apply(context.Background(), w, Input{Action: models.ActionUpvote, ActionType: models.TargetQuestion, PerformerID: voter, AuthorID: author}))
	require.NoError(t, Apply(context.Background(), w, Input{Action: models.ActionView, ActionType: models.TargetQuestion, PerformerID: voter, AuthorID: author}))

	require.Len(t, w.batches, 1)
	assert.Len(t, w.batches[0], 2)
}
