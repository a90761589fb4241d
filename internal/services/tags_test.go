package services

import (
	"context"
	"testing"

	"devflow/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"Go", "rust"}, NormalizeTags([]string{" Go ", "", "go", "rust", "RUST", "  "}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestReconcileTagDeltaNoChange(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	q := f.question(t, x, "react", "javascript")

	ids, err := f.svc.tags.ReconcileTagDelta(context.Background(), q.ID, []string{"react", "javascript"}, []string{"JavaScript", "react"})
	require.NoError(t, err)
	assert.Equal(t, q.Tags, ids)
	assert.Equal(t, 1, f.tag(t, "react").Questions)
	assert.Equal(t, 1, f.tag(t, "javascript").Questions)
}

func TestReconcileTagDeltaRollsBackOnMissingLink(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	q := f.question(t, x, "react")
	f.question(t, x, "vue")

	// vue exists but is not on q, so removing it must abort the whole delta.
	_, err := f.svc.tags.ReconcileTagDelta(context.Background(), q.ID, []string{"react", "vue"}, []string{"svelte"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrConflictFatal))

	assert.Equal(t, 1, f.tag(t, "react").Questions)
	assert.Equal(t, 1, f.tag(t, "vue").Questions)
	_, err = f.store.GetTagByName(context.Background(), "svelte")
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))

	stored, err := f.store.GetQuestion(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Tags, stored.Tags)
}

func TestListTagsUsesCacheUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	f.question(t, x, "go")

	page, err := f.svc.ListTags(context.Background(), ListTagsParams{Filter: "popular"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	// A write straight to the store is invisible until a service write invalidates.
	_, err = f.store.UpsertTag(context.Background(), "hidden")
	require.NoError(t, err)
	page, err = f.svc.ListTags(context.Background(), ListTagsParams{Filter: "popular"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	f.question(t, x, "rust")
	page, err = f.svc.ListTags(context.Background(), ListTagsParams{Filter: "name"})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "go", page.Items[0].Name)
}

func TestGetTagQuestions(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	q := f.question(t, x, "go")
	f.question(t, x, "rust")

	result, err := f.svc.GetTagQuestions(context.Background(), TagQuestionsParams{TagID: f.tag(t, "go").ID})
	require.NoError(t, err)
	assert.Equal(t, "go", result.Tag.Name)
	require.Len(t, result.Questions.Items, 1)
	assert.Equal(t, q.ID, result.Questions.Items[0].ID)
}

func TestCreateQuestionRejectsBlankTags(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")

	_, err := f.svc.CreateQuestion(as(x), CreateQuestionParams{Title: "Blank tags", Content: "x", Tags: []string{"   ", ""}})
	require.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	page, err := f.svc.ListQuestions(context.Background(), ListQuestionsParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	tags, err := f.svc.ListTags(context.Background(), ListTagsParams{})
	require.NoError(t, err)
	assert.Empty(t, tags.Items)
}

func TestEditQuestionRejectsBlankTags(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	q := f.question(t, x, "react", "javascript")

	_, err := f.svc.EditQuestion(as(x), EditQuestionParams{QuestionID: q.ID, Title: "Blank tags", Content: "x", Tags: []string{"  "}})
	require.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	stored, err := f.store.GetQuestion(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Tags, stored.Tags)
	assert.Equal(t, q.Title, stored.Title)
	assert.Equal(t, 1, f.tag(t, "react").Questions)
	assert.Equal(t, 1, f.tag(t, "javascript").Questions)
}

func TestReconcileTagsCapsNormalizedCount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.tags.ReconcileTags(context.Background(), uuid.New(), []string{"a", "b", "c", "d"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	// Duplicates collapse before counting.
	x := f.user(t, "xavier")
	q := f.question(t, x, "go", "GO", " go ", "rust")
	assert.Len(t, q.Tags, 2)
}
