package services

import (
	"context"
	"testing"

	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndDeleteAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.user(t, "xavier")
	y := f.user(t, "yolanda")
	q := f.question(t, x, "go")

	ans := f.answer(t, y, q.ID)
	stored, err := f.store.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Answers)
	f.flush(t)
	assert.Equal(t, 10, f.reputation(t, y))

	events := f.publisher.all()
	require.NotEmpty(t, events)
	assert.Equal(t, AnswerEvent{Type: "answer", QuestionID: q.ID, AnswerID: ans.ID, Answers: 1}, events[len(events)-1].Event)

	err = f.svc.DeleteAnswer(as(x), ans.ID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrForbidden))

	_, err = f.svc.CastVote(as(x), CastVoteParams{TargetID: ans.ID, TargetType: models.TargetAnswer, VoteType: models.Upvote})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUserPost(as(y), ans.ID, models.TargetAnswer))
	stored, err = f.store.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Answers)
	_, err = f.store.GetVote(ctx, x, ans.ID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestCreateAnswerOnMissingQuestion(t *testing.T) {
	f := newFixture(t)
	y := f.user(t, "yolanda")
	_, err := f.svc.CreateAnswer(as(y), CreateAnswerParams{QuestionID: uuid.New(), Content: "irrelevant"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestListAnswersSorts(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	y := f.user(t, "yolanda")
	q := f.question(t, x, "go")
	first := f.answer(t, y, q.ID)
	second := f.answer(t, x, q.ID)
	_, err := f.svc.CastVote(as(y), CastVoteParams{TargetID: second.ID, TargetType: models.TargetAnswer, VoteType: models.Upvote})
	require.NoError(t, err)

	page, err := f.svc.ListAnswers(context.Background(), ListAnswersParams{QuestionID: q.ID, Filter: "oldest"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, first.ID, page.Items[0].ID)
	assert.Equal(t, "yolanda", page.Items[0].Creator.Name)

	page, err = f.svc.ListAnswers(context.Background(), ListAnswersParams{QuestionID: q.ID, Filter: "popular"})
	require.NoError(t, err)
	assert.Equal(t, second.ID, page.Items[0].ID)
}

func TestToggleSaveQuestion(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	y := f.user(t, "yolanda")
	q := f.question(t, x, "go")
	f.question(t, x, "rust")

	saved, err := f.svc.ToggleSaveQuestion(as(y), q.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	has, err := f.svc.HasSavedQuestion(as(y), q.ID)
	require.NoError(t, err)
	assert.True(t, has)

	page, err := f.svc.ListSavedQuestions(as(y), ListSavedParams{Filter: "mostrecent"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, q.ID, page.Items[0].ID)

	saved, err = f.svc.ToggleSaveQuestion(as(y), q.ID)
	require.NoError(t, err)
	assert.False(t, saved)

	page, err = f.svc.ListSavedQuestions(as(y), ListSavedParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = f.svc.ToggleSaveQuestion(as(y), uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestAssignBadges(t *testing.T) {
	badges := AssignBadges([]BadgeCriterion{
		{Type: CriterionQuestionCount, Count: 55},
		{Type: CriterionAnswerCount, Count: 9},
		{Type: CriterionQuestionUpvotes, Count: 100},
		{Type: CriterionTotalViews, Count: 1000},
		{Type: "UNKNOWN", Count: 1_000_000},
	})
	assert.Equal(t, BadgeCounts{Gold: 1, Silver: 2, Bronze: 3}, badges)
}

func TestUserProfileAndStats(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	y := f.user(t, "yolanda")
	q := f.question(t, x, "go", "rust")
	f.question(t, x, "go")
	f.answer(t, x, q.ID)
	_, err := f.svc.CastVote(as(y), CastVoteParams{TargetID: q.ID, TargetType: models.TargetQuestion, VoteType: models.Upvote})
	require.NoError(t, err)
	f.flush(t)

	profile, err := f.svc.GetUser(context.Background(), x)
	require.NoError(t, err)
	assert.EqualValues(t, 2, profile.TotalQuestions)
	assert.EqualValues(t, 1, profile.TotalAnswers)

	stats, err := f.svc.GetUserStats(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, BadgeCounts{}, stats.Badges)
	assert.Equal(t, 5+5+10+10, stats.Reputation)

	top, err := f.svc.GetUserTopTags(context.Background(), x)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "go", top[0].Tag.Name)
	assert.Equal(t, 2, top[0].Count)

	questions, err := f.svc.GetUserQuestions(context.Background(), UserContentParams{UserID: x})
	require.NoError(t, err)
	require.Len(t, questions.Items, 2)
	assert.Equal(t, q.ID, questions.Items[0].ID)

	_, err = f.svc.GetUser(context.Background(), uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	f.user(t, "yolanda")

	bio := "Gopher"
	updated, err := f.svc.UpdateUser(as(x), UpdateUserParams{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Gopher", updated.Bio)
	assert.Equal(t, "xavier", updated.Username)

	taken := "yolanda"
	_, err = f.svc.UpdateUser(as(x), UpdateUserParams{Username: &taken})
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))
}

func TestGlobalSearch(t *testing.T) {
	f := newFixture(t)
	x := f.user(t, "xavier")
	f.question(t, x, "golang")

	results, err := f.svc.GlobalSearch(context.Background(), GlobalSearchParams{Query: "golang"})
	require.NoError(t, err)
	types := map[string]int{}
	for _, r := range results {
		types[r.Type]++
	}
	assert.Equal(t, 1, types["question"])
	assert.Equal(t, 1, types["tag"])

	results, err = f.svc.GlobalSearch(context.Background(), GlobalSearchParams{Query: "xav", Type: "user"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, x, results[0].ID)

	_, err = f.svc.GlobalSearch(context.Background(), GlobalSearchParams{Query: "x", Type: "comment"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}

func TestSignUpAndSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.SignUp(ctx, SignUpParams{Name: "Ada", Username: "ada", Email: "Ada@Example.com", Password: "Str0ng!pw"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = f.svc.SignUp(ctx, SignUpParams{Name: "Ada", Username: "ada2", Email: "ada@example.com", Password: "Str0ng!pw"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))
	_, err = f.svc.SignUp(ctx, SignUpParams{Name: "Ada", Username: "ada", Email: "other@example.com", Password: "Str0ng!pw"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))

	signedIn, err := f.svc.SignIn(ctx, SignInParams{Email: "ADA@example.com", Password: "Str0ng!pw"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, signedIn.ID)

	_, err = f.svc.SignIn(ctx, SignInParams{Email: "ada@example.com", Password: "wrong"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidCredentials))
	_, err = f.svc.SignIn(ctx, SignInParams{Email: "nobody@example.com", Password: "Str0ng!pw"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidCredentials))
}
