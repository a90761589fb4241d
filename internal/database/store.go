package database

import (
	"context"
	"strings"

	"devflow/internal/models"

	"github.com/google/uuid"
)

// Store is the Content Store. Every write issued with the context handed to a
// WithTransaction callback belongs to that transaction; nested calls join it.
type Store interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Close(ctx context.Context) error

	// Users and accounts
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id uuid.UUID, update models.UserProfileUpdate) (*models.User, error)
	ListUsers(ctx context.Context, query UserQuery) ([]*models.User, bool, error)
	ApplyReputationDeltas(ctx context.Context, deltas []models.ReputationDelta) error
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*models.Account, error)

	// Questions
	CreateQuestion(ctx context.Context, question *models.Question) error
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	UpdateQuestionContent(ctx context.Context, id uuid.UUID, title, content string) error
	SetQuestionTags(ctx context.Context, id uuid.UUID, tags []uuid.UUID) error
	IncrementQuestionCounter(ctx context.Context, id uuid.UUID, field models.CounterField, delta int) (*models.Question, error)
	ListQuestions(ctx context.Context, query QuestionQuery) ([]*models.Question, bool, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
	QuestionStatsByAuthor(ctx context.Context, author uuid.UUID) (models.ContentStats, error)
	TopTagsByAuthor(ctx context.Context, author uuid.UUID, limit int) ([]models.TagCount, error)

	// Answers
	CreateAnswer(ctx context.Context, answer *models.Answer) error
	GetAnswer(ctx context.Context, id uuid.UUID) (*models.Answer, error)
	IncrementAnswerCounter(ctx context.Context, id uuid.UUID, field models.CounterField, delta int) (*models.Answer, error)
	ListAnswers(ctx context.Context, query AnswerQuery) ([]*models.Answer, bool, error)
	DeleteAnswer(ctx context.Context, id uuid.UUID) error
	DeleteAnswersByQuestion(ctx context.Context, questionID uuid.UUID) ([]uuid.UUID, error)
	AnswerStatsByAuthor(ctx context.Context, author uuid.UUID) (models.ContentStats, error)

	// Tags and the tag/question join
	UpsertTag(ctx context.Context, name string) (*models.Tag, error)
	GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error)
	GetTagByName(ctx context.Context, name string) (*models.Tag, error)
	GetTags(ctx context.Context, ids []uuid.UUID) ([]*models.Tag, error)
	IncrementTagQuestions(ctx context.Context, id uuid.UUID, delta int) (*models.Tag, error)
	ListTags(ctx context.Context, query TagQuery) ([]*models.Tag, bool, error)
	CreateTagQuestions(ctx context.Context, joins []*models.TagQuestion) error
	DeleteTagQuestions(ctx context.Context, questionID uuid.UUID, tagIDs []uuid.UUID) (int64, error)
	CountTagQuestions(ctx context.Context, tagID uuid.UUID) (int64, error)

	// Votes
	CreateVote(ctx context.Context, vote *models.Vote) error
	GetVote(ctx context.Context, author, actionID uuid.UUID) (*models.Vote, error)
	UpdateVoteType(ctx context.Context, id uuid.UUID, voteType models.VoteType) error
	DeleteVote(ctx context.Context, id uuid.UUID) error
	DeleteVotesByTargets(ctx context.Context, actionIDs []uuid.UUID) (int64, error)
	CountVotes(ctx context.Context, author, actionID uuid.UUID) (int64, error)

	// Interactions
	CreateInteraction(ctx context.Context, interaction *models.Interaction) error
	ListInteractions(ctx context.Context, query InteractionQuery) ([]*models.Interaction, error)
	DeleteInteractionsByTargets(ctx context.Context, actionIDs []uuid.UUID) (int64, error)

	// Collections
	CreateCollection(ctx context.Context, collection *models.Collection) error
	GetCollection(ctx context.Context, author, questionID uuid.UUID) (*models.Collection, error)
	DeleteCollection(ctx context.Context, id uuid.UUID) error
	DeleteCollectionsByQuestion(ctx context.Context, questionID uuid.UUID) (int64, error)
	ListCollections(ctx context.Context, author uuid.UUID) ([]*models.Collection, error)
}

// QuestionSort orders question listings.
type QuestionSort string

const (
	SortNewest       QuestionSort = "newest"
	SortOldest       QuestionSort = "oldest"
	SortMostVoted    QuestionSort = "mostvoted"
	SortMostViewed   QuestionSort = "mostviewed"
	SortMostAnswered QuestionSort = "mostanswered"
	SortPopular      QuestionSort = "popular" // upvotes, then views
)

type QuestionQuery struct {
	Search        string
	Sort          QuestionSort
	Unanswered    bool
	AuthorID      uuid.UUID
	ExcludeAuthor uuid.UUID
	TagIDs        []uuid.UUID // any of
	IDs           []uuid.UUID // restrict to, when non-nil
	ExcludeIDs    []uuid.UUID
	Page          int
	PageSize      int
}

type AnswerSort string

const (
	AnswerSortLatest  AnswerSort = "latest"
	AnswerSortOldest  AnswerSort = "oldest"
	AnswerSortPopular AnswerSort = "popular"
)

type AnswerQuery struct {
	QuestionID uuid.UUID
	AuthorID   uuid.UUID
	Search     string
	Sort       AnswerSort
	Page       int
	PageSize   int
}

type TagSort string

const (
	TagSortPopular TagSort = "popular"
	TagSortRecent  TagSort = "recent"
	TagSortOldest  TagSort = "oldest"
	TagSortName    TagSort = "name"
)

type TagQuery struct {
	Search   string
	Sort     TagSort
	Page     int
	PageSize int
}

type UserSort string

const (
	UserSortNewest  UserSort = "newest"
	UserSortOldest  UserSort = "oldest"
	UserSortPopular UserSort = "popular"
)

type UserQuery struct {
	Search   string // name, username or email
	Sort     UserSort
	Page     int
	PageSize int
}

type InteractionQuery struct {
	UserID  uuid.UUID
	Actions []models.InteractionAction
	Limit   int // most recent first
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Paginate normalizes page and page size and returns the number of rows to skip.
func Paginate(page, pageSize int) (skip, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return (page - 1) * pageSize, pageSize
}

// NormalizeTagName is the case-insensitive key a tag is stored and matched under.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
