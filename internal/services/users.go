package services

import (
	"context"
	"time"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/session"

	"github.com/google/uuid"
)

type ListUsersParams struct {
	Query    string
	Filter   string // newest, oldest or popular
	Page     int
	PageSize int
}

type UserContentParams struct {
	UserID   uuid.UUID
	Page     int
	PageSize int
}

type UpdateUserParams struct {
	Name      *string
	Username  *string
	Bio       *string
	Image     *string
	Location  *string
	Portfolio *string
}

type UserProfile struct {
	User           *models.User `json:"user"`
	TotalQuestions int64        `json:"totalQuestions"`
	TotalAnswers   int64        `json:"totalAnswers"`
}

type UserTag struct {
	Tag   *models.Tag `json:"tag"`
	Count int         `json:"count"`
}

type BadgeCounts struct {
	Gold   int `json:"GOLD"`
	Silver int `json:"SILVER"`
	Bronze int `json:"BRONZE"`
}

type UserStats struct {
	TotalQuestions int64       `json:"totalQuestions"`
	TotalAnswers   int64       `json:"totalAnswers"`
	Badges         BadgeCounts `json:"badges"`
	Reputation     int         `json:"reputationPoints"`
}

// BadgeCriterion is one measured achievement.
type BadgeCriterion struct {
	Type  string
	Count int64
}

const (
	CriterionQuestionCount   = "QUESTION_COUNT"
	CriterionAnswerCount     = "ANSWER_COUNT"
	CriterionQuestionUpvotes = "QUESTION_UPVOTES"
	CriterionAnswerUpvotes   = "ANSWER_UPVOTES"
	CriterionTotalViews      = "TOTAL_VIEWS"
)

// badgeThresholds are bronze, silver and gold.
var badgeThresholds = map[string][3]int64{
	CriterionQuestionCount:   {10, 50, 100},
	CriterionAnswerCount:     {10, 50, 100},
	CriterionQuestionUpvotes: {10, 50, 100},
	CriterionAnswerUpvotes:   {10, 50, 100},
	CriterionTotalViews:      {1000, 10000, 100000},
}

// AssignBadges counts every level reached by each criterion, so reaching gold
// also earns silver and bronze.
func AssignBadges(criteria []BadgeCriterion) BadgeCounts {
	var badges BadgeCounts
	for _, c := range criteria {
		t, ok := badgeThresholds[c.Type]
		if !ok {
			continue
		}
		if c.Count >= t[0] {
			badges.Bronze++
		}
		if c.Count >= t[1] {
			badges.Silver++
		}
		if c.Count >= t[2] {
			badges.Gold++
		}
	}
	return badges
}

var userSorts = map[string]database.UserSort{
	"newest":  database.UserSortNewest,
	"oldest":  database.UserSortOldest,
	"popular": database.UserSortPopular,
}

func (s *Service) ListUsers(ctx context.Context, p ListUsersParams) (*Page[*models.User], error) {
	sort, ok := userSorts[p.Filter]
	if !ok {
		sort = database.UserSortNewest
	}
	users, isNext, err := s.store.ListUsers(ctx, database.UserQuery{
		Search:   p.Query,
		Sort:     sort,
		Page:     p.Page,
		PageSize: p.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return &Page[*models.User]{Items: users, IsNext: isNext}, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*UserProfile, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.QuestionStatsByAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.AnswerStatsByAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserProfile{User: user, TotalQuestions: questions.Count, TotalAnswers: answers.Count}, nil
}

func (s *Service) GetUserQuestions(ctx context.Context, p UserContentParams) (*Page[*QuestionDetail], error) {
	if _, err := s.store.GetUser(ctx, p.UserID); err != nil {
		return nil, err
	}
	return s.questionPage(ctx, database.QuestionQuery{
		AuthorID: p.UserID,
		Sort:     database.SortPopular,
		Page:     p.Page,
		PageSize: p.PageSize,
	})
}

func (s *Service) GetUserAnswers(ctx context.Context, p UserContentParams) (*Page[*AnswerDetail], error) {
	if _, err := s.store.GetUser(ctx, p.UserID); err != nil {
		return nil, err
	}
	return s.answerPage(ctx, database.AnswerQuery{
		AuthorID: p.UserID,
		Sort:     database.AnswerSortPopular,
		Page:     p.Page,
		PageSize: p.PageSize,
	})
}

// GetUserTopTags returns the tags a user asks about most.
func (s *Service) GetUserTopTags(ctx context.Context, id uuid.UUID) ([]UserTag, error) {
	if _, err := s.store.GetUser(ctx, id); err != nil {
		return nil, err
	}
	counts, err := s.store.TopTagsByAuthor(ctx, id, 10)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(counts))
	for i, c := range counts {
		ids[i] = c.TagID
	}
	tags, err := s.store.GetTags(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Tag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}

	out := make([]UserTag, 0, len(counts))
	for _, c := range counts {
		if tag, ok := byID[c.TagID]; ok {
			out = append(out, UserTag{Tag: tag, Count: c.Count})
		}
	}
	return out, nil
}

func (s *Service) GetUserStats(ctx context.Context, id uuid.UUID) (*UserStats, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.QuestionStatsByAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.AnswerStatsByAuthor(ctx, id)
	if err != nil {
		return nil, err
	}

	badges := AssignBadges([]BadgeCriterion{
		{Type: CriterionQuestionCount, Count: questions.Count},
		{Type: CriterionAnswerCount, Count: answers.Count},
		{Type: CriterionQuestionUpvotes, Count: questions.Upvotes},
		{Type: CriterionAnswerUpvotes, Count: answers.Upvotes},
		{Type: CriterionTotalViews, Count: questions.Views},
	})
	return &UserStats{
		TotalQuestions: questions.Count,
		TotalAnswers:   answers.Count,
		Badges:         badges,
		Reputation:     user.Reputation,
	}, nil
}

// UpdateUser changes the caller's own profile.
func (s *Service) UpdateUser(ctx context.Context, p UpdateUserParams) (user *models.User, err error) {
	defer s.observe("update_user", time.Now(), &err)

	userID, err := session.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if p.Username != nil {
		existing, err := s.store.GetUserByUsername(ctx, *p.Username)
		if err := ignoreNotFound(err); err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != userID {
			return nil, duplicateError("username", "username is already taken")
		}
	}
	return s.store.UpdateUserProfile(ctx, userID, models.UserProfileUpdate{
		Name:      p.Name,
		Username:  p.Username,
		Bio:       p.Bio,
		Image:     p.Image,
		Location:  p.Location,
		Portfolio: p.Portfolio,
	})
}
