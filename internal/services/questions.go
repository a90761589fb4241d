package services

import (
	"context"
	"time"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/session"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateQuestionParams struct {
	Title   string
	Content string
	Tags    []string
}

type EditQuestionParams struct {
	QuestionID uuid.UUID
	Title      string
	Content    string
	Tags       []string
}

type ListQuestionsParams struct {
	Query    string
	Filter   string // newest, unanswered, popular or recommended
	Page     int
	PageSize int
}

// QuestionDetail is a question with its tags and author resolved.
type QuestionDetail struct {
	*models.Question
	TagList []*models.Tag `json:"tagList"`
	Creator *models.User  `json:"creator,omitempty"`
}

// AnswerEvent is pushed to question subscribers when the answer count changes.
type AnswerEvent struct {
	Type       string    `json:"type"`
	QuestionID uuid.UUID `json:"questionId"`
	AnswerID   uuid.UUID `json:"answerId"`
	Answers    int       `json:"answers"`
}

// recommendationWindow bounds how many recent interactions seed recommendations.
const recommendationWindow = 50

func (s *Service) CreateQuestion(ctx context.Context, p CreateQuestionParams) (question *models.Question, err error) {
	defer s.observe("create_question", time.Now(), &err)

	userID, err := session.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	q := &models.Question{
		ID:        uuid.New(),
		Title:     p.Title,
		Content:   p.Content,
		Author:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		q.Tags = []uuid.UUID{}
		if err := s.store.CreateQuestion(ctx, q); err != nil {
			return err
		}
		ids, err := s.tags.ReconcileTags(ctx, q.ID, p.Tags)
		if err != nil {
			return err
		}
		q.Tags = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question created", zap.String("questionId", q.ID.String()), zap.String("author", userID.String()))
	s.record(ctx, models.Interaction{User: userID, Action: models.ActionPost, ActionID: q.ID, ActionType: models.TargetQuestion}, userID)
	s.invalidate(ctx, tagCachePrefix, searchCachePrefix)
	return q, nil
}

// EditQuestion replaces title, content and tags. Only the author may edit.
func (s *Service) EditQuestion(ctx context.Context, p EditQuestionParams) (question *models.Question, err error) {
	defer s.observe("edit_question", time.Now(), &err)

	userID, err := session.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	var updated *models.Question
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		q, err := s.store.GetQuestion(ctx, p.QuestionID)
		if err != nil {
			return err
		}
		if q.Author != userID {
			return utils.NewForbiddenError("only the author can edit this question")
		}
		oldTags, err := s.store.GetTags(ctx, q.Tags)
		if err != nil {
			return err
		}
		oldNames := make([]string, len(oldTags))
		for i, t := range oldTags {
			oldNames[i] = t.Name
		}

		if err := s.store.UpdateQuestionContent(ctx, q.ID, p.Title, p.Content); err != nil {
			return err
		}
		if _, err := s.tags.ReconcileTagDelta(ctx, q.ID, oldNames, p.Tags); err != nil {
			return err
		}
		updated, err = s.store.GetQuestion(ctx, q.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, models.Interaction{User: userID, Action: models.ActionEdit, ActionID: updated.ID, ActionType: models.TargetQuestion}, userID)
	s.invalidate(ctx, tagCachePrefix, searchCachePrefix)
	return updated, nil
}

func (s *Service) GetQuestion(ctx context.Context, id uuid.UUID) (*QuestionDetail, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.expandQuestions(ctx, []*models.Question{q})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

func (s *Service) ListQuestions(ctx context.Context, p ListQuestionsParams) (*Page[*QuestionDetail], error) {
	query := database.QuestionQuery{
		Search:   p.Query,
		Sort:     database.SortNewest,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	switch p.Filter {
	case "popular":
		query.Sort = database.SortPopular
	case "unanswered":
		query.Unanswered = true
	case "recommended":
		ok, err := s.recommendedQuery(ctx, &query)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &Page[*QuestionDetail]{Items: []*QuestionDetail{}}, nil
		}
	}
	return s.questionPage(ctx, query)
}

// recommendedQuery narrows query to questions sharing tags with what the
// caller recently viewed, voted on, saved or posted, excluding those and the
// caller's own questions. It reports false when there is nothing to go on.
func (s *Service) recommendedQuery(ctx context.Context, query *database.QuestionQuery) (bool, error) {
	userID, ok := session.CurrentUser(ctx)
	if !ok {
		return false, nil
	}
	interactions, err := s.store.ListInteractions(ctx, database.InteractionQuery{
		UserID:  userID,
		Actions: []models.InteractionAction{models.ActionView, models.ActionUpvote, models.ActionBookmark, models.ActionPost},
		Limit:   recommendationWindow,
	})
	if err != nil {
		return false, err
	}

	seen := make(map[uuid.UUID]bool)
	tagSet := make(map[uuid.UUID]bool)
	// Interactions arrive newest first, so the first upvote row per question
	// says whether the vote still stands.
	upvoteDecided := make(map[uuid.UUID]bool)
	retracted := make(map[uuid.UUID]bool)
	var interacted, tagIDs []uuid.UUID
	for _, in := range interactions {
		if in.ActionType != models.TargetQuestion {
			continue
		}
		if in.Action == models.ActionUpvote {
			if !upvoteDecided[in.ActionID] {
				upvoteDecided[in.ActionID] = true
				retracted[in.ActionID] = in.Reverted
			}
			if retracted[in.ActionID] {
				continue
			}
		}
		if in.Reverted || seen[in.ActionID] {
			continue
		}
		seen[in.ActionID] = true
		interacted = append(interacted, in.ActionID)

		q, err := s.store.GetQuestion(ctx, in.ActionID)
		if err := ignoreNotFound(err); err != nil {
			return false, err
		}
		if q == nil {
			continue
		}
		for _, id := range q.Tags {
			if !tagSet[id] {
				tagSet[id] = true
				tagIDs = append(tagIDs, id)
			}
		}
	}
	if len(tagIDs) == 0 {
		return false, nil
	}

	query.TagIDs = tagIDs
	query.ExcludeIDs = interacted
	query.ExcludeAuthor = userID
	query.Sort = database.SortPopular
	return true, nil
}

// IncrementViews bumps the view counter and returns the new count.
func (s *Service) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	q, err := s.store.IncrementQuestionCounter(ctx, id, models.CounterViews, 1)
	if err != nil {
		return 0, err
	}
	if userID, ok := session.CurrentUser(ctx); ok {
		s.record(ctx, models.Interaction{User: userID, Action: models.ActionView, ActionID: q.ID, ActionType: models.TargetQuestion}, q.Author)
	}
	return q.Views, nil
}

// DeleteQuestion removes a question with its answers, votes, saves and tag
// links. Only the author may delete.
func (s *Service) DeleteQuestion(ctx context.Context, id uuid.UUID) (err error) {
	defer s.observe("delete_question", time.Now(), &err)

	userID, err := session.RequireUser(ctx)
	if err != nil {
		return err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		q, err := s.store.GetQuestion(ctx, id)
		if err != nil {
			return err
		}
		if q.Author != userID {
			return utils.NewForbiddenError("only the author can delete this question")
		}
		if err := s.tags.RemoveQuestionTags(ctx, q); err != nil {
			return err
		}
		if _, err := s.store.DeleteCollectionsByQuestion(ctx, q.ID); err != nil {
			return err
		}
		answerIDs, err := s.store.DeleteAnswersByQuestion(ctx, q.ID)
		if err != nil {
			return err
		}
		targets := append(answerIDs, q.ID)
		if _, err := s.store.DeleteVotesByTargets(ctx, targets); err != nil {
			return err
		}
		if _, err := s.store.DeleteInteractionsByTargets(ctx, targets); err != nil {
			return err
		}
		return s.store.DeleteQuestion(ctx, q.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Question deleted", zap.String("questionId", id.String()))
	s.record(ctx, models.Interaction{User: userID, Action: models.ActionDelete, ActionID: id, ActionType: models.TargetQuestion}, userID)
	s.invalidate(ctx, tagCachePrefix, searchCachePrefix)
	return nil
}

func (s *Service) questionPage(ctx context.Context, query database.QuestionQuery) (*Page[*QuestionDetail], error) {
	questions, isNext, err := s.store.ListQuestions(ctx, query)
	if err != nil {
		return nil, err
	}
	items, err := s.expandQuestions(ctx, questions)
	if err != nil {
		return nil, err
	}
	return &Page[*QuestionDetail]{Items: items, IsNext: isNext}, nil
}

// expandQuestions resolves tags and authors, loading each only once.
func (s *Service) expandQuestions(ctx context.Context, questions []*models.Question) ([]*QuestionDetail, error) {
	users := make(map[uuid.UUID]*models.User)
	out := make([]*QuestionDetail, 0, len(questions))
	for _, q := range questions {
		tags, err := s.store.GetTags(ctx, q.Tags)
		if err != nil {
			return nil, err
		}
		creator, ok := users[q.Author]
		if !ok {
			creator, err = s.store.GetUser(ctx, q.Author)
			if err := ignoreNotFound(err); err != nil {
				return nil, err
			}
			users[q.Author] = creator
		}
		out = append(out, &QuestionDetail{Question: q, TagList: tags, Creator: creator})
	}
	return out, nil
}
