package services

import (
	"context"
	"time"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/session"
	"devflow/internal/utils"

	"github.com/google/uuid"
)

type CreateAnswerParams struct {
	QuestionID uuid.UUID
	Content    string
}

type ListAnswersParams struct {
	QuestionID uuid.UUID
	Filter     string // latest, oldest or popular
	Page       int
	PageSize   int
}

type AnswerDetail struct {
	*models.Answer
	Creator *models.User `json:"creator,omitempty"`
}

func (s *Service) CreateAnswer(ctx context.Context, p CreateAnswerParams) (answer *models.Answer, err error) {
	defer s.observe("create_answer", time.Now(), &err)

	userID, err := session.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ans := &models.Answer{
		ID:        uuid.New(),
		Question:  p.QuestionID,
		Author:    userID,
		Content:   p.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var answers int
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetQuestion(ctx, p.QuestionID); err != nil {
			return err
		}
		if err := s.store.CreateAnswer(ctx, ans); err != nil {
			return err
		}
		q, err := s.store.IncrementQuestionCounter(ctx, p.QuestionID, models.CounterAnswers, 1)
		if err != nil {
			return fatalIfNotFound("question answers counter", err)
		}
		answers = q.Answers
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, models.Interaction{User: userID, Action: models.ActionPost, ActionID: ans.ID, ActionType: models.TargetAnswer}, userID)
	s.publish(p.QuestionID, AnswerEvent{Type: "answer", QuestionID: p.QuestionID, AnswerID: ans.ID, Answers: answers})
	s.invalidate(ctx, searchCachePrefix)
	return ans, nil
}

func (s *Service) ListAnswers(ctx context.Context, p ListAnswersParams) (*Page[*AnswerDetail], error) {
	if _, err := s.store.GetQuestion(ctx, p.QuestionID); err != nil {
		return nil, err
	}
	sort := database.AnswerSortLatest
	switch p.Filter {
	case "oldest":
		sort = database.AnswerSortOldest
	case "popular":
		sort = database.AnswerSortPopular
	}
	return s.answerPage(ctx, database.AnswerQuery{
		QuestionID: p.QuestionID,
		Sort:       sort,
		Page:       p.Page,
		PageSize:   p.PageSize,
	})
}

// DeleteAnswer removes an answer and its votes. Only the author may delete.
func (s *Service) DeleteAnswer(ctx context.Context, id uuid.UUID) (err error) {
	defer s.observe("delete_answer", time.Now(), &err)

	userID, err := session.RequireUser(ctx)
	if err != nil {
		return err
	}

	var questionID uuid.UUID
	var answers int
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		ans, err := s.store.GetAnswer(ctx, id)
		if err != nil {
			return err
		}
		if ans.Author != userID {
			return utils.NewForbiddenError("only the author can delete this answer")
		}
		questionID = ans.Question
		if err := s.store.DeleteAnswer(ctx, ans.ID); err != nil {
			return err
		}
		q, err := s.store.IncrementQuestionCounter(ctx, ans.Question, models.CounterAnswers, -1)
		if err != nil {
			return fatalIfNotFound("question answers counter", err)
		}
		answers = q.Answers
		if _, err := s.store.DeleteVotesByTargets(ctx, []uuid.UUID{ans.ID}); err != nil {
			return err
		}
		_, err = s.store.DeleteInteractionsByTargets(ctx, []uuid.UUID{ans.ID})
		return err
	})
	if err != nil {
		return err
	}

	s.record(ctx, models.Interaction{User: userID, Action: models.ActionDelete, ActionID: id, ActionType: models.TargetAnswer}, userID)
	s.publish(questionID, AnswerEvent{Type: "answer", QuestionID: questionID, AnswerID: id, Answers: answers})
	s.invalidate(ctx, searchCachePrefix)
	return nil
}

// DeleteUserPost deletes one of the caller's questions or answers.
func (s *Service) DeleteUserPost(ctx context.Context, postID uuid.UUID, postType models.TargetType) error {
	switch postType {
	case models.TargetQuestion:
		return s.DeleteQuestion(ctx, postID)
	case models.TargetAnswer:
		return s.DeleteAnswer(ctx, postID)
	}
	return utils.NewValidationError(map[string][]string{"type": {"must be question or answer"}})
}

func (s *Service) answerPage(ctx context.Context, query database.AnswerQuery) (*Page[*AnswerDetail], error) {
	answers, isNext, err := s.store.ListAnswers(ctx, query)
	if err != nil {
		return nil, err
	}
	users := make(map[uuid.UUID]*models.User)
	items := make([]*AnswerDetail, 0, len(answers))
	for _, a := range answers {
		creator, ok := users[a.Author]
		if !ok {
			creator, err = s.store.GetUser(ctx, a.Author)
			if err := ignoreNotFound(err); err != nil {
				return nil, err
			}
			users[a.Author] = creator
		}
		items = append(items, &AnswerDetail{Answer: a, Creator: creator})
	}
	return &Page[*AnswerDetail]{Items: items, IsNext: isNext}, nil
}
