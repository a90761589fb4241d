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

type ListSavedParams struct {
	Query    string
	Filter   string // mostrecent, oldest, mostvoted, mostviewed or mostanswered
	Page     int
	PageSize int
}

var savedSorts = map[string]database.QuestionSort{
	"mostrecent":   database.SortNewest,
	"oldest":       database.SortOldest,
	"mostvoted":    database.SortMostVoted,
	"mostviewed":   database.SortMostViewed,
	"mostanswered": database.SortMostAnswered,
}

// ToggleSaveQuestion saves the question to the caller's collection, or
// removes it if already saved. It reports whether the question is now saved.
func (s *Service) ToggleSaveQuestion(ctx context.Context, questionID uuid.UUID) (bool, error) {
	userID, err := session.RequireUser(ctx)
	if err != nil {
		return false, err
	}

	var saved bool
	var author uuid.UUID
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		q, err := s.store.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		author = q.Author

		existing, err := s.store.GetCollection(ctx, userID, questionID)
		if err != nil && !utils.IsErrorCode(err, utils.ErrNotFound) {
			return err
		}
		if existing != nil {
			saved = false
			return s.store.DeleteCollection(ctx, existing.ID)
		}
		saved = true
		return s.store.CreateCollection(ctx, &models.Collection{
			ID:        uuid.New(),
			Author:    userID,
			Question:  questionID,
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return false, err
	}

	if saved {
		s.record(ctx, models.Interaction{User: userID, Action: models.ActionBookmark, ActionID: questionID, ActionType: models.TargetQuestion}, author)
	}
	return saved, nil
}

func (s *Service) HasSavedQuestion(ctx context.Context, questionID uuid.UUID) (bool, error) {
	userID, err := session.RequireUser(ctx)
	if err != nil {
		return false, err
	}
	_, err = s.store.GetCollection(ctx, userID, questionID)
	if utils.IsErrorCode(err, utils.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) ListSavedQuestions(ctx context.Context, p ListSavedParams) (*Page[*QuestionDetail], error) {
	userID, err := session.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	collections, err := s.store.ListCollections(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(collections))
	for _, c := range collections {
		ids = append(ids, c.Question)
	}

	sort, ok := savedSorts[p.Filter]
	if !ok {
		sort = database.SortNewest
	}
	return s.questionPage(ctx, database.QuestionQuery{
		Search:   p.Query,
		Sort:     sort,
		IDs:      ids,
		Page:     p.Page,
		PageSize: p.PageSize,
	})
}
