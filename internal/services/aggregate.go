package services

import (
	"context"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
)

// Target is a votable question or answer.
type Target struct {
	ID         uuid.UUID
	Type       models.TargetType
	AuthorID   uuid.UUID
	QuestionID uuid.UUID // the question itself, or the answer's question
}

// AggregateUpdater applies ±1 deltas to denormalized counters. It never
// commits on its own; callers run it inside their transaction.
type AggregateUpdater struct {
	store database.Store
}

func NewAggregateUpdater(store database.Store) *AggregateUpdater {
	return &AggregateUpdater{store: store}
}

// LoadTarget resolves a vote target, NOT_FOUND when it does not exist.
func (a *AggregateUpdater) LoadTarget(ctx context.Context, id uuid.UUID, targetType models.TargetType) (*Target, error) {
	switch targetType {
	case models.TargetQuestion:
		q, err := a.store.GetQuestion(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Target{ID: q.ID, Type: targetType, AuthorID: q.Author, QuestionID: q.ID}, nil
	case models.TargetAnswer:
		ans, err := a.store.GetAnswer(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Target{ID: ans.ID, Type: targetType, AuthorID: ans.Author, QuestionID: ans.Question}, nil
	}
	return nil, utils.NewAppError(utils.ErrInvalidInput, "unknown target type "+string(targetType), nil)
}

// AdjustCount atomically adds delta to field on the target and returns the
// resulting vote counters. A missing document, or a counter that would go
// negative, is CONFLICT_FATAL so the enclosing transaction rolls back.
func (a *AggregateUpdater) AdjustCount(ctx context.Context, targetID uuid.UUID, targetType models.TargetType, field models.CounterField, delta int) (models.Counters, error) {
	if delta != 1 && delta != -1 {
		return models.Counters{}, utils.NewAppError(utils.ErrInvalidInput, "counter delta must be +1 or -1", nil)
	}

	if field != models.CounterUpvotes && field != models.CounterDownvotes {
		return models.Counters{}, utils.NewAppError(utils.ErrInvalidInput, "cannot adjust "+string(field)+" through the vote ledger", nil)
	}

	switch targetType {
	case models.TargetQuestion:
		q, err := a.store.IncrementQuestionCounter(ctx, targetID, field, delta)
		if err != nil {
			return models.Counters{}, fatalIfNotFound("question "+string(field)+" counter", err)
		}
		return models.Counters{Upvotes: q.Upvotes, Downvotes: q.Downvotes}, nil
	case models.TargetAnswer:
		ans, err := a.store.IncrementAnswerCounter(ctx, targetID, field, delta)
		if err != nil {
			return models.Counters{}, fatalIfNotFound("answer "+string(field)+" counter", err)
		}
		return models.Counters{Upvotes: ans.Upvotes, Downvotes: ans.Downvotes}, nil
	}
	return models.Counters{}, utils.NewAppError(utils.ErrInvalidInput, "unknown target type "+string(targetType), nil)
}

func fatalIfNotFound(what string, err error) error {
	if utils.IsErrorCode(err, utils.ErrNotFound) {
		return utils.NewConflictFatalError("failed to update "+what, err)
	}
	return err
}
