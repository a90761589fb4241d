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

type CastVoteParams struct {
	TargetID   uuid.UUID
	TargetType models.TargetType
	VoteType   models.VoteType
}

// VoteResult is the user's vote state and the target's counters after a cast.
type VoteResult struct {
	TargetID   uuid.UUID         `json:"targetId"`
	TargetType models.TargetType `json:"targetType"`
	State      models.VoteState  `json:"state"`
	Upvotes    int               `json:"upvotes"`
	Downvotes  int               `json:"downvotes"`
}

// VoteEvent is pushed to question subscribers after a vote commits.
type VoteEvent struct {
	Type       string            `json:"type"`
	TargetID   uuid.UUID         `json:"targetId"`
	TargetType models.TargetType `json:"targetType"`
	Upvotes    int               `json:"upvotes"`
	Downvotes  int               `json:"downvotes"`
}

// castOutcome is what the ledger committed, for post-commit side effects.
type castOutcome struct {
	result       VoteResult
	target       *Target
	interactions []models.Interaction
}

// VoteLedger holds at most one vote per (user, target) and keeps the target's
// counters equal to the votes it holds.
type VoteLedger struct {
	store     database.Store
	aggregate *AggregateUpdater
	now       func() time.Time
}

func NewVoteLedger(store database.Store, aggregate *AggregateUpdater) *VoteLedger {
	return &VoteLedger{store: store, aggregate: aggregate, now: time.Now}
}

// Cast creates, removes or flips userID's vote in one transaction. Casting the
// same direction twice toggles the vote off.
func (l *VoteLedger) Cast(ctx context.Context, userID uuid.UUID, p CastVoteParams) (*castOutcome, error) {
	if !p.TargetType.Valid() {
		return nil, utils.NewValidationError(map[string][]string{"targetType": {"must be question or answer"}})
	}
	if !p.VoteType.Valid() {
		return nil, utils.NewValidationError(map[string][]string{"voteType": {"must be upvote or downvote"}})
	}

	var out *castOutcome
	err := l.store.WithTransaction(ctx, func(ctx context.Context) error {
		target, err := l.aggregate.LoadTarget(ctx, p.TargetID, p.TargetType)
		if err != nil {
			return err
		}

		existing, err := l.store.GetVote(ctx, userID, target.ID)
		if err != nil && !utils.IsErrorCode(err, utils.ErrNotFound) {
			return err
		}

		now := l.now().UTC()
		interaction := func(action models.InteractionAction, reverted bool) models.Interaction {
			return models.Interaction{
				ID:         uuid.New(),
				User:       userID,
				Action:     action,
				ActionID:   target.ID,
				ActionType: target.Type,
				Reverted:   reverted,
				CreatedAt:  now,
			}
		}

		o := &castOutcome{target: target}
		var counters models.Counters

		switch {
		case existing == nil:
			vote := &models.Vote{
				ID:         uuid.New(),
				Author:     userID,
				ActionID:   target.ID,
				ActionType: target.Type,
				VoteType:   p.VoteType,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := l.store.CreateVote(ctx, vote); err != nil {
				return err
			}
			if counters, err = l.aggregate.AdjustCount(ctx, target.ID, target.Type, p.VoteType.Counter(), 1); err != nil {
				return err
			}
			o.result.State = stateFor(p.VoteType)
			o.interactions = append(o.interactions, interaction(models.VoteAction(p.VoteType), false))

		case existing.VoteType == p.VoteType:
			if err := l.store.DeleteVote(ctx, existing.ID); err != nil {
				return err
			}
			if counters, err = l.aggregate.AdjustCount(ctx, target.ID, target.Type, p.VoteType.Counter(), -1); err != nil {
				return err
			}
			o.result.State = models.VoteStateNone
			o.interactions = append(o.interactions, interaction(models.VoteAction(p.VoteType), true))

		default:
			old := existing.VoteType
			if err := l.store.UpdateVoteType(ctx, existing.ID, p.VoteType); err != nil {
				return err
			}
			if _, err = l.aggregate.AdjustCount(ctx, target.ID, target.Type, old.Counter(), -1); err != nil {
				return err
			}
			if counters, err = l.aggregate.AdjustCount(ctx, target.ID, target.Type, p.VoteType.Counter(), 1); err != nil {
				return err
			}
			o.result.State = stateFor(p.VoteType)
			o.interactions = append(o.interactions,
				interaction(models.VoteAction(old), true),
				interaction(models.VoteAction(p.VoteType), false))
		}

		o.result.TargetID = target.ID
		o.result.TargetType = target.Type
		o.result.Upvotes = counters.Upvotes
		o.result.Downvotes = counters.Downvotes
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// State reports userID's current vote on a target.
func (l *VoteLedger) State(ctx context.Context, userID, targetID uuid.UUID) (models.VoteState, error) {
	vote, err := l.store.GetVote(ctx, userID, targetID)
	if utils.IsErrorCode(err, utils.ErrNotFound) {
		return models.VoteStateNone, nil
	}
	if err != nil {
		return "", err
	}
	return stateFor(vote.VoteType), nil
}

func stateFor(v models.VoteType) models.VoteState {
	if v == models.Upvote {
		return models.VoteStateUpvoted
	}
	return models.VoteStateDownvoted
}

// CastVote is the authenticated entry point to the vote ledger.
func (s *Service) CastVote(ctx context.Context, p CastVoteParams) (result *VoteResult, err error) {
	defer s.observe("cast_vote", time.Now(), &err)

	userID, err := session.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.votes.Cast(ctx, userID, p)
	if err != nil {
		return nil, err
	}

	for _, interaction := range out.interactions {
		s.record(ctx, interaction, out.target.AuthorID)
	}
	s.publish(out.target.QuestionID, VoteEvent{
		Type:       "vote",
		TargetID:   out.result.TargetID,
		TargetType: out.result.TargetType,
		Upvotes:    out.result.Upvotes,
		Downvotes:  out.result.Downvotes,
	})
	return &out.result, nil
}

// HasVoted reports the caller's vote on a target.
func (s *Service) HasVoted(ctx context.Context, targetID uuid.UUID, targetType models.TargetType) (models.VoteState, error) {
	userID, err := session.RequireUser(ctx)
	if err != nil {
		return "", err
	}
	if !targetType.Valid() {
		return "", utils.NewValidationError(map[string][]string{"targetType": {"must be question or answer"}})
	}
	return s.votes.State(ctx, userID, targetID)
}
