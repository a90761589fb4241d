// Package reputation derives reputation changes from interactions.
package reputation

import (
	"context"

	"devflow/internal/models"

	"github.com/google/uuid"
)

// Points is one row of the point table.
type Points struct {
	Performer int
	Author    int
}

// PointsFor returns the row for an action on a target type. Actions without a
// row (view, bookmark, edit, search) report false.
func PointsFor(action models.InteractionAction, target models.TargetType) (Points, bool) {
	switch action {
	case models.ActionUpvote:
		return Points{Performer: 2, Author: 10}, true
	case models.ActionDownvote:
		return Points{Performer: -1, Author: -2}, true
	case models.ActionPost:
		if target == models.TargetAnswer {
			return Points{Author: 10}, true
		}
		return Points{Author: 5}, true
	case models.ActionDelete:
		if target == models.TargetAnswer {
			return Points{Author: -10}, true
		}
		return Points{Author: -5}, true
	}
	return Points{}, false
}

// Input describes one interaction to score.
type Input struct {
	Action      models.InteractionAction
	ActionType  models.TargetType
	PerformerID uuid.UUID
	AuthorID    uuid.UUID
	Reverted    bool // undo of an earlier vote: the row is negated
}

// Deltas computes the per-user changes for in. When performer and author are
// the same user only the author delta applies.
func Deltas(in Input) []models.ReputationDelta {
	points, ok := PointsFor(in.Action, in.ActionType)
	if !ok {
		return nil
	}
	if in.Reverted {
		points = Points{Performer: -points.Performer, Author: -points.Author}
	}

	if in.PerformerID == in.AuthorID {
		if points.Author == 0 {
			return nil
		}
		return []models.ReputationDelta{{UserID: in.AuthorID, Delta: points.Author}}
	}

	var deltas []models.ReputationDelta
	if points.Performer != 0 && in.PerformerID != uuid.Nil {
		deltas = append(deltas, models.ReputationDelta{UserID: in.PerformerID, Delta: points.Performer})
	}
	if points.Author != 0 && in.AuthorID != uuid.Nil {
		deltas = append(deltas, models.ReputationDelta{UserID: in.AuthorID, Delta: points.Author})
	}
	return deltas
}

// Writer applies a batch of reputation deltas atomically.
type Writer interface {
	ApplyReputationDeltas(ctx context.Context, deltas []models.ReputationDelta) error
}

// Apply scores in and writes the result as a single batch.
func Apply(ctx context.Context, w Writer, in Input) error {
	deltas := Deltas(in)
	if len(deltas) == 0 {
		return nil
	}
	return w.ApplyReputationDeltas(ctx, deltas)
}
