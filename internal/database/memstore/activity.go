package memstore

import (
	"context"
	"sort"
	"time"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
)

// Votes

func (s *Store) CreateVote(ctx context.Context, vote *models.Vote) error {
	defer s.lock(ctx)()
	for _, v := range s.data.votes {
		if v.Author == vote.Author && v.ActionID == vote.ActionID {
			return utils.NewAppError(utils.ErrDuplicate, "create vote: already exists", nil)
		}
	}
	s.data.votes[vote.ID] = *vote
	return nil
}

func (s *Store) GetVote(ctx context.Context, author, actionID uuid.UUID) (*models.Vote, error) {
	defer s.rlock(ctx)()
	for _, v := range s.data.votes {
		if v.Author == author && v.ActionID == actionID {
			v := v
			return &v, nil
		}
	}
	return nil, utils.NewNotFoundError("Vote")
}

func (s *Store) UpdateVoteType(ctx context.Context, id uuid.UUID, voteType models.VoteType) error {
	defer s.lock(ctx)()
	v, ok := s.data.votes[id]
	if !ok {
		return utils.NewNotFoundError("Vote")
	}
	v.VoteType = voteType
	v.UpdatedAt = time.Now().UTC()
	s.data.votes[id] = v
	return nil
}

func (s *Store) DeleteVote(ctx context.Context, id uuid.UUID) error {
	defer s.lock(ctx)()
	if _, ok := s.data.votes[id]; !ok {
		return utils.NewNotFoundError("Vote")
	}
	delete(s.data.votes, id)
	return nil
}

func (s *Store) DeleteVotesByTargets(ctx context.Context, actionIDs []uuid.UUID) (int64, error) {
	defer s.lock(ctx)()
	targets := idSet(actionIDs)
	var n int64
	for id, v := range s.data.votes {
		if targets[v.ActionID] {
			delete(s.data.votes, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountVotes(ctx context.Context, author, actionID uuid.UUID) (int64, error) {
	defer s.rlock(ctx)()
	var n int64
	for _, v := range s.data.votes {
		if v.Author == author && v.ActionID == actionID {
			n++
		}
	}
	return n, nil
}

// Interactions

func (s *Store) CreateInteraction(ctx context.Context, interaction *models.Interaction) error {
	defer s.lock(ctx)()
	s.data.interactions = append(s.data.interactions, *interaction)
	return nil
}

func (s *Store) ListInteractions(ctx context.Context, query database.InteractionQuery) ([]*models.Interaction, error) {
	defer s.rlock(ctx)()
	actions := make(map[models.InteractionAction]bool, len(query.Actions))
	for _, a := range query.Actions {
		actions[a] = true
	}

	var out []*models.Interaction
	// Appended in time order; walk backwards for most recent first.
	for i := len(s.data.interactions) - 1; i >= 0; i-- {
		in := s.data.interactions[i]
		if in.User != query.UserID {
			continue
		}
		if len(actions) > 0 && !actions[in.Action] {
			continue
		}
		out = append(out, &in)
		if query.Limit > 0 && len(out) == query.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) DeleteInteractionsByTargets(ctx context.Context, actionIDs []uuid.UUID) (int64, error) {
	defer s.lock(ctx)()
	targets := idSet(actionIDs)
	kept := s.data.interactions[:0:0]
	var n int64
	for _, in := range s.data.interactions {
		if targets[in.ActionID] {
			n++
			continue
		}
		kept = append(kept, in)
	}
	s.data.interactions = kept
	return n, nil
}

// Collections

func (s *Store) CreateCollection(ctx context.Context, collection *models.Collection) error {
	defer s.lock(ctx)()
	for _, c := range s.data.collections {
		if c.Author == collection.Author && c.Question == collection.Question {
			return utils.NewAppError(utils.ErrDuplicate, "save question: already exists", nil)
		}
	}
	s.data.collections[collection.ID] = *collection
	return nil
}

func (s *Store) GetCollection(ctx context.Context, author, questionID uuid.UUID) (*models.Collection, error) {
	defer s.rlock(ctx)()
	for _, c := range s.data.collections {
		if c.Author == author && c.Question == questionID {
			c := c
			return &c, nil
		}
	}
	return nil, utils.NewNotFoundError("Collection")
}

func (s *Store) DeleteCollection(ctx context.Context, id uuid.UUID) error {
	defer s.lock(ctx)()
	if _, ok := s.data.collections[id]; !ok {
		return utils.NewNotFoundError("Collection")
	}
	delete(s.data.collections, id)
	return nil
}

func (s *Store) DeleteCollectionsByQuestion(ctx context.Context, questionID uuid.UUID) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for id, c := range s.data.collections {
		if c.Question == questionID {
			delete(s.data.collections, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListCollections(ctx context.Context, author uuid.UUID) ([]*models.Collection, error) {
	defer s.rlock(ctx)()
	var matched []models.Collection
	for _, c := range s.data.collections {
		if c.Author == author {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})
	out := make([]*models.Collection, len(matched))
	for i := range matched {
		out[i] = &matched[i]
	}
	return out, nil
}
