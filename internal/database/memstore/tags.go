package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
)

func (s *Store) UpsertTag(ctx context.Context, name string) (*models.Tag, error) {
	defer s.lock(ctx)()
	normalized := database.NormalizeTagName(name)
	for _, t := range s.data.tags {
		if t.NormalizedName == normalized {
			t := t
			return &t, nil
		}
	}
	tag := models.Tag{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(name),
		NormalizedName: normalized,
		CreatedAt:      time.Now().UTC(),
	}
	s.data.tags[tag.ID] = tag
	return &tag, nil
}

func (s *Store) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	defer s.rlock(ctx)()
	t, ok := s.data.tags[id]
	if !ok {
		return nil, utils.NewNotFoundError("Tag")
	}
	return &t, nil
}

func (s *Store) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	defer s.rlock(ctx)()
	normalized := database.NormalizeTagName(name)
	for _, t := range s.data.tags {
		if t.NormalizedName == normalized {
			t := t
			return &t, nil
		}
	}
	return nil, utils.NewNotFoundError("Tag")
}

func (s *Store) GetTags(ctx context.Context, ids []uuid.UUID) ([]*models.Tag, error) {
	defer s.rlock(ctx)()
	out := make([]*models.Tag, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.data.tags[id]; ok {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

func (s *Store) IncrementTagQuestions(ctx context.Context, id uuid.UUID, delta int) (*models.Tag, error) {
	defer s.lock(ctx)()
	t, ok := s.data.tags[id]
	if !ok || t.Questions+delta < 0 {
		return nil, utils.NewNotFoundError("Tag")
	}
	t.Questions += delta
	s.data.tags[id] = t
	return &t, nil
}

func (s *Store) ListTags(ctx context.Context, query database.TagQuery) ([]*models.Tag, bool, error) {
	defer s.rlock(ctx)()
	var matched []models.Tag
	for _, t := range s.data.tags {
		if query.Search != "" && !containsFold(t.Name, query.Search) {
			continue
		}
		matched = append(matched, t)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch query.Sort {
		case database.TagSortRecent:
			return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
		case database.TagSortOldest:
			return olderFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
		case database.TagSortName:
			return a.NormalizedName < b.NormalizedName
		}
		if a.Questions != b.Questions {
			return a.Questions > b.Questions
		}
		return a.NormalizedName < b.NormalizedName
	})

	page, isNext := paginate(matched, query.Page, query.PageSize)
	out := make([]*models.Tag, len(page))
	for i := range page {
		out[i] = &page[i]
	}
	return out, isNext, nil
}

func (s *Store) CreateTagQuestions(ctx context.Context, joins []*models.TagQuestion) error {
	defer s.lock(ctx)()
	for _, j := range joins {
		for _, existing := range s.data.tagQuestions {
			if existing.Tag == j.Tag && existing.Question == j.Question {
				return utils.NewAppError(utils.ErrDuplicate, "create tag joins: already exists", nil)
			}
		}
		s.data.tagQuestions[j.ID] = *j
	}
	return nil
}

func (s *Store) DeleteTagQuestions(ctx context.Context, questionID uuid.UUID, tagIDs []uuid.UUID) (int64, error) {
	defer s.lock(ctx)()
	only := idSet(tagIDs)
	var n int64
	for id, j := range s.data.tagQuestions {
		if j.Question != questionID {
			continue
		}
		if len(only) > 0 && !only[j.Tag] {
			continue
		}
		delete(s.data.tagQuestions, id)
		n++
	}
	return n, nil
}

func (s *Store) CountTagQuestions(ctx context.Context, tagID uuid.UUID) (int64, error) {
	defer s.rlock(ctx)()
	var n int64
	for _, j := range s.data.tagQuestions {
		if j.Tag == tagID {
			n++
		}
	}
	return n, nil
}
