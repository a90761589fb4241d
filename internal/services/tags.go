package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
)

// NormalizeTags trims names, drops empties and removes case-insensitive
// duplicates. The first spelling of a name is kept.
func NormalizeTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := database.NormalizeTagName(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

const maxQuestionTags = 3

// checkTagCount rejects tag lists that normalize to nothing or to too many names.
func checkTagCount(names []string) error {
	if len(names) == 0 {
		return utils.NewValidationError(map[string][]string{"tags": {"must contain at least one non-blank tag"}})
	}
	if len(names) > maxQuestionTags {
		return utils.NewValidationError(map[string][]string{"tags": {fmt.Sprintf("must contain at most %d items", maxQuestionTags)}})
	}
	return nil
}

// difference returns the names in a that are not in b, compared case-insensitively.
func difference(a, b []string) []string {
	exclude := make(map[string]struct{}, len(b))
	for _, name := range b {
		exclude[database.NormalizeTagName(name)] = struct{}{}
	}
	var out []string
	for _, name := range a {
		if _, ok := exclude[database.NormalizeTagName(name)]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// TagReconciler keeps Tag.Questions equal to the number of join rows for each
// tag. Every method runs in a transaction, joining the caller's if present.
type TagReconciler struct {
	store database.Store
	now   func() time.Time
}

func NewTagReconciler(store database.Store) *TagReconciler {
	return &TagReconciler{store: store, now: time.Now}
}

// ReconcileTags attaches names to a freshly created question and returns the
// tag ids in the order given.
func (r *TagReconciler) ReconcileTags(ctx context.Context, questionID uuid.UUID, names []string) ([]uuid.UUID, error) {
	names = NormalizeTags(names)
	if err := checkTagCount(names); err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	err := r.store.WithTransaction(ctx, func(ctx context.Context) error {
		added, err := r.attach(ctx, questionID, names, nil)
		if err != nil {
			return err
		}
		ids = added
		return r.store.SetQuestionTags(ctx, questionID, ids)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ReconcileTagDelta moves a question from oldNames to newNames, touching only
// the tags that changed.
func (r *TagReconciler) ReconcileTagDelta(ctx context.Context, questionID uuid.UUID, oldNames, newNames []string) ([]uuid.UUID, error) {
	oldNames = NormalizeTags(oldNames)
	newNames = NormalizeTags(newNames)
	if err := checkTagCount(newNames); err != nil {
		return nil, err
	}
	toAdd := difference(newNames, oldNames)
	toRemove := difference(oldNames, newNames)

	var ids []uuid.UUID
	err := r.store.WithTransaction(ctx, func(ctx context.Context) error {
		question, err := r.store.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		current := make(map[uuid.UUID]struct{}, len(question.Tags))
		for _, id := range question.Tags {
			current[id] = struct{}{}
		}

		removed := make(map[uuid.UUID]struct{}, len(toRemove))
		removedIDs := make([]uuid.UUID, 0, len(toRemove))
		for _, name := range toRemove {
			tag, err := r.store.GetTagByName(ctx, name)
			if err != nil {
				return fatalIfNotFound("tag "+name, err)
			}
			if _, ok := current[tag.ID]; !ok {
				return utils.NewConflictFatalError("question is not tagged "+name, nil)
			}
			if _, err := r.store.IncrementTagQuestions(ctx, tag.ID, -1); err != nil {
				return fatalIfNotFound("tag "+name+" question count", err)
			}
			removed[tag.ID] = struct{}{}
			removedIDs = append(removedIDs, tag.ID)
		}
		if len(removedIDs) > 0 {
			n, err := r.store.DeleteTagQuestions(ctx, questionID, removedIDs)
			if err != nil {
				return err
			}
			if n != int64(len(removedIDs)) {
				return utils.NewConflictFatalError("tag links out of step with question tags", nil)
			}
		}

		added, err := r.attach(ctx, questionID, toAdd, current)
		if err != nil {
			return err
		}

		next := make([]uuid.UUID, 0, len(question.Tags)+len(added))
		for _, id := range question.Tags {
			if _, gone := removed[id]; !gone {
				next = append(next, id)
			}
		}
		next = append(next, added...)
		ids = next
		return r.store.SetQuestionTags(ctx, questionID, next)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RemoveQuestionTags detaches every tag from a question that is being deleted.
func (r *TagReconciler) RemoveQuestionTags(ctx context.Context, question *models.Question) error {
	return r.store.WithTransaction(ctx, func(ctx context.Context) error {
		for _, id := range question.Tags {
			if _, err := r.store.IncrementTagQuestions(ctx, id, -1); err != nil {
				return fatalIfNotFound("tag "+id.String()+" question count", err)
			}
		}
		n, err := r.store.DeleteTagQuestions(ctx, question.ID, nil)
		if err != nil {
			return err
		}
		if n != int64(len(question.Tags)) {
			return utils.NewConflictFatalError("tag links out of step with question tags", nil)
		}
		return nil
	})
}

// attach upserts each name, bumps its count and links it to the question.
// Tags already in skip are left alone.
func (r *TagReconciler) attach(ctx context.Context, questionID uuid.UUID, names []string, skip map[uuid.UUID]struct{}) ([]uuid.UUID, error) {
	now := r.now().UTC()
	ids := make([]uuid.UUID, 0, len(names))
	joins := make([]*models.TagQuestion, 0, len(names))
	for _, name := range names {
		tag, err := r.store.UpsertTag(ctx, name)
		if err != nil {
			return nil, err
		}
		if _, ok := skip[tag.ID]; ok {
			continue
		}
		if _, err := r.store.IncrementTagQuestions(ctx, tag.ID, 1); err != nil {
			return nil, fatalIfNotFound("tag "+name+" question count", err)
		}
		ids = append(ids, tag.ID)
		joins = append(joins, &models.TagQuestion{
			ID:        uuid.New(),
			Tag:       tag.ID,
			Question:  questionID,
			CreatedAt: now,
		})
	}
	if len(joins) > 0 {
		if err := r.store.CreateTagQuestions(ctx, joins); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
