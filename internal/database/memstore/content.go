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

func copyQuestion(q models.Question) *models.Question {
	q.Tags = append([]uuid.UUID{}, q.Tags...)
	return &q
}

func (s *Store) CreateQuestion(ctx context.Context, question *models.Question) error {
	defer s.lock(ctx)()
	if _, exists := s.data.questions[question.ID]; exists {
		return utils.NewAppError(utils.ErrDuplicate, "create question: already exists", nil)
	}
	s.data.questions[question.ID] = *copyQuestion(*question)
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	defer s.rlock(ctx)()
	q, ok := s.data.questions[id]
	if !ok {
		return nil, utils.NewNotFoundError("Question")
	}
	return copyQuestion(q), nil
}

func (s *Store) UpdateQuestionContent(ctx context.Context, id uuid.UUID, title, content string) error {
	defer s.lock(ctx)()
	q, ok := s.data.questions[id]
	if !ok {
		return utils.NewNotFoundError("Question")
	}
	q.Title = title
	q.Content = content
	q.UpdatedAt = time.Now().UTC()
	s.data.questions[id] = q
	return nil
}

func (s *Store) SetQuestionTags(ctx context.Context, id uuid.UUID, tags []uuid.UUID) error {
	defer s.lock(ctx)()
	q, ok := s.data.questions[id]
	if !ok {
		return utils.NewNotFoundError("Question")
	}
	q.Tags = append([]uuid.UUID{}, tags...)
	s.data.questions[id] = q
	return nil
}

// counter returns a pointer to the named field; nil for unknown fields.
func questionCounter(q *models.Question, field models.CounterField) *int {
	switch field {
	case models.CounterUpvotes:
		return &q.Upvotes
	case models.CounterDownvotes:
		return &q.Downvotes
	case models.CounterAnswers:
		return &q.Answers
	case models.CounterViews:
		return &q.Views
	}
	return nil
}

func (s *Store) IncrementQuestionCounter(ctx context.Context, id uuid.UUID, field models.CounterField, delta int) (*models.Question, error) {
	defer s.lock(ctx)()
	q, ok := s.data.questions[id]
	if !ok {
		return nil, utils.NewNotFoundError("Question")
	}
	counter := questionCounter(&q, field)
	if counter == nil {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "unknown counter "+string(field), nil)
	}
	if *counter+delta < 0 {
		return nil, utils.NewNotFoundError("Question")
	}
	*counter += delta
	s.data.questions[id] = q
	return copyQuestion(q), nil
}

func questionLess(sortBy database.QuestionSort, a, b models.Question) bool {
	switch sortBy {
	case database.SortOldest:
		return olderFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	case database.SortMostVoted:
		if a.Upvotes != b.Upvotes {
			return a.Upvotes > b.Upvotes
		}
	case database.SortMostViewed:
		if a.Views != b.Views {
			return a.Views > b.Views
		}
	case database.SortMostAnswered:
		if a.Answers != b.Answers {
			return a.Answers > b.Answers
		}
	case database.SortPopular:
		if a.Upvotes != b.Upvotes {
			return a.Upvotes > b.Upvotes
		}
		if a.Views != b.Views {
			return a.Views > b.Views
		}
	}
	return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}

func (s *Store) ListQuestions(ctx context.Context, query database.QuestionQuery) ([]*models.Question, bool, error) {
	defer s.rlock(ctx)()

	var restrict map[uuid.UUID]bool
	if query.IDs != nil {
		restrict = idSet(query.IDs)
	}
	exclude := idSet(query.ExcludeIDs)
	tagFilter := idSet(query.TagIDs)

	var matched []models.Question
	for _, q := range s.data.questions {
		if restrict != nil && !restrict[q.ID] {
			continue
		}
		if exclude[q.ID] {
			continue
		}
		if query.Search != "" && !containsFold(q.Title, query.Search) && !containsFold(q.Content, query.Search) {
			continue
		}
		if query.Unanswered && q.Answers != 0 {
			continue
		}
		if query.AuthorID != uuid.Nil && q.Author != query.AuthorID {
			continue
		}
		if query.ExcludeAuthor != uuid.Nil && q.Author == query.ExcludeAuthor {
			continue
		}
		if len(tagFilter) > 0 {
			hit := false
			for _, t := range q.Tags {
				if tagFilter[t] {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
		}
		matched = append(matched, q)
	}

	sort.Slice(matched, func(i, j int) bool {
		return questionLess(query.Sort, matched[i], matched[j])
	})

	page, isNext := paginate(matched, query.Page, query.PageSize)
	out := make([]*models.Question, len(page))
	for i := range page {
		out[i] = copyQuestion(page[i])
	}
	return out, isNext, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	defer s.lock(ctx)()
	if _, ok := s.data.questions[id]; !ok {
		return utils.NewNotFoundError("Question")
	}
	delete(s.data.questions, id)
	return nil
}

func (s *Store) QuestionStatsByAuthor(ctx context.Context, author uuid.UUID) (models.ContentStats, error) {
	defer s.rlock(ctx)()
	var stats models.ContentStats
	for _, q := range s.data.questions {
		if q.Author == author {
			stats.Count++
			stats.Upvotes += int64(q.Upvotes)
			stats.Views += int64(q.Views)
		}
	}
	return stats, nil
}

func (s *Store) TopTagsByAuthor(ctx context.Context, author uuid.UUID, limit int) ([]models.TagCount, error) {
	defer s.rlock(ctx)()
	counts := make(map[uuid.UUID]int)
	for _, q := range s.data.questions {
		if q.Author != author {
			continue
		}
		for _, t := range q.Tags {
			counts[t]++
		}
	}

	out := make([]models.TagCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, models.TagCount{TagID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].TagID.String() < out[j].TagID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Answers

func (s *Store) CreateAnswer(ctx context.Context, answer *models.Answer) error {
	defer s.lock(ctx)()
	if _, exists := s.data.answers[answer.ID]; exists {
		return utils.NewAppError(utils.ErrDuplicate, "create answer: already exists", nil)
	}
	s.data.answers[answer.ID] = *answer
	return nil
}

func (s *Store) GetAnswer(ctx context.Context, id uuid.UUID) (*models.Answer, error) {
	defer s.rlock(ctx)()
	a, ok := s.data.answers[id]
	if !ok {
		return nil, utils.NewNotFoundError("Answer")
	}
	return &a, nil
}

func (s *Store) IncrementAnswerCounter(ctx context.Context, id uuid.UUID, field models.CounterField, delta int) (*models.Answer, error) {
	defer s.lock(ctx)()
	a, ok := s.data.answers[id]
	if !ok {
		return nil, utils.NewNotFoundError("Answer")
	}
	var counter *int
	switch field {
	case models.CounterUpvotes:
		counter = &a.Upvotes
	case models.CounterDownvotes:
		counter = &a.Downvotes
	default:
		return nil, utils.NewAppError(utils.ErrInvalidInput, "unknown counter "+string(field), nil)
	}
	if *counter+delta < 0 {
		return nil, utils.NewNotFoundError("Answer")
	}
	*counter += delta
	s.data.answers[id] = a
	return &a, nil
}

func (s *Store) ListAnswers(ctx context.Context, query database.AnswerQuery) ([]*models.Answer, bool, error) {
	defer s.rlock(ctx)()
	var matched []models.Answer
	for _, a := range s.data.answers {
		if query.QuestionID != uuid.Nil && a.Question != query.QuestionID {
			continue
		}
		if query.AuthorID != uuid.Nil && a.Author != query.AuthorID {
			continue
		}
		if query.Search != "" && !containsFold(a.Content, query.Search) {
			continue
		}
		matched = append(matched, a)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch query.Sort {
		case database.AnswerSortOldest:
			return olderFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
		case database.AnswerSortPopular:
			if a.Upvotes != b.Upvotes {
				return a.Upvotes > b.Upvotes
			}
		}
		return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})

	page, isNext := paginate(matched, query.Page, query.PageSize)
	out := make([]*models.Answer, len(page))
	for i := range page {
		out[i] = &page[i]
	}
	return out, isNext, nil
}

func (s *Store) DeleteAnswer(ctx context.Context, id uuid.UUID) error {
	defer s.lock(ctx)()
	if _, ok := s.data.answers[id]; !ok {
		return utils.NewNotFoundError("Answer")
	}
	delete(s.data.answers, id)
	return nil
}

func (s *Store) DeleteAnswersByQuestion(ctx context.Context, questionID uuid.UUID) ([]uuid.UUID, error) {
	defer s.lock(ctx)()
	var ids []uuid.UUID
	for id, a := range s.data.answers {
		if a.Question == questionID {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(s.data.answers, id)
	}
	return ids, nil
}

func (s *Store) AnswerStatsByAuthor(ctx context.Context, author uuid.UUID) (models.ContentStats, error) {
	defer s.rlock(ctx)()
	var stats models.ContentStats
	for _, a := range s.data.answers {
		if a.Author == author {
			stats.Count++
			stats.Upvotes += int64(a.Upvotes)
		}
	}
	return stats, nil
}
