package services

import (
	"context"
	"fmt"
	"strings"

	"devflow/internal/database"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GlobalSearchParams struct {
	Query string
	Type  string // question, answer, user, tag or empty for all
}

// SearchResult is one hit. ID is the question for answer hits.
type SearchResult struct {
	Title string    `json:"title"`
	Type  string    `json:"type"`
	ID    uuid.UUID `json:"id"`
}

const (
	searchPerType  = 4
	searchFiltered = 8
)

var searchTypes = []string{"question", "answer", "user", "tag"}

// GlobalSearch looks across questions, answers, users and tags.
func (s *Service) GlobalSearch(ctx context.Context, p GlobalSearchParams) ([]SearchResult, error) {
	typ := strings.ToLower(p.Type)
	if typ != "" && !contains(searchTypes, typ) {
		return nil, utils.NewValidationError(map[string][]string{"type": {"must be one of question answer user tag"}})
	}
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return []SearchResult{}, nil
	}

	key := fmt.Sprintf("%s%s:%s", searchCachePrefix, typ, strings.ToLower(query))
	var cached []SearchResult
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.Warn("Search cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		return cached, nil
	}

	types := searchTypes
	limit := searchPerType
	if typ != "" {
		types = []string{typ}
		limit = searchFiltered
	}

	results := []SearchResult{}
	for _, t := range types {
		hits, err := s.searchType(ctx, t, query, limit)
		if err != nil {
			return nil, err
		}
		results = append(results, hits...)
	}

	if err := s.cache.Set(ctx, key, results, s.cacheTTL); err != nil {
		s.logger.Warn("Search cache write failed", zap.String("key", key), zap.Error(err))
	}
	return results, nil
}

func (s *Service) searchType(ctx context.Context, typ, query string, limit int) ([]SearchResult, error) {
	var out []SearchResult
	switch typ {
	case "question":
		items, _, err := s.store.ListQuestions(ctx, database.QuestionQuery{Search: query, Sort: database.SortNewest, PageSize: limit})
		if err != nil {
			return nil, err
		}
		for _, q := range items {
			out = append(out, SearchResult{Title: q.Title, Type: typ, ID: q.ID})
		}
	case "answer":
		items, _, err := s.store.ListAnswers(ctx, database.AnswerQuery{Search: query, Sort: database.AnswerSortLatest, PageSize: limit})
		if err != nil {
			return nil, err
		}
		for _, a := range items {
			out = append(out, SearchResult{Title: "Answers containing " + query, Type: typ, ID: a.Question})
		}
	case "user":
		items, _, err := s.store.ListUsers(ctx, database.UserQuery{Search: query, Sort: database.UserSortNewest, PageSize: limit})
		if err != nil {
			return nil, err
		}
		for _, u := range items {
			out = append(out, SearchResult{Title: u.Name, Type: typ, ID: u.ID})
		}
	case "tag":
		items, _, err := s.store.ListTags(ctx, database.TagQuery{Search: query, Sort: database.TagSortPopular, PageSize: limit})
		if err != nil {
			return nil, err
		}
		for _, t := range items {
			out = append(out, SearchResult{Title: t.Name, Type: typ, ID: t.ID})
		}
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
