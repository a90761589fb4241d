package services

import (
	"context"
	"fmt"
	"strings"

	"devflow/internal/database"
	"devflow/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tagCachePrefix    = "tags:"
	searchCachePrefix = "search:"
)

type ListTagsParams struct {
	Query    string
	Filter   string // popular, recent, oldest or name
	Page     int
	PageSize int
}

type TagQuestionsParams struct {
	TagID    uuid.UUID
	Query    string
	Page     int
	PageSize int
}

type TagQuestions struct {
	Tag       *models.Tag            `json:"tag"`
	Questions *Page[*QuestionDetail] `json:"questions"`
}

// ListTags serves tag listings through the cache.
func (s *Service) ListTags(ctx context.Context, p ListTagsParams) (*Page[*models.Tag], error) {
	sort := database.TagSort(p.Filter)
	switch sort {
	case database.TagSortPopular, database.TagSortRecent, database.TagSortOldest, database.TagSortName:
	default:
		sort = database.TagSortPopular
	}
	skip, limit := database.Paginate(p.Page, p.PageSize)
	key := fmt.Sprintf("%slist:%s:%s:%d:%d", tagCachePrefix, sort, strings.ToLower(p.Query), skip, limit)

	var cached Page[*models.Tag]
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.Warn("Tag cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		return &cached, nil
	}

	tags, isNext, err := s.store.ListTags(ctx, database.TagQuery{
		Search:   p.Query,
		Sort:     sort,
		Page:     p.Page,
		PageSize: p.PageSize,
	})
	if err != nil {
		return nil, err
	}
	page := &Page[*models.Tag]{Items: tags, IsNext: isNext}
	if err := s.cache.Set(ctx, key, page, s.cacheTTL); err != nil {
		s.logger.Warn("Tag cache write failed", zap.String("key", key), zap.Error(err))
	}
	return page, nil
}

func (s *Service) GetTagQuestions(ctx context.Context, p TagQuestionsParams) (*TagQuestions, error) {
	tag, err := s.store.GetTag(ctx, p.TagID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionPage(ctx, database.QuestionQuery{
		Search:   p.Query,
		Sort:     database.SortNewest,
		TagIDs:   []uuid.UUID{tag.ID},
		Page:     p.Page,
		PageSize: p.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return &TagQuestions{Tag: tag, Questions: questions}, nil
}
