// Package services holds the community core: the vote ledger, aggregate
// updater and tag reconciler, and the operations built on them.
package services

import (
	"context"
	"time"

	"devflow/internal/cache"
	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Recorder accepts interactions for asynchronous recording. authorID owns
// the content the interaction targets.
type Recorder interface {
	Record(ctx context.Context, interaction models.Interaction, authorID uuid.UUID)
}

// Publisher pushes live updates to clients watching a question.
type Publisher interface {
	Publish(questionID uuid.UUID, event interface{})
}

// Page is one page of a listing.
type Page[T any] struct {
	Items  []T  `json:"items"`
	IsNext bool `json:"isNext"`
}

type Deps struct {
	Store      database.Store
	Recorder   Recorder
	Publisher  Publisher
	Cache      cache.Cache
	CacheTTL   time.Duration
	Metrics    *utils.MetricsCollector
	Logger     *zap.Logger
	BcryptCost int
}

type Service struct {
	store      database.Store
	votes      *VoteLedger
	aggregate  *AggregateUpdater
	tags       *TagReconciler
	recorder   Recorder
	publisher  Publisher
	cache      cache.Cache
	cacheTTL   time.Duration
	metrics    *utils.MetricsCollector
	logger     *zap.Logger
	bcryptCost int
}

func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryCache()
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = time.Minute
	}
	if deps.BcryptCost == 0 {
		deps.BcryptCost = 12
	}
	if deps.BcryptCost < bcrypt.MinCost {
		deps.BcryptCost = bcrypt.MinCost
	}

	s := &Service{
		store:      deps.Store,
		recorder:   deps.Recorder,
		publisher:  deps.Publisher,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		metrics:    deps.Metrics,
		logger:     logger.Named("services"),
		bcryptCost: deps.BcryptCost,
	}
	s.aggregate = NewAggregateUpdater(deps.Store)
	s.tags = NewTagReconciler(deps.Store)
	s.votes = NewVoteLedger(deps.Store, s.aggregate)
	return s
}

// record hands an interaction to the recorder after the primary write committed.
func (s *Service) record(ctx context.Context, interaction models.Interaction, authorID uuid.UUID) {
	if s.recorder == nil {
		return
	}
	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now().UTC()
	}
	s.recorder.Record(ctx, interaction, authorID)
}

func (s *Service) publish(questionID uuid.UUID, event interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(questionID, event)
	}
}

// invalidate drops cached listings; failures only cost freshness.
func (s *Service) invalidate(ctx context.Context, prefixes ...string) {
	for _, prefix := range prefixes {
		if err := s.cache.DeletePrefix(ctx, prefix); err != nil {
			s.logger.Warn("Cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.AddOperationLatency(operation, time.Since(start))
	if err != nil && *err != nil {
		s.metrics.IncrementOperationErrors(operation)
	}
}

func ignoreNotFound(err error) error {
	if utils.IsErrorCode(err, utils.ErrNotFound) {
		return nil
	}
	return err
}
