package actors

import (
	stdctx "context"
	"time"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/reputation"
	"devflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	// RecordInteractionMsg appends an interaction and applies its reputation.
	// AuthorID owns the content the interaction targets.
	RecordInteractionMsg struct {
		Interaction models.Interaction
		AuthorID    uuid.UUID
	}

	// FlushMsg is answered once every message queued before it is handled.
	FlushMsg struct{}

	FlushResult struct {
		Processed uint64
		Failed    uint64
	}
)

// InteractionActor is the asynchronous interaction recorder. Failures are
// logged and dropped; they never reach the operation that queued them.
type InteractionActor struct {
	store      database.Store
	metrics    *utils.MetricsCollector
	logger     *zap.Logger
	maxRetries int
	timeout    time.Duration

	processed uint64
	failed    uint64
}

func NewInteractionActor(store database.Store, metrics *utils.MetricsCollector, logger *zap.Logger, maxRetries int) actor.Actor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InteractionActor{
		store:      store,
		metrics:    metrics,
		logger:     logger.Named("interaction_actor"),
		maxRetries: maxRetries,
		timeout:    5 * time.Second,
	}
}

func (a *InteractionActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.logger.Debug("Interaction recorder started")
	case *actor.Stopping:
		a.logger.Info("Interaction recorder stopping",
			zap.Uint64("processed", a.processed),
			zap.Uint64("failed", a.failed))
	case *RecordInteractionMsg:
		a.handleRecord(msg)
	case *FlushMsg:
		context.Respond(&FlushResult{Processed: a.processed, Failed: a.failed})
	}
}

func (a *InteractionActor) handleRecord(msg *RecordInteractionMsg) {
	startTime := time.Now()
	in := msg.Interaction

	operation := func() error {
		ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
		defer cancel()

		err := a.store.WithTransaction(ctx, func(ctx stdctx.Context) error {
			if err := a.store.CreateInteraction(ctx, &in); err != nil {
				return err
			}
			return reputation.Apply(ctx, a.store, reputation.Input{
				Action:      in.Action,
				ActionType:  in.ActionType,
				PerformerID: in.User,
				AuthorID:    msg.AuthorID,
				Reverted:    in.Reverted,
			})
		})
		if err != nil && !utils.IsErrorCode(err, utils.ErrDatabase) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	err := backoff.RetryNotify(
		operation,
		backoff.WithMaxRetries(b, uint64(a.maxRetries)),
		func(err error, d time.Duration) {
			a.logger.Warn("Recording interaction failed, retrying",
				zap.String("interaction_id", in.ID.String()),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)

	if a.metrics != nil {
		a.metrics.AddOperationLatency("record_interaction", time.Since(startTime))
	}

	if err != nil {
		a.failed++
		if a.metrics != nil {
			a.metrics.IncrementOperationErrors("record_interaction")
		}
		a.logger.Error("Dropping interaction",
			zap.String("interaction_id", in.ID.String()),
			zap.String("action", string(in.Action)),
			zap.String("user_id", in.User.String()),
			zap.String("action_id", in.ActionID.String()),
			zap.Error(err))
		return
	}
	a.processed++
}
