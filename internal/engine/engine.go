package engine

import (
	"context"
	"fmt"
	"time"

	"devflow/internal/database"
	"devflow/internal/engine/actors"
	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine owns the actors running beside the request path.
type Engine struct {
	system           *actor.ActorSystem
	interactionActor *actor.PID
	logger           *zap.Logger
}

func NewEngine(system *actor.ActorSystem, store database.Store, metrics *utils.MetricsCollector, logger *zap.Logger, recorderRetries int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewInteractionActor(store, metrics, logger, recorderRetries)
	})

	return &Engine{
		system:           system,
		interactionActor: system.Root.Spawn(props),
		logger:           logger,
	}
}

// Record queues an interaction and returns immediately.
func (e *Engine) Record(ctx context.Context, interaction models.Interaction, authorID uuid.UUID) {
	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now().UTC()
	}
	e.system.Root.Send(e.interactionActor, &actors.RecordInteractionMsg{
		Interaction: interaction,
		AuthorID:    authorID,
	})
}

// Flush waits until every interaction queued so far has been handled.
func (e *Engine) Flush(timeout time.Duration) (*actors.FlushResult, error) {
	result, err := e.system.Root.RequestFuture(e.interactionActor, &actors.FlushMsg{}, timeout).Result()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "interaction recorder did not respond", err)
	}
	flushed, ok := result.(*actors.FlushResult)
	if !ok {
		return nil, fmt.Errorf("unexpected flush response %T", result)
	}
	return flushed, nil
}

// Shutdown drains the recorder's mailbox and stops it.
func (e *Engine) Shutdown() {
	if err := e.system.Root.PoisonFuture(e.interactionActor).Wait(); err != nil {
		e.logger.Warn("Interaction recorder did not stop cleanly", zap.Error(err))
	}
}
