// internal/database/interaction_repository.go
package database

import (
	"context"
	"time"

	"devflow/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InteractionDocument represents the MongoDB schema for an audit event.
type InteractionDocument struct {
	ID         string    `bson:"_id"`
	User       string    `bson:"user"`
	Action     string    `bson:"action"`
	ActionID   string    `bson:"actionid"`
	ActionType string    `bson:"actiontype"`
	Reverted   bool      `bson:"reverted,omitempty"`
	CreatedAt  time.Time `bson:"createdat"`
}

func (m *MongoDB) CreateInteraction(ctx context.Context, interaction *models.Interaction) error {
	doc := &InteractionDocument{
		ID:         interaction.ID.String(),
		User:       interaction.User.String(),
		Action:     string(interaction.Action),
		ActionID:   interaction.ActionID.String(),
		ActionType: string(interaction.ActionType),
		Reverted:   interaction.Reverted,
		CreatedAt:  interaction.CreatedAt,
	}
	_, err := m.Interactions.InsertOne(ctx, doc)
	return mapError("create interaction", err)
}

func (m *MongoDB) ListInteractions(ctx context.Context, query InteractionQuery) ([]*models.Interaction, error) {
	filter := bson.M{"user": query.UserID.String()}
	if len(query.Actions) > 0 {
		actions := make([]string, len(query.Actions))
		for i, a := range query.Actions {
			actions[i] = string(a)
		}
		filter["action"] = bson.M{"$in": actions}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdat", Value: -1}})
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}

	cursor, err := m.Interactions.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError("list interactions", err)
	}
	defer cursor.Close(ctx)

	var docs []InteractionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError("list interactions", err)
	}

	out := make([]*models.Interaction, 0, len(docs))
	for _, doc := range docs {
		id, err1 := uuid.Parse(doc.ID)
		user, err2 := uuid.Parse(doc.User)
		actionID, err3 := uuid.Parse(doc.ActionID)
		if err1 != nil || err2 != nil || err3 != nil {
			m.logger.Sugar().Warnf("Skipping malformed interaction %s", doc.ID)
			continue
		}
		out = append(out, &models.Interaction{
			ID:         id,
			User:       user,
			Action:     models.InteractionAction(doc.Action),
			ActionID:   actionID,
			ActionType: models.TargetType(doc.ActionType),
			Reverted:   doc.Reverted,
			CreatedAt:  doc.CreatedAt,
		})
	}
	return out, nil
}

func (m *MongoDB) DeleteInteractionsByTargets(ctx context.Context, actionIDs []uuid.UUID) (int64, error) {
	if len(actionIDs) == 0 {
		return 0, nil
	}
	result, err := m.Interactions.DeleteMany(ctx, bson.M{"actionid": bson.M{"$in": idStrings(actionIDs)}})
	if err != nil {
		return 0, mapError("delete interactions", err)
	}
	return result.DeletedCount, nil
}
