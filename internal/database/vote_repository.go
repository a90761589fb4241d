// internal/database/vote_repository.go
package database

import (
	"context"
	"fmt"
	"time"

	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// VoteDocument represents the MongoDB schema for a vote. (author, actionid)
// carries a unique index.
type VoteDocument struct {
	ID         string    `bson:"_id"`
	Author     string    `bson:"author"`
	ActionID   string    `bson:"actionid"`
	ActionType string    `bson:"actiontype"`
	VoteType   string    `bson:"votetype"`
	CreatedAt  time.Time `bson:"createdat"`
	UpdatedAt  time.Time `bson:"updatedat"`
}

func (doc *VoteDocument) toModel() (*models.Vote, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid vote ID: %w", err)
	}
	author, err := uuid.Parse(doc.Author)
	if err != nil {
		return nil, fmt.Errorf("invalid vote author: %w", err)
	}
	actionID, err := uuid.Parse(doc.ActionID)
	if err != nil {
		return nil, fmt.Errorf("invalid vote target: %w", err)
	}
	return &models.Vote{
		ID:         id,
		Author:     author,
		ActionID:   actionID,
		ActionType: models.TargetType(doc.ActionType),
		VoteType:   models.VoteType(doc.VoteType),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func (m *MongoDB) CreateVote(ctx context.Context, vote *models.Vote) error {
	doc := &VoteDocument{
		ID:         vote.ID.String(),
		Author:     vote.Author.String(),
		ActionID:   vote.ActionID.String(),
		ActionType: string(vote.ActionType),
		VoteType:   string(vote.VoteType),
		CreatedAt:  vote.CreatedAt,
		UpdatedAt:  vote.UpdatedAt,
	}
	_, err := m.Votes.InsertOne(ctx, doc)
	return mapError("create vote", err)
}

func (m *MongoDB) GetVote(ctx context.Context, author, actionID uuid.UUID) (*models.Vote, error) {
	var doc VoteDocument
	err := m.Votes.FindOne(ctx, bson.M{
		"author":   author.String(),
		"actionid": actionID.String(),
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Vote")
	}
	if err != nil {
		return nil, mapError("get vote", err)
	}
	return doc.toModel()
}

func (m *MongoDB) UpdateVoteType(ctx context.Context, id uuid.UUID, voteType models.VoteType) error {
	update := bson.M{"$set": bson.M{
		"votetype":  string(voteType),
		"updatedat": time.Now().UTC(),
	}}
	result, err := m.Votes.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return mapError("update vote", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("Vote")
	}
	return nil
}

func (m *MongoDB) DeleteVote(ctx context.Context, id uuid.UUID) error {
	result, err := m.Votes.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return mapError("delete vote", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("Vote")
	}
	return nil
}

func (m *MongoDB) DeleteVotesByTargets(ctx context.Context, actionIDs []uuid.UUID) (int64, error) {
	if len(actionIDs) == 0 {
		return 0, nil
	}
	result, err := m.Votes.DeleteMany(ctx, bson.M{"actionid": bson.M{"$in": idStrings(actionIDs)}})
	if err != nil {
		return 0, mapError("delete votes", err)
	}
	return result.DeletedCount, nil
}

func (m *MongoDB) CountVotes(ctx context.Context, author, actionID uuid.UUID) (int64, error) {
	n, err := m.Votes.CountDocuments(ctx, bson.M{
		"author":   author.String(),
		"actionid": actionID.String(),
	})
	return n, mapError("count votes", err)
}
