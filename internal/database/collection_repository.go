// internal/database/collection_repository.go
package database

import (
	"context"
	"time"

	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionDocument marks a question saved by a user.
type CollectionDocument struct {
	ID        string    `bson:"_id"`
	Author    string    `bson:"author"`
	Question  string    `bson:"question"`
	CreatedAt time.Time `bson:"createdat"`
}

func (doc *CollectionDocument) toModel() (*models.Collection, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}
	author, err := uuid.Parse(doc.Author)
	if err != nil {
		return nil, err
	}
	question, err := uuid.Parse(doc.Question)
	if err != nil {
		return nil, err
	}
	return &models.Collection{ID: id, Author: author, Question: question, CreatedAt: doc.CreatedAt}, nil
}

func (m *MongoDB) CreateCollection(ctx context.Context, collection *models.Collection) error {
	doc := &CollectionDocument{
		ID:        collection.ID.String(),
		Author:    collection.Author.String(),
		Question:  collection.Question.String(),
		CreatedAt: collection.CreatedAt,
	}
	_, err := m.Collections.InsertOne(ctx, doc)
	return mapError("save question", err)
}

func (m *MongoDB) GetCollection(ctx context.Context, author, questionID uuid.UUID) (*models.Collection, error) {
	var doc CollectionDocument
	err := m.Collections.FindOne(ctx, bson.M{
		"author":   author.String(),
		"question": questionID.String(),
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Collection")
	}
	if err != nil {
		return nil, mapError("get collection", err)
	}
	return doc.toModel()
}

func (m *MongoDB) DeleteCollection(ctx context.Context, id uuid.UUID) error {
	result, err := m.Collections.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return mapError("delete collection", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("Collection")
	}
	return nil
}

func (m *MongoDB) DeleteCollectionsByQuestion(ctx context.Context, questionID uuid.UUID) (int64, error) {
	result, err := m.Collections.DeleteMany(ctx, bson.M{"question": questionID.String()})
	if err != nil {
		return 0, mapError("delete collections", err)
	}
	return result.DeletedCount, nil
}

func (m *MongoDB) ListCollections(ctx context.Context, author uuid.UUID) ([]*models.Collection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdat", Value: -1}})
	cursor, err := m.Collections.Find(ctx, bson.M{"author": author.String()}, opts)
	if err != nil {
		return nil, mapError("list collections", err)
	}
	defer cursor.Close(ctx)

	var docs []CollectionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError("list collections", err)
	}

	out := make([]*models.Collection, 0, len(docs))
	for i := range docs {
		c, err := docs[i].toModel()
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
