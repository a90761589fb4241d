// internal/database/answer_repository.go
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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AnswerDocument represents the MongoDB schema for an answer.
type AnswerDocument struct {
	ID        string    `bson:"_id"`
	Question  string    `bson:"question"`
	Author    string    `bson:"author"`
	Content   string    `bson:"content"`
	Upvotes   int       `bson:"upvotes"`
	Downvotes int       `bson:"downvotes"`
	CreatedAt time.Time `bson:"createdat"`
	UpdatedAt time.Time `bson:"updatedat"`
}

func (doc *AnswerDocument) toModel() (*models.Answer, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid answer ID: %w", err)
	}
	questionID, err := uuid.Parse(doc.Question)
	if err != nil {
		return nil, fmt.Errorf("invalid question ID: %w", err)
	}
	author, err := uuid.Parse(doc.Author)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %w", err)
	}
	return &models.Answer{
		ID:        id,
		Question:  questionID,
		Author:    author,
		Content:   doc.Content,
		Upvotes:   doc.Upvotes,
		Downvotes: doc.Downvotes,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (m *MongoDB) CreateAnswer(ctx context.Context, answer *models.Answer) error {
	doc := &AnswerDocument{
		ID:        answer.ID.String(),
		Question:  answer.Question.String(),
		Author:    answer.Author.String(),
		Content:   answer.Content,
		Upvotes:   answer.Upvotes,
		Downvotes: answer.Downvotes,
		CreatedAt: answer.CreatedAt,
		UpdatedAt: answer.UpdatedAt,
	}
	_, err := m.Answers.InsertOne(ctx, doc)
	return mapError("create answer", err)
}

func (m *MongoDB) GetAnswer(ctx context.Context, id uuid.UUID) (*models.Answer, error) {
	var doc AnswerDocument
	err := m.Answers.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Answer")
	}
	if err != nil {
		return nil, mapError("get answer", err)
	}
	return doc.toModel()
}

func (m *MongoDB) IncrementAnswerCounter(ctx context.Context, id uuid.UUID, field models.CounterField, delta int) (*models.Answer, error) {
	update := bson.M{"$inc": bson.M{string(field): delta}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc AnswerDocument
	err := m.Answers.FindOneAndUpdate(ctx, counterFilter(id, field, delta), update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Answer")
	}
	if err != nil {
		return nil, mapError("increment answer counter", err)
	}
	return doc.toModel()
}

func (m *MongoDB) ListAnswers(ctx context.Context, query AnswerQuery) ([]*models.Answer, bool, error) {
	filter := bson.M{}
	if query.QuestionID != uuid.Nil {
		filter["question"] = query.QuestionID.String()
	}
	if query.AuthorID != uuid.Nil {
		filter["author"] = query.AuthorID.String()
	}
	if query.Search != "" {
		filter["content"] = containsRegex(query.Search)
	}

	var sort bson.D
	switch query.Sort {
	case AnswerSortOldest:
		sort = bson.D{{Key: "createdat", Value: 1}}
	case AnswerSortPopular:
		sort = bson.D{{Key: "upvotes", Value: -1}, {Key: "createdat", Value: -1}}
	default:
		sort = bson.D{{Key: "createdat", Value: -1}}
	}

	docs, isNext, err := findPage[AnswerDocument](ctx, m.Answers, filter, sort, query.Page, query.PageSize)
	if err != nil {
		return nil, false, mapError("list answers", err)
	}

	answers := make([]*models.Answer, 0, len(docs))
	for i := range docs {
		a, err := docs[i].toModel()
		if err != nil {
			m.logger.Sugar().Warnf("Error converting answer document: %v", err)
			continue
		}
		answers = append(answers, a)
	}
	return answers, isNext, nil
}

func (m *MongoDB) DeleteAnswer(ctx context.Context, id uuid.UUID) error {
	result, err := m.Answers.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return mapError("delete answer", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("Answer")
	}
	return nil
}

// DeleteAnswersByQuestion removes every answer of a question and returns their ids.
func (m *MongoDB) DeleteAnswersByQuestion(ctx context.Context, questionID uuid.UUID) ([]uuid.UUID, error) {
	filter := bson.M{"question": questionID.String()}
	cursor, err := m.Answers.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, mapError("find answers", err)
	}
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mapError("find answers", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if _, err := m.Answers.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, mapError("delete answers", err)
	}
	return parseIDs(ids)
}

func (m *MongoDB) AnswerStatsByAuthor(ctx context.Context, author uuid.UUID) (models.ContentStats, error) {
	stats, err := authorStats(ctx, m.Answers, author, false)
	return stats, mapError("answer stats", err)
}
