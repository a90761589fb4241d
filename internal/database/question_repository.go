// internal/database/question_repository.go
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

// QuestionDocument represents the MongoDB schema for a question.
type QuestionDocument struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content"`
	Tags      []string  `bson:"tags"`
	Author    string    `bson:"author"`
	Upvotes   int       `bson:"upvotes"`
	Downvotes int       `bson:"downvotes"`
	Answers   int       `bson:"answers"`
	Views     int       `bson:"views"`
	CreatedAt time.Time `bson:"createdat"`
	UpdatedAt time.Time `bson:"updatedat"`
}

func questionToDocument(q *models.Question) *QuestionDocument {
	return &QuestionDocument{
		ID:        q.ID.String(),
		Title:     q.Title,
		Content:   q.Content,
		Tags:      idStrings(q.Tags),
		Author:    q.Author.String(),
		Upvotes:   q.Upvotes,
		Downvotes: q.Downvotes,
		Answers:   q.Answers,
		Views:     q.Views,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

func (doc *QuestionDocument) toModel() (*models.Question, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid question ID: %w", err)
	}
	author, err := uuid.Parse(doc.Author)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %w", err)
	}
	tags, err := parseIDs(doc.Tags)
	if err != nil {
		return nil, err
	}
	return &models.Question{
		ID:        id,
		Title:     doc.Title,
		Content:   doc.Content,
		Tags:      tags,
		Author:    author,
		Upvotes:   doc.Upvotes,
		Downvotes: doc.Downvotes,
		Answers:   doc.Answers,
		Views:     doc.Views,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (m *MongoDB) CreateQuestion(ctx context.Context, question *models.Question) error {
	_, err := m.Questions.InsertOne(ctx, questionToDocument(question))
	return mapError("create question", err)
}

func (m *MongoDB) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	var doc QuestionDocument
	err := m.Questions.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Question")
	}
	if err != nil {
		return nil, mapError("get question", err)
	}
	return doc.toModel()
}

func (m *MongoDB) UpdateQuestionContent(ctx context.Context, id uuid.UUID, title, content string) error {
	update := bson.M{"$set": bson.M{
		"title":     title,
		"content":   content,
		"updatedat": time.Now().UTC(),
	}}
	result, err := m.Questions.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return mapError("update question", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("Question")
	}
	return nil
}

func (m *MongoDB) SetQuestionTags(ctx context.Context, id uuid.UUID, tags []uuid.UUID) error {
	update := bson.M{"$set": bson.M{"tags": idStrings(tags)}}
	result, err := m.Questions.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return mapError("set question tags", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("Question")
	}
	return nil
}

// counterFilter matches a document only if applying delta keeps field >= 0.
func counterFilter(id uuid.UUID, field models.CounterField, delta int) bson.M {
	filter := bson.M{"_id": id.String()}
	if delta < 0 {
		filter[string(field)] = bson.M{"$gte": -delta}
	}
	return filter
}

// IncrementQuestionCounter applies an atomic $inc and returns the updated
// question. NOT_FOUND covers both a missing question and a counter that
// would go negative.
func (m *MongoDB) IncrementQuestionCounter(ctx context.Context, id uuid.UUID, field models.CounterField, delta int) (*models.Question, error) {
	update := bson.M{"$inc": bson.M{string(field): delta}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc QuestionDocument
	err := m.Questions.FindOneAndUpdate(ctx, counterFilter(id, field, delta), update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Question")
	}
	if err != nil {
		return nil, mapError("increment question counter", err)
	}
	return doc.toModel()
}

func questionSort(sort QuestionSort) bson.D {
	switch sort {
	case SortOldest:
		return bson.D{{Key: "createdat", Value: 1}}
	case SortMostVoted:
		return bson.D{{Key: "upvotes", Value: -1}, {Key: "createdat", Value: -1}}
	case SortMostViewed:
		return bson.D{{Key: "views", Value: -1}, {Key: "createdat", Value: -1}}
	case SortMostAnswered:
		return bson.D{{Key: "answers", Value: -1}, {Key: "createdat", Value: -1}}
	case SortPopular:
		return bson.D{{Key: "upvotes", Value: -1}, {Key: "views", Value: -1}, {Key: "createdat", Value: -1}}
	default:
		return bson.D{{Key: "createdat", Value: -1}}
	}
}

func (m *MongoDB) ListQuestions(ctx context.Context, query QuestionQuery) ([]*models.Question, bool, error) {
	filter := bson.M{}
	if query.Search != "" {
		re := containsRegex(query.Search)
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"content": re},
		}
	}
	if query.Unanswered {
		filter["answers"] = 0
	}

	author := bson.M{}
	if query.AuthorID != uuid.Nil {
		author["$eq"] = query.AuthorID.String()
	}
	if query.ExcludeAuthor != uuid.Nil {
		author["$ne"] = query.ExcludeAuthor.String()
	}
	if len(author) > 0 {
		filter["author"] = author
	}

	if len(query.TagIDs) > 0 {
		filter["tags"] = bson.M{"$in": idStrings(query.TagIDs)}
	}

	ids := bson.M{}
	if query.IDs != nil {
		ids["$in"] = idStrings(query.IDs)
	}
	if len(query.ExcludeIDs) > 0 {
		ids["$nin"] = idStrings(query.ExcludeIDs)
	}
	if len(ids) > 0 {
		filter["_id"] = ids
	}

	docs, isNext, err := findPage[QuestionDocument](ctx, m.Questions, filter, questionSort(query.Sort), query.Page, query.PageSize)
	if err != nil {
		return nil, false, mapError("list questions", err)
	}

	questions := make([]*models.Question, 0, len(docs))
	for i := range docs {
		q, err := docs[i].toModel()
		if err != nil {
			m.logger.Sugar().Warnf("Error converting question document: %v", err)
			continue
		}
		questions = append(questions, q)
	}
	return questions, isNext, nil
}

func (m *MongoDB) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	result, err := m.Questions.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return mapError("delete question", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("Question")
	}
	return nil
}

type contentStatsDocument struct {
	Count   int64 `bson:"count"`
	Upvotes int64 `bson:"upvotes"`
	Views   int64 `bson:"views"`
}

func authorStats(ctx context.Context, coll *mongo.Collection, author uuid.UUID, withViews bool) (models.ContentStats, error) {
	group := bson.M{
		"_id":     nil,
		"count":   bson.M{"$sum": 1},
		"upvotes": bson.M{"$sum": "$upvotes"},
	}
	if withViews {
		group["views"] = bson.M{"$sum": "$views"}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"author": author.String()}}},
		{{Key: "$group", Value: group}},
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return models.ContentStats{}, err
	}
	defer cursor.Close(ctx)

	var rows []contentStatsDocument
	if err := cursor.All(ctx, &rows); err != nil {
		return models.ContentStats{}, err
	}
	if len(rows) == 0 {
		return models.ContentStats{}, nil
	}
	return models.ContentStats{Count: rows[0].Count, Upvotes: rows[0].Upvotes, Views: rows[0].Views}, nil
}

func (m *MongoDB) QuestionStatsByAuthor(ctx context.Context, author uuid.UUID) (models.ContentStats, error) {
	stats, err := authorStats(ctx, m.Questions, author, true)
	return stats, mapError("question stats", err)
}

// TopTagsByAuthor counts how often each tag appears on the author's questions.
func (m *MongoDB) TopTagsByAuthor(ctx context.Context, author uuid.UUID, limit int) ([]models.TagCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"author": author.String()}}},
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.M{"_id": "$tags", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := m.Questions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapError("top tags", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mapError("top tags", err)
	}

	counts := make([]models.TagCount, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			continue
		}
		counts = append(counts, models.TagCount{TagID: id, Count: row.Count})
	}
	return counts, nil
}
