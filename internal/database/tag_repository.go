// internal/database/tag_repository.go
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TagDocument represents the MongoDB schema for a tag.
type TagDocument struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	NormalizedName string    `bson:"normalizedname"`
	Questions      int       `bson:"questions"`
	CreatedAt      time.Time `bson:"createdat"`
}

// TagQuestionDocument is the join row between a tag and a question.
type TagQuestionDocument struct {
	ID        string    `bson:"_id"`
	Tag       string    `bson:"tag"`
	Question  string    `bson:"question"`
	CreatedAt time.Time `bson:"createdat"`
}

func (doc *TagDocument) toModel() (*models.Tag, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid tag ID: %w", err)
	}
	return &models.Tag{
		ID:             id,
		Name:           doc.Name,
		NormalizedName: doc.NormalizedName,
		Questions:      doc.Questions,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

// UpsertTag returns the tag matching name case-insensitively, creating it
// with a zero count when none exists.
func (m *MongoDB) UpsertTag(ctx context.Context, name string) (*models.Tag, error) {
	filter := bson.M{"normalizedname": NormalizeTagName(name)}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":       uuid.New().String(),
		"name":      strings.TrimSpace(name),
		"questions": 0,
		"createdat": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc TagDocument
	if err := m.Tags.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, mapError("upsert tag", err)
	}
	return doc.toModel()
}

func (m *MongoDB) findTag(ctx context.Context, filter bson.M) (*models.Tag, error) {
	var doc TagDocument
	err := m.Tags.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Tag")
	}
	if err != nil {
		return nil, mapError("get tag", err)
	}
	return doc.toModel()
}

func (m *MongoDB) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	return m.findTag(ctx, bson.M{"_id": id.String()})
}

func (m *MongoDB) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	return m.findTag(ctx, bson.M{"normalizedname": NormalizeTagName(name)})
}

// GetTags returns the tags for ids in the order given; unknown ids are skipped.
func (m *MongoDB) GetTags(ctx context.Context, ids []uuid.UUID) ([]*models.Tag, error) {
	if len(ids) == 0 {
		return []*models.Tag{}, nil
	}
	cursor, err := m.Tags.Find(ctx, bson.M{"_id": bson.M{"$in": idStrings(ids)}})
	if err != nil {
		return nil, mapError("get tags", err)
	}
	defer cursor.Close(ctx)

	var docs []TagDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError("get tags", err)
	}

	byID := make(map[uuid.UUID]*models.Tag, len(docs))
	for i := range docs {
		tag, err := docs[i].toModel()
		if err != nil {
			continue
		}
		byID[tag.ID] = tag
	}

	tags := make([]*models.Tag, 0, len(ids))
	for _, id := range ids {
		if tag, ok := byID[id]; ok {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// IncrementTagQuestions adjusts a tag's question count atomically. A
// decrement below zero matches nothing and reports NOT_FOUND.
func (m *MongoDB) IncrementTagQuestions(ctx context.Context, id uuid.UUID, delta int) (*models.Tag, error) {
	filter := bson.M{"_id": id.String()}
	if delta < 0 {
		filter["questions"] = bson.M{"$gte": -delta}
	}
	update := bson.M{"$inc": bson.M{"questions": delta}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc TagDocument
	err := m.Tags.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Tag")
	}
	if err != nil {
		return nil, mapError("increment tag count", err)
	}
	return doc.toModel()
}

func (m *MongoDB) ListTags(ctx context.Context, query TagQuery) ([]*models.Tag, bool, error) {
	filter := bson.M{}
	if query.Search != "" {
		filter["name"] = containsRegex(query.Search)
	}

	var sort bson.D
	switch query.Sort {
	case TagSortRecent:
		sort = bson.D{{Key: "createdat", Value: -1}}
	case TagSortOldest:
		sort = bson.D{{Key: "createdat", Value: 1}}
	case TagSortName:
		sort = bson.D{{Key: "normalizedname", Value: 1}}
	default:
		sort = bson.D{{Key: "questions", Value: -1}, {Key: "normalizedname", Value: 1}}
	}

	docs, isNext, err := findPage[TagDocument](ctx, m.Tags, filter, sort, query.Page, query.PageSize)
	if err != nil {
		return nil, false, mapError("list tags", err)
	}

	tags := make([]*models.Tag, 0, len(docs))
	for i := range docs {
		tag, err := docs[i].toModel()
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	return tags, isNext, nil
}

func (m *MongoDB) CreateTagQuestions(ctx context.Context, joins []*models.TagQuestion) error {
	if len(joins) == 0 {
		return nil
	}
	docs := make([]interface{}, len(joins))
	for i, j := range joins {
		docs[i] = &TagQuestionDocument{
			ID:        j.ID.String(),
			Tag:       j.Tag.String(),
			Question:  j.Question.String(),
			CreatedAt: j.CreatedAt,
		}
	}
	_, err := m.TagQuestions.InsertMany(ctx, docs)
	return mapError("create tag joins", err)
}

// DeleteTagQuestions removes the question's join rows for tagIDs, or all of
// them when tagIDs is empty.
func (m *MongoDB) DeleteTagQuestions(ctx context.Context, questionID uuid.UUID, tagIDs []uuid.UUID) (int64, error) {
	filter := bson.M{"question": questionID.String()}
	if len(tagIDs) > 0 {
		filter["tag"] = bson.M{"$in": idStrings(tagIDs)}
	}
	result, err := m.TagQuestions.DeleteMany(ctx, filter)
	if err != nil {
		return 0, mapError("delete tag joins", err)
	}
	return result.DeletedCount, nil
}

func (m *MongoDB) CountTagQuestions(ctx context.Context, tagID uuid.UUID) (int64, error) {
	n, err := m.TagQuestions.CountDocuments(ctx, bson.M{"tag": tagID.String()})
	return n, mapError("count tag joins", err)
}
