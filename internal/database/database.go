// internal/database/database.go
package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"devflow/internal/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// MongoConfig controls how the store connects.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxRetries     int
}

type MongoDB struct {
	Client       *mongo.Client
	Users        *mongo.Collection
	Accounts     *mongo.Collection
	Questions    *mongo.Collection
	Answers      *mongo.Collection
	Tags         *mongo.Collection
	TagQuestions *mongo.Collection
	Votes        *mongo.Collection
	Interactions *mongo.Collection
	Collections  *mongo.Collection

	logger *zap.Logger
}

var _ Store = (*MongoDB)(nil)

// NewMongoDB connects, pings with retry and makes sure indexes exist.
func NewMongoDB(ctx context.Context, cfg MongoConfig, logger *zap.Logger) (*MongoDB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Database == "" {
		cfg.Database = "devflow"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		return client.Database("admin").RunCommand(pingCtx, bson.D{{Key: "ping", Value: 1}}).Err()
	}
	b := backoff.NewExponentialBackOff()
	err = backoff.RetryNotify(
		ping,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.MaxRetries)), ctx),
		func(err error, d time.Duration) {
			logger.Warn("MongoDB ping failed, retrying",
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", zap.String("database", cfg.Database))

	db := client.Database(cfg.Database)
	m := &MongoDB{
		Client:       client,
		Users:        db.Collection("users"),
		Accounts:     db.Collection("accounts"),
		Questions:    db.Collection("questions"),
		Answers:      db.Collection("answers"),
		Tags:         db.Collection("tags"),
		TagQuestions: db.Collection("tagQuestions"),
		Votes:        db.Collection("votes"),
		Interactions: db.Collection("interactions"),
		Collections:  db.Collection("collections"),
		logger:       logger,
	}

	if err := m.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

// EnsureIndexes creates the unique and lookup indexes the core relies on.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := map[*mongo.Collection][]mongo.IndexModel{
		m.Votes: {
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "actionid", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "actionid", Value: 1}}},
		},
		m.Collections: {
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "question", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "question", Value: 1}}},
		},
		m.Tags: {
			{Keys: bson.D{{Key: "normalizedname", Value: 1}}, Options: unique},
		},
		m.TagQuestions: {
			{Keys: bson.D{{Key: "tag", Value: 1}, {Key: "question", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "question", Value: 1}}},
		},
		m.Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		},
		m.Accounts: {
			{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "provideraccountid", Value: 1}}, Options: unique},
		},
		m.Questions: {
			{Keys: bson.D{{Key: "author", Value: 1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
		},
		m.Answers: {
			{Keys: bson.D{{Key: "question", Value: 1}}},
			{Keys: bson.D{{Key: "author", Value: 1}}},
		},
		m.Interactions: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdat", Value: -1}}},
			{Keys: bson.D{{Key: "actionid", Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// WithTransaction runs fn inside a multi-document transaction. The session
// travels in the context given to fn; a context that already carries a
// session joins the outer transaction.
func (m *MongoDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := m.Client.StartSession()
	if err != nil {
		return utils.NewDatabaseError("start session", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOpts)
	if err != nil {
		return mapError("transaction", err)
	}
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// mapError turns driver errors into AppErrors; AppErrors pass through.
func mapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := utils.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NewAppError(utils.ErrNotFound, operation+": not found", err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return utils.NewAppError(utils.ErrDuplicate, operation+": already exists", err)
	}
	return utils.NewDatabaseError(operation, err)
}

func containsRegex(search string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseIDs(values []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", v, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// findPage runs a paginated Find and reports whether another page exists.
func findPage[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, sort bson.D, page, pageSize int) ([]T, bool, error) {
	skip, limit := Paginate(page, pageSize)
	opts := options.Find().
		SetSort(sort).
		SetSkip(int64(skip)).
		SetLimit(int64(limit + 1))

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, false, err
	}

	isNext := len(docs) > limit
	if isNext {
		docs = docs[:limit]
	}
	return docs, isNext, nil
}
