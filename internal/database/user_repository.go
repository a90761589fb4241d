// internal/database/user_repository.go
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

// UserDocument represents the MongoDB schema for a user.
type UserDocument struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	Username   string    `bson:"username"`
	Email      string    `bson:"email"`
	Bio        string    `bson:"bio,omitempty"`
	Image      string    `bson:"image,omitempty"`
	Location   string    `bson:"location,omitempty"`
	Portfolio  string    `bson:"portfolio,omitempty"`
	Reputation int       `bson:"reputation"`
	CreatedAt  time.Time `bson:"createdat"`
	UpdatedAt  time.Time `bson:"updatedat"`
}

// AccountDocument represents the MongoDB schema for a sign-in account.
type AccountDocument struct {
	ID                string    `bson:"_id"`
	UserID            string    `bson:"userid"`
	Name              string    `bson:"name"`
	Image             string    `bson:"image,omitempty"`
	Password          string    `bson:"password,omitempty"`
	Provider          string    `bson:"provider"`
	ProviderAccountID string    `bson:"provideraccountid"`
	CreatedAt         time.Time `bson:"createdat"`
}

func userToDocument(user *models.User) *UserDocument {
	return &UserDocument{
		ID:         user.ID.String(),
		Name:       user.Name,
		Username:   user.Username,
		Email:      strings.ToLower(user.Email),
		Bio:        user.Bio,
		Image:      user.Image,
		Location:   user.Location,
		Portfolio:  user.Portfolio,
		Reputation: user.Reputation,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

func (doc *UserDocument) toModel() (*models.User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}
	return &models.User{
		ID:         id,
		Name:       doc.Name,
		Username:   doc.Username,
		Email:      doc.Email,
		Bio:        doc.Bio,
		Image:      doc.Image,
		Location:   doc.Location,
		Portfolio:  doc.Portfolio,
		Reputation: doc.Reputation,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func (m *MongoDB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := m.Users.InsertOne(ctx, userToDocument(user))
	return mapError("create user", err)
}

func (m *MongoDB) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc UserDocument
	err := m.Users.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("User")
	}
	if err != nil {
		return nil, mapError("get user", err)
	}
	return doc.toModel()
}

func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id.String()})
}

func (m *MongoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": strings.ToLower(email)})
}

func (m *MongoDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"username": username})
}

// UpdateUserProfile sets only the fields present in update.
func (m *MongoDB) UpdateUserProfile(ctx context.Context, id uuid.UUID, update models.UserProfileUpdate) (*models.User, error) {
	set := bson.M{"updatedat": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.Image != nil {
		set["image"] = *update.Image
	}
	if update.Location != nil {
		set["location"] = *update.Location
	}
	if update.Portfolio != nil {
		set["portfolio"] = *update.Portfolio
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc UserDocument
	err := m.Users.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("User")
	}
	if err != nil {
		return nil, mapError("update user", err)
	}
	return doc.toModel()
}

func (m *MongoDB) ListUsers(ctx context.Context, query UserQuery) ([]*models.User, bool, error) {
	filter := bson.M{}
	if query.Search != "" {
		re := containsRegex(query.Search)
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"username": re},
			bson.M{"email": re},
		}
	}

	var sort bson.D
	switch query.Sort {
	case UserSortOldest:
		sort = bson.D{{Key: "createdat", Value: 1}}
	case UserSortPopular:
		sort = bson.D{{Key: "reputation", Value: -1}, {Key: "createdat", Value: -1}}
	default:
		sort = bson.D{{Key: "createdat", Value: -1}}
	}

	docs, isNext, err := findPage[UserDocument](ctx, m.Users, filter, sort, query.Page, query.PageSize)
	if err != nil {
		return nil, false, mapError("list users", err)
	}

	users := make([]*models.User, 0, len(docs))
	for i := range docs {
		user, err := docs[i].toModel()
		if err != nil {
			m.logger.Sugar().Warnf("Error converting user document: %v", err)
			continue
		}
		users = append(users, user)
	}
	return users, isNext, nil
}

// ApplyReputationDeltas increments every listed user's reputation in one
// ordered bulk write. A missing user fails the whole batch.
func (m *MongoDB) ApplyReputationDeltas(ctx context.Context, deltas []models.ReputationDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(deltas))
	for _, d := range deltas {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": d.UserID.String()}).
			SetUpdate(bson.M{"$inc": bson.M{"reputation": d.Delta}}))
	}

	result, err := m.Users.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return mapError("update reputation", err)
	}
	if result.MatchedCount != int64(len(deltas)) {
		return utils.NewNotFoundError("User")
	}
	return nil
}

func (m *MongoDB) CreateAccount(ctx context.Context, account *models.Account) error {
	doc := &AccountDocument{
		ID:                account.ID.String(),
		UserID:            account.UserID.String(),
		Name:              account.Name,
		Image:             account.Image,
		Password:          account.HashedPassword,
		Provider:          account.Provider,
		ProviderAccountID: account.ProviderAccountID,
		CreatedAt:         account.CreatedAt,
	}
	_, err := m.Accounts.InsertOne(ctx, doc)
	return mapError("create account", err)
}

func (m *MongoDB) GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*models.Account, error) {
	var doc AccountDocument
	err := m.Accounts.FindOne(ctx, bson.M{
		"provider":          provider,
		"provideraccountid": providerAccountID,
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Account")
	}
	if err != nil {
		return nil, mapError("get account", err)
	}

	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid account ID: %w", err)
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid account user ID: %w", err)
	}
	return &models.Account{
		ID:                id,
		UserID:            userID,
		Name:              doc.Name,
		Image:             doc.Image,
		HashedPassword:    doc.Password,
		Provider:          doc.Provider,
		ProviderAccountID: doc.ProviderAccountID,
		CreatedAt:         doc.CreatedAt,
	}, nil
}
