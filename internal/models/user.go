package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Bio        string    `json:"bio,omitempty"`
	Image      string    `json:"image,omitempty"`
	Location   string    `json:"location,omitempty"`
	Portfolio  string    `json:"portfolio,omitempty"`
	Reputation int       `json:"reputation"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Account holds the credentials a user signs in with.
type Account struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"userId"`
	Name              string    `json:"name"`
	Image             string    `json:"image,omitempty"`
	HashedPassword    string    `json:"-"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"providerAccountId"`
	CreatedAt         time.Time `json:"createdAt"`
}

const CredentialsProvider = "credentials"

// UserProfileUpdate lists the profile fields a user may change; nil leaves a field unchanged.
type UserProfileUpdate struct {
	Name      *string
	Username  *string
	Bio       *string
	Image     *string
	Location  *string
	Portfolio *string
}

// ReputationDelta is one user's share of a reputation batch.
type ReputationDelta struct {
	UserID uuid.UUID
	Delta  int
}
