package models

import (
	"time"

	"github.com/google/uuid"
)

type Question struct {
	ID        uuid.UUID   `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Tags      []uuid.UUID `json:"tags"`
	Author    uuid.UUID   `json:"author"`
	Upvotes   int         `json:"upvotes"`
	Downvotes int         `json:"downvotes"`
	Answers   int         `json:"answers"`
	Views     int         `json:"views"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type Answer struct {
	ID        uuid.UUID `json:"id"`
	Question  uuid.UUID `json:"question"`
	Author    uuid.UUID `json:"author"`
	Content   string    `json:"content"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tag names are unique case-insensitively; NormalizedName is the lookup key.
type Tag struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"-"`
	Questions      int       `json:"questions"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TagQuestion is the join row between a tag and a question carrying it.
type TagQuestion struct {
	ID        uuid.UUID `json:"id"`
	Tag       uuid.UUID `json:"tag"`
	Question  uuid.UUID `json:"question"`
	CreatedAt time.Time `json:"createdAt"`
}

type Vote struct {
	ID         uuid.UUID  `json:"id"`
	Author     uuid.UUID  `json:"author"`
	ActionID   uuid.UUID  `json:"actionId"`
	ActionType TargetType `json:"actionType"`
	VoteType   VoteType   `json:"voteType"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type Collection struct {
	ID        uuid.UUID `json:"id"`
	Author    uuid.UUID `json:"author"`
	Question  uuid.UUID `json:"question"`
	CreatedAt time.Time `json:"createdAt"`
}

// Counters is the vote tally of a question or answer after an update.
type Counters struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// ContentStats aggregates an author's questions or answers.
type ContentStats struct {
	Count   int64 `json:"count"`
	Upvotes int64 `json:"upvotes"`
	Views   int64 `json:"views"`
}

// TagCount is a tag together with how often an author used it.
type TagCount struct {
	TagID uuid.UUID `json:"tagId"`
	Count int       `json:"count"`
}
