package models

import (
	"time"

	"github.com/google/uuid"
)

type InteractionAction string

const (
	ActionView     InteractionAction = "view"
	ActionUpvote   InteractionAction = "upvote"
	ActionDownvote InteractionAction = "downvote"
	ActionBookmark InteractionAction = "bookmark"
	ActionPost     InteractionAction = "post"
	ActionEdit     InteractionAction = "edit"
	ActionDelete   InteractionAction = "delete"
	ActionSearch   InteractionAction = "search"
)

// VoteAction maps a vote direction to the interaction it records.
func VoteAction(v VoteType) InteractionAction {
	if v == Upvote {
		return ActionUpvote
	}
	return ActionDownvote
}

// Interaction is an append-only audit event. Reverted marks the undoing of an
// earlier vote (toggle-off or the old half of a flip).
type Interaction struct {
	ID         uuid.UUID         `json:"id"`
	User       uuid.UUID         `json:"user"`
	Action     InteractionAction `json:"action"`
	ActionID   uuid.UUID         `json:"actionId"`
	ActionType TargetType        `json:"actionType"`
	Reverted   bool              `json:"reverted,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}
