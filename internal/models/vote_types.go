package models

// TargetType is the kind of content a vote or interaction points at.
type TargetType string

const (
	TargetQuestion TargetType = "question"
	TargetAnswer   TargetType = "answer"
)

func (t TargetType) Valid() bool {
	return t == TargetQuestion || t == TargetAnswer
}

// VoteType is the direction of a vote.
type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// Opposite returns the other vote direction.
func (v VoteType) Opposite() VoteType {
	if v == Upvote {
		return Downvote
	}
	return Upvote
}

// Counter returns the aggregate field a vote of this type is tallied in.
func (v VoteType) Counter() CounterField {
	if v == Upvote {
		return CounterUpvotes
	}
	return CounterDownvotes
}

// VoteState is what a user's vote on a target looks like after castVote.
type VoteState string

const (
	VoteStateNone      VoteState = "none"
	VoteStateUpvoted   VoteState = "upvoted"
	VoteStateDownvoted VoteState = "downvoted"
)

// CounterField names a denormalized counter on a question or answer.
type CounterField string

const (
	CounterUpvotes   CounterField = "upvotes"
	CounterDownvotes CounterField = "downvotes"
	CounterAnswers   CounterField = "answers"
	CounterViews     CounterField = "views"
)
