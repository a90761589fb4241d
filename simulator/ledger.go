package simulator

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Ledger is the simulator's own record of what each question should hold.
type Ledger struct {
	mu    sync.Mutex
	votes map[uuid.UUID]map[uuid.UUID]string // question -> voter -> state
	tags  map[uuid.UUID][]string
}

func NewLedger() *Ledger {
	return &Ledger{
		votes: make(map[uuid.UUID]map[uuid.UUID]string),
		tags:  make(map[uuid.UUID][]string),
	}
}

// SetVote stores the state the server reported after a vote.
func (l *Ledger) SetVote(questionID, userID uuid.UUID, state string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	voters, ok := l.votes[questionID]
	if !ok {
		voters = make(map[uuid.UUID]string)
		l.votes[questionID] = voters
	}
	if state == "none" {
		delete(voters, userID)
		return
	}
	voters[userID] = state
}

// Counts returns the expected upvotes and downvotes of a question.
func (l *Ledger) Counts(questionID uuid.UUID) (up, down int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, state := range l.votes[questionID] {
		switch state {
		case "upvoted":
			up++
		case "downvoted":
			down++
		}
	}
	return up, down
}

func (l *Ledger) SetTags(questionID uuid.UUID, tags []string) {
	normalized := make([]string, 0, len(tags))
	for _, t := range tags {
		normalized = append(normalized, strings.ToLower(t))
	}
	sort.Strings(normalized)
	l.mu.Lock()
	l.tags[questionID] = normalized
	l.mu.Unlock()
}

func (l *Ledger) Tags(questionID uuid.UUID) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.tags[questionID]...)
}

// TagUsage returns how many questions should carry each tag.
func (l *Ledger) TagUsage() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	usage := make(map[string]int)
	for _, tags := range l.tags {
		for _, t := range tags {
			usage[t]++
		}
	}
	return usage
}
