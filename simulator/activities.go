package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var baseTags = []string{
	"go", "rust", "react", "python", "docker",
	"kubernetes", "postgres", "redis", "graphql", "typescript",
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID uuid.UUID `json:"id"`
	} `json:"user"`
}

type questionResponse struct {
	ID        uuid.UUID `json:"id"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	TagList   []struct {
		Name string `json:"name"`
	} `json:"tagList"`
}

type voteResponse struct {
	State string `json:"state"`
}

// parallel runs fn for 0..n-1 on the configured number of workers and
// returns the first error.
func (s *Simulator) parallel(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for w := 0; w < s.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := fn(ctx, i); err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (s *Simulator) createUsers(ctx context.Context) error {
	s.users = make([]*SimulatedUser, s.config.NumUsers)
	err := s.parallel(ctx, s.config.NumUsers, func(ctx context.Context, i int) error {
		username := fmt.Sprintf("sim_%s_%d", s.runID, i)
		var auth authResponse
		err := s.makeRequest(ctx, "POST", "/auth/sign-up", "", map[string]string{
			"name":     fmt.Sprintf("Sim User %d", i),
			"username": username,
			"email":    username + "@example.com",
			"password": "Sim!pass1",
		}, &auth)
		if err != nil {
			return fmt.Errorf("sign up %s: %w", username, err)
		}
		s.users[i] = &SimulatedUser{ID: auth.User.ID, Username: username, Token: auth.Token}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("Users created", zap.Int("count", len(s.users)))
	return nil
}

func (s *Simulator) pickTags(rng *rand.Rand) []string {
	n := 1 + rng.Intn(3)
	picked := rng.Perm(len(s.tagPool))[:n]
	tags := make([]string, 0, n)
	for _, i := range picked {
		tags = append(tags, s.tagPool[i])
	}
	return tags
}

func (s *Simulator) createQuestions(ctx context.Context) error {
	if len(s.users) == 0 {
		return fmt.Errorf("no users to ask questions")
	}
	rng := rand.New(rand.NewSource(s.config.Seed))
	tagSets := make([][]string, s.config.NumQuestions)
	for i := range tagSets {
		tagSets[i] = s.pickTags(rng)
	}

	s.questions = make([]*SimulatedQuestion, s.config.NumQuestions)
	err := s.parallel(ctx, s.config.NumQuestions, func(ctx context.Context, i int) error {
		author := s.users[i%len(s.users)]
		var q questionResponse
		err := s.makeRequest(ctx, "POST", "/questions", author.Token, map[string]interface{}{
			"title":   fmt.Sprintf("Simulated question %d from %s", i, author.Username),
			"content": "Generated by the load simulator.",
			"tags":    tagSets[i],
		}, &q)
		if err != nil {
			return fmt.Errorf("create question %d: %w", i, err)
		}
		s.questions[i] = &SimulatedQuestion{ID: q.ID, Author: author, Tags: tagSets[i]}
		s.ledger.SetTags(q.ID, tagSets[i])
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("Questions created", zap.Int("count", len(s.questions)))
	return nil
}

type action struct {
	edit     bool
	user     *SimulatedUser
	question *SimulatedQuestion
	voteType string
	tags     []string
}

// plan builds the whole workload up front so a seed reproduces it. Question
// popularity follows a Zipf distribution.
func (s *Simulator) plan() []action {
	rng := rand.New(rand.NewSource(s.config.Seed + 1))
	zipf := rand.NewZipf(rng, s.config.ZipfS, 1, uint64(len(s.questions)-1))

	total := s.config.NumVotes + s.config.NumEdits
	actions := make([]action, 0, total)
	for i := 0; i < s.config.NumVotes; i++ {
		voteType := "downvote"
		if rng.Float64() < s.config.UpvoteRatio {
			voteType = "upvote"
		}
		actions = append(actions, action{
			user:     s.users[rng.Intn(len(s.users))],
			question: s.questions[zipf.Uint64()],
			voteType: voteType,
		})
	}
	for i := 0; i < s.config.NumEdits; i++ {
		actions = append(actions, action{
			edit:     true,
			question: s.questions[rng.Intn(len(s.questions))],
			tags:     s.pickTags(rng),
		})
	}
	rng.Shuffle(len(actions), func(i, j int) { actions[i], actions[j] = actions[j], actions[i] })
	return actions
}

// keyedMutex serializes work per key so the ledger sees results in the order
// the server committed them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (k *keyedMutex) lock(id uuid.UUID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *Simulator) simulateActivity(ctx context.Context) error {
	if len(s.questions) == 0 || len(s.users) == 0 {
		return nil
	}
	actions := s.plan()
	var voters, editors keyedMutex

	err := s.parallel(ctx, len(actions), func(ctx context.Context, i int) error {
		a := actions[i]
		if a.edit {
			defer editors.lock(a.question.ID)()
			return s.editTags(ctx, a.question, a.tags)
		}
		defer voters.lock(a.user.ID)()
		return s.vote(ctx, a.user, a.question, a.voteType)
	})
	if err != nil {
		return fmt.Errorf("activity failed: %w", err)
	}
	m := s.GetMetrics()
	s.logger.Info("Activity finished",
		zap.Int("votes", m.TotalVotes),
		zap.Int("edits", m.TotalEdits),
		zap.Int64("errors", m.ErrorCount),
		zap.Duration("avgLatency", m.AverageLatency),
	)
	return nil
}

func (s *Simulator) vote(ctx context.Context, user *SimulatedUser, q *SimulatedQuestion, voteType string) error {
	var result voteResponse
	err := s.makeRequest(ctx, "POST", "/votes", user.Token, map[string]string{
		"targetId":   q.ID.String(),
		"targetType": "question",
		"voteType":   voteType,
	}, &result)
	if err != nil {
		return fmt.Errorf("vote by %s on %s: %w", user.Username, q.ID, err)
	}
	s.ledger.SetVote(q.ID, user.ID, result.State)
	s.countVote()
	return nil
}

func (s *Simulator) editTags(ctx context.Context, q *SimulatedQuestion, tags []string) error {
	err := s.makeRequest(ctx, "PATCH", "/questions/"+q.ID.String(), q.Author.Token, map[string]interface{}{
		"title":   fmt.Sprintf("Simulated question %s (edited)", q.ID.String()[:8]),
		"content": "Edited by the load simulator.",
		"tags":    tags,
	}, nil)
	if err != nil {
		return fmt.Errorf("edit %s: %w", q.ID, err)
	}
	s.ledger.SetTags(q.ID, tags)
	s.countEdit()
	return nil
}
