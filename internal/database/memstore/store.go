// Package memstore is an in-process implementation of database.Store.
// A transaction holds the store's write lock for its whole duration and
// restores a snapshot when the callback fails.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
)

type state struct {
	users        map[uuid.UUID]models.User
	accounts     map[uuid.UUID]models.Account
	questions    map[uuid.UUID]models.Question
	answers      map[uuid.UUID]models.Answer
	tags         map[uuid.UUID]models.Tag
	tagQuestions map[uuid.UUID]models.TagQuestion
	votes        map[uuid.UUID]models.Vote
	interactions []models.Interaction
	collections  map[uuid.UUID]models.Collection
}

func newState() *state {
	return &state{
		users:        make(map[uuid.UUID]models.User),
		accounts:     make(map[uuid.UUID]models.Account),
		questions:    make(map[uuid.UUID]models.Question),
		answers:      make(map[uuid.UUID]models.Answer),
		tags:         make(map[uuid.UUID]models.Tag),
		tagQuestions: make(map[uuid.UUID]models.TagQuestion),
		votes:        make(map[uuid.UUID]models.Vote),
		collections:  make(map[uuid.UUID]models.Collection),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.questions {
		v.Tags = append([]uuid.UUID(nil), v.Tags...)
		c.questions[k] = v
	}
	for k, v := range s.answers {
		c.answers[k] = v
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k, v := range s.tagQuestions {
		c.tagQuestions[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	c.interactions = append([]models.Interaction(nil), s.interactions...)
	for k, v := range s.collections {
		c.collections[k] = v
	}
	return c
}

type Store struct {
	mu   sync.RWMutex
	data *state
}

var _ database.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

func noop() {}

func (s *Store) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return noop
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return noop
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

// Users and accounts

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock(ctx)()
	email := strings.ToLower(user.Email)
	for _, u := range s.data.users {
		if u.ID == user.ID || u.Email == email || u.Username == user.Username {
			return utils.NewAppError(utils.ErrDuplicate, "create user: already exists", nil)
		}
	}
	u := *user
	u.Email = email
	s.data.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer s.rlock(ctx)()
	u, ok := s.data.users[id]
	if !ok {
		return nil, utils.NewNotFoundError("User")
	}
	return &u, nil
}

func (s *Store) findUser(ctx context.Context, match func(models.User) bool) (*models.User, error) {
	defer s.rlock(ctx)()
	for _, u := range s.data.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, utils.NewNotFoundError("User")
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return s.findUser(ctx, func(u models.User) bool { return u.Email == email })
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, func(u models.User) bool { return u.Username == username })
}

func (s *Store) UpdateUserProfile(ctx context.Context, id uuid.UUID, update models.UserProfileUpdate) (*models.User, error) {
	defer s.lock(ctx)()
	u, ok := s.data.users[id]
	if !ok {
		return nil, utils.NewNotFoundError("User")
	}
	if update.Username != nil && *update.Username != u.Username {
		for _, other := range s.data.users {
			if other.Username == *update.Username {
				return nil, utils.NewAppError(utils.ErrDuplicate, "update user: already exists", nil)
			}
		}
		u.Username = *update.Username
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.Image != nil {
		u.Image = *update.Image
	}
	if update.Location != nil {
		u.Location = *update.Location
	}
	if update.Portfolio != nil {
		u.Portfolio = *update.Portfolio
	}
	u.UpdatedAt = time.Now().UTC()
	s.data.users[id] = u
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, query database.UserQuery) ([]*models.User, bool, error) {
	defer s.rlock(ctx)()
	var users []models.User
	for _, u := range s.data.users {
		if query.Search != "" && !containsFold(u.Name, query.Search) &&
			!containsFold(u.Username, query.Search) && !containsFold(u.Email, query.Search) {
			continue
		}
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool {
		a, b := users[i], users[j]
		switch query.Sort {
		case database.UserSortOldest:
			return olderFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
		case database.UserSortPopular:
			if a.Reputation != b.Reputation {
				return a.Reputation > b.Reputation
			}
		}
		return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})

	page, isNext := paginate(users, query.Page, query.PageSize)
	out := make([]*models.User, len(page))
	for i := range page {
		out[i] = &page[i]
	}
	return out, isNext, nil
}

// ApplyReputationDeltas updates all users or none.
func (s *Store) ApplyReputationDeltas(ctx context.Context, deltas []models.ReputationDelta) error {
	defer s.lock(ctx)()
	for _, d := range deltas {
		if _, ok := s.data.users[d.UserID]; !ok {
			return utils.NewNotFoundError("User")
		}
	}
	for _, d := range deltas {
		u := s.data.users[d.UserID]
		u.Reputation += d.Delta
		s.data.users[d.UserID] = u
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	defer s.lock(ctx)()
	for _, a := range s.data.accounts {
		if a.Provider == account.Provider && a.ProviderAccountID == account.ProviderAccountID {
			return utils.NewAppError(utils.ErrDuplicate, "create account: already exists", nil)
		}
	}
	s.data.accounts[account.ID] = *account
	return nil
}

func (s *Store) GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*models.Account, error) {
	defer s.rlock(ctx)()
	for _, a := range s.data.accounts {
		if a.Provider == provider && a.ProviderAccountID == providerAccountID {
			a := a
			return &a, nil
		}
	}
	return nil, utils.NewNotFoundError("Account")
}

// helpers

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func newerFirst(a, b time.Time, idA, idB uuid.UUID) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA.String() < idB.String()
}

func olderFirst(a, b time.Time, idA, idB uuid.UUID) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA.String() < idB.String()
}

func paginate[T any](items []T, page, pageSize int) ([]T, bool) {
	skip, limit := database.Paginate(page, pageSize)
	if skip >= len(items) {
		return []T{}, false
	}
	end := skip + limit
	if end >= len(items) {
		return items[skip:], false
	}
	return items[skip:end], true
}

func idSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
