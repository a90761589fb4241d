package services

import (
	"context"
	"strings"
	"time"

	"devflow/internal/models"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type SignUpParams struct {
	Name     string
	Username string
	Email    string
	Password string
}

type SignInParams struct {
	Email    string
	Password string
}

// SignUp creates a user and its credentials account.
func (s *Service) SignUp(ctx context.Context, p SignUpParams) (user *models.User, err error) {
	defer s.observe("sign_up", time.Now(), &err)

	email := strings.ToLower(strings.TrimSpace(p.Email))
	if existing, err := s.store.GetUserByEmail(ctx, email); err != nil && !utils.IsErrorCode(err, utils.ErrNotFound) {
		return nil, err
	} else if existing != nil {
		return nil, duplicateError("email", "email is already registered")
	}
	if existing, err := s.store.GetUserByUsername(ctx, p.Username); err != nil && !utils.IsErrorCode(err, utils.ErrNotFound) {
		return nil, err
	} else if existing != nil {
		return nil, duplicateError("username", "username is already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.bcryptCost)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInternal, "failed to hash password", err)
	}

	now := time.Now().UTC()
	u := &models.User{
		ID:        uuid.New(),
		Name:      p.Name,
		Username:  p.Username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.CreateUser(ctx, u); err != nil {
			return err
		}
		return s.store.CreateAccount(ctx, &models.Account{
			ID:                uuid.New(),
			UserID:            u.ID,
			Name:              p.Name,
			HashedPassword:    string(hashed),
			Provider:          models.CredentialsProvider,
			ProviderAccountID: email,
			CreatedAt:         now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User signed up", zap.String("userId", u.ID.String()))
	return u, nil
}

// SignIn checks credentials. Unknown emails and wrong passwords fail alike.
func (s *Service) SignIn(ctx context.Context, p SignInParams) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	invalid := utils.NewAppError(utils.ErrInvalidCredentials, "invalid email or password", nil)

	account, err := s.store.GetAccountByProvider(ctx, models.CredentialsProvider, email)
	if utils.IsErrorCode(err, utils.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.HashedPassword), []byte(p.Password)); err != nil {
		return nil, invalid
	}
	return s.store.GetUser(ctx, account.UserID)
}

func duplicateError(field, message string) error {
	err := utils.NewAppError(utils.ErrDuplicate, message, nil)
	err.Fields = map[string][]string{field: {message}}
	return err
}
