package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/joshua-takyi/secretspace/internal/helpers"
	"github.com/joshua-takyi/secretspace/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type TokenIssuer interface {
	Issue(userID uuid.UUID, username string) (string, error)
}

type UserService struct {
	userRepo models.UserRepo
	tokens   TokenIssuer
}

func NewUserService(userRepo models.UserRepo, tokens TokenIssuer) *UserService {
	return &UserService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

func validateCredentials(creds *models.Credentials) error {
	creds.Username = helpers.StringTrim(creds.Username)
	if err := models.Validate.Struct(creds); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	// validator counts runes; bcrypt rejects anything over 72 bytes.
	if len(creds.Password) > models.MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", models.ErrInvalidInput, models.MaxPasswordBytes)
	}
	return nil
}

// CreateUser registers a new account. Only the bcrypt hash is stored.
func (us *UserService) CreateUser(ctx context.Context, creds *models.Credentials) (*models.User, error) {
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     creds.Username,
		PasswordHash: string(hash),
	}
	return us.userRepo.CreateUser(ctx, user)
}

// AuthenticateUser checks the credentials and issues an access token. The
// error never says which of username or password was wrong.
func (us *UserService) AuthenticateUser(ctx context.Context, creds *models.Credentials) (*models.AuthResult, error) {
	invalid := fmt.Errorf("%w: invalid username or password", models.ErrUnauthorized)

	creds.Username = helpers.StringTrim(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return nil, invalid
	}

	user, err := us.userRepo.GetUserByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, invalid
	}

	token, err := us.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return &models.AuthResult{AccessToken: token, User: user}, nil
}

func (us *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return us.userRepo.GetUser(ctx, id)
}
