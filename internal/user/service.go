package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/paystream/paystream/internal/auth"
)

// ErrInvalidCredentials indicates a failed login attempt.
var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLength = 6

// Service manages signup, login and profile lookups.
type Service struct {
	repo   Repository
	tokens *auth.Issuer
}

// NewService creates a user service.
func NewService(repo Repository, tokens *auth.Issuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// SignupInput captures data required to register a user.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// AuthResult bundles a user with a freshly issued access token.
type AuthResult struct {
	User  User
	Token string
}

// Signup registers a new user with a zero balance and returns an access token.
func (s *Service) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	if err := validateSignup(input); err != nil {
		return AuthResult{}, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return AuthResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, err
	}

	created, err := s.repo.Create(ctx, User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: string(hash),
		Balance:      decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return AuthResult{}, err
	}

	token, err := s.tokens.Issue(created.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: created, Token: token}, nil
}

// Login verifies credentials and returns the user with an access token.
func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Token: token}, nil
}

// GetByID resolves a user profile by identifier.
func (s *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return s.repo.FindByID(ctx, id)
}

func validateSignup(input SignupInput) error {
	if strings.TrimSpace(input.FirstName) == "" {
		return errors.New("first name is required")
	}
	if strings.TrimSpace(input.LastName) == "" {
		return errors.New("last name is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(input.Email)); err != nil {
		return errors.New("a valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}
