package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/morerecipes/apiserver/internal/auth"
	"github.com/morerecipes/apiserver/internal/store"
	"github.com/morerecipes/apiserver/internal/validation"
	"github.com/morerecipes/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(claims auth.Claims, opts auth.IssueOptions) (string, error)
}

// AuthResult is returned by a successful registration or login.
type AuthResult struct {
	User  types.PublicUser `json:"user"`
	Token string           `json:"token"`
}

// UserService registers and authenticates accounts.
type UserService struct {
	repo      UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	validator *validation.Validator
	tokenTTL  time.Duration
	logger    *slog.Logger
}

// NewUserService constructs a UserService. Tokens from both registration and
// login expire after tokenTTL; zero issues tokens without an expiry.
func NewUserService(
	repo UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	validator *validation.Validator,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		validator: validator,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// Register creates an account and issues its first token.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	if err := s.check(req); err != nil {
		return AuthResult{}, err
	}
	if req.Password != req.ConfirmPassword {
		return AuthResult{}, ErrPasswordMismatch
	}

	if _, err := s.repo.FindByEmailOrUsername(ctx, req.Email, req.Username); err == nil {
		return AuthResult{}, ErrDuplicateUser
	} else if !errors.Is(err, store.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Fullname:     req.Fullname,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return AuthResult{}, newError(ErrDuplicateUser, nil, err)
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return s.authResult(user)
}

// Login checks credentials and issues a token.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (AuthResult, error) {
	req.Email = strings.TrimSpace(req.Email)

	if err := s.check(req); err != nil {
		return AuthResult{}, err
	}

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthResult{}, ErrUserNotFound
		}
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("compare password: %w", err)
	}

	return s.authResult(user)
}

// Me returns the public profile of the token holder.
func (s *UserService) Me(ctx context.Context, userID int) (types.PublicUser, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PublicUser{}, ErrUserNotFound
		}
		return types.PublicUser{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	return user.Public(), nil
}

func (s *UserService) authResult(user types.User) (AuthResult, error) {
	token, err := s.tokens.Issue(auth.Claims{
		UserID:   user.ID,
		Fullname: user.Fullname,
		Username: user.Username,
	}, auth.IssueOptions{ExpiresIn: s.tokenTTL})
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{User: user.Public(), Token: token}, nil
}

func (s *UserService) check(req any) error {
	err := s.validator.Check(req)
	if err == nil {
		return nil
	}
	var fe validation.FieldErrors
	if errors.As(err, &fe) {
		return newError(ErrValidation, fe, nil)
	}
	return fmt.Errorf("validate request: %w", err)
}
