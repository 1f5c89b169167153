package services

import (
	"context"
	"errors"
	"strings"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/app/repositories"
	"github.com/modera-shop/modera/pkg/auth"
	"github.com/modera-shop/modera/pkg/logger"
)

type AuthService struct {
	accounts repositories.AccountStore
	tokens   *auth.Issuer
}

func NewAuthService(accounts repositories.AccountStore, tokens *auth.Issuer) *AuthService {
	return &AuthService{accounts: accounts, tokens: tokens}
}

type SignupInput struct {
	Name     string `json:"name"     validate:"max=100"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max_bytes=72"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates the account and returns a token for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (string, error) {
	if len(in.Password) > auth.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := auth.HashPassword(in.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", storageError("hash password", err)
	}

	user, err := s.accounts.Create(ctx, models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    normalizeEmail(in.Email),
		Password: hash,
	})
	if errors.Is(err, repositories.ErrDuplicateEmail) {
		return "", ErrUserExists
	}
	if err != nil {
		return "", storageError("create account", err)
	}

	logger.WithCtx(ctx).Info("auth: account created", "account", user.ID)
	return s.issue(user.ID)
}

// Login checks the credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, error) {
	user, err := s.VerifyCredentials(ctx, in.Email, in.Password)
	if err != nil {
		return "", err
	}
	return s.issue(user.ID)
}

func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, ErrWrongEmail
	}
	if err != nil {
		return models.User{}, storageError("find account", err)
	}
	if !auth.CheckPassword(user.Password, password) {
		return models.User{}, ErrInvalidPassword
	}
	return user, nil
}

func (s *AuthService) issue(accountID string) (string, error) {
	token, err := s.tokens.Issue(accountID)
	if err != nil {
		return "", storageError("sign token", err)
	}
	return token, nil
}
