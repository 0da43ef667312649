package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/models"
	"github.com/martius-lab/comprl/pkg/jwt"
)

// AccountStore is the persistence surface for account management.
type AccountStore interface {
	Create(ctx context.Context, username, passwordHash, token string, role models.AccountRole) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByToken(ctx context.Context, token string) (*models.Account, error)
	FindByID(ctx context.Context, id int64) (*models.Account, error)
}

// AccountService handles registration, login and agent token
// authentication.
type AccountService struct {
	accounts        AccountStore
	jwtManager      *jwt.Manager
	registrationKey string
	logger          *zap.Logger
}

func NewAccountService(accounts AccountStore, jwtManager *jwt.Manager, registrationKey string, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts:        accounts,
		jwtManager:      jwtManager,
		registrationKey: registrationKey,
		logger:          logger,
	}
}

// Register creates an account. The returned account carries the generated
// agent token the user connects with.
func (s *AccountService) Register(ctx context.Context, username, password, registrationKey string) (*models.Account, error) {
	if s.registrationKey != "" && registrationKey != s.registrationKey {
		return nil, ErrInvalidRegistrationKey
	}
	if username == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: username required and password must have at least 8 characters", ErrInvalidInput)
	}

	existing, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAccountAlreadyExists
	}

	passwordHash, err := models.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	account, err := s.accounts.Create(ctx, username, passwordHash, token, models.RoleUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account registered",
		zap.Int64("accountId", account.ID),
		zap.String("username", account.Username))

	return account, nil
}

// Login verifies credentials and returns a signed API access token.
func (s *AccountService) Login(ctx context.Context, username, password string) (*models.Account, string, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if account == nil || !account.CheckPassword(password) {
		return nil, "", ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.Generate(account.ID, account.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return account, accessToken, nil
}

// AuthenticateAgent resolves an agent token to its account. Used when an
// agent connection authenticates before being queued.
func (s *AccountService) AuthenticateAgent(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	account, err := s.accounts.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrUnauthorized
	}

	return account, nil
}

// FindByID returns the account or ErrAccountNotFound.
func (s *AccountService) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
