package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/auth"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/repository"
)

const MinPasswordLength = 8

// errBadCredentials is shared by every login failure so the response does
// not reveal whether the email exists.
var errBadCredentials = apperr.Unauthenticated("invalid email or password")

type AccountService struct {
	accounts repository.AccountRepository
	profiles *ProfileService
	tokens   TokenConfig
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAccountService(accounts repository.AccountRepository, profiles *ProfileService, tokens TokenConfig, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		profiles: profiles,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger,
	}
}

type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
	PhotoURL    string
}

type AuthResult struct {
	Token   string          `json:"token"`
	Profile *models.Profile `json:"profile"`
}

// Signup registers an email/password account and runs the same profile
// creation a first authentication would.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := models.NormalizeEmail(in.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, apperr.InvalidArg("a valid email is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.InvalidArg("password must be at least 8 characters")
	}

	existing, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeFailure(s.logger, "failed to check existing account", err)
	}
	if existing != nil {
		return nil, apperr.AlreadyExists("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	err = s.accounts.Create(ctx, account)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return nil, apperr.AlreadyExists("email already registered")
	}
	if err != nil {
		return nil, storeFailure(s.logger, "failed to create account", err)
	}

	identity := models.Identity{
		UID:         account.ID,
		Email:       account.Email,
		DisplayName: in.DisplayName,
		PhotoURL:    in.PhotoURL,
	}
	profile, _, err := s.profiles.EnsureProfile(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", zap.String("user_id", account.ID))
	return s.issue(identity, profile)
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeFailure(s.logger, "failed to look up account", err)
	}
	if account == nil {
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, errBadCredentials
	}

	profile, _, err := s.profiles.EnsureProfile(ctx, models.Identity{UID: account.ID, Email: account.Email})
	if err != nil {
		return nil, err
	}
	return s.issue(models.Identity{
		UID:         account.ID,
		Email:       account.Email,
		DisplayName: profile.DisplayName,
		PhotoURL:    profile.PhotoURL,
	}, profile)
}

func (s *AccountService) issue(id models.Identity, profile *models.Profile) (*AuthResult, error) {
	token, err := auth.GenerateToken(id, s.tokens.Secret, s.tokens.TTL)
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}
	return &AuthResult{Token: token, Profile: profile}, nil
}
