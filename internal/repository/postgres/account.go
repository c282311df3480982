package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/repository"
)

type AccountStore struct {
	pool *pgxpool.Pool
}

func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Create inserts the account. Emails are stored normalised so the UNIQUE
// constraint is case-insensitive in practice.
func (s *AccountStore) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING created_at`

	a.Email = models.NormalizeEmail(a.Email)
	err := s.pool.QueryRow(ctx, query, a.ID, a.Email, a.PasswordHash).Scan(&a.CreatedAt)
	if err != nil {
		if isPgCode(err, codeUniqueViolation) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT id, email, password_hash, created_at
		FROM accounts
		WHERE email = $1`

	var a models.Account
	err := s.pool.QueryRow(ctx, query, models.NormalizeEmail(email)).Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return &a, nil
}
