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

type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// profileColumns selects a full profile row. Languages are NULL until setup,
// the block set lives in its own table and is folded in as an array.
const profileColumns = `
	p.id, p.email, p.display_name, p.photo_url,
	COALESCE(p.native_language, ''), COALESCE(p.target_language, ''),
	p.profile_setup_complete,
	ARRAY(SELECT b.blocked_id FROM blocks b WHERE b.blocker_id = p.id ORDER BY b.blocked_id),
	p.created_at, p.updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var native, target string
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.PhotoURL,
		&native,
		&target,
		&p.ProfileSetupComplete,
		&p.BlockedUsers,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.NativeLanguage = models.Language(native)
	p.TargetLanguage = models.Language(target)
	if p.BlockedUsers == nil {
		p.BlockedUsers = []string{}
	}
	return &p, nil
}

// Create is create-if-absent: ON CONFLICT DO NOTHING leaves an existing row
// untouched and RowsAffected tells us which caller won.
func (s *ProfileStore) Create(ctx context.Context, p *models.Profile) (bool, error) {
	query := `
		INSERT INTO profiles (id, email, display_name, photo_url, profile_setup_complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, now(), now())
		ON CONFLICT (id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query, p.ID, p.Email, p.DisplayName, p.PhotoURL)
	if err != nil {
		return false, fmt.Errorf("insert profile: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *ProfileStore) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles p WHERE p.id = $1`

	p, err := scanProfile(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) UpdateLanguages(ctx context.Context, id string, native, target models.Language) error {
	query := `
		UPDATE profiles
		SET native_language = $2,
		    target_language = $3,
		    profile_setup_complete = true,
		    updated_at = now()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, string(native), string(target))
	if err != nil {
		return fmt.Errorf("update profile languages: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddBlock is idempotent through the (blocker_id, blocked_id) primary key.
// The foreign key on blocker_id rejects a missing owner.
func (s *ProfileStore) AddBlock(ctx context.Context, ownerID, blockedID string) error {
	query := `
		INSERT INTO blocks (blocker_id, blocked_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, ownerID, blockedID)
	if err != nil {
		if isPgCode(err, codeForeignKeyViolation) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("add block: %w", err)
	}
	return nil
}

func (s *ProfileStore) RemoveBlock(ctx context.Context, ownerID, blockedID string) error {
	query := `
		DELETE FROM blocks
		WHERE blocker_id = $1 AND blocked_id = $2`

	_, err := s.pool.Exec(ctx, query, ownerID, blockedID)
	if err != nil {
		return fmt.Errorf("remove block: %w", err)
	}
	return nil
}

func (s *ProfileStore) ListComplete(ctx context.Context) ([]models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles p
		WHERE p.profile_setup_complete
		ORDER BY p.id`

	return s.list(ctx, query)
}

func (s *ProfileStore) ListByLanguages(ctx context.Context, native, target models.Language) ([]models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles p
		WHERE p.profile_setup_complete
		  AND p.native_language = $1
		  AND p.target_language = $2
		ORDER BY p.id`

	return s.list(ctx, query, string(native), string(target))
}

func (s *ProfileStore) list(ctx context.Context, query string, args ...any) ([]models.Profile, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]models.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return profiles, nil
}
