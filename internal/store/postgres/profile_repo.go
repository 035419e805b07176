package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

var _ domain.ProfileRepository = (*ProfileRepo)(nil)

func (r *ProfileRepo) PutProfile(ctx context.Context, p *domain.Profile) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, display_name, photo_url, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			display_name  = EXCLUDED.display_name,
			photo_url     = EXCLUDED.photo_url,
			password_hash = EXCLUDED.password_hash
		RETURNING created_at
	`, p.UserID, p.DisplayName, p.PhotoURL, p.PasswordHash).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, photo_url, password_hash, created_at
		FROM profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.DisplayName, &p.PhotoURL, &p.PasswordHash, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}
