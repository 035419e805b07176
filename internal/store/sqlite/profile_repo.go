package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

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
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO profiles (user_id, display_name, photo_url, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			photo_url = excluded.photo_url,
			password_hash = excluded.password_hash
	`
	_, err := r.db.ExecContext(ctx, query, p.UserID, p.DisplayName, p.PhotoURL, p.PasswordHash, p.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		p         domain.Profile
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, photo_url, password_hash, created_at
		FROM profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.DisplayName, &p.PhotoURL, &p.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &p, nil
}
