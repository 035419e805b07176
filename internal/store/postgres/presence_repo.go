package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

type PresenceRepo struct {
	db *sql.DB
}

func NewPresenceRepo(db *sql.DB) *PresenceRepo {
	return &PresenceRepo{db: db}
}

var _ domain.PresenceRepository = (*PresenceRepo)(nil)

func (r *PresenceRepo) SetPresence(ctx context.Context, userID string, status domain.PresenceStatus) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO presence (user_id, status, last_seen)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status, last_seen = EXCLUDED.last_seen
	`, userID, string(status))
	if err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

func (r *PresenceRepo) GetPresence(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	rec := &domain.PresenceRecord{UserID: userID}
	var lastSeen time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT status, last_seen FROM presence WHERE user_id = $1`, userID,
	).Scan(&rec.Status, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get presence: %w", err)
	}
	lastSeen = lastSeen.UTC()
	rec.LastSeen = &lastSeen
	return rec, nil
}
