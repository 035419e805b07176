package sqlite

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
	query := `
		INSERT INTO presence (user_id, status, last_seen)
		VALUES (?, ?, ` + nowMillis + `)
		ON CONFLICT(user_id) DO UPDATE SET status = excluded.status, last_seen = excluded.last_seen
	`
	if _, err := r.db.ExecContext(ctx, query, userID, string(status)); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

func (r *PresenceRepo) GetPresence(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	var (
		rec      = domain.PresenceRecord{UserID: userID}
		lastSeen int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT status, last_seen FROM presence WHERE user_id = ?`, userID,
	).Scan(&rec.Status, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get presence: %w", err)
	}
	ls := time.UnixMilli(lastSeen).UTC()
	rec.LastSeen = &ls
	return &rec, nil
}
