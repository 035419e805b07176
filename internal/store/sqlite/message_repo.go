package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageLog = (*MessageRepo)(nil)

func (r *MessageRepo) AppendMessage(ctx context.Context, m *domain.Message) error {
	id := uuid.NewString()
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, type, text, media_url, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ` + nowMillis + `, ?)
		RETURNING seq, created_at
	`
	var createdAt int64
	err := r.db.QueryRowContext(ctx, query,
		id,
		m.ConversationID,
		m.SenderID,
		string(m.Type),
		m.Text,
		m.MediaURL,
		string(m.Status),
	).Scan(&m.Seq, &createdAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	m.ID = id
	m.Timestamp = time.UnixMilli(createdAt).UTC()
	return nil
}

func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, type, text, media_url, created_at, seq, status
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	res := make([]*domain.Message, 0)
	for rows.Next() {
		var (
			m         domain.Message
			createdAt int64
		)
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.Type,
			&m.Text,
			&m.MediaURL,
			&createdAt,
			&m.Seq,
			&m.Status,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Timestamp = time.UnixMilli(createdAt).UTC()
		res = append(res, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return res, nil
}

func (r *MessageRepo) UpdateMessageStatus(ctx context.Context, conversationID, messageID string, from, to domain.MessageStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET status = ? WHERE conversation_id = ? AND id = ? AND (? = '' OR status = ?)`,
		string(to), conversationID, messageID, string(from), string(from),
	)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return r.missOrChanged(ctx, conversationID, messageID)
	}
	return nil
}

// missOrChanged explains an update that matched no row.
func (r *MessageRepo) missOrChanged(ctx context.Context, conversationID, messageID string) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM messages WHERE conversation_id = ? AND id = ?`,
		conversationID, messageID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check message: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrStatusChanged
}
