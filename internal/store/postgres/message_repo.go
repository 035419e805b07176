package postgres

import (
	"context"
	"database/sql"
	"fmt"

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
	id := uuid.New()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages
			(id, conversation_id, sender_id, type, text, media_url, created_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7)
		RETURNING seq, created_at
	`, id.String(), m.ConversationID, m.SenderID,
		string(m.Type), m.Text, m.MediaURL, string(m.Status),
	).Scan(&m.Seq, &m.Timestamp)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	m.ID = id.String()
	m.Timestamp = m.Timestamp.UTC()
	return nil
}

func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id::text, conversation_id, sender_id, type, text, media_url, created_at, seq, status
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return r.scanMessages(rows)
}

func (r *MessageRepo) UpdateMessageStatus(ctx context.Context, conversationID, messageID string, from, to domain.MessageStatus) error {
	if _, err := uuid.Parse(messageID); err != nil {
		return domain.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET status = $1 WHERE conversation_id = $2 AND id = $3 AND ($4 = '' OR status = $4)`,
		string(to), conversationID, messageID, string(from),
	)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var exists bool
		err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM messages WHERE conversation_id = $1 AND id = $2)`,
			conversationID, messageID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check message: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrStatusChanged
	}
	return nil
}

func (r *MessageRepo) scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()
	res := make([]*domain.Message, 0)
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.SenderID, &m.Type, &m.Text,
			&m.MediaURL, &m.Timestamp, &m.Seq, &m.Status,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		res = append(res, m)
	}
	return res, rows.Err()
}
