// Package redisstore is the Redis backend of the document store. Each message is a
// hash; a conversation is a list of message ids plus a sequence counter.
package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

// setStatus refuses to create a hash for an unknown message id and only
// writes while the stored status equals ARGV[2] (or ARGV[2] is empty).
var setStatus = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
if ARGV[2] ~= "" and redis.call("HGET", KEYS[1], "status") ~= ARGV[2] then
	return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[1])
return 1
`)

type Store struct {
	rdb redis.UniversalClient
	now func() time.Time
}

var _ domain.Backend = (*Store)(nil)

func New(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb, now: time.Now}
}

// Keys share the conversation hash tag so a cluster keeps them on one slot.
func logKey(conv string) string      { return "chat:{" + conv + "}:log" }
func seqKey(conv string) string      { return "chat:{" + conv + "}:seq" }
func msgKey(conv, id string) string  { return "chat:{" + conv + "}:msg:" + id }
func presenceKey(user string) string { return "presence:" + user }
func profileKey(user string) string  { return "profile:" + user }

func (s *Store) AppendMessage(ctx context.Context, m *domain.Message) error {
	seq, err := s.rdb.Incr(ctx, seqKey(m.ConversationID)).Result()
	if err != nil {
		return errors.Wrap(err, "redisStore.AppendMessage.Incr")
	}

	id := uuid.NewString()
	ts := s.now().UTC()
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, msgKey(m.ConversationID, id),
			"id", id,
			"conversation_id", m.ConversationID,
			"sender_id", m.SenderID,
			"type", string(m.Type),
			"text", m.Text,
			"media_url", m.MediaURL,
			"ts", ts.UnixMicro(),
			"seq", seq,
			"status", string(m.Status),
		)
		p.RPush(ctx, logKey(m.ConversationID), id)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "redisStore.AppendMessage.Tx")
	}

	m.ID = id
	m.Timestamp = time.UnixMicro(ts.UnixMicro()).UTC()
	m.Seq = seq
	return nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	ids, err := s.rdb.LRange(ctx, logKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redisStore.ListMessages.LRange")
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, msgKey(conversationID, id))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "redisStore.ListMessages.HGetAll")
	}

	res := make([]*domain.Message, 0, len(ids))
	for _, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		m, err := decodeMessage(h)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	domain.SortMessages(res)
	return res, nil
}

func decodeMessage(h map[string]string) (*domain.Message, error) {
	ts, err := strconv.ParseInt(h["ts"], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "redisStore.decodeMessage: ts of %s", h["id"])
	}
	seq, err := strconv.ParseInt(h["seq"], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "redisStore.decodeMessage: seq of %s", h["id"])
	}
	return &domain.Message{
		ID:             h["id"],
		ConversationID: h["conversation_id"],
		SenderID:       h["sender_id"],
		Type:           domain.MessageType(h["type"]),
		Text:           h["text"],
		MediaURL:       h["media_url"],
		Timestamp:      time.UnixMicro(ts).UTC(),
		Seq:            seq,
		Status:         domain.MessageStatus(h["status"]),
	}, nil
}

func (s *Store) UpdateMessageStatus(ctx context.Context, conversationID, messageID string, from, to domain.MessageStatus) error {
	n, err := setStatus.Run(ctx, s.rdb, []string{msgKey(conversationID, messageID)}, string(to), string(from)).Int()
	if err != nil {
		return errors.Wrap(err, "redisStore.UpdateMessageStatus.Eval")
	}
	switch {
	case n < 0:
		return domain.ErrNotFound
	case n == 0:
		return domain.ErrStatusChanged
	}
	return nil
}

func (s *Store) SetPresence(ctx context.Context, userID string, status domain.PresenceStatus) error {
	err := s.rdb.HSet(ctx, presenceKey(userID),
		"status", string(status),
		"last_seen", s.now().UnixMilli(),
	).Err()
	return errors.Wrap(err, "redisStore.SetPresence.HSet")
}

func (s *Store) GetPresence(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	h, err := s.rdb.HGetAll(ctx, presenceKey(userID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redisStore.GetPresence.HGetAll")
	}
	if len(h) == 0 {
		return nil, nil
	}
	rec := &domain.PresenceRecord{UserID: userID, Status: domain.PresenceStatus(h["status"])}
	if ms, err := strconv.ParseInt(h["last_seen"], 10, 64); err == nil {
		ls := time.UnixMilli(ms).UTC()
		rec.LastSeen = &ls
	}
	return rec, nil
}

func (s *Store) PutProfile(ctx context.Context, p *domain.Profile) error {
	err := s.rdb.HSetNX(ctx, profileKey(p.UserID), "created_at", s.now().UnixMilli()).Err()
	if err != nil {
		return errors.Wrap(err, "redisStore.PutProfile.HSetNX")
	}
	err = s.rdb.HSet(ctx, profileKey(p.UserID),
		"user_id", p.UserID,
		"display_name", p.DisplayName,
		"photo_url", p.PhotoURL,
		"password_hash", p.PasswordHash,
	).Err()
	return errors.Wrap(err, "redisStore.PutProfile.HSet")
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	h, err := s.rdb.HGetAll(ctx, profileKey(userID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redisStore.GetProfile.HGetAll")
	}
	if len(h) == 0 {
		return nil, nil
	}
	p := &domain.Profile{
		UserID:       h["user_id"],
		DisplayName:  h["display_name"],
		PhotoURL:     h["photo_url"],
		PasswordHash: h["password_hash"],
	}
	if ms, err := strconv.ParseInt(h["created_at"], 10, 64); err == nil {
		p.CreatedAt = time.UnixMilli(ms).UTC()
	}
	return p, nil
}
