// Package scylla is the ScyllaDB/Cassandra backend of the document store.
package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/snowflake"
)

func newCluster(hosts []string, keyspace string) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}
	return cluster
}

// Connect creates keyspace if needed and opens a session bound to it.
func Connect(hosts []string, keyspace string, logger zerolog.Logger) (*gocql.Session, error) {
	boot, err := newCluster(hosts, "").CreateSession()
	if err != nil {
		return nil, errors.Wrap(err, "scylla.Connect.bootstrap")
	}
	err = boot.Query(fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, keyspace)).Exec()
	boot.Close()
	if err != nil {
		return nil, errors.Wrap(err, "scylla.Connect.createKeyspace")
	}

	session, err := newCluster(hosts, keyspace).CreateSession()
	if err != nil {
		return nil, errors.Wrap(err, "scylla.Connect.session")
	}
	logger.Info().Strs("hosts", hosts).Str("keyspace", keyspace).Msg("connected to ScyllaDB cluster")
	return session, nil
}

// Migrate creates the tables of the chat keyspace.
func Migrate(session *gocql.Session) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			conversation_id text,
			id text,
			sender_id text,
			type text,
			text text,
			media_url text,
			ts timestamp,
			seq bigint,
			status text,
			PRIMARY KEY (conversation_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS presence (
			user_id text PRIMARY KEY,
			status text,
			last_seen timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id text PRIMARY KEY,
			display_name text,
			photo_url text,
			password_hash text,
			created_at timestamp
		)`,
	}
	for _, stmt := range stmts {
		if err := session.Query(stmt).Exec(); err != nil {
			return errors.Wrapf(err, "scylla.Migrate: %s", stmt)
		}
	}
	return nil
}

// Store keeps one partition per conversation. Seq is a snowflake id, so it
// carries the write time and orders messages across nodes.
type Store struct {
	session *gocql.Session
	ids     *snowflake.Node
}

var _ domain.Backend = (*Store)(nil)

func New(session *gocql.Session, ids *snowflake.Node) *Store {
	return &Store{session: session, ids: ids}
}

func (s *Store) AppendMessage(ctx context.Context, m *domain.Message) error {
	seq := s.ids.Generate()
	id := uuid.NewString()
	ts := snowflake.Time(seq).UTC()

	err := s.session.Query(`
		INSERT INTO messages (conversation_id, id, sender_id, type, text, media_url, ts, seq, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ConversationID, id, m.SenderID, string(m.Type), m.Text, m.MediaURL, ts, seq, string(m.Status),
	).WithContext(ctx).Exec()
	if err != nil {
		return errors.Wrap(err, "scyllaStore.AppendMessage.Insert")
	}

	m.ID = id
	m.Timestamp = ts
	m.Seq = seq
	return nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	iter := s.session.Query(`
		SELECT id, sender_id, type, text, media_url, ts, seq, status
		FROM messages WHERE conversation_id = ?`, conversationID,
	).WithContext(ctx).Iter()

	res := make([]*domain.Message, 0)
	var (
		id, sender, typ, text, media, status string
		ts                                   time.Time
		seq                                  int64
	)
	for iter.Scan(&id, &sender, &typ, &text, &media, &ts, &seq, &status) {
		res = append(res, &domain.Message{
			ID:             id,
			ConversationID: conversationID,
			SenderID:       sender,
			Type:           domain.MessageType(typ),
			Text:           text,
			MediaURL:       media,
			Timestamp:      ts.UTC(),
			Seq:            seq,
			Status:         domain.MessageStatus(status),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(err, "scyllaStore.ListMessages.Iter")
	}
	domain.SortMessages(res)
	return res, nil
}

func (s *Store) UpdateMessageStatus(ctx context.Context, conversationID, messageID string, from, to domain.MessageStatus) error {
	var q *gocql.Query
	if from == "" {
		q = s.session.Query(`
			UPDATE messages SET status = ? WHERE conversation_id = ? AND id = ? IF EXISTS`,
			string(to), conversationID, messageID)
	} else {
		q = s.session.Query(`
			UPDATE messages SET status = ? WHERE conversation_id = ? AND id = ? IF status = ?`,
			string(to), conversationID, messageID, string(from))
	}
	previous := map[string]interface{}{}
	applied, err := q.WithContext(ctx).MapScanCAS(previous)
	if err != nil {
		return errors.Wrap(err, "scyllaStore.UpdateMessageStatus.CAS")
	}
	if applied {
		return nil
	}
	// a failed IF status = ? on a missing row reports a null status
	if st, ok := previous["status"].(string); from != "" && ok && st != "" {
		return domain.ErrStatusChanged
	}
	return domain.ErrNotFound
}

func (s *Store) SetPresence(ctx context.Context, userID string, status domain.PresenceStatus) error {
	err := s.session.Query(`
		INSERT INTO presence (user_id, status, last_seen) VALUES (?, ?, toTimestamp(now()))`,
		userID, string(status),
	).WithContext(ctx).Exec()
	return errors.Wrap(err, "scyllaStore.SetPresence.Insert")
}

func (s *Store) GetPresence(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	var (
		status   string
		lastSeen time.Time
	)
	err := s.session.Query(`SELECT status, last_seen FROM presence WHERE user_id = ?`, userID).
		WithContext(ctx).Scan(&status, &lastSeen)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scyllaStore.GetPresence.Scan")
	}
	lastSeen = lastSeen.UTC()
	return &domain.PresenceRecord{UserID: userID, Status: domain.PresenceStatus(status), LastSeen: &lastSeen}, nil
}

func (s *Store) PutProfile(ctx context.Context, p *domain.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	err := s.session.Query(`
		UPDATE profiles SET display_name = ?, photo_url = ?, password_hash = ? WHERE user_id = ?`,
		p.DisplayName, p.PhotoURL, p.PasswordHash, p.UserID,
	).WithContext(ctx).Exec()
	if err != nil {
		return errors.Wrap(err, "scyllaStore.PutProfile.Update")
	}
	// first writer wins for created_at
	_, err = s.session.Query(`
		UPDATE profiles SET created_at = ? WHERE user_id = ? IF created_at = null`,
		p.CreatedAt, p.UserID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	return errors.Wrap(err, "scyllaStore.PutProfile.CreatedAt")
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p := &domain.Profile{UserID: userID}
	err := s.session.Query(`
		SELECT display_name, photo_url, password_hash, created_at FROM profiles WHERE user_id = ?`, userID,
	).WithContext(ctx).Scan(&p.DisplayName, &p.PhotoURL, &p.PasswordHash, &p.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scyllaStore.GetProfile.Scan")
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}
