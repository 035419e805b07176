package ws

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/IgoorDrt/ErroOps-v1/internal/chatview"
	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 64 << 10
	sendBufferSize = 32
)

// Frame is one server to client message.
type Frame struct {
	Type           string             `json:"type"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Messages       []*domain.Message  `json:"messages,omitempty"`
	Peer           *chatview.PeerInfo `json:"peer,omitempty"`
	Message        string             `json:"message,omitempty"`
}

// Session is one socket showing one conversation. It renders the controller's
// output as frames.
type Session struct {
	userID string
	peerID string
	conn   *websocket.Conn
	logger zerolog.Logger

	controller *chatview.Controller

	send      chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

var _ chatview.View = (*Session)(nil)

func newSession(userID, peerID string, conn *websocket.Conn, logger zerolog.Logger) *Session {
	return &Session{
		userID: userID,
		peerID: peerID,
		conn:   conn,
		logger: logger,
		send:   make(chan Frame, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (s *Session) UserID() string { return s.userID }
func (s *Session) PeerID() string { return s.peerID }

func (s *Session) ShowMessages(msgs []*domain.Message) {
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	s.enqueue(Frame{Type: "messages", ConversationID: s.controller.ConversationID(), Messages: msgs})
}

func (s *Session) ShowPeer(peer chatview.PeerInfo) {
	s.enqueue(Frame{Type: "peer", Peer: &peer})
}

func (s *Session) ShowError(err error) {
	s.enqueue(Frame{Type: "error", Message: err.Error()})
}

// enqueue drops the client when it cannot keep up.
func (s *Session) enqueue(f Frame) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- f:
	case <-s.done:
	default:
		s.logger.Warn().Str("frame", f.Type).Msg("send buffer full, closing socket")
		s.Close()
	}
}

// Attach forwards an upload to the session's conversation.
func (s *Session) Attach(ctx context.Context, typ domain.MessageType, filename, contentType string, r io.Reader) error {
	return s.controller.Attach(ctx, typ, filename, contentType, r)
}

// Close shuts the socket down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// flush writes whatever is queued. Only for use before writePump starts.
func (s *Session) flush() {
	for {
		select {
		case f := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(f); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			return
		case f := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(f); err != nil {
				s.logger.Debug().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
