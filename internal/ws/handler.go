package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/IgoorDrt/ErroOps-v1/internal/chatview"
	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

// makeCheckOrigin admits requests without an Origin header (non-browser
// clients) and browsers from the allowed list.
func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	_, wildcard := allowed["*"]

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" || wildcard {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") && parts[1] != "" {
			return parts[1], nil
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// inbound is one client to server message.
type inbound struct {
	Type     string `json:"type"`
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	MediaURL string `json:"media_url"`
}

// MakeHandler returns the handler of GET /ws?peer=<id>. Each socket opens one
// conversation between the token's user and peer and handles:
//   - send       -> send a text, image or document message
//   - draft      -> replace the compose buffer
//   - send_draft -> send the compose buffer as text
func MakeHandler(
	hub *Hub,
	auth *service.AuthService,
	deps chatview.Deps,
	allowedOrigins []string,
	logger zerolog.Logger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}
	logger = logger.With().Str("component", "ws").Logger()

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			var authErr wsAuthError
			if errors.As(err, &authErr) {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		userID, err := auth.Resume(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		peerID := strings.TrimSpace(r.URL.Query().Get("peer"))
		if peerID != "" {
			peer, err := deps.Profiles.GetProfile(r.Context(), peerID)
			if err != nil {
				http.Error(w, "failed to load peer", http.StatusInternalServerError)
				return
			}
			if peer == nil {
				http.Error(w, "peer not found", http.StatusNotFound)
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.SetReadLimit(maxFrameSize)

		sessLogger := logger.With().Str("user_id", userID).Str("peer_id", peerID).Logger()
		s := newSession(userID, peerID, conn, sessLogger)
		s.controller = chatview.NewController(deps, userID, peerID, s)

		// registered before mounting so a logout racing the mount still
		// reaches this session
		hub.Register(s)
		if err := s.controller.Mount(r.Context()); err != nil {
			hub.Unregister(s)
			s.flush()
			s.Close()
			return
		}
		go s.writePump()

		defer func() {
			hub.Unregister(s)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			s.controller.Unmount(ctx)
			cancel()
			s.Close()
		}()

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			var in inbound
			if err := conn.ReadJSON(&in); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					sessLogger.Debug().Err(err).Msg("socket closed")
				}
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			handleInbound(r.Context(), s, in)
		}
	}
}

func handleInbound(ctx context.Context, s *Session, in inbound) {
	var err error
	switch in.Type {
	case "send":
		kind := domain.MessageType(in.Kind)
		if kind == "" {
			kind = domain.MessageText
		}
		content := in.Text
		if kind != domain.MessageText {
			content = in.MediaURL
		}
		err = s.controller.Send(ctx, content, kind)
	case "draft":
		s.controller.SetDraft(in.Text)
	case "send_draft":
		err = s.controller.SendDraft(ctx)
	default:
		err = fmt.Errorf("unknown event type %q: %w", in.Type, domain.ErrInvalidInput)
	}
	if err != nil {
		s.ShowError(err)
	}
}
