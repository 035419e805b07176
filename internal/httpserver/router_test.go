package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/IgoorDrt/ErroOps-v1/internal/blob"
	"github.com/IgoorDrt/ErroOps-v1/internal/chatview"
	"github.com/IgoorDrt/ErroOps-v1/internal/config"
	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/feed"
	"github.com/IgoorDrt/ErroOps-v1/internal/httpserver"
	"github.com/IgoorDrt/ErroOps-v1/internal/messages"
	"github.com/IgoorDrt/ErroOps-v1/internal/presence"
	"github.com/IgoorDrt/ErroOps-v1/internal/security"
	"github.com/IgoorDrt/ErroOps-v1/internal/service"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/memory"
	"github.com/IgoorDrt/ErroOps-v1/internal/ws"
)

type testServer struct {
	srv      *httptest.Server
	store    *memory.Store
	adapter  *messages.Adapter
	sessions *service.Sessions
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	store := memory.New()
	f := feed.NewLocal()
	sessions := service.NewSessions()
	tokens := security.NewTokenService("secret", time.Hour)
	blobs := blob.NewFilesystem(t.TempDir(), "http://localhost", 1<<20)
	adapter := messages.NewAdapter(store, f, logger)

	cfg := &config.Config{
		AppName:        "chat",
		CORSOrigins:    []string{"http://localhost:3000"},
		MaxUploadBytes: 1 << 20,
	}
	router := httpserver.NewRouter(cfg, httpserver.Dependencies{
		Tokens:        tokens,
		Auth:          service.NewAuthService(store, tokens, security.NewPasswordHasher(bcrypt.MinCost), sessions),
		Users:         service.NewUserService(store, store),
		Conversations: service.NewConversationService(adapter),
		Profiles:      store,
		Blobs:         blobs,
		Hub:           ws.NewHub(),
		Chat: chatview.Deps{
			Messages:      adapter,
			Presence:      presence.NewTracker(store, f, sessions, logger, time.Second),
			Profiles:      store,
			Blobs:         blobs,
			StatusWorkers: 2,
			Logger:        logger,
		},
		Logger: logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: store, adapter: adapter, sessions: sessions}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (ts *testServer) register(t *testing.T, userID string) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"user_id":      userID,
		"display_name": "User " + userID,
		"password":     "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out service.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDocs(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/docs/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		OpenAPI string         `json:"openapi"`
		Paths   map[string]any `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Contains(t, doc.Paths, "/api/chats/{peerID}/attachments")

	resp = ts.do(t, http.MethodGet, "/docs/index.html", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	t.Run("register logs in", func(t *testing.T) {
		token := ts.register(t, "alice")
		assert.True(t, ts.sessions.SignedIn("alice"))

		resp := ts.do(t, http.MethodGet, "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var me domain.Profile
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
		assert.Equal(t, "alice", me.UserID)
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
			"user_id": "alice", "password": "secret123",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("invalid user id", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
			"user_id": "a_b", "password": "secret123",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"user_id": "alice", "password": "nope-nope",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout signs out", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"user_id": "alice", "password": "secret123",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out service.TokenResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

		resp = ts.do(t, http.MethodPost, "/api/auth/logout", out.AccessToken, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.False(t, ts.sessions.SignedIn("alice"))
	})
}

func TestUserCardAndProfile(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")
	ts.register(t, "bob")
	require.NoError(t, ts.store.SetPresence(context.Background(), "bob", domain.PresenceOnline))

	resp := ts.do(t, http.MethodGet, "/api/users/bob", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var card map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	assert.Equal(t, "bob", card["user_id"])
	assert.Equal(t, "online", card["status"])

	resp = ts.do(t, http.MethodGet, "/api/users/nobody", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPatch, "/api/users/me", token, map[string]string{
		"display_name": "Alice A.",
		"photo_url":    "http://img/a.png",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p, err := ts.store.GetProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", p.DisplayName)
	assert.Equal(t, "http://img/a.png", p.PhotoURL)
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")
	ts.register(t, "bob")

	ctx := context.Background()
	for _, text := range []string{"one", "two"} {
		require.NoError(t, ts.adapter.Append(ctx, "alice_bob", &domain.Message{SenderID: "bob", Type: domain.MessageText, Text: text}))
	}

	resp := ts.do(t, http.MethodGet, "/api/chats/bob/messages", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		ConversationID string            `json:"conversation_id"`
		Messages       []*domain.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "alice_bob", out.ConversationID)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "one", out.Messages[0].Text)
	assert.Equal(t, "two", out.Messages[1].Text)

	resp = ts.do(t, http.MethodGet, "/api/conversations/alice_bob/messages", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	carol := ts.register(t, "carol")
	resp = ts.do(t, http.MethodGet, "/api/conversations/alice_bob/messages", carol, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAttachWithoutOpenConversation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "notes.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF"))
	require.NoError(t, mw.WriteField("kind", "document"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/chats/bob/attachments", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUploadsRejectTraversal(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/api/uploads/..%2Fsecret", "", nil)
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/uploads/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
