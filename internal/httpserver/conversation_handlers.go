package httpserver

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/service"
	"github.com/IgoorDrt/ErroOps-v1/internal/ws"
)

type historyResponse struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []*domain.Message `json:"messages"`
}

func handleHistory(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convID, msgs, err := convSvc.History(r.Context(), currentUser.UserID, chi.URLParam(r, "peerID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, historyResponse{ConversationID: convID, Messages: msgs})
	}
}

func handleConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convID := chi.URLParam(r, "conversationID")
		msgs, err := convSvc.HistoryByKey(r.Context(), currentUser.UserID, convID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, historyResponse{ConversationID: convID, Messages: msgs})
	}
}

// handleAttach uploads a multipart "file" into the caller's open conversation
// with the peer. The message appears through the socket like any other send.
func handleAttach(hub *ws.Hub, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		peerID := chi.URLParam(r, "peerID")

		session := hub.Find(currentUser.UserID, peerID)
		if session == nil {
			writeError(w, r, fmt.Errorf("no open conversation with %s: %w", peerID, domain.ErrNotMounted))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse multipart form"})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file"})
			return
		}
		defer file.Close()

		kind := domain.MessageType(r.FormValue("kind"))
		if kind == "" {
			kind = domain.MessageDocument
		}

		if err := session.Attach(r.Context(), kind, header.Filename, header.Header.Get("Content-Type"), file); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
