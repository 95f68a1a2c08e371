// Package httpapi exposes the server's functionality as an owner-scoped JSON
// API. Every endpoint requires a Bearer token; the token subject is the owner
// of everything the request touches.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/logging"
	"github.com/dsavelev/snowchat/internal/server/services"
	"github.com/dsavelev/snowchat/internal/servicenow"
)

// HTTPServer serves the JSON API on top of the service layer.
type HTTPServer struct {
	address     string
	credentials *services.CredentialService
	chat        *services.ChatService
	assistant   *services.AssistantService
	jwtSecret   []byte
	log         logging.Logger
}

// NewHTTPServer constructs the API server.
func NewHTTPServer(address string, l logging.Logger, cs *services.CredentialService, chs *services.ChatService, as *services.AssistantService, secretKey string) *HTTPServer {
	return &HTTPServer{
		address:     address,
		credentials: cs,
		chat:        chs,
		assistant:   as,
		jwtSecret:   []byte(secretKey),
		log:         l.With("module", "http_server"),
	}
}

// Handler builds the routing table with auth and logging applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/credentials", s.listCredentials)
	mux.HandleFunc("POST /api/credentials", s.createCredential)
	mux.HandleFunc("PATCH /api/credentials/{id}", s.updateCredential)
	mux.HandleFunc("DELETE /api/credentials/{id}", s.deleteCredential)
	mux.HandleFunc("POST /api/credentials/{id}/test", s.testCredential)

	mux.HandleFunc("POST /api/servicenow/{credID}/query", s.queryRecords)
	mux.HandleFunc("POST /api/servicenow/{credID}/get", s.getRecord)
	mux.HandleFunc("POST /api/servicenow/{credID}/create", s.createRecord)
	mux.HandleFunc("POST /api/servicenow/{credID}/update", s.updateRecord)
	mux.HandleFunc("POST /api/servicenow/{credID}/delete", s.deleteRecord)
	mux.HandleFunc("POST /api/servicenow/{credID}/script", s.executeScript)

	mux.HandleFunc("GET /api/conversations", s.listConversations)
	mux.HandleFunc("POST /api/conversations", s.createConversation)
	mux.HandleFunc("GET /api/conversations/{id}", s.getConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", s.deleteConversation)
	mux.HandleFunc("PATCH /api/conversations/{id}/title", s.renameConversation)
	mux.HandleFunc("POST /api/conversations/{id}/messages", s.appendMessages)

	mux.HandleFunc("GET /api/settings/chat", s.getChatSettings)
	mux.HandleFunc("PUT /api/settings/chat", s.putChatSettings)

	mux.HandleFunc("POST /api/assistant/complete", s.complete)

	return chainMiddlewares(mux, s.withAuth, s.withLogging)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.log.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service layer errors onto HTTP statuses. Instance
// API errors keep the upstream status so callers can tell a bad query from a
// broken instance.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *servicenow.RequestError

	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrOwnershipMismatch):
		writeError(w, http.StatusForbidden, "credential belongs to another user")
	case errors.Is(err, common.ErrAssistantDisabled):
		writeError(w, http.StatusForbidden, "assistant is not enabled")
	case errors.As(err, &reqErr):
		writeError(w, reqErr.Status, reqErr.Message)
	case errors.Is(err, common.ErrAuthentication):
		writeError(w, http.StatusBadGateway, "instance authentication failed")
	case errors.Is(err, common.ErrNetwork):
		writeError(w, http.StatusBadGateway, "instance unreachable")
	default:
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
