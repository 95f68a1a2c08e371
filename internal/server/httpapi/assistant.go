package httpapi

import (
	"net/http"

	"github.com/dsavelev/snowchat/internal/llm"
	"github.com/dsavelev/snowchat/internal/server/models"
)

type chatSettingsRequest struct {
	APIKey    string `json:"api_key"`
	IsEnabled bool   `json:"is_enabled"`
}

type chatSettingsResponse struct {
	IsEnabled bool `json:"is_enabled"`
}

type completeRequest struct {
	Messages []llm.Message `json:"messages"`
}

func toChatSettingsResponse(s *models.ChatSettings) chatSettingsResponse {
	return chatSettingsResponse{IsEnabled: s.IsEnabled}
}

func (s *HTTPServer) getChatSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.assistant.GetSettings(r.Context(), userIDFrom(r.Context()))
	if settings == nil {
		writeError(w, http.StatusNotFound, "no chat settings stored")
		return
	}
	writeJSON(w, http.StatusOK, toChatSettingsResponse(settings))
}

func (s *HTTPServer) putChatSettings(w http.ResponseWriter, r *http.Request) {
	var req chatSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsEnabled && req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "api_key is required to enable the assistant")
		return
	}

	saved, err := s.assistant.SaveSettings(r.Context(), userIDFrom(r.Context()), req.APIKey, req.IsEnabled)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toChatSettingsResponse(saved))
}

func (s *HTTPServer) complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	msg, err := s.assistant.Complete(r.Context(), userIDFrom(r.Context()), req.Messages)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": toMessageResponse(msg)})
}
