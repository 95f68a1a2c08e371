package httpapi

import (
	"net/http"
	"time"

	"github.com/dsavelev/snowchat/internal/server/models"
)

type messagePayload struct {
	Content    string             `json:"content"`
	Sender     string             `json:"sender"`
	CreatedAt  time.Time          `json:"created_at,omitzero"`
	CodeBlocks []models.CodeBlock `json:"code_blocks,omitempty"`
}

type createConversationRequest struct {
	Title    string           `json:"title"`
	Messages []messagePayload `json:"messages"`
}

type appendMessagesRequest struct {
	Messages []messagePayload `json:"messages"`
}

type renameConversationRequest struct {
	Title string `json:"title"`
}

type conversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID         string             `json:"id"`
	Content    string             `json:"content"`
	Sender     string             `json:"sender"`
	CreatedAt  time.Time          `json:"created_at"`
	CodeBlocks []models.CodeBlock `json:"code_blocks,omitempty"`
}

func toConversationResponse(c *models.Conversation) conversationResponse {
	return conversationResponse{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func toMessageResponse(m *models.Message) messageResponse {
	return messageResponse{
		ID:         m.ID,
		Content:    m.Content,
		Sender:     m.Sender,
		CreatedAt:  m.CreatedAt,
		CodeBlocks: m.CodeBlocks,
	}
}

func toMessages(payloads []messagePayload) ([]*models.Message, bool) {
	msgs := make([]*models.Message, 0, len(payloads))
	for _, p := range payloads {
		if p.Sender != models.SenderUser && p.Sender != models.SenderAI {
			return nil, false
		}
		msgs = append(msgs, &models.Message{
			Content:    p.Content,
			Sender:     p.Sender,
			CreatedAt:  p.CreatedAt,
			CodeBlocks: p.CodeBlocks,
		})
	}
	return msgs, true
}

func (s *HTTPServer) listConversations(w http.ResponseWriter, r *http.Request) {
	convs := s.chat.GetConversations(r.Context(), userIDFrom(r.Context()))

	out := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, toConversationResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	msgs, ok := toMessages(req.Messages)
	if !ok {
		writeError(w, http.StatusBadRequest, "sender must be user or ai")
		return
	}

	conv, err := s.chat.SaveConversation(r.Context(), userIDFrom(r.Context()), req.Title, msgs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toConversationResponse(conv))
}

func (s *HTTPServer) getConversation(w http.ResponseWriter, r *http.Request) {
	conv, msgs, err := s.chat.GetConversationWithMessages(r.Context(), r.PathValue("id"), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if conv == nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": toConversationResponse(conv),
		"messages":     out,
	})
}

func (s *HTTPServer) deleteConversation(w http.ResponseWriter, r *http.Request) {
	err := s.chat.DeleteConversation(r.Context(), r.PathValue("id"), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) renameConversation(w http.ResponseWriter, r *http.Request) {
	var req renameConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	err := s.chat.UpdateConversationTitle(r.Context(), r.PathValue("id"), userIDFrom(r.Context()), req.Title)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) appendMessages(w http.ResponseWriter, r *http.Request) {
	var req appendMessagesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	msgs, ok := toMessages(req.Messages)
	if !ok {
		writeError(w, http.StatusBadRequest, "sender must be user or ai")
		return
	}

	err := s.chat.AppendMessages(r.Context(), r.PathValue("id"), userIDFrom(r.Context()), msgs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"messages": out})
}
