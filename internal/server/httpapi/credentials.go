package httpapi

import (
	"net/http"
	"time"

	"github.com/dsavelev/snowchat/internal/server/models"
)

type credentialRequest struct {
	Name        string `json:"name"`
	InstanceURL string `json:"instance_url"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

type credentialUpdateRequest struct {
	Name        *string `json:"name"`
	InstanceURL *string `json:"instance_url"`
	Username    *string `json:"username"`
	Password    *string `json:"password"`
}

// credentialResponse never carries the password.
type credentialResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	InstanceURL string    `json:"instance_url"`
	Username    string    `json:"username"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCredentialResponse(c *models.Credential) credentialResponse {
	return credentialResponse{
		ID:          c.ID,
		Name:        c.Name,
		InstanceURL: c.InstanceURL,
		Username:    c.Username,
		CreatedAt:   c.CreatedAt,
	}
}

func (s *HTTPServer) listCredentials(w http.ResponseWriter, r *http.Request) {
	creds := s.credentials.ListCredentials(r.Context(), userIDFrom(r.Context()))

	out := make([]credentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, toCredentialResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) createCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || req.InstanceURL == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "name, instance_url and username are required")
		return
	}

	userID := userIDFrom(r.Context())
	saved, err := s.credentials.SaveCredential(r.Context(), userID, &models.Credential{
		UserID:      userID,
		Name:        req.Name,
		InstanceURL: req.InstanceURL,
		Username:    req.Username,
		Password:    req.Password,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCredentialResponse(saved))
}

func (s *HTTPServer) updateCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := models.CredentialUpdate{
		Name:        req.Name,
		InstanceURL: req.InstanceURL,
		Username:    req.Username,
		Password:    req.Password,
	}

	saved, err := s.credentials.UpdateCredential(r.Context(), r.PathValue("id"), userIDFrom(r.Context()), upd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(saved))
}

func (s *HTTPServer) deleteCredential(w http.ResponseWriter, r *http.Request) {
	err := s.credentials.DeleteCredential(r.Context(), r.PathValue("id"), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) testCredential(w http.ResponseWriter, r *http.Request) {
	ok := s.credentials.TestConnection(r.Context(), r.PathValue("id"), userIDFrom(r.Context()))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}
