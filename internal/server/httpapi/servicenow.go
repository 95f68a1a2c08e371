package httpapi

import (
	"net/http"

	"github.com/dsavelev/snowchat/internal/servicenow"
)

type queryRequest struct {
	Table   string   `json:"table"`
	Query   string   `json:"query"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	Fields  []string `json:"fields"`
	OrderBy string   `json:"order_by"`
	Order   string   `json:"order"`
}

type recordRequest struct {
	Table  string            `json:"table"`
	SysID  string            `json:"sys_id"`
	Fields servicenow.Record `json:"fields"`
}

type getRecordRequest struct {
	Table  string   `json:"table"`
	SysID  string   `json:"sys_id"`
	Fields []string `json:"fields"`
}

type scriptRequest struct {
	Script string `json:"script"`
}

// clientFor resolves the path credential into an API client or writes the
// error response. A nil client means the response has been written.
func (s *HTTPServer) clientFor(w http.ResponseWriter, r *http.Request) *servicenow.Client {
	client := s.credentials.GetClient(r.Context(), r.PathValue("credID"), userIDFrom(r.Context()))
	if client == nil {
		writeError(w, http.StatusNotFound, "credential not found")
		return nil
	}
	return client
}

func (s *HTTPServer) queryRecords(w http.ResponseWriter, r *http.Request) {
	client := s.clientFor(w, r)
	if client == nil {
		return
	}

	var req queryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Table == "" {
		writeError(w, http.StatusBadRequest, "table is required")
		return
	}

	records, err := client.QueryRecords(r.Context(), req.Table, servicenow.QueryOptions{
		Query:   req.Query,
		Limit:   req.Limit,
		Offset:  req.Offset,
		Fields:  req.Fields,
		OrderBy: req.OrderBy,
		Order:   req.Order,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *HTTPServer) getRecord(w http.ResponseWriter, r *http.Request) {
	client := s.clientFor(w, r)
	if client == nil {
		return
	}

	var req getRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Table == "" || req.SysID == "" {
		writeError(w, http.StatusBadRequest, "table and sys_id are required")
		return
	}

	record, err := client.GetRecord(r.Context(), req.Table, req.SysID, req.Fields)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"record": record})
}

func (s *HTTPServer) createRecord(w http.ResponseWriter, r *http.Request) {
	client := s.clientFor(w, r)
	if client == nil {
		return
	}

	var req recordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Table == "" {
		writeError(w, http.StatusBadRequest, "table is required")
		return
	}

	record, err := client.CreateRecord(r.Context(), req.Table, req.Fields)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"record": record})
}

func (s *HTTPServer) updateRecord(w http.ResponseWriter, r *http.Request) {
	client := s.clientFor(w, r)
	if client == nil {
		return
	}

	var req recordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Table == "" || req.SysID == "" {
		writeError(w, http.StatusBadRequest, "table and sys_id are required")
		return
	}

	record, err := client.UpdateRecord(r.Context(), req.Table, req.SysID, req.Fields)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"record": record})
}

func (s *HTTPServer) deleteRecord(w http.ResponseWriter, r *http.Request) {
	client := s.clientFor(w, r)
	if client == nil {
		return
	}

	var req recordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Table == "" || req.SysID == "" {
		writeError(w, http.StatusBadRequest, "table and sys_id are required")
		return
	}

	if err := client.DeleteRecord(r.Context(), req.Table, req.SysID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) executeScript(w http.ResponseWriter, r *http.Request) {
	client := s.clientFor(w, r)
	if client == nil {
		return
	}

	var req scriptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Script == "" {
		writeError(w, http.StatusBadRequest, "script is required")
		return
	}

	result, err := client.ExecuteScript(r.Context(), req.Script)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}
