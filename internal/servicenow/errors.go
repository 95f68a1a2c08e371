package servicenow

import "fmt"

// RequestError is the normalized form of a non-2xx response from a
// ServiceNow instance.
type RequestError struct {
	Status  int
	Message string
	Detail  string
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("servicenow: status %d: %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("servicenow: status %d: %s", e.Status, e.Message)
}
