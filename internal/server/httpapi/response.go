package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecisionResponse reports the outcome of one approve or reject decision.
type DecisionResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}

// Decision statuses.
const (
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusWarning  = "warning"
	StatusFailed   = "failed"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
