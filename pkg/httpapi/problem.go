package httpapi

import (
	"encoding/json"
	"net/http"
)

// Problem is the structured error body returned by every failure in the
// auth/tenancy core. It never carries stack traces or token material.
type Problem struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteProblem(w http.ResponseWriter, status int, title, detail string) error {
	return WriteJSON(w, status, &Problem{
		Status: status,
		Title:  title,
		Detail: detail,
	})
}

// ValidationProblem carries per-field validation failures.
type ValidationProblem struct {
	Problem
	Fields map[string]string `json:"fields"`
}

func WriteValidationProblem(w http.ResponseWriter, fields map[string]string) error {
	return WriteJSON(w, http.StatusBadRequest, &ValidationProblem{
		Problem: Problem{
			Status: http.StatusBadRequest,
			Title:  "Bad Request",
			Detail: "Request validation failed.",
		},
		Fields: fields,
	})
}

// WriteInvalidToken writes the uniform refresh-failure response. The body is
// identical for unknown, expired, revoked and cross-tenant tokens so callers
// cannot distinguish which case applied.
func WriteInvalidToken(w http.ResponseWriter) error {
	return WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "Invalid refresh token.")
}
