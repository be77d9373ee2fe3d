// Package problems renders the JSON error bodies returned at the HTTP boundary.
package problems

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
)

// Detail is the error object of a failed response.
type Detail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Type links to documentation for the code when PROBLEM_BASE_URL or
	// BASE_PUBLIC_URL is set.
	Type string `json:"type,omitempty"`
}

// Body is the response envelope: {success, error?}.
type Body struct {
	Success bool    `json:"success"`
	Error   *Detail `json:"error,omitempty"`
}

// Base returns the base URL for problem type identifiers.
// Order of precedence:
// 1. PROBLEM_BASE_URL (exact base, e.g. https://mydomain.com/problems)
// 2. BASE_PUBLIC_URL + "/problems" (if set)
// Empty when neither is set.
func Base() string {
	if b := os.Getenv("PROBLEM_BASE_URL"); b != "" {
		return strings.TrimRight(b, "/")
	}
	if b := os.Getenv("BASE_PUBLIC_URL"); b != "" {
		return strings.TrimRight(b, "/") + "/problems"
	}
	return ""
}

// Type builds a full problem type URL for an error code, e.g.
// UNKNOWN_APP_ID -> <base>/unknown-app-id.
func Type(code string) string {
	b := Base()
	if b == "" {
		return ""
	}
	return b + "/" + strings.ReplaceAll(strings.ToLower(code), "_", "-")
}

func WriteJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write sends {success:false, error:{code, message}} with status.
func Write(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, Body{Error: &Detail{Code: code, Message: message, Type: Type(code)}}, status)
}

// OK sends 200 {success:true}.
func OK(w http.ResponseWriter) {
	WriteJSON(w, Body{Success: true}, http.StatusOK)
}
