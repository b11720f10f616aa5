package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error is an HTTP boundary error rendered as {"detail": ...}.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func writeError(w http.ResponseWriter, err error) {
	var httpErr *Error
	if !errors.As(err, &httpErr) {
		httpErr = &Error{Status: http.StatusInternalServerError, Detail: "Internal Server Error"}
	}
	writeJSON(w, httpErr.Status, map[string]string{"detail": httpErr.Detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
