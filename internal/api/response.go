package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gyaneshwarpardhi/powergrid/internal/circuit"
	"github.com/gyaneshwarpardhi/powergrid/internal/engine"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps engine and circuit errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, circuit.ErrUnknownNode), errors.Is(err, circuit.ErrNullEndpoint):
		return http.StatusNotFound
	case errors.Is(err, circuit.ErrIllegalEdge), errors.Is(err, circuit.ErrInvalidSourceActivation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrCommandTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
