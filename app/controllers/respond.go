package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"taskboard/app/hierarchy"
	"taskboard/app/services"
	"taskboard/app/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, hierarchy.ErrCyclicHierarchy), errors.Is(err, hierarchy.ErrDuplicateID):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if errors.Is(err, hierarchy.ErrCyclicHierarchy) || errors.Is(err, hierarchy.ErrDuplicateID) {
		msg = "could not build task tree: " + msg
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	writeJSON(w, status, errorBody{Error: msg})
}
