package response

import (
	"errors"
	"log/slog"
	"net/http"
)

var (
	ErrNotFound         = errors.New("requested resource does not exist")
	ErrMethodNotAllowed = errors.New("method is not allowed for this resource")
)

func NewNotFoundHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Warn("Resource not found", "method", r.Method, "path", r.URL.Path)
		RenderError(w, ErrNotFound, http.StatusNotFound)
	}
}

func NewMethodNotAllowedHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
		RenderError(w, ErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}
}
