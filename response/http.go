package response

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	JSONContentType = "application/json"
	TextContentType = "text/plain; charset=utf-8"
)

type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func RenderFatal(w http.ResponseWriter, err error) {
	RenderError(w, err, http.StatusInternalServerError)
}

func RenderError(w http.ResponseWriter, err error, statusCode int) {
	body, marshalErr := json.Marshal(ErrorResponse{Error: err.Error(), Status: statusCode})
	if marshalErr != nil {
		w.Header().Set("Content-Type", TextContentType)
		http.Error(w, err.Error(), statusCode)
		return
	}

	w.Header().Set("Content-Type", JSONContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// RenderJSON writes data with status 200.
func RenderJSON(w http.ResponseWriter, data any) {
	RenderJSONStatus(w, http.StatusOK, data)
}

func RenderJSONStatus(w http.ResponseWriter, statusCode int, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		RenderFatal(w, fmt.Errorf("failed to marshal data: %w", err))
		return
	}

	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(statusCode)
	_, _ = w.Write(jsonData)
}

func RenderNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
