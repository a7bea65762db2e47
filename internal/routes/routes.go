package routes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"snapshoteer/internal/capture"
	"snapshoteer/internal/guard"
	"snapshoteer/internal/myhttp"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// Guard rejects requests carrying a url parameter that may not be captured,
// before any browser is launched. Requests without one pass through.
func Guard(g *guard.Guard, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		if url != "" && !g.IsAllowed(url) {
			myhttp.Logger(r.Context()).Info("rejected url", "url", url)
			writeJSON(w, r, http.StatusInternalServerError, ErrorResponse{
				Error: "URL is either invalid or not allowed",
			})
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		myhttp.Logger(r.Context()).Error("failed to encode response", "error", err)
	}
}

func writeCaptureError(w http.ResponseWriter, r *http.Request, err error) {
	logger := myhttp.Logger(r.Context())

	switch {
	case errors.Is(err, capture.ErrInputRejected):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, capture.ErrElementNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, capture.ErrCaptureUnavailable):
		logger.Error("capture unavailable", "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logger.Error("capture failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func loggerFor(r *http.Request) *slog.Logger {
	return myhttp.Logger(r.Context())
}
