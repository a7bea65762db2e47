package routes

import (
	"context"
	"net/http"
	"snapshoteer/internal/capture"
)

func Screenshot(launcher *capture.Launcher, composer *capture.Composer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		url := query.Get("url")
		if url == "" {
			http.Error(w, "Please provide a URL. Example: ?url=https://example.com", http.StatusBadRequest)
			return
		}

		request, err := capture.NewScreenshotRequest(url, query.Get("size"), query.Get("element"))
		if err != nil {
			http.Error(w, "Malformed size parameter. Example: ?size=800,600", http.StatusBadRequest)
			return
		}

		c := *composer
		c.Logger = loggerFor(r)

		var buffer []byte
		if err := launcher.WithSession(r.Context(), func(ctx context.Context, s *capture.Session) error {
			b, err := c.Capture(ctx, s.Page, request)
			buffer = b
			return err
		}); err != nil {
			writeCaptureError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buffer); err != nil {
			loggerFor(r).Debug("failed to write screenshot", "error", err)
		}
	}
}
