package routes

import (
	"context"
	"net/http"
	"os"
	"snapshoteer/internal/capture"
	"strings"
)

type BrowserStatus struct {
	UserAgent string `json:"user-agent"`
	Version   string `json:"version"`
}

type StatusResponse struct {
	Status   string        `json:"status"`
	CommitID string        `json:"commit_id"`
	Browser  BrowserStatus `json:"browser"`
}

// Status reports the build and the browser a capture would run with. It
// launches a browser like any capture does.
func Status(launcher *capture.Launcher, commitIDFile string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := loggerFor(r)

		commitID := "unknown"
		if data, err := os.ReadFile(commitIDFile); err == nil {
			commitID = strings.TrimSpace(string(data))
		} else {
			logger.Debug("failed to read commit id", "error", err)
		}

		var browser BrowserStatus
		if err := launcher.WithSession(r.Context(), func(ctx context.Context, s *capture.Session) error {
			userAgent, err := s.Browser.UserAgent()
			if err != nil {
				return err
			}
			browser = BrowserStatus{
				UserAgent: userAgent,
				Version:   s.Browser.Version(),
			}
			return nil
		}); err != nil {
			writeCaptureError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, StatusResponse{
			Status:   "ok",
			CommitID: commitID,
			Browser:  browser,
		})
	}
}
