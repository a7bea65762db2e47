package routes

import (
	"context"
	"net/http"
	"snapshoteer/internal/capture"
)

type DownloadResponse struct {
	Status    int      `json:"status"`
	Index     string   `json:"index"`
	Resources []string `json:"resources"`
}

func Download(launcher *capture.Launcher, interceptor *capture.Interceptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		if url == "" {
			http.Error(w, "Please provide a URL. Example: ?url=https://example.com", http.StatusBadRequest)
			return
		}

		i := *interceptor
		i.Logger = loggerFor(r)

		var snapshot *capture.Snapshot
		if err := launcher.WithSession(r.Context(), func(ctx context.Context, s *capture.Session) error {
			result, err := i.Run(ctx, s.Page, url)
			snapshot = result
			return err
		}); err != nil {
			writeCaptureError(w, r, err)
			return
		}

		resources := snapshot.Resources
		if resources == nil {
			resources = []string{}
		}
		writeJSON(w, r, http.StatusOK, DownloadResponse{
			Status:    snapshot.PrimaryStatus,
			Index:     snapshot.Index,
			Resources: resources,
		})
	}
}
