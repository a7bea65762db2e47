package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"snapshoteer/internal/capture"
	"snapshoteer/internal/guard"
	"snapshoteer/internal/storage"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type ScreenshotResult struct {
	ScreenshotPath string `json:"screenshotPath"`
	HTMLPath       string `json:"htmlPath"`
}

type DownloadResult struct {
	Status    int      `json:"status"`
	IndexPath string   `json:"indexPath"`
	Resources []string `json:"resources"`
}

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return any(boolValue).(T)
		}
	case time.Duration:
		if durationValue, err := time.ParseDuration(value); err == nil {
			return any(durationValue).(T)
		}
	}

	return defaultValue
}

func main() {
	var directory string
	var size string
	var element string
	var download bool
	var navigationTimeout time.Duration
	var chromeDevtoolsProtocolURL string
	flag.StringVar(&directory, "directory", envOrDefaultValue("DIRECTORY", storage.DefaultDirectory), "Output directory")
	flag.StringVar(&size, "size", "", "Capture a fixed region, e.g. 800,600")
	flag.StringVar(&element, "element", "", "Capture the first element matching this CSS selector")
	flag.BoolVar(&download, "download", false, "Save the page HTML and its bundled scripts and stylesheets instead of a screenshot")
	flag.DurationVar(&navigationTimeout, "navigation-timeout", envOrDefaultValue("NAVIGATION_TIMEOUT", capture.DefaultNavigationTimeout), "How long a page may take to reach network idle")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", envOrDefaultValue("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")

	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		log.Fatalf("url not specified")
	}
	url := args[0]

	if !guard.NewDefaultGuard().IsAllowed(url) {
		log.Fatalf("URL is either invalid or not allowed: %s", url)
	}

	ctx := context.Background()

	s, err := storage.NewFileStorage(ctx, storage.FileConfig{
		Directory: directory,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	config := capture.DefaultPlaywrightConfig()
	config.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	if display := os.Getenv("DISPLAY"); display != "" {
		config.Headless = false
	}
	launcher := &capture.Launcher{
		Engine: capture.NewPlaywrightEngine(config),
	}

	var result any
	if download {
		result, err = runDownload(ctx, launcher, s, url, navigationTimeout)
	} else {
		result, err = runScreenshot(ctx, launcher, s, url, size, element, navigationTimeout)
	}
	if err != nil {
		log.Fatalf("Failed to capture: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

func runScreenshot(ctx context.Context, launcher *capture.Launcher, s storage.Storage, url string, size string, element string, navigationTimeout time.Duration) (*ScreenshotResult, error) {
	request, err := capture.NewScreenshotRequest(url, size, element)
	if err != nil {
		return nil, err
	}
	composer := &capture.Composer{NavigationTimeout: navigationTimeout}

	h := sha256.New()
	h.Write([]byte(url))
	baseKey := fmt.Sprintf("capture/%x/%s", h.Sum(nil)[:8], time.Now().Format("20060102150405"))

	result := &ScreenshotResult{}
	if err := launcher.WithSession(ctx, func(ctx context.Context, session *capture.Session) error {
		screenshot, err := composer.Capture(ctx, session.Page, request)
		if err != nil {
			return err
		}
		html, err := session.Page.Content()
		if err != nil {
			return xerrors.Errorf("failed to get HTML content: %w", err)
		}

		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			path, err := s.Put(ctx, baseKey+".png", screenshot)
			if err != nil {
				return err
			}
			result.ScreenshotPath = path
			return nil
		})

		eg.Go(func() error {
			path, err := s.Put(ctx, baseKey+".html", []byte(html))
			if err != nil {
				return err
			}
			result.HTMLPath = path
			return nil
		})

		return eg.Wait()
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func runDownload(ctx context.Context, launcher *capture.Launcher, s storage.Storage, url string, navigationTimeout time.Duration) (*DownloadResult, error) {
	interceptor := &capture.Interceptor{
		Storage:           s,
		NavigationTimeout: navigationTimeout,
	}

	var result *DownloadResult
	if err := launcher.WithSession(ctx, func(ctx context.Context, session *capture.Session) error {
		snapshot, err := interceptor.Run(ctx, session.Page, url)
		if err != nil {
			return err
		}
		result = &DownloadResult{
			Status:    snapshot.PrimaryStatus,
			IndexPath: snapshot.Index,
			Resources: snapshot.Resources,
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}
