package main

import (
	"context"
	"flag"
	"log"
	"os"
	"snapshoteer/internal/capture"
	"snapshoteer/internal/guard"
	"snapshoteer/internal/retry"
	"snapshoteer/internal/runnable"
	"snapshoteer/internal/storage"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case int:
		if intValue, err := strconv.Atoi(value); err == nil {
			return any(intValue).(T)
		}
	case uint:
		if uintValue, err := strconv.ParseUint(value, 10, 0); err == nil {
			return any(uint(uintValue)).(T)
		}
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
	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("failed to load .env: %v", err)
	}

	var address string
	var terminationGracePeriod time.Duration
	var lameduck time.Duration
	var keepAlive bool
	var maxConnections int
	var commitIDFile string

	var navigationTimeout time.Duration
	var headless bool
	var chromeDevtoolsProtocolURL string
	var launchRetries uint
	var selfHostname string
	var reservedHostPrefix string
	var resourcePathPrefix string

	var storageBackend string
	var directory string
	var s3Bucket string

	flag.StringVar(&address, "address", envOrDefaultValue("ADDRESS", "0.0.0.0:"+envOrDefaultValue("PORT", "8080")), "The address the capture server binds to.")
	flag.DurationVar(&terminationGracePeriod, "termination-grace-period", envOrDefaultValue("TERMINATION_GRACE_PERIOD", 40*time.Second), "How long in-flight captures may take after shutdown starts")
	flag.DurationVar(&lameduck, "lameduck", envOrDefaultValue("LAMEDUCK", 1*time.Second), "Delay between the termination signal and shutdown")
	flag.BoolVar(&keepAlive, "http-keepalive", envOrDefaultValue("HTTP_KEEPALIVE", true), "Enable HTTP keep-alive")
	flag.IntVar(&maxConnections, "max-connections", envOrDefaultValue("MAX_CONNECTIONS", 65532), "Maximum concurrent connections")
	flag.StringVar(&commitIDFile, "commit-id-file", envOrDefaultValue("COMMIT_ID_FILE", "./commit_id.txt"), "File holding the deployed commit id")

	flag.DurationVar(&navigationTimeout, "navigation-timeout", envOrDefaultValue("NAVIGATION_TIMEOUT", capture.DefaultNavigationTimeout), "How long a page may take to reach network idle")
	flag.BoolVar(&headless, "headless", envOrDefaultValue("HEADLESS", true), "Run chromium headless")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", envOrDefaultValue("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.UintVar(&launchRetries, "launch-retries", envOrDefaultValue("LAUNCH_RETRIES", uint(2)), "How many times a failed browser launch is retried")
	flag.StringVar(&selfHostname, "self-hostname", envOrDefaultValue("SELF_HOSTNAME", guard.DefaultSelfHostname), "Public hostname of this service, never captured")
	flag.StringVar(&reservedHostPrefix, "reserved-host-prefix", envOrDefaultValue("RESERVED_HOST_PREFIX", guard.DefaultReservedPrefix), "Hostname prefix of sibling instances, never captured")
	flag.StringVar(&resourcePathPrefix, "resource-path-prefix", envOrDefaultValue("RESOURCE_PATH_PREFIX", capture.DefaultResourcePathPrefix), "URL path prefix of scripts and stylesheets saved by /download")

	flag.StringVar(&storageBackend, "storage-backend", envOrDefaultValue("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&directory, "directory", envOrDefaultValue("DIRECTORY", storage.DefaultDirectory), "Output directory of the file backend")
	flag.StringVar(&s3Bucket, "s3-bucket", envOrDefaultValue("S3_BUCKET", ""), "Bucket of the s3 backend")
	flag.BoolVar(&runnable.Debug, "debug", envOrDefaultValue("DEBUG", false), "Text logs and pprof endpoints")
	flag.Parse()

	ctx := context.Background()

	s, err := storage.New(ctx, storage.Config{
		Backend: storageBackend,
		File:    storage.FileConfig{Directory: directory},
		S3:      storage.S3Config{Bucket: s3Bucket},
	})
	if err != nil {
		log.Fatalf("failed to create storage backend: %v", err)
	}

	config := capture.DefaultPlaywrightConfig()
	config.Headless = headless
	config.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL

	launcher := &capture.Launcher{
		Engine:        capture.NewPlaywrightEngine(config),
		RetryStrategy: retry.NewExponentialBackOff(500*time.Millisecond, 5*time.Second, launchRetries, nil),
	}

	server := runnable.NewServer(
		runnable.ServerConfig{
			Address:                address,
			TerminationGracePeriod: terminationGracePeriod,
			Lameduck:               lameduck,
			KeepAlive:              keepAlive,
			MaxConnections:         maxConnections,
			CommitIDFile:           commitIDFile,
		},
		&guard.Guard{
			SelfHostname:   selfHostname,
			ReservedPrefix: reservedHostPrefix,
		},
		launcher,
		&capture.Composer{
			NavigationTimeout: navigationTimeout,
		},
		&capture.Interceptor{
			Storage:           s,
			PathPrefix:        resourcePathPrefix,
			NavigationTimeout: navigationTimeout,
		},
	)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
