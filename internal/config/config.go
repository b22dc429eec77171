// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// API holds configuration for the job-submission API.
type API struct {
	// Addr is the listen address for the HTTP server.
	Addr string
	// APIToken is the bearer secret guarding the job endpoints. Empty
	// means unconfigured, which fails closed at the middleware.
	APIToken string
	// SignRequireAuth also guards POST /v1/sign with the bearer secret.
	SignRequireAuth bool

	// StoreBackend selects the job store: "memory", "redis" or "postgres".
	StoreBackend string
	RedisURL     string
	PostgresDSN  string

	// Executor settings.
	Concurrency    int
	SimulatedDelay time.Duration
	// WorkerBin is the path to the render worker binary. Empty selects
	// the simulated runner.
	WorkerBin string

	R2 R2

	LogLevel  string
	LogFormat string

	ShutdownTimeout time.Duration
}

// Worker holds configuration for the render worker binary.
type Worker struct {
	// DownloadTimeout bounds each media input download.
	DownloadTimeout time.Duration
	// UploadTimeout bounds the result upload.
	UploadTimeout time.Duration
	// TempDir is the parent for per-invocation work dirs ("" = os default).
	TempDir string
	// FFmpegBin is the ffmpeg executable to invoke.
	FFmpegBin string

	LogLevel  string
	LogFormat string
}

// R2 holds Cloudflare R2 credentials for presigning.
type R2 struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PresignExpiry is the default lifetime of issued URLs.
	PresignExpiry time.Duration
}

// Configured reports whether all required R2 credentials are present.
func (r R2) Configured() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.Bucket != ""
}

// LoadAPI reads API configuration from the environment.
func LoadAPI() (*API, error) {
	cfg := &API{
		Addr:            getEnv("HTTP_ADDR", ":8080"),
		APIToken:        getEnv("API_TOKEN", ""),
		SignRequireAuth: getEnvBool("SIGN_REQUIRE_AUTH", false),

		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		RedisURL:     getEnv("REDIS_URL", ""),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		Concurrency:    getEnvInt("EXECUTOR_CONCURRENCY", 4),
		SimulatedDelay: getEnvDuration("SIMULATED_DELAY", 2*time.Second),
		WorkerBin:      getEnv("WORKER_BIN", ""),

		R2: loadR2(),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *API) validate() error {
	switch c.StoreBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_URL")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("STORE_BACKEND=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("EXECUTOR_CONCURRENCY must be >= 1, got %d", c.Concurrency)
	}

	if c.WorkerBin != "" && !c.R2.Configured() {
		return fmt.Errorf("WORKER_BIN is set but R2 credentials are incomplete")
	}

	return nil
}

// LoadWorker reads worker configuration from the environment.
func LoadWorker() *Worker {
	return &Worker{
		DownloadTimeout: getEnvDuration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		UploadTimeout:   getEnvDuration("UPLOAD_TIMEOUT", 30*time.Minute),
		TempDir:         getEnv("WORK_TEMP_DIR", ""),
		FFmpegBin:       getEnv("FFMPEG_BIN", "ffmpeg"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// LoadR2 reads R2 credentials from the environment. The sign endpoint
// re-derives its client per call, so this is invoked per request.
func LoadR2() R2 {
	return loadR2()
}

func loadR2() R2 {
	return R2{
		AccountID:       getEnv("CF_R2_ACCOUNT_ID", ""),
		AccessKeyID:     getEnv("CF_R2_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("CF_R2_SECRET_ACCESS_KEY", ""),
		Bucket:          getEnv("CF_R2_BUCKET", ""),
		PresignExpiry:   getEnvDuration("PRESIGN_EXPIRY", time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	// Accept plain seconds as well as Go duration strings.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
