package config

import (
	"testing"
	"time"
)

func TestLoadAPIDefaults(t *testing.T) {
	cfg, err := LoadAPI()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Addr)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("expected default store backend memory, got %s", cfg.StoreBackend)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("expected default concurrency 4, got %d", cfg.Concurrency)
	}
	if cfg.R2.PresignExpiry != time.Hour {
		t.Errorf("expected default presign expiry 1h, got %s", cfg.R2.PresignExpiry)
	}
	if cfg.SignRequireAuth {
		t.Error("expected SignRequireAuth to default to false")
	}
}

func TestLoadAPIRedisRequiresURL(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")

	if _, err := LoadAPI(); err == nil {
		t.Error("expected error when STORE_BACKEND=redis without REDIS_URL")
	}

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := LoadAPI()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreBackend != "redis" {
		t.Errorf("expected backend redis, got %s", cfg.StoreBackend)
	}
}

func TestLoadAPIPostgresRequiresDSN(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")

	if _, err := LoadAPI(); err == nil {
		t.Error("expected error when STORE_BACKEND=postgres without POSTGRES_DSN")
	}
}

func TestLoadAPIUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")

	if _, err := LoadAPI(); err == nil {
		t.Error("expected error for unknown store backend")
	}
}

func TestLoadAPIWorkerBinNeedsCreds(t *testing.T) {
	t.Setenv("WORKER_BIN", "/usr/local/bin/looprender-worker")

	if _, err := LoadAPI(); err == nil {
		t.Error("expected error when WORKER_BIN set without R2 credentials")
	}

	t.Setenv("CF_R2_ACCOUNT_ID", "acct")
	t.Setenv("CF_R2_ACCESS_KEY_ID", "key")
	t.Setenv("CF_R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("CF_R2_BUCKET", "media")

	if _, err := LoadAPI(); err != nil {
		t.Errorf("unexpected error with full credentials: %v", err)
	}
}

func TestR2Configured(t *testing.T) {
	r2 := R2{AccountID: "a", AccessKeyID: "k", SecretAccessKey: "s", Bucket: "b"}
	if !r2.Configured() {
		t.Error("expected configured R2 to report true")
	}

	r2.Bucket = ""
	if r2.Configured() {
		t.Error("expected incomplete R2 to report false")
	}
}

func TestLoadWorkerDefaults(t *testing.T) {
	cfg := LoadWorker()

	if cfg.DownloadTimeout != 5*time.Minute {
		t.Errorf("expected download timeout 5m, got %s", cfg.DownloadTimeout)
	}
	if cfg.UploadTimeout != 30*time.Minute {
		t.Errorf("expected upload timeout 30m, got %s", cfg.UploadTimeout)
	}
	if cfg.FFmpegBin != "ffmpeg" {
		t.Errorf("expected ffmpeg bin 'ffmpeg', got %s", cfg.FFmpegBin)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("DUR_SECONDS", "90")
	if d := getEnvDuration("DUR_SECONDS", time.Second); d != 90*time.Second {
		t.Errorf("expected 90s from plain seconds, got %s", d)
	}

	t.Setenv("DUR_GO", "2m30s")
	if d := getEnvDuration("DUR_GO", time.Second); d != 2*time.Minute+30*time.Second {
		t.Errorf("expected 2m30s, got %s", d)
	}

	if d := getEnvDuration("DUR_UNSET", 7*time.Second); d != 7*time.Second {
		t.Errorf("expected fallback 7s, got %s", d)
	}
}
