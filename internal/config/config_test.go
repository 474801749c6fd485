package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("unexpected driver %q", cfg.Database.Driver)
	}
	if cfg.Source.MaxPages != 5 || cfg.Source.RetentionDays != 2 || cfg.Source.PageSize != 10 {
		t.Fatalf("unexpected source defaults: %+v", cfg.Source)
	}
	if cfg.Enrichment.RetryAttempts != 3 || cfg.Enrichment.InitialDelay.Std() != 2*time.Second {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Enrichment)
	}
	if cfg.Enrichment.VocabularyBatchSize != 20 {
		t.Fatalf("unexpected batch size %d", cfg.Enrichment.VocabularyBatchSize)
	}
	if got := cfg.Source.Location().String(); got != "Asia/Shanghai" {
		t.Fatalf("unexpected source location %s", got)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
database:
  driver: postgres
  dsn: postgres://file/db
source:
  maxPages: 3
  pagePacing: 250ms
enrichment:
  initialDelay: 10ms
  skipClassification: true
scheduler:
  cronExpression: "30 5 * * *"
  timezone: Europe/Berlin
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DATABASE_DSN", "postgres://env/db")
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("AUDIO_DIR", "/tmp/audio")

	cfg := Load(path)

	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver not merged: %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "postgres://env/db" {
		t.Fatalf("env override not applied: %q", cfg.Database.DSN)
	}
	if cfg.Source.MaxPages != 3 || cfg.Source.PageSize != 10 {
		t.Fatalf("source merge wrong: %+v", cfg.Source)
	}
	if cfg.Source.PagePacing.Std() != 250*time.Millisecond {
		t.Fatalf("duration not parsed: %v", cfg.Source.PagePacing.Std())
	}
	if cfg.Enrichment.InitialDelay.Std() != 10*time.Millisecond || cfg.Enrichment.RetryAttempts != 3 {
		t.Fatalf("enrichment merge wrong: %+v", cfg.Enrichment)
	}
	if !cfg.Enrichment.SkipClassification {
		t.Fatal("expected classification to be disabled")
	}
	if cfg.LLM.APIKey != "secret" || cfg.Storage.AudioDir != "/tmp/audio" {
		t.Fatalf("env overrides missing: %+v %+v", cfg.LLM, cfg.Storage)
	}
	if cfg.Scheduler.Location().String() != "Europe/Berlin" {
		t.Fatalf("scheduler timezone not bound: %s", cfg.Scheduler.Location())
	}
}

func TestLoadFallsBackOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("source: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(path)
	if cfg.Source.MaxPages != 5 {
		t.Fatalf("expected defaults, got %+v", cfg.Source)
	}
}

func TestTelegramEnabled(t *testing.T) {
	t.Parallel()

	if (TelegramConfig{BotToken: "x"}).Enabled() {
		t.Fatal("expected disabled without chat id")
	}
	if !(TelegramConfig{BotToken: "x", ChatID: "1"}).Enabled() {
		t.Fatal("expected enabled")
	}
}
