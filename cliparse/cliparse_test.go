// cliparse/cliparse_test.go
package cliparse

import (
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("HMAC_PEPPER", "test-pepper")
	t.Setenv("WORKER_BLOCK", "250ms")
	t.Setenv("DEDUP_FAIL_OPEN", "false")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.HMACPepper != "test-pepper" {
		t.Errorf("expected pepper from env, got %q", cfg.HMACPepper)
	}
	if cfg.BlockTimeout != 250*time.Millisecond {
		t.Errorf("expected block 250ms, got %v", cfg.BlockTimeout)
	}
	if cfg.DedupFailOpen {
		t.Error("expected DedupFailOpen=false from env")
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://test")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("expected default port 3318, got %d", cfg.Port)
	}
	if cfg.StreamName != "votes_stream" || cfg.ConsumerGroup != "vote_processors" {
		t.Errorf("unexpected stream defaults %q/%q", cfg.StreamName, cfg.ConsumerGroup)
	}
	if cfg.DedupTTL != 365*24*time.Hour {
		t.Errorf("expected one-year dedup TTL, got %v", cfg.DedupTTL)
	}
	if !cfg.DedupFailOpen {
		t.Error("expected dedup barrier to fail open by default")
	}
	if cfg.HistoryLimit != 500 {
		t.Errorf("expected history limit 500, got %d", cfg.HistoryLimit)
	}
	if !cfg.RunsAPI() || !cfg.RunsWorkers() {
		t.Error("default mode should run both API and workers")
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MODE", "api")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-t", "sqlite", "-mode", "worker", "-workers", "3"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.Mode != ModeWorker || cfg.RunsAPI() {
		t.Errorf("CLI should override mode, got %q", cfg.Mode)
	}
	if cfg.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Workers)
	}
}

func TestParseFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing database url", nil, nil},
		{"bad database type", map[string]string{"DATABASE_URL": "x"}, []string{"-t", "mysql"}},
		{"bad mode", map[string]string{"DATABASE_URL": "x"}, []string{"-mode", "batch"}},
		{"zero workers", map[string]string{"DATABASE_URL": "x"}, []string{"-workers", "0"}},
		{"bad duration", map[string]string{"DATABASE_URL": "x", "WORKER_BLOCK": "soon"}, nil},
		{"zero claim idle", map[string]string{"DATABASE_URL": "x", "WORKER_CLAIM_IDLE": "0s"}, nil},
		{"negative claim idle", map[string]string{"DATABASE_URL": "x", "WORKER_CLAIM_IDLE": "-5s"}, nil},
		{"sub-second dedup ttl", map[string]string{"DATABASE_URL": "x", "DEDUP_TTL": "500ms"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}
