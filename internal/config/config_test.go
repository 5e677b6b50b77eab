package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"

	"github.com/conorfennell/revisa/internal/srs"
)

// inTempDir isolates a test from any revisa.yaml or .env in the package dir.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(*cfg, Default()) {
		t.Errorf("Load() = %+v, want defaults %+v", *cfg, Default())
	}
}

func TestLoadLayers(t *testing.T) {
	dir := inTempDir(t)
	write(t, filepath.Join(dir, DefaultFile), `
addr: 0.0.0.0:9000
db: from-file.db
log:
  format: json
scheduler:
  max_interval_days: 180
  easy_multiplier: 2.0
session:
  order: difficulty
  max_new: 5
cors_origins:
  - http://localhost:5173
`)

	t.Run("file", func(t *testing.T) {
		cfg, err := Load("", nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Addr != "0.0.0.0:9000" || cfg.DB != "from-file.db" || cfg.Log.Format != "json" {
			t.Errorf("top-level values = %+v", cfg)
		}
		if cfg.Scheduler.MaxIntervalDays != 180 || cfg.Scheduler.EasyMultiplier != 2.0 {
			t.Errorf("scheduler = %+v", cfg.Scheduler)
		}
		if cfg.Scheduler.HardMultiplier != 0.5 {
			t.Errorf("unset scheduler field lost its default: %+v", cfg.Scheduler)
		}
		if cfg.Session.Order != "difficulty" || cfg.Session.MaxNew != 5 || cfg.Session.MaxReviews != 200 {
			t.Errorf("session = %+v", cfg.Session)
		}
		if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
			t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
		}
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("REVISA_DB", "from-env.db")
		t.Setenv("REVISA_LOG__LEVEL", "debug")
		t.Setenv("REVISA_SCHEDULER__EASY_MULTIPLIER", "3")
		t.Setenv("REVISA_REPOS_DIR", "/var/lib/revisa/repos")

		cfg, err := Load("", nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.DB != "from-env.db" || cfg.Log.Level != "debug" || cfg.ReposDir != "/var/lib/revisa/repos" {
			t.Errorf("cfg = %+v", cfg)
		}
		if cfg.Scheduler.EasyMultiplier != 3 {
			t.Errorf("EasyMultiplier = %v, want 3", cfg.Scheduler.EasyMultiplier)
		}
		if cfg.Addr != "0.0.0.0:9000" {
			t.Errorf("Addr = %q, file value should survive", cfg.Addr)
		}
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("REVISA_LOG__LEVEL", "debug")
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		RegisterFlags(fs)
		fs.Int("session-max-new", 0, "")
		if err := fs.Parse([]string{"--log-level=warn", "--session-max-new=7"}); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load("", fs)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Log.Level != "warn" || cfg.Session.MaxNew != 7 {
			t.Errorf("cfg = %+v", cfg)
		}
		if cfg.DB != "from-file.db" {
			t.Errorf("unset --db flag overrode the file: %q", cfg.DB)
		}
	})
}

func TestLoadExplicitFile(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "custom.yaml")
	write(t, path, "timezone: America/Sao_Paulo\n")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/Sao_Paulo" {
		t.Errorf("Location() = %v, %v", loc, err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml"), nil); err == nil {
		t.Error("Load() accepted a missing explicit file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := inTempDir(t)
	// Registers a cleanup that unsets the variable godotenv is about to set.
	t.Setenv("REVISA_DB", "")
	os.Unsetenv("REVISA_DB")
	write(t, filepath.Join(dir, ".env"), "REVISA_DB=from-dotenv.db\n")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DB != "from-dotenv.db" {
		t.Errorf("DB = %q, want from-dotenv.db", cfg.DB)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"log format", "REVISA_LOG__FORMAT", "xml"},
		{"log level", "REVISA_LOG__LEVEL", "loud"},
		{"timezone", "REVISA_TIMEZONE", "Mars/Olympus"},
		{"order", "REVISA_SESSION__ORDER", "alphabetical"},
		{"negative cap", "REVISA_SESSION__MAX_REVIEWS", "-1"},
		{"scheduler", "REVISA_SCHEDULER__MAX_INTERVAL_DAYS", "0"},
		{"addr", "REVISA_ADDR", "nope"},
		{"cors origin", "REVISA_CORS_ORIGINS", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load("", nil); err == nil {
				t.Errorf("Load() accepted %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestSessionSelectOptions(t *testing.T) {
	opts, err := SessionConfig{MaxNew: 3, MaxReviews: 9, Order: "chronological"}.SelectOptions()
	if err != nil {
		t.Fatalf("SelectOptions() error = %v", err)
	}
	if opts.MaxNew != 3 || opts.MaxReviews != 9 || opts.Order != srs.OrderChronological {
		t.Errorf("opts = %+v", opts)
	}
	if !opts.IncludeNew || !opts.IncludeLearning || !opts.IncludeReview {
		t.Error("all buckets should be included")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogConfig{Level: "warn"}, "json")
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not a single JSON line: %q", buf.String())
	}
	if line["msg"] != "shown" {
		t.Errorf("msg = %v, want shown", line["msg"])
	}
}
