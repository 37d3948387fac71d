package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewProductionWritesToConfiguredFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("production", "info", Options{Dir: tmpDir, Filename: "prod.log"})
	log.Info("production-log-test")
	log.Debug("should-be-filtered")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "prod.log"))
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if !strings.Contains(string(content), "production-log-test") {
		t.Fatalf("expected message in log file, got %s", content)
	}
	if strings.Contains(string(content), "should-be-filtered") {
		t.Fatalf("debug line written at info level")
	}
}

func TestResolveLogFilePathDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	got, err := resolveLogFilePath(Options{Dir: tmpDir})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected filename: %s", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"bogus":  zapcore.InfoLevel,
		"":       zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
