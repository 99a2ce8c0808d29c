package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func parseEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}
	return entry
}

// SetupがJSON形式でメッセージと属性を出力することを検証
func TestSetup_WritesJSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Info("pages fetched",
		slog.String("subdomain", "acme"),
		slog.Int("pages", 3),
	)

	entry := parseEntry(t, &buf)
	if entry["msg"] != "pages fetched" {
		t.Errorf("msg = %q, want %q", entry["msg"], "pages fetched")
	}
	if entry["subdomain"] != "acme" {
		t.Errorf("subdomain = %q, want %q", entry["subdomain"], "acme")
	}
	if entry["pages"] != float64(3) {
		t.Errorf("pages = %v, want %v", entry["pages"], 3)
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %q, want %q", entry["level"], "INFO")
	}
}

// LOG_LEVEL未設定時はDebugログが抑制されることを検証
func TestSetup_DefaultLevelSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Debug("should not appear")

	if buf.Len() != 0 {
		t.Errorf("expected no output at debug level, got: %s", buf.String())
	}
}

// LOG_LEVEL=debug設定時はDebugログが出力されることを検証
func TestSetup_DebugLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	l := Setup(&buf)

	l.Debug("verbose detail")

	entry := parseEntry(t, &buf)
	if entry["level"] != "DEBUG" {
		t.Errorf("level = %q, want %q", entry["level"], "DEBUG")
	}
}

// LOG_LEVELが不正な値の場合はInfoにフォールバックすることを検証
func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	var buf bytes.Buffer
	l := Setup(&buf)

	l.Debug("should not appear")
	if buf.Len() != 0 {
		t.Errorf("expected debug suppressed with invalid LOG_LEVEL, got: %s", buf.String())
	}

	l.Info("still logged")
	if buf.Len() == 0 {
		t.Error("expected info output with invalid LOG_LEVEL")
	}
}

// SetupDefaultがグローバルロガーを差し替えることを検証
func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Default().Warn("token exchange failed", slog.String("subdomain", "acme"))

	entry := parseEntry(t, &buf)
	if entry["msg"] != "token exchange failed" {
		t.Errorf("msg = %q, want %q", entry["msg"], "token exchange failed")
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %q, want %q", entry["level"], "WARN")
	}
}
