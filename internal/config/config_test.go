package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockSecrets is a test double for the secrets file.
type mockSecrets struct {
	values map[string]string
	set    map[string]string
}

func (m *mockSecrets) Get(account string) (string, error) {
	v, ok := m.values[account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockSecrets) Set(account, value string) error {
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[account] = value
	return nil
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{}`)

	cfg, err := loadWith(newFileBackend(path), &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash-preview-09-2025" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.AttemptTimeout != 30*time.Second {
		t.Errorf("Gemini.AttemptTimeout = %v, want 30s", cfg.Gemini.AttemptTimeout)
	}
	if cfg.Storage.Retention != 720*time.Hour {
		t.Errorf("Storage.Retention = %v, want 720h", cfg.Storage.Retention)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Profile.Path != "" {
		t.Errorf("Profile.Path = %q, want built-in", cfg.Profile.Path)
	}
}

// TestMissingAPIKeyIsNotAnError verifies the service still loads without a key.
func TestMissingAPIKeyIsNotAnError(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{}`)

	cfg, err := loadWith(newFileBackend(path), &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.MissingAPIKey() {
		t.Error("MissingAPIKey = false, want true")
	}
}

// TestFileParsing verifies that fields are correctly read from the JSON file.
func TestFileParsing(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{
  "server.port": 9000,
  "gemini.model": "gemini-2.0-flash",
  "gemini.attempt_timeout": "10s",
  "profile.path": "/etc/folio/profile.yaml",
  "profile.resume_pdf": "/etc/folio/cv.pdf",
  "storage.data_dir": "/tmp/folio-test",
  "storage.retention": "48h",
  "log.level": "debug",
  "log.format": "json",
  "gemini.api_key": "ignored-in-file"
}`)

	cfg, err := loadWith(newFileBackend(path), &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.AttemptTimeout != 10*time.Second {
		t.Errorf("Gemini.AttemptTimeout = %v", cfg.Gemini.AttemptTimeout)
	}
	if cfg.Profile.Path != "/etc/folio/profile.yaml" || cfg.Profile.ResumePDF != "/etc/folio/cv.pdf" {
		t.Errorf("Profile = %+v", cfg.Profile)
	}
	if cfg.Storage.DataDir != "/tmp/folio-test" || cfg.Storage.Retention != 48*time.Hour {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Gemini.APIKey != "" {
		t.Errorf("secret read from config file: %q", cfg.Gemini.APIKey)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"server.port": 9000, "storage.retention": "48h"}`)

	t.Setenv("FOLIO_SERVER_PORT", "9100")
	t.Setenv("FOLIO_STORAGE_RETENTION", "1h")
	t.Setenv("FOLIO_GEMINI_API_KEY", "env-key")

	cfg, err := loadWith(newFileBackend(path), &mockSecrets{values: map[string]string{"gemini_api_key": "file-key"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Storage.Retention != time.Hour {
		t.Errorf("Storage.Retention = %v, want 1h", cfg.Storage.Retention)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Gemini.APIKey)
	}
}

// TestInvalidValuesKeepDefaults verifies unparsable overrides fall back to defaults.
func TestInvalidValuesKeepDefaults(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"gemini.attempt_timeout": "soon", "storage.retention": "-1h"}`)
	t.Setenv("FOLIO_SERVER_PORT", "eighty")

	cfg, err := loadWith(newFileBackend(path), &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Gemini.AttemptTimeout != 30*time.Second || cfg.Storage.Retention != 720*time.Hour {
		t.Errorf("cfg = %+v", cfg)
	}
}

// TestInvalidIntInFile verifies a non-integer port in the file is a load error.
func TestInvalidIntInFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"server.port": 80.5}`)

	if _, err := loadWith(newFileBackend(path), &mockSecrets{}); err == nil {
		t.Fatal("expected error for fractional port")
	}
}

// TestSecretsFallback verifies the secrets file is consulted when env is empty.
func TestSecretsFallback(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{}`)

	sec := &mockSecrets{values: map[string]string{
		"gemini_api_key": "stored-key",
		"admin_token":    "stored-token",
	}}
	cfg, err := loadWith(newFileBackend(path), sec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "stored-key" {
		t.Errorf("APIKey = %q", cfg.Gemini.APIKey)
	}
	if cfg.Server.AdminToken != "stored-token" {
		t.Errorf("AdminToken = %q", cfg.Server.AdminToken)
	}
}

func TestFileSecretsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secrets.json")
	f := fileSecrets{path: path}

	if _, err := f.Get("gemini_api_key"); err == nil {
		t.Fatal("expected error for missing secrets file")
	}
	if err := f.Set("gemini_api_key", "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := f.Set("admin_token", "xyz"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, err := f.Get("gemini_api_key"); err != nil || v != "abc" {
		t.Errorf("Get = %q, %v", v, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestSetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	b := newFileBackend(path)
	sec := &mockSecrets{}

	if err := setKeyWith(b, sec, "server.port", "9001"); err != nil {
		t.Fatalf("set port: %v", err)
	}
	if err := setKeyWith(b, sec, "storage.retention", "24h"); err != nil {
		t.Fatalf("set retention: %v", err)
	}
	if err := setKeyWith(b, sec, "gemini.api_key", "secret"); err != nil {
		t.Fatalf("set api key: %v", err)
	}

	if err := setKeyWith(b, sec, "server.port", "x"); err == nil {
		t.Error("expected error for invalid int")
	}
	if err := setKeyWith(b, sec, "storage.retention", "forever"); err == nil {
		t.Error("expected error for invalid duration")
	}
	if err := setKeyWith(b, sec, "nope.key", "v"); err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("err = %v", err)
	}

	if sec.set["gemini_api_key"] != "secret" {
		t.Errorf("secret not routed to secrets store: %v", sec.set)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var stored map[string]any
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatal(err)
	}
	if stored["server.port"] != float64(9001) || stored["storage.retention"] != "24h" {
		t.Errorf("stored = %v", stored)
	}
	if _, ok := stored["gemini.api_key"]; ok {
		t.Error("secret written to config file")
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Gemini.APIKey = "super-secret"

	for _, ki := range ShowAll(cfg) {
		if strings.Contains(ki.Value, "super-secret") {
			t.Fatalf("secret leaked in %s", ki.Key)
		}
		if ki.Key == "gemini.api_key" && ki.Value != "(set)" {
			t.Errorf("api key value = %q, want (set)", ki.Value)
		}
		if ki.Key == "server.admin_token" && ki.Value != "(unset)" {
			t.Errorf("admin token value = %q, want (unset)", ki.Value)
		}
	}
	if len(ValidKeys()) != len(specs) {
		t.Errorf("ValidKeys = %d, want %d", len(ValidKeys()), len(specs))
	}
}

func TestIsSecret(t *testing.T) {
	if !IsSecret("gemini.api_key") || !IsSecret("server.admin_token") {
		t.Error("expected api key and admin token to be secret")
	}
	if IsSecret("gemini.model") || IsSecret("no.such.key") {
		t.Error("expected non-secret keys to report false")
	}
}
