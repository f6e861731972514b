package config

import (
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Profile ProfileConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port       int
	AdminToken string
}

type GeminiConfig struct {
	BaseURL        string
	Model          string
	APIKey         string
	AttemptTimeout time.Duration
}

type ProfileConfig struct {
	Path      string // empty selects the built-in profile
	ResumePDF string
}

type StorageConfig struct {
	DataDir   string
	Retention time.Duration
}

type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Gemini: GeminiConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			Model:          "gemini-2.5-flash-preview-09-2025",
			AttemptTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:   defaultDataDir(),
			Retention: 720 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/folio/config.json, then applies FOLIO_* environment
// overrides. Secrets come from the environment or, failing that, from
// $XDG_DATA_HOME/folio/secrets.json.
//
// A missing Gemini API key is not an error: the assistant degrades to its
// offline reply. Callers should warn via MissingAPIKey.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), fileSecrets{path: secretsFilePath()})
}

// secretStore abstracts secret lookup for testing.
type secretStore interface {
	Get(account string) (string, error)
}

func loadWith(b ConfigBackend, sec secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, sec)

	return cfg, nil
}

// MissingAPIKey reports whether no Gemini API key was configured anywhere.
func (c Config) MissingAPIKey() bool {
	return c.Gemini.APIKey == ""
}

func defaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "folio")
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "folio", "config.json")
}

func secretsFilePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "folio", "secrets.json")
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append([]string{home}, fallback...)...)
	}
	return "."
}
