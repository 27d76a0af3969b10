package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Version is stamped into the default MusicBrainz user agent.
var Version = "0.1.0"

// Paths contains directory and bind address configuration.
type Paths struct {
	SourceDir string `toml:"source_dir" json:"source_dir"`
	TargetDir string `toml:"target_dir" json:"target_dir"`
	DataDir   string `toml:"data_dir" json:"data_dir"`
	LogDir    string `toml:"log_dir" json:"log_dir"`
	APIBind   string `toml:"api_bind" json:"api_bind"`
	APIToken  string `toml:"api_token" json:"api_token"`
}

// Scan contains per-file processing switches.
type Scan struct {
	AllowedExtensions []string `toml:"allowed_extensions" json:"allowed_extensions"`
	Overwrite         bool     `toml:"overwrite" json:"overwrite"`
	DeleteOriginal    bool     `toml:"delete_original" json:"delete_original"`
	FpcalcBinary      string   `toml:"fpcalc_binary" json:"fpcalc_binary"`
	Watch             bool     `toml:"watch" json:"watch"`
}

// AcoustID contains configuration for the fingerprint lookup service.
type AcoustID struct {
	APIKey            string  `toml:"api_key" json:"api_key"`
	BaseURL           string  `toml:"base_url" json:"base_url"`
	MatchThreshold    float64 `toml:"match_threshold" json:"match_threshold"`
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// MusicBrainz contains configuration for the metadata catalog.
type MusicBrainz struct {
	BaseURL         string `toml:"base_url" json:"base_url"`
	UserAgent       string `toml:"user_agent" json:"user_agent"`
	MinIntervalMS   int    `toml:"min_interval_ms" json:"min_interval_ms"`
	SearchLimit     int    `toml:"search_limit" json:"search_limit"`
	CoverArtBaseURL string `toml:"cover_art_base_url" json:"cover_art_base_url"`
}

// Preference weights an ordered list of preferred values.
type Preference struct {
	Preferred []string `toml:"preferred" json:"preferred"`
	Weight    float64  `toml:"weight" json:"weight"`
}

// Distance weights a string-similarity comparison, ignoring values below Threshold.
type Distance struct {
	Threshold float64 `toml:"threshold" json:"threshold"`
	Weight    float64 `toml:"weight" json:"weight"`
}

// ReleaseSelector configures how competing releases are scored.
type ReleaseSelector struct {
	Country                Preference `toml:"country" json:"country"`
	ReleaseGroupType       Preference `toml:"release_group_type" json:"release_group_type"`
	ReleaseTitleDistance   Distance   `toml:"release_title_distance" json:"release_title_distance"`
	RecordingTitleDistance Distance   `toml:"recording_title_distance" json:"recording_title_distance"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" json:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout" json:"request_timeout"`
	ScanFailures   bool   `toml:"scan_failures" json:"scan_failures"`
	ScanSuccesses  bool   `toml:"scan_successes" json:"scan_successes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format" json:"format"`
	Level      string `toml:"level" json:"level"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
}

// Config encapsulates all configuration values for tagbrain.
//
// Configuration sections by subsystem:
//   - Paths: source/target/data directories and API bind address
//   - Scan: extension gate, overwrite and delete-original switches
//   - AcoustID: fingerprint lookup credentials and match threshold
//   - MusicBrainz: catalog endpoint, user agent, and request spacing
//   - ReleaseSelector: weighted release scoring policy
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and rotation
type Config struct {
	Paths           Paths           `toml:"paths" json:"paths"`
	Scan            Scan            `toml:"scan" json:"scan"`
	AcoustID        AcoustID        `toml:"acoustid" json:"acoustid"`
	MusicBrainz     MusicBrainz     `toml:"musicbrainz" json:"musicbrainz"`
	ReleaseSelector ReleaseSelector `toml:"release_selector" json:"release_selector"`
	Notifications   Notifications   `toml:"notifications" json:"notifications"`
	Logging         Logging         `toml:"logging" json:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tagbrain/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tagbrain.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// TargetDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.TargetDir) != "" {
		_ = os.MkdirAll(c.Paths.TargetDir, 0o755)
	}
	return nil
}

// ExtensionAllowed reports whether a file with the given extension (with or
// without the leading dot) should be scanned.
func (c *Config) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range c.Scan.AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

// FpcalcBinary returns the fingerprinting executable name.
func (c *Config) FpcalcBinary() string {
	if bin := strings.TrimSpace(c.Scan.FpcalcBinary); bin != "" {
		return bin
	}
	return defaultFpcalcBinary
}

// LogDBPath returns the location of the scan log database.
func (c *Config) LogDBPath() string {
	return filepath.Join(c.Paths.DataDir, "tagbrain.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "tagbrain.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
