package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeAcoustID()
	c.normalizeMusicBrainz()
	c.normalizeReleaseSelector()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.TargetDir, err = expandPath(c.Paths.TargetDir); err != nil {
		return fmt.Errorf("paths.target_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if value, ok := os.LookupEnv("TAGBRAIN_API_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIToken = strings.TrimSpace(value)
	}
	return nil
}

func (c *Config) normalizeScan() {
	seen := make(map[string]struct{}, len(c.Scan.AllowedExtensions))
	extensions := make([]string, 0, len(c.Scan.AllowedExtensions))
	for _, ext := range c.Scan.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		extensions = append(extensions, ext)
	}
	c.Scan.AllowedExtensions = extensions
	c.Scan.FpcalcBinary = strings.TrimSpace(c.Scan.FpcalcBinary)
	if c.Scan.FpcalcBinary == "" {
		c.Scan.FpcalcBinary = defaultFpcalcBinary
	}
}

// Environment variables win over the file so secrets can stay out of it.
func (c *Config) normalizeAcoustID() {
	for _, key := range []string{"ACOUST_ID_API_KEY", "ACOUSTID_API_KEY"} {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			c.AcoustID.APIKey = value
			break
		}
	}
	c.AcoustID.APIKey = strings.TrimSpace(c.AcoustID.APIKey)
	c.AcoustID.BaseURL = strings.TrimRight(strings.TrimSpace(c.AcoustID.BaseURL), "/")
	if c.AcoustID.BaseURL == "" {
		c.AcoustID.BaseURL = defaultAcoustIDBaseURL
	}
	if c.AcoustID.RequestsPerSecond <= 0 {
		c.AcoustID.RequestsPerSecond = defaultAcoustIDRate
	}
}

func (c *Config) normalizeMusicBrainz() {
	c.MusicBrainz.BaseURL = strings.TrimRight(strings.TrimSpace(c.MusicBrainz.BaseURL), "/")
	if c.MusicBrainz.BaseURL == "" {
		c.MusicBrainz.BaseURL = defaultMusicBrainzBaseURL
	}
	c.MusicBrainz.UserAgent = strings.TrimSpace(c.MusicBrainz.UserAgent)
	if c.MusicBrainz.UserAgent == "" {
		c.MusicBrainz.UserAgent = DefaultUserAgent()
	}
	if c.MusicBrainz.MinIntervalMS <= 0 {
		c.MusicBrainz.MinIntervalMS = defaultMusicBrainzIntervalMS
	}
	if c.MusicBrainz.SearchLimit <= 0 {
		c.MusicBrainz.SearchLimit = defaultSearchLimit
	}
	c.MusicBrainz.CoverArtBaseURL = strings.TrimRight(strings.TrimSpace(c.MusicBrainz.CoverArtBaseURL), "/")
	if c.MusicBrainz.CoverArtBaseURL == "" {
		c.MusicBrainz.CoverArtBaseURL = defaultCoverArtBaseURL
	}
}

func (c *Config) normalizeReleaseSelector() {
	c.ReleaseSelector.Country.Preferred = trimList(c.ReleaseSelector.Country.Preferred, strings.ToUpper)
	c.ReleaseSelector.ReleaseGroupType.Preferred = trimList(c.ReleaseSelector.ReleaseGroupType.Preferred, strings.ToLower)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}

func trimList(values []string, fold func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out = append(out, fold(value))
	}
	return out
}

// Normalize expands paths, applies environment fallbacks and defaults, and
// validates the result. Load calls the same steps; use Normalize for configs
// built in memory, such as one received over the API.
func (c *Config) Normalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}
