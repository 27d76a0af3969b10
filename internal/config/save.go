package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Save validates the configuration and writes it to path as TOML. The file is
// replaced atomically so a concurrent Load never sees a partial document.
func (c *Config) Save(path string) error {
	if c == nil {
		return fmt.Errorf("save config: nil config")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Clone returns a deep copy suitable for handing to another goroutine.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Scan.AllowedExtensions = append([]string(nil), c.Scan.AllowedExtensions...)
	cp.ReleaseSelector.Country.Preferred = append([]string(nil), c.ReleaseSelector.Country.Preferred...)
	cp.ReleaseSelector.ReleaseGroupType.Preferred = append([]string(nil), c.ReleaseSelector.ReleaseGroupType.Preferred...)
	return &cp
}
