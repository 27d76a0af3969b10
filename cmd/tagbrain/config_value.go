package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"tagbrain/internal/config"
)

// setConfigValue returns a copy of cfg with the dotted TOML key set to raw.
// The value is parsed according to the type the key already holds.
func setConfigValue(cfg config.Config, key, raw string) (config.Config, error) {
	data, err := toml.Marshal(withEmptyLists(cfg))
	if err != nil {
		return cfg, fmt.Errorf("encode config: %w", err)
	}
	tree := map[string]any{}
	if err := toml.Unmarshal(data, &tree); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	parts := strings.Split(key, ".")
	node := tree
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			return cfg, fmt.Errorf("unknown config key %q", key)
		}
		node = child
	}
	leaf := parts[len(parts)-1]
	current, ok := node[leaf]
	if !ok {
		return cfg, fmt.Errorf("unknown config key %q", key)
	}
	value, err := parseConfigValue(current, raw)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", key, err)
	}
	node[leaf] = value

	data, err = toml.Marshal(tree)
	if err != nil {
		return cfg, fmt.Errorf("encode config: %w", err)
	}
	var updated config.Config
	if err := toml.Unmarshal(data, &updated); err != nil {
		return cfg, fmt.Errorf("%s: %w", key, err)
	}
	return updated, nil
}

// withEmptyLists replaces nil lists so every list key appears in the encoded
// document.
func withEmptyLists(cfg config.Config) config.Config {
	for _, list := range []*[]string{
		&cfg.Scan.AllowedExtensions,
		&cfg.ReleaseSelector.Country.Preferred,
		&cfg.ReleaseSelector.ReleaseGroupType.Preferred,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
	return cfg
}

func parseConfigValue(current any, raw string) (any, error) {
	switch current.(type) {
	case string:
		return strings.Trim(raw, `"`), nil
	case bool:
		return strconv.ParseBool(raw)
	case int64:
		return strconv.ParseInt(raw, 10, 64)
	case float64:
		return strconv.ParseFloat(raw, 64)
	case []any:
		return parseList(raw)
	case map[string]any:
		return nil, fmt.Errorf("is a section; set one of its keys instead")
	default:
		return nil, fmt.Errorf("unsupported value type %T", current)
	}
}

// parseList accepts a TOML array or a comma-separated list of strings.
func parseList(raw string) ([]any, error) {
	if strings.HasPrefix(raw, "[") {
		var doc struct {
			V []any `toml:"v"`
		}
		if err := toml.Unmarshal([]byte("v = "+raw), &doc); err != nil {
			return nil, fmt.Errorf("parse list: %w", err)
		}
		return doc.V, nil
	}
	values := []any{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}
	return values, nil
}
