/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GridConfig struct {
	Columns       int `yaml:"columns"`
	Rows          int `yaml:"rows"`
	IconSize      int `yaml:"icon_size"`
	FolderColumns int `yaml:"folder_columns"`
	FolderRows    int `yaml:"folder_rows"`
}

type DragConfig struct {
	DropDelayMs      int     `yaml:"drop_delay_ms"`
	PageFlipDelayMs  int     `yaml:"page_flip_delay_ms"`
	ScrollThreshold  float64 `yaml:"scroll_threshold"`
	ScrollDebounceMs int     `yaml:"scroll_debounce_ms"`
}

type DiscoveryConfig struct {
	CustomLocations []string `yaml:"custom_locations"`
	MaxDepth        int      `yaml:"max_depth"`
	SkipSystem      bool     `yaml:"skip_system"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Grid          GridConfig      `yaml:"grid"`
	Drag          DragConfig      `yaml:"drag"`
	Discovery     DiscoveryConfig `yaml:"discovery"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Grid:          GridConfig{Columns: 7, Rows: 5, IconSize: 72, FolderColumns: 4, FolderRows: 4},
		Drag:          DragConfig{DropDelayMs: 500, PageFlipDelayMs: 800, ScrollThreshold: 0.5, ScrollDebounceMs: 300},
		Discovery:     DiscoveryConfig{CustomLocations: nil, MaxDepth: 3, SkipSystem: false},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir       = "LP_CONFIG_DIR"
	EnvColumns         = "LP_COLUMNS"
	EnvRows            = "LP_ROWS"
	EnvDropDelayMs     = "LP_DROP_DELAY_MS"
	EnvPageFlipDelayMs = "LP_PAGE_FLIP_DELAY_MS"
	EnvCustomLocations = "LP_CUSTOM_LOCATIONS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "LP_LOG_LEVEL"
	EnvLogFormat = "LP_LOG_FORMAT"
	EnvLogSource = "LP_LOG_SOURCE"
	EnvLogFile   = "LP_LOG_FILE"
)

// AppsPerPage is the page capacity, columns × rows, never below one.
func (g GridConfig) AppsPerPage() int {
	n := g.Columns * g.Rows
	if n < 1 {
		return 1
	}
	return n
}

// FolderCapacity is the number of members shown per folder page.
func (g GridConfig) FolderCapacity() int {
	n := g.FolderColumns * g.FolderRows
	if n < 1 {
		return 1
	}
	return n
}

func (d DragConfig) DropDelay() time.Duration {
	return msOr(d.DropDelayMs, Defaults().Drag.DropDelayMs)
}

func (d DragConfig) PageFlipDelay() time.Duration {
	return msOr(d.PageFlipDelayMs, Defaults().Drag.PageFlipDelayMs)
}

func (d DragConfig) ScrollDebounce() time.Duration {
	return msOr(d.ScrollDebounceMs, Defaults().Drag.ScrollDebounceMs)
}

func msOr(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Millisecond
}

// Dir returns the per-user directory holding config.yaml, the saved layout and the hidden set.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoLaunchpad")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoLaunchpad")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "golaunchpad")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// A malformed file is ignored so that the launcher always starts.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// grid: zero means "not set in file"
	if src.Grid.Columns > 0 {
		dst.Grid.Columns = src.Grid.Columns
	}
	if src.Grid.Rows > 0 {
		dst.Grid.Rows = src.Grid.Rows
	}
	if src.Grid.IconSize > 0 {
		dst.Grid.IconSize = src.Grid.IconSize
	}
	if src.Grid.FolderColumns > 0 {
		dst.Grid.FolderColumns = src.Grid.FolderColumns
	}
	if src.Grid.FolderRows > 0 {
		dst.Grid.FolderRows = src.Grid.FolderRows
	}
	// drag
	if src.Drag.DropDelayMs > 0 {
		dst.Drag.DropDelayMs = src.Drag.DropDelayMs
	}
	if src.Drag.PageFlipDelayMs > 0 {
		dst.Drag.PageFlipDelayMs = src.Drag.PageFlipDelayMs
	}
	if src.Drag.ScrollThreshold > 0 {
		dst.Drag.ScrollThreshold = src.Drag.ScrollThreshold
	}
	if src.Drag.ScrollDebounceMs > 0 {
		dst.Drag.ScrollDebounceMs = src.Drag.ScrollDebounceMs
	}
	// discovery
	if len(src.Discovery.CustomLocations) > 0 {
		dst.Discovery.CustomLocations = cleanLocations(src.Discovery.CustomLocations)
	}
	if src.Discovery.MaxDepth > 0 {
		dst.Discovery.MaxDepth = src.Discovery.MaxDepth
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Discovery.SkipSystem = src.Discovery.SkipSystem
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func cleanLocations(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func applyEnvOverrides(cfg *AppConfig) {
	if n, ok := envInt(EnvColumns); ok && n > 0 {
		cfg.Grid.Columns = n
	}
	if n, ok := envInt(EnvRows); ok && n > 0 {
		cfg.Grid.Rows = n
	}
	if n, ok := envInt(EnvDropDelayMs); ok && n > 0 {
		cfg.Drag.DropDelayMs = n
	}
	if n, ok := envInt(EnvPageFlipDelayMs); ok && n > 0 {
		cfg.Drag.PageFlipDelayMs = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvCustomLocations)); v != "" {
		cfg.Discovery.CustomLocations = cleanLocations(filepath.SplitList(v))
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "grid.columns":
		env = EnvColumns
	case "grid.rows":
		env = EnvRows
	case "drag.drop_delay_ms":
		env = EnvDropDelayMs
	case "drag.page_flip_delay_ms":
		env = EnvPageFlipDelayMs
	case "discovery.custom_locations":
		env = EnvCustomLocations
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
