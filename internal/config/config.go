// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/morganforge/treq-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete Treq client configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// API server configuration
	API APIConfig `toml:"api" json:"api"`

	// User identity
	User UserConfig `toml:"user" json:"user"`

	// Chat behavior
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Audio features
	Audio AudioConfig `toml:"audio" json:"audio"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// APIConfig contains backend connection configuration.
type APIConfig struct {
	// URL is the base URL of the Treq API server
	URL string `toml:"url" json:"url"`
	// TimeoutSecs is the request timeout for non-streaming calls
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries is how many times transient failures are retried
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// UserConfig identifies the operator to the backend.
type UserConfig struct {
	// ID is sent with every request; the backend scopes conversation
	// memory and permissions to it
	ID string `toml:"id" json:"id"`
}

// ChatConfig contains chat behavior configuration.
type ChatConfig struct {
	// Stream enables token streaming (SSE). When false, responses
	// arrive as a single blocking reply.
	Stream bool `toml:"stream" json:"stream"`
	// Visualization asks the backend for chart data when the answer
	// suits it
	Visualization bool `toml:"visualization" json:"visualization"`
	// SaveHistory persists conversations to disk
	SaveHistory bool `toml:"save_history" json:"save_history"`
	// MaxConversations limits stored conversations per user (0 = unlimited)
	MaxConversations int `toml:"max_conversations" json:"max_conversations"`
}

// AudioConfig contains voice feature configuration.
type AudioConfig struct {
	// Enabled turns on transcription and speech synthesis
	Enabled bool `toml:"enabled" json:"enabled"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// ShowSources displays knowledge-base sources under answers
	ShowSources bool `toml:"show_sources" json:"show_sources"`
	// Markdown renders assistant replies as markdown
	Markdown bool `toml:"markdown" json:"markdown"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			URL:         "http://localhost:8000",
			TimeoutSecs: 60,
			MaxRetries:  3,
		},

		User: UserConfig{
			ID: "",
		},

		Chat: ChatConfig{
			Stream:           true,
			Visualization:    true,
			SaveHistory:      true,
			MaxConversations: 50,
		},

		Audio: AudioConfig{
			Enabled: false,
		},

		UI: UIConfig{
			Theme:       "dark",
			CompactMode: false,
			ShowSources: true,
			Markdown:    true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the Treq configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".treq"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only); the
// user id grants backend access scoped to that operator.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finishLoad applies overrides, defaults, and validation in order.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# Treq client configuration file")
	fmt.Fprintln(file, "# Edit with care, or use 'treq config set <key> <value>'")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Validate API URL
	if c.API.URL == "" {
		errs = append(errs, ValidationError{
			Field:   "api.url",
			Message: "must not be empty",
		})
	} else {
		parsed, err := url.Parse(c.API.URL)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "api.url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errs = append(errs, ValidationError{
				Field:   "api.url",
				Message: fmt.Sprintf("scheme must be http or https, got %q", parsed.Scheme),
			})
		}
	}

	// Validate timeout
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be 1-600 seconds, got %d", c.API.TimeoutSecs),
		})
	}

	// Validate retries
	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "api.max_retries",
			Message: fmt.Sprintf("must be 0-10, got %d", c.API.MaxRetries),
		})
	}

	// Validate conversation limit
	if c.Chat.MaxConversations < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_conversations",
			Message: "must be non-negative",
		})
	}

	// Validate UI theme
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value
// configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.API.URL == "" {
		c.API.URL = defaults.API.URL
	}
	// Trailing slashes break path joining downstream
	c.API.URL = strings.TrimRight(c.API.URL, "/")
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = defaults.API.MaxRetries
	}

	if c.Chat.MaxConversations == 0 {
		c.Chat.MaxConversations = defaults.Chat.MaxConversations
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - TREQ_API_URL: overrides api.url
//   - TREQ_USER_ID: overrides user.id
//   - TREQ_NO_STREAM: set to "1" or "true" to disable streaming
//   - TREQ_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if apiURL := os.Getenv("TREQ_API_URL"); apiURL != "" {
		c.API.URL = apiURL
	}

	if userID := os.Getenv("TREQ_USER_ID"); userID != "" {
		c.User.ID = userID
	}

	if noStream := os.Getenv("TREQ_NO_STREAM"); noStream != "" {
		if noStream == "1" || strings.ToLower(noStream) == "true" {
			c.Chat.Stream = false
		}
	}

	if theme := os.Getenv("TREQ_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "api.url").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "api.url").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	// Common abbreviations keep their casing in field names
	switch result.String() {
	case "Api":
		return "API"
	case "Url":
		return "URL"
	case "Ui":
		return "UI"
	case "Id":
		return "ID"
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type
// conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.url",
		"api.timeout_secs",
		"api.max_retries",
		"user.id",
		"chat.stream",
		"chat.visualization",
		"chat.save_history",
		"chat.max_conversations",
		"audio.enabled",
		"ui.theme",
		"ui.compact_mode",
		"ui.show_sources",
		"ui.markdown",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
