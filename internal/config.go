package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tickler/internal/dates"
	"github.com/starford/tickler/internal/review"
	"github.com/starford/tickler/internal/section"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Review ReviewConfig      `yaml:"review"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Review.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ReviewConfig holds the review scheduling settings.
type ReviewConfig struct {
	Heading       string `yaml:"heading"`
	LinePrefix    string `yaml:"line_prefix"`
	BlockPrefix   string `yaml:"block_prefix"`
	DefaultDate   string `yaml:"default_date"`
	DailyFolder   string `yaml:"daily_folder"`
	DailyTemplate string `yaml:"daily_template"`
	DateFormat    string `yaml:"date_format"`
	MergeStrategy string `yaml:"merge_strategy"`
}

var singleLine = regexp.MustCompile(`^[^\r\n]*$`)

// Validate fills empty fields with their defaults and validates the rest.
func (c *ReviewConfig) Validate() error {
	if strings.TrimSpace(c.Heading) == "" {
		c.Heading = review.DefaultHeading
	}
	if c.DefaultDate == "" {
		c.DefaultDate = review.DefaultDate
	}
	if c.DateFormat == "" {
		c.DateFormat = dates.DefaultLayout
	}
	if c.MergeStrategy == "" {
		c.MergeStrategy = section.StrategySubstring
	}
	c.DailyFolder = strings.Trim(c.DailyFolder, "/")

	return validation.ValidateStruct(c,
		validation.Field(&c.Heading, validation.Match(singleLine).Error("must be a single line")),
		validation.Field(&c.LinePrefix, validation.Match(singleLine).Error("must be a single line")),
		validation.Field(&c.BlockPrefix, validation.Match(singleLine).Error("must be a single line")),
		validation.Field(&c.DailyFolder, validation.By(insideVault)),
		validation.Field(&c.DailyTemplate, validation.By(insideVault)),
		validation.Field(&c.DateFormat, validation.By(fileNameLayout)),
		validation.Field(&c.MergeStrategy, validation.In(section.StrategySubstring, section.StrategyLines)),
	)
}

// Settings converts the config into scheduler settings.
func (c *ReviewConfig) Settings() review.Settings {
	return review.Settings{
		Heading:     c.Heading,
		LinePrefix:  c.LinePrefix,
		BlockPrefix: c.BlockPrefix,
		DefaultDate: c.DefaultDate,
		DailyFolder: c.DailyFolder,
	}
}

func insideVault(value any) error {
	p, _ := value.(string)
	if p == "" {
		return nil
	}
	clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("must be a path inside the vault")
	}
	return nil
}

// fileNameLayout accepts Go time layouts that produce a date-dependent
// key usable as a file name.
func fileNameLayout(value any) error {
	layout, _ := value.(string)
	a := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC).Format(layout)
	b := time.Date(2025, 11, 23, 0, 0, 0, 0, time.UTC).Format(layout)
	if a == b {
		return errors.New("must contain date elements")
	}
	if strings.ContainsAny(a+b, "/\\") {
		return errors.New("must not produce path separators")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./tickler.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Review: ReviewConfig{
			Heading:       review.DefaultHeading,
			LinePrefix:    review.DefaultLinePrefix,
			BlockPrefix:   review.DefaultBlockPrefix,
			DefaultDate:   review.DefaultDate,
			DateFormat:    dates.DefaultLayout,
			MergeStrategy: section.StrategySubstring,
		},
	}
}
