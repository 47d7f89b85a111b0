package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	ProjectsDir string `mapstructure:"projects_dir" yaml:"projects_dir"`

	// CSV parsing and numeric locale; empty means auto-detect.
	Delimiter          string `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`

	// Pipeline policies
	ZeroHoursPolicy    string `mapstructure:"zero_hours_policy" yaml:"zero_hours_policy" validate:"oneof=fail skip"`
	DuplicateKeyPolicy string `mapstructure:"duplicate_key_policy" yaml:"duplicate_key_policy" validate:"oneof=fanout fail"`
	RequirePayroll     bool   `mapstructure:"require_payroll" yaml:"require_payroll"`

	OutputFormat string `mapstructure:"output_format" yaml:"output_format" validate:"oneof=markdown json xlsx"`

	// HTTP surface
	ServeAddr   string `mapstructure:"serve_addr" yaml:"serve_addr" validate:"required"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" validate:"gte=1,lte=1024"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn warning error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
}

var validate = validator.New()

// Validate checks enumerated keys and ranges.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.PipelineOptions(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".sitelens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.sitelens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SITELENS")
	v.AutomaticEnv()

	v.SetDefault("projects_dir", "")
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("zero_hours_policy", "fail")
	v.SetDefault("duplicate_key_policy", "fanout")
	v.SetDefault("require_payroll", true)
	v.SetDefault("output_format", "markdown")
	v.SetDefault("serve_addr", ":8080")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve projects_dir default: ~/.sitelens/projects
	if c.ProjectsDir == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		c.ProjectsDir = filepath.Join(dir, "projects")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
