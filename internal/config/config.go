// Package config loads engine configuration from defaults, config files,
// environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CUTSCENE_LOGGING_LEVEL.
const EnvPrefix = "CUTSCENE"

// Config is the full engine configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Sequences SequencesConfig `mapstructure:"sequences"`
	TUI       TUIConfig       `mapstructure:"tui"`

	// Source is the config file that was read, if any.
	Source string `mapstructure:"-"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig tunes the frame loop and sequence runners.
type EngineConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	TimeScale       float64       `mapstructure:"time_scale"`
	MaxStepsPerTick int           `mapstructure:"max_steps_per_tick"`
	Autosave        bool          `mapstructure:"autosave"`
}

// DatabaseConfig locates the save and event database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SequencesConfig locates authored sequences.
type SequencesConfig struct {
	Dir        string `mapstructure:"dir"`
	ProjectDir string `mapstructure:"project_dir"`
}

// TUIConfig configures the terminal monitor.
type TUIConfig struct {
	Theme string `mapstructure:"theme"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Engine: EngineConfig{
			TickInterval:    50 * time.Millisecond,
			TimeScale:       1,
			MaxStepsPerTick: 1000,
			Autosave:        true,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(DataDir(), "cutscene.db"),
		},
		TUI: TUIConfig{
			Theme: "default",
		},
	}
}

// ConfigDir is the per-user configuration directory.
func ConfigDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".config", "cutscene")
	}
	return ".cutscene"
}

// DataDir is the per-user data directory.
func DataDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); dir != "" {
		return filepath.Join(dir, "cutscene")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "cutscene")
	}
	return ".cutscene"
}

// DefaultConfigFiles lists the files searched when no path is given, in
// precedence order.
func DefaultConfigFiles() []string {
	return []string{
		"cutscene.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}
}

// NewViper returns a viper instance carrying the defaults and environment
// bindings. Callers may bind flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("engine.tick_interval", d.Engine.TickInterval)
	v.SetDefault("engine.time_scale", d.Engine.TimeScale)
	v.SetDefault("engine.max_steps_per_tick", d.Engine.MaxStepsPerTick)
	v.SetDefault("engine.autosave", d.Engine.Autosave)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("sequences.dir", d.Sequences.Dir)
	v.SetDefault("sequences.project_dir", d.Sequences.ProjectDir)
	v.SetDefault("tui.theme", d.TUI.Theme)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration into a Config. path, when set, must exist;
// otherwise the first of DefaultConfigFiles that exists is used.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}

	source := strings.TrimSpace(path)
	if source == "" {
		for _, candidate := range DefaultConfigFiles() {
			if _, err := os.Stat(candidate); err == nil {
				source = candidate
				break
			}
		}
	}

	if source != "" {
		v.SetConfigFile(source)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", source)
			}
			return nil, fmt.Errorf("read config %s: %w", source, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Source = source
	cfg.Database.Path = expandHome(cfg.Database.Path)
	cfg.Sequences.Dir = expandHome(cfg.Sequences.Dir)
	cfg.Sequences.ProjectDir = expandHome(cfg.Sequences.ProjectDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	if c.Engine.TickInterval <= 0 {
		problems = append(problems, "engine.tick_interval must be positive")
	}
	if c.Engine.TimeScale <= 0 {
		problems = append(problems, "engine.time_scale must be positive")
	}
	if c.Engine.MaxStepsPerTick <= 0 {
		problems = append(problems, "engine.max_steps_per_tick must be positive")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database.path is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
