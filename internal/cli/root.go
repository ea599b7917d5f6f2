// Package cli implements the cutscene command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/cutscene/internal/config"
	"github.com/opencode-ai/cutscene/internal/db"
	"github.com/opencode-ai/cutscene/internal/logging"
)

var (
	cfgFile        string
	jsonOutput     bool
	nonInteractive bool
	noColor        bool

	settings  = config.NewViper()
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cutscene",
	Short: "Play and inspect authored cutscene sequences",
	Long: `cutscene runs authored instruction sequences: dialogue lines, timed pauses,
variable checks and branching menus. Blocking sequences put the game in
cutscene mode while they run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./cutscene.yaml, then ~/.config/cutscene/config.yaml)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("db", "", "save and event database path")
	flags.String("sequences", "", "extra sequences directory, searched first")
	flags.BoolVar(&jsonOutput, "json", false, "print machine-readable JSON")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; use defaults")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	_ = settings.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = settings.BindPFlag("database.path", flags.Lookup("db"))
	_ = settings.BindPFlag("sequences.dir", flags.Lookup("sequences"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to subcommands.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// GetConfig returns the loaded configuration, or nil before any command ran.
func GetConfig() *config.Config {
	return appConfig
}

func initConfig() error {
	cfg, err := config.Load(settings, cfgFile)
	if err != nil {
		return err
	}
	if err := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return err
	}
	appConfig = cfg
	if cfg.Source != "" {
		logger := logging.Component("cli")
		logger.Debug().Str("config", cfg.Source).Msg("config loaded")
	}
	return nil
}

func currentConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}

// openDatabase opens the configured database and applies pending migrations.
func openDatabase(ctx context.Context) (*db.DB, error) {
	path := currentConfig().Database.Path
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	applied, err := database.MigrateUp(ctx)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if applied > 0 {
		logger := logging.Component("cli")
		logger.Debug().Int("applied", applied).Str("path", path).Msg("database migrated")
	}
	return database, nil
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

// WriteOutput prints v as indented JSON.
func WriteOutput(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func stdout(cmd *cobra.Command) io.Writer {
	if cmd != nil {
		return cmd.OutOrStdout()
	}
	return os.Stdout
}
