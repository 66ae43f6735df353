package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/turnabouthero/go-vgr-metrics/internal/config"
)

var (
	dbPath     string
	configPath string
	verbose    bool

	// envReplayDir is the VGR_REPLAY_DIR fallback for directory arguments.
	envReplayDir string
)

var rootCmd = &cobra.Command{
	Use:   "vgrmetrics",
	Short: "Vainglory replay metrics tool",
	Long:  "Decode Vainglory binary replay segments and compute player KDA, economy and match outcome metrics.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	env, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	envReplayDir = env.ReplayDir
	defaultDB := env.DBPath
	if defaultDB == "" {
		defaultDB = filepath.Join(mustUserHome(), ".vgrmetrics", "metrics.db")
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", env.ConfigPath, "path to a TOML config overlay")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(watchCmd)
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// newLogger builds the CLI logger. Human-readable console output on stderr so
// tables and reports on stdout stay clean.
func newLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).With().Timestamp().Logger().Level(level)
}

// loadConfig resolves the effective decode configuration, applying the
// overlay file when one was given.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.Default()
}

// replayDirArg resolves an optional directory argument, falling back to
// VGR_REPLAY_DIR.
func replayDirArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if envReplayDir != "" {
		return envReplayDir, nil
	}
	return "", fmt.Errorf("no replay directory given and VGR_REPLAY_DIR is unset")
}
