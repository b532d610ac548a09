// Command synergy serves and queries the card synergy recommender.
package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/clash-synergy/internal/config"
	"github.com/ramonehamilton/clash-synergy/internal/logging"
	"github.com/ramonehamilton/clash-synergy/internal/version"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "synergy",
		Short:         "Recommend cards that complement a partial Clash Royale deck",
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.clash-synergy/config.toml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: json or console")

	root.AddCommand(
		newServeCmd(a),
		newRecommendCmd(a),
		newSimilarCmd(a),
		newImportCmd(a),
		newConfigCmd(a),
	)

	return root
}

// setup loads .env, the config file and the logger, in that order, so
// SYNERGY_* variables from .env override the file.
func (a *app) setup(cmd *cobra.Command) error {
	if a.envFile != "" {
		// A missing .env is normal.
		if err := godotenv.Load(a.envFile); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	a.cfg = cfg

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Error().Msg(strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
