package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/sitelens-cli/internal/config"
	"github.com/KaramelBytes/sitelens-cli/internal/logging"
	"github.com/KaramelBytes/sitelens-cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var logger = logging.Discard()

var rootCmd = &cobra.Command{
	Use:   "sitelens",
	Short: "sitelens: join construction-project exports and measure what drives spend",
	Long: `sitelens joins five construction-project exports (progress, site log, payroll,
spend and shrinkage) on Project_ID into one master table, then reports the
correlations between schedule variance, utilisation, spend and shrinkage along
with a simple OLS regression of spend on shrinkage and a controlled one of
shrinkage on schedule variance and spend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error: %v", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.sitelens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		ui.PrintWarning("Warning: failed to load config: %v", err)
		return
	}
	cfg = c

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	l, err := logging.New(os.Stderr, level, cfg.LogFormat)
	if err != nil {
		ui.PrintWarning("Warning: %v", err)
		return
	}
	logger = l
}

// requireConfig returns the loaded config or loads it on demand.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg = c
	return cfg, nil
}
