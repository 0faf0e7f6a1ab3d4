// Package cmd implements the command line interface for the application.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/shroud/internal/config"
)

var (
	cfgFile string         // config file path from the flag
	cfg     *config.Config // loaded configuration shared by all subcommands

	// Flag variables mapped to config fields for override
	silentMode  bool   // -> cfg.Silent
	dryRun      bool   // -> cfg.DryRun
	withBackup  bool   // -> cfg.Backup
	seed        string // -> cfg.Seed
	preserveAPI bool   // -> cfg.PreservePublicAPI
	minLength   int    // -> cfg.MinIdentifierLength
	controlFlow bool   // -> cfg.ControlFlowRewrite
	algorithm   string // -> cfg.Strings.Algorithm
	cipherKey   string // -> cfg.Strings.Key
	skipFormat  bool   // -> cfg.Strings.SkipFormat
	skipErrors  bool   // -> cfg.Strings.SkipErrors
	sequential  bool   // -> cfg.SequentialNames
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shroud",
	Short: "A CLI tool to reversibly obfuscate Go source trees.",
	Long: `shroud renames identifiers, encrypts string literals and scrambles
file names in Go source trees, recording every change in a mapping file so
the transformation can be fully reversed.`,
	SilenceUsage: true,
	// PersistentPreRunE loads configuration before any subcommand runs.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg != nil {
			return nil
		}
		loaded, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		cfg = loaded
		applyFlagOverrides(cfg, cmd)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// applyFlagOverrides applies command-line flag values to the config struct.
// A flag only overrides the file value when the user set it explicitly.
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("silent") {
		cfg.Silent = silentMode
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = dryRun
	}
	if flags.Changed("backup") {
		cfg.Backup = withBackup
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("preserve-pub") {
		cfg.PreservePublicAPI = preserveAPI
	}
	if flags.Changed("min-len") {
		cfg.MinIdentifierLength = minLength
	}
	if flags.Changed("control-flow") {
		cfg.ControlFlowRewrite = controlFlow
	}
	if flags.Changed("algorithm") {
		cfg.Strings.Algorithm = algorithm
	}
	if flags.Changed("key") {
		cfg.Strings.Key = cipherKey
	}
	if flags.Changed("skip-format") {
		cfg.Strings.SkipFormat = skipFormat
	}
	if flags.Changed("skip-errors") {
		cfg.Strings.SkipErrors = skipErrors
	}
	if flags.Changed("sequential") {
		cfg.SequentialNames = sequential
	}
}

// Execute runs the root command. Called once from main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already printed the error; just exit non-zero.
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./shroud.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&silentMode, "silent", "s", false, "Suppress informational output (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Preview changes without writing any file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&withBackup, "backup", false, "Back up the target before transforming it (overrides config)")
	rootCmd.PersistentFlags().StringVar(&seed, "seed", "", "Seed for deterministic name generation (overrides config)")

	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(stringsCmd)
	rootCmd.AddCommand(namesCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(unpackCmd)
}
