package cmd

import (
	"github.com/spf13/cobra"

	"github.com/whit3rabbit/shroud/internal/obfuscator"
)

var namesMappingPath string

// namesCmd scrambles file and directory names, leaving file contents alone.
var namesCmd = &cobra.Command{
	Use:   "names <directory>",
	Short: "Rename files and directories to opaque names",
	Long: `Renames every file and directory under the target to an opaque name,
preserving file extensions. The path mapping is written inside the target so
a later unpack can restore the original layout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := obfuscator.New(cfg)
		report, err := engine.ObfuscateNames(args[0], namesMappingPath)
		if report != nil {
			renderReport(cmd, report)
		}
		return err
	},
}

func init() {
	namesCmd.Flags().StringVar(&namesMappingPath, "map", "", "Mapping output path (default <target>/name_mapping.json)")
	namesCmd.Flags().BoolVar(&sequential, "sequential", false, "Use sequential names (f0, f1, d0, ...) instead of random ones")
}
