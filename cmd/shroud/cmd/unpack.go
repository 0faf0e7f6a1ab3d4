package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/shroud/internal/archive"
	"github.com/whit3rabbit/shroud/internal/config"
	"github.com/whit3rabbit/shroud/internal/obfuscator"
)

var (
	unpackOutput  string
	unpackMapping string
)

// unpackCmd is the inverse entry point: it extracts archives produced by
// pack, and reverses code, strings or names obfuscation from a mapping file.
var unpackCmd = &cobra.Command{
	Use:   "unpack <archive-or-directory>",
	Short: "Extract a packed archive or reverse an obfuscation",
	Long: `Given an archive produced by pack, extracts it. Given a directory and
a mapping file (--map), undoes the transformation the mapping records:
renamed identifiers, encrypted strings or scrambled file names.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		if archive.IsArchive(target) {
			output := unpackOutput
			if output == "" {
				output = strings.TrimSuffix(strings.TrimSuffix(target, ".gz"), ".tar")
				if output == target {
					output = target + ".unpacked"
				}
			}
			if err := archive.Unpack(target, output); err != nil {
				return err
			}
			config.PrintInfo("Extracted %s into %s\n", target, output)
			return nil
		}

		mappingPath := unpackMapping
		if mappingPath == "" {
			mappingPath = obfuscator.DefaultNameMappingPath(target)
		}
		engine := obfuscator.New(cfg)
		report, err := engine.Reverse(target, mappingPath)
		if err != nil {
			return fmt.Errorf("reversal failed: %w", err)
		}
		renderReport(cmd, report)
		return nil
	},
}

func init() {
	unpackCmd.Flags().StringVarP(&unpackOutput, "output", "o", "", "Extraction directory for archives")
	unpackCmd.Flags().StringVar(&unpackMapping, "map", "", "Mapping file to reverse from (default <target>/name_mapping.json)")
}
