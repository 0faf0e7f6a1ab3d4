package cmd

import (
	"github.com/spf13/cobra"

	"github.com/whit3rabbit/shroud/internal/obfuscator"
)

var stringsMappingPath string

// stringsCmd encrypts string literals only, leaving identifiers alone.
var stringsCmd = &cobra.Command{
	Use:   "strings <file-or-directory>",
	Short: "Encrypt string literals without renaming identifiers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := obfuscator.New(cfg)
		report, err := engine.ObfuscateStrings(args[0], stringsMappingPath)
		if report != nil {
			renderReport(cmd, report)
		}
		if err != nil {
			return err
		}
		return degradedErr(report)
	},
}

func init() {
	stringsCmd.Flags().StringVar(&stringsMappingPath, "map", "", "Mapping output path (default <target>.string_mapping.json)")
	stringsCmd.Flags().StringVar(&algorithm, "algorithm", "", "String cipher: aes, chacha20, xor or reverse")
	stringsCmd.Flags().StringVar(&cipherKey, "key", "", "String cipher key (a default is used when empty)")
	stringsCmd.Flags().BoolVar(&skipFormat, "skip-format", true, "Leave format strings unencrypted")
	stringsCmd.Flags().BoolVar(&skipErrors, "skip-errors", true, "Leave error/debug-looking strings unencrypted")
}
