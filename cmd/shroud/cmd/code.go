package cmd

import (
	"github.com/spf13/cobra"

	"github.com/whit3rabbit/shroud/internal/obfuscator"
)

var codeMappingPath string

// codeCmd runs the full code pipeline: identifier renaming plus string
// literal encryption and the optional control flow rewrite.
var codeCmd = &cobra.Command{
	Use:   "code <file-or-directory>",
	Short: "Obfuscate identifiers and string literals in Go source",
	Long: `Renames identifiers to opaque derived names and encrypts string
literals, writing the reversal mapping next to the target. Exported
declarations are preserved by default so the package API survives.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := obfuscator.New(cfg)
		report, err := engine.ObfuscateCode(args[0], codeMappingPath)
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
	codeCmd.Flags().StringVar(&codeMappingPath, "map", "", "Mapping output path (default <target>.code_mapping.json)")
	codeCmd.Flags().BoolVar(&preserveAPI, "preserve-pub", true, "Keep exported names unchanged")
	codeCmd.Flags().IntVar(&minLength, "min-len", 3, "Minimum identifier length eligible for renaming")
	codeCmd.Flags().BoolVar(&controlFlow, "control-flow", false, "Rewrite plain if/else into opaque switches")
	codeCmd.Flags().StringVar(&algorithm, "algorithm", "", "String cipher: aes, chacha20, xor or reverse")
	codeCmd.Flags().StringVar(&cipherKey, "key", "", "String cipher key (a default is used when empty)")
	codeCmd.Flags().BoolVar(&skipFormat, "skip-format", true, "Leave format strings unencrypted")
	codeCmd.Flags().BoolVar(&skipErrors, "skip-errors", true, "Leave error/debug-looking strings unencrypted")
}
