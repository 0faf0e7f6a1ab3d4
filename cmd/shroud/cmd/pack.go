package cmd

import (
	"github.com/spf13/cobra"

	"github.com/whit3rabbit/shroud/internal/archive"
	"github.com/whit3rabbit/shroud/internal/config"
)

var (
	packOutput   string
	packCompress bool
)

// packCmd bundles an obfuscated tree for distribution.
var packCmd = &cobra.Command{
	Use:   "pack <directory>",
	Short: "Bundle a directory into a tar (or tar.gz) archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		output := packOutput
		if output == "" {
			output = dir + ".tar"
			if packCompress {
				output += ".gz"
			}
		}
		if err := archive.Pack(dir, output, packCompress); err != nil {
			return err
		}
		config.PrintInfo("Packed %s into %s\n", dir, output)
		return nil
	},
}

func init() {
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "Archive path (default <directory>.tar[.gz])")
	packCmd.Flags().BoolVarP(&packCompress, "compress", "z", false, "gzip-compress the archive")
}
