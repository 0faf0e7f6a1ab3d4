// Package api provides the public API for using the obfuscator as a library.
//
// This package allows users to obfuscate Go code programmatically using the
// same techniques available in the command-line interface. The API provides
// methods for obfuscating code strings, files, and directories, for renaming
// files, and for reversing any of those transformations from a mapping file.
//
// Basic usage example:
//
//	obf, err := api.NewObfuscator(api.Options{ConfigPath: "shroud.yaml"})
//	if err != nil {
//	    log.Fatalf("Failed to create obfuscator: %v", err)
//	}
//
//	result, err := obf.ObfuscateCode("package main\n\nfunc main() {}\n")
//	if err != nil {
//	    log.Fatalf("Failed to obfuscate code: %v", err)
//	}
//
//	fmt.Println(result) // Prints obfuscated Go code
package api

import (
	"fmt"

	"github.com/whit3rabbit/shroud/internal/archive"
	"github.com/whit3rabbit/shroud/internal/config"
	"github.com/whit3rabbit/shroud/internal/obfuscator"
)

// PrintInfo prints formatted information to stdout, respecting the Testing
// flag. If Testing mode is active, no output is generated.
func PrintInfo(format string, args ...interface{}) {
	config.PrintInfo(format, args...)
}

// Report re-exports the run summary so callers do not need to import
// internal packages.
type Report = obfuscator.Report

// Obfuscator is the main engine for programmatic obfuscation. It holds the
// resolved configuration shared by all operations.
type Obfuscator struct {
	Config *config.Config

	engine *obfuscator.Obfuscator
}

// Options configures a new Obfuscator instance.
type Options struct {
	// ConfigPath is the path to a YAML configuration file.
	// If empty, default configuration will be used.
	ConfigPath string

	// Silent suppresses informational messages during obfuscation.
	Silent bool

	// Seed fixes the name derivation so repeated runs over identical input
	// produce identical output. Leave empty for per-run random naming.
	Seed string
}

// NewObfuscator creates a new Obfuscator instance using the provided options.
//
// Returns an error if the configuration cannot be loaded.
func NewObfuscator(options Options) (*Obfuscator, error) {
	cfg, err := config.LoadConfig(options.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if options.Silent {
		cfg.Silent = true
	}
	if options.Seed != "" {
		cfg.Seed = options.Seed
	}
	return &Obfuscator{
		Config: cfg,
		engine: obfuscator.New(cfg),
	}, nil
}

// NewObfuscatorFromConfig wraps an already-resolved configuration. The
// configuration is treated as read-only from this point on.
func NewObfuscatorFromConfig(cfg *config.Config) *Obfuscator {
	return &Obfuscator{Config: cfg, engine: obfuscator.New(cfg)}
}

// ObfuscateCode obfuscates a string of Go source in memory and returns the
// obfuscated code. No files are touched and no mapping is persisted; use
// ObfuscateCodeWithMapping when the rename map is needed for reversal.
func (o *Obfuscator) ObfuscateCode(code string) (string, error) {
	out, _, err := o.engine.ObfuscateSource(code)
	return out, err
}

// ObfuscateCodeWithMapping obfuscates a string of Go source in memory and
// additionally returns the original -> replacement identifier map.
func (o *Obfuscator) ObfuscateCodeWithMapping(code string) (string, map[string]string, error) {
	return o.engine.ObfuscateSource(code)
}

// ObfuscateFile obfuscates a single Go file in place. The mapping is written
// to mappingPath, or next to the file when mappingPath is empty.
func (o *Obfuscator) ObfuscateFile(path, mappingPath string) (*Report, error) {
	return o.engine.ObfuscateCode(path, mappingPath)
}

// ObfuscateDirectory obfuscates every Go file under dir in place. The mapping
// is written to mappingPath, or next to the directory when mappingPath is
// empty.
func (o *Obfuscator) ObfuscateDirectory(dir, mappingPath string) (*Report, error) {
	return o.engine.ObfuscateCode(dir, mappingPath)
}

// ObfuscateStrings encrypts string literals under target without touching
// identifiers.
func (o *Obfuscator) ObfuscateStrings(target, mappingPath string) (*Report, error) {
	return o.engine.ObfuscateStrings(target, mappingPath)
}

// ObfuscateNames renames the files and directories under dir to opaque
// names, writing the path mapping inside dir (or to mappingPath when given).
func (o *Obfuscator) ObfuscateNames(dir, mappingPath string) (*Report, error) {
	return o.engine.ObfuscateNames(dir, mappingPath)
}

// Reverse undoes a previous run recorded in the mapping file at mappingPath,
// whatever its method was.
func (o *Obfuscator) Reverse(target, mappingPath string) (*Report, error) {
	return o.engine.Reverse(target, mappingPath)
}

// Pack bundles dir into a tar archive at outputPath, gzip-compressed when
// compress is set.
func Pack(dir, outputPath string, compress bool) error {
	return archive.Pack(dir, outputPath, compress)
}

// Unpack extracts a tar or tar.gz archive into outputDir.
func Unpack(archivePath, outputDir string) error {
	return archive.Unpack(archivePath, outputDir)
}

// IsArchive reports whether path looks like an archive produced by Pack.
func IsArchive(path string) bool {
	return archive.IsArchive(path)
}
