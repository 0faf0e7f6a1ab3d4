// Package obfuscator orchestrates a full run: discovery, the safety gate,
// optional backup, per-file transformation with staged writes, mapping
// persistence and the reversal script.
package obfuscator

import (
	"bytes"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/whit3rabbit/shroud/internal/config"
	"github.com/whit3rabbit/shroud/internal/mapping"
	"github.com/whit3rabbit/shroud/internal/safety"
	"github.com/whit3rabbit/shroud/internal/scramble"
	"github.com/whit3rabbit/shroud/internal/stringcipher"
	"github.com/whit3rabbit/shroud/internal/transformer"
)

const stagedSuffix = ".shroudtmp"

// Obfuscator holds the configuration and logger for one or more runs.
type Obfuscator struct {
	Config *config.Config
	logger *zap.Logger
}

// New creates an obfuscator. With Silent set all logging is dropped.
func New(cfg *config.Config) *Obfuscator {
	return &Obfuscator{Config: cfg, logger: newLogger(cfg.Silent)}
}

func newLogger(silent bool) *zap.Logger {
	if silent {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// DefaultCodeMappingPath names the mapping file written next to the target by
// a code run.
func DefaultCodeMappingPath(target string) string {
	return strings.TrimSuffix(target, "/") + ".code_mapping.json"
}

// DefaultStringMappingPath names the mapping file written next to the target
// by a strings run.
func DefaultStringMappingPath(target string) string {
	return strings.TrimSuffix(target, "/") + ".string_mapping.json"
}

// DefaultNameMappingPath names the mapping file written inside the target
// directory by a names run.
func DefaultNameMappingPath(target string) string {
	return filepath.Join(target, "name_mapping.json")
}

// ObfuscateCode runs the full code pipeline on a file or directory: rename
// identifiers, encrypt string literals, optionally rewrite control flow.
func (o *Obfuscator) ObfuscateCode(target, mappingPath string) (*Report, error) {
	if mappingPath == "" {
		mappingPath = DefaultCodeMappingPath(target)
	}
	return o.run(target, mappingPath, config.MethodCode)
}

// ObfuscateStrings runs the strings-only pipeline: literals are encrypted
// and identifiers are left alone.
func (o *Obfuscator) ObfuscateStrings(target, mappingPath string) (*Report, error) {
	if mappingPath == "" {
		mappingPath = DefaultStringMappingPath(target)
	}
	return o.run(target, mappingPath, config.MethodStrings)
}

// run is the shared code/strings pipeline.
func (o *Obfuscator) run(target, mappingPath, method string) (*Report, error) {
	start := time.Now()
	cfg := o.Config
	report := &Report{Method: method, DryRun: cfg.DryRun, MappingPath: mappingPath}

	files, err := DiscoverGoFiles(target)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Go source files found under %s", target)
	}
	o.logger.Info("discovered sources", zap.Int("files", len(files)), zap.String("target", target))

	sources := make(map[string][]byte, len(files))
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		sources[path] = src
		report.Violations = append(report.Violations, safety.Scan(path, string(src))...)
	}

	// The safety gate aborts before anything is written. A dry run only
	// previews, so violations are reported instead of fatal.
	if err := safety.Check(report.Violations); err != nil {
		if !cfg.DryRun {
			return report, err
		}
		o.logger.Warn("safety violations present, continuing because this is a dry run",
			zap.Int("count", len(report.Violations)))
	}

	if cfg.Backup && !cfg.DryRun {
		backupPath, err := backupTarget(target)
		if err != nil {
			return nil, err
		}
		report.BackupPath = backupPath
		o.logger.Info("backup created", zap.String("path", backupPath))
	}

	ctx := scramble.NewContext(cfg, cfg.Seed)

	var enc *stringcipher.Encryptor
	if method == config.MethodStrings || cfg.Strings.Algorithm != "" {
		enc, err = stringcipher.NewEncryptor(cfg.Strings, seededNonces(cfg, ctx))
		if err != nil {
			return nil, err
		}
	}

	outputs := make(map[string][]byte, len(files))
	for _, path := range files {
		tr := transformer.New(cfg, ctx, enc)
		tr.RenameIdents = method == config.MethodCode
		tr.EncryptStrings = enc != nil
		tr.ControlFlow = cfg.ControlFlowRewrite && method == config.MethodCode

		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, path, sources[path], parser.ParseComments)
		if err != nil {
			// One unparseable file does not stop the run, but the run is no
			// longer complete.
			o.logger.Warn("skipping file that does not parse",
				zap.String("file", path), zap.Error(err))
			report.SkippedFiles = append(report.SkippedFiles, path)
			report.Degraded = true
			continue
		}
		if err := tr.File(file); err != nil {
			// Cipher failures propagate; silently downgrading the cipher is
			// not an option.
			return nil, fmt.Errorf("failed to transform %s: %w", path, err)
		}
		var buf bytes.Buffer
		if err := format.Node(&buf, fset, file); err != nil {
			return nil, fmt.Errorf("failed to print %s: %w", path, err)
		}

		outputs[path] = buf.Bytes()
		report.Changes = append(report.Changes, tr.Changes()...)
		report.RenamedOccurrences += tr.RenamedOccurrences()
		report.EncryptedStrings += tr.EncryptedOccurrences()
	}

	if cfg.DryRun {
		report.Files = append(report.Files, files...)
		report.RenamedIdentifiers = len(ctx.Mappings())
		report.Duration = time.Since(start)
		return report, nil
	}

	// The snippet can only be injected after every file was transformed:
	// the root file may sort before the files holding the literals.
	if enc != nil && enc.Count() > 0 {
		rootFile := designatedRootFile(target, files)
		if _, ok := outputs[rootFile]; !ok {
			// The designated root was skipped; any transformed file can
			// carry the decode function instead.
			for _, path := range files {
				if _, ok := outputs[path]; ok {
					rootFile = path
					break
				}
			}
		}
		if output, ok := outputs[rootFile]; ok {
			outputs[rootFile] = injectRuntimeSnippet(output, enc.Cipher())
		} else {
			o.logger.Warn("no transformed file can hold the runtime decode function; output will not build",
				zap.String("target", target))
			report.Degraded = true
		}
	}

	for _, path := range files {
		output, ok := outputs[path]
		if !ok {
			continue
		}
		if err := stageWrite(path, output); err != nil {
			// Leave the original in place and mark the run degraded
			// rather than shipping a file that no longer parses.
			o.logger.Warn("output failed validation, keeping original",
				zap.String("file", path), zap.Error(err))
			report.SkippedFiles = append(report.SkippedFiles, path)
			report.Degraded = true
			continue
		}
		report.Files = append(report.Files, path)
	}

	report.RenamedIdentifiers = len(ctx.Mappings())

	m := mapping.New(method, cfg, cfg.Seed)
	if method == config.MethodCode {
		m.Merge(ctx.Mappings())
	}
	if enc != nil {
		for original, tok := range enc.Tokens() {
			m.Add(strconv.Quote(original),
				fmt.Sprintf("%s(%q)", stringcipher.DecodeFuncName, tok))
		}
	}
	if err := m.Save(mappingPath); err != nil {
		return report, err
	}
	script, err := m.GenerateReversalScript(target)
	if err != nil {
		return report, err
	}
	report.ReversalScript = script
	o.logger.Info("mapping persisted",
		zap.String("mapping", mappingPath),
		zap.String("reversal_script", script),
		zap.Int("pairs", m.Len()))

	report.Duration = time.Since(start)
	return report, nil
}

// seededNonces returns the deterministic nonce stream for seeded runs, so
// AEAD tokens reproduce across runs over identical input. Without a user
// seed the encryptor keeps its crypto/rand default.
func seededNonces(cfg *config.Config, ctx *scramble.Context) io.Reader {
	if cfg.Seed == "" {
		return nil
	}
	return ctx.NonceSource()
}

// transformSource parses, transforms and reprints one file.
func (o *Obfuscator) transformSource(path string, src []byte, tr *transformer.Transformer) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := tr.File(file); err != nil {
		return nil, fmt.Errorf("failed to transform %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("failed to print %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// stageWrite writes output next to path, re-parses it as a syntax check, and
// only then renames it over the original.
func stageWrite(path string, output []byte) error {
	tmp := path + stagedSuffix
	if err := os.WriteFile(tmp, output, 0644); err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), tmp, output, parser.ParseComments); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("staged output does not parse: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// DiscoverGoFiles returns every .go file under target (or target itself when
// it is a file), sorted for deterministic processing order. Hidden, vendor
// and testdata directories and previously staged temp files are skipped.
func DiscoverGoFiles(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to stat target %s: %w", target, err)
	}
	if !info.IsDir() {
		if !strings.HasSuffix(target, ".go") {
			return nil, fmt.Errorf("target is not a Go source file: %s", target)
		}
		return []string{target}, nil
	}

	var files []string
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != target && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, stagedSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", target, err)
	}
	sort.Strings(files)
	return files, nil
}

// designatedRootFile picks the file that receives the runtime decryption
// snippet: main.go at the target root when present, otherwise the first
// root-level source in sort order, otherwise the first file overall.
func designatedRootFile(target string, files []string) string {
	if len(files) == 0 {
		return ""
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return files[0]
	}
	var rootFiles []string
	for _, f := range files {
		if filepath.Dir(f) == filepath.Clean(target) {
			if filepath.Base(f) == "main.go" {
				return f
			}
			rootFiles = append(rootFiles, f)
		}
	}
	if len(rootFiles) > 0 {
		return rootFiles[0]
	}
	return files[0]
}
