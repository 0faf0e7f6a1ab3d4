package obfuscator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/whit3rabbit/shroud/internal/config"
	"github.com/whit3rabbit/shroud/internal/mapping"
)

// Reverse loads a mapping file and undoes the transformation it records,
// dispatching on the mapping's method.
func (o *Obfuscator) Reverse(target, mappingPath string) (*Report, error) {
	m, err := mapping.Load(mappingPath)
	if err != nil {
		return nil, err
	}
	switch m.Method {
	case config.MethodNames:
		return o.reverseNames(target, m)
	case config.MethodCode, config.MethodStrings:
		return o.reverseText(target, m)
	default:
		return nil, fmt.Errorf("%w: unknown method %q in %s", mapping.ErrLoad, m.Method, mappingPath)
	}
}

// reverseText undoes a code or strings run by literal text substitution over
// every .go file, longest replacement first so one obfuscated name being a
// prefix of another cannot corrupt the result.
func (o *Obfuscator) reverseText(target string, m *mapping.Mapping) (*Report, error) {
	start := time.Now()
	report := &Report{Method: m.Method, DryRun: o.Config.DryRun}

	files, err := DiscoverGoFiles(target)
	if err != nil {
		return nil, err
	}

	obfuscated := make([]string, 0, len(m.ObfuscatedToOriginal))
	for k := range m.ObfuscatedToOriginal {
		obfuscated = append(obfuscated, k)
	}
	sort.Slice(obfuscated, func(i, j int) bool {
		if len(obfuscated[i]) != len(obfuscated[j]) {
			return len(obfuscated[i]) > len(obfuscated[j])
		}
		return obfuscated[i] < obfuscated[j]
	})

	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return report, fmt.Errorf("failed to read %s: %w", path, err)
		}
		text := string(src)
		replaced := text
		for _, obf := range obfuscated {
			replaced = strings.ReplaceAll(replaced, obf, m.ObfuscatedToOriginal[obf])
		}
		if replaced == text {
			continue
		}
		if o.Config.DryRun {
			report.Files = append(report.Files, path)
			continue
		}
		if err := os.WriteFile(path, []byte(replaced), 0644); err != nil {
			return report, fmt.Errorf("failed to write %s: %w", path, err)
		}
		report.Files = append(report.Files, path)
	}

	o.logger.Info("reversed text transformation",
		zap.String("method", m.Method), zap.Int("files", len(report.Files)))
	report.Duration = time.Since(start)
	return report, nil
}

// reverseNames undoes a names run. Renames are applied deepest-first on the
// obfuscated paths, mirroring how they were created.
func (o *Obfuscator) reverseNames(target string, m *mapping.Mapping) (*Report, error) {
	start := time.Now()
	report := &Report{Method: config.MethodNames, DryRun: o.Config.DryRun}

	obfuscated := make([]string, 0, len(m.ObfuscatedToOriginal))
	for k := range m.ObfuscatedToOriginal {
		obfuscated = append(obfuscated, k)
	}
	sort.Slice(obfuscated, func(i, j int) bool {
		di, dj := strings.Count(obfuscated[i], "/"), strings.Count(obfuscated[j], "/")
		if di != dj {
			return di > dj
		}
		return obfuscated[i] < obfuscated[j]
	})

	for _, obf := range obfuscated {
		original := m.ObfuscatedToOriginal[obf]
		oldPath := filepath.Join(target, filepath.FromSlash(obf))
		newPath := filepath.Join(filepath.Dir(oldPath), filepath.Base(filepath.FromSlash(original)))
		report.Changes = append(report.Changes, reportRename(obf, original))
		if o.Config.DryRun {
			continue
		}
		if _, err := os.Stat(oldPath); err != nil {
			return report, fmt.Errorf("mapped entry missing: %s: %w", obf, err)
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			return report, fmt.Errorf("failed to restore %s: %w", original, err)
		}
		report.Files = append(report.Files, original)
	}

	o.logger.Info("restored original names", zap.Int("entries", len(obfuscated)))
	report.Duration = time.Since(start)
	return report, nil
}
