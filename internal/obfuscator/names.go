package obfuscator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/whit3rabbit/shroud/internal/config"
	"github.com/whit3rabbit/shroud/internal/mapping"
	"github.com/whit3rabbit/shroud/internal/scramble"
)

// ObfuscateNames renames every file and directory under target to an opaque
// name, preserving file extensions. The mapping of relative paths is written
// inside the target so unpack can find it.
func (o *Obfuscator) ObfuscateNames(target, mappingPath string) (*Report, error) {
	start := time.Now()
	cfg := o.Config
	if mappingPath == "" {
		mappingPath = DefaultNameMappingPath(target)
	}
	report := &Report{Method: config.MethodNames, DryRun: cfg.DryRun, MappingPath: mappingPath}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to stat target %s: %w", target, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("names obfuscation needs a directory: %s", target)
	}

	if cfg.Backup && !cfg.DryRun {
		backupPath, err := backupTarget(target)
		if err != nil {
			return nil, err
		}
		report.BackupPath = backupPath
	}

	entries, err := collectEntries(target, filepath.Base(mappingPath))
	if err != nil {
		return nil, err
	}

	ctx := scramble.NewContext(cfg, cfg.Seed)

	// Assign a fresh base name to every entry up front, then compose the
	// final relative paths from the per-segment assignments.
	newBase := make(map[string]string, len(entries))
	var fileSeq, dirSeq int
	for _, e := range entries {
		ext := ""
		if !e.isDir {
			ext = filepath.Ext(e.rel)
		}
		var base string
		if cfg.SequentialNames {
			if e.isDir {
				base = fmt.Sprintf("d%d", dirSeq)
				dirSeq++
			} else {
				base = fmt.Sprintf("f%d", fileSeq)
				fileSeq++
			}
		} else {
			base = ctx.RandomName(8)
		}
		newBase[e.rel] = base + ext
	}

	newRel := func(rel string) string {
		segments := strings.Split(rel, string(os.PathSeparator))
		for i := range segments {
			prefix := filepath.Join(segments[:i+1]...)
			if b, ok := newBase[prefix]; ok {
				segments[i] = b
			}
		}
		return filepath.Join(segments...)
	}

	m := mapping.New(config.MethodNames, cfg, cfg.Seed)
	for _, e := range entries {
		m.Add(filepath.ToSlash(e.rel), filepath.ToSlash(newRel(e.rel)))
	}

	if cfg.DryRun {
		for _, e := range entries {
			report.Changes = append(report.Changes, reportRename(e.rel, newRel(e.rel)))
		}
		report.Duration = time.Since(start)
		return report, nil
	}

	// Deepest-first, so a directory's children are renamed while the path
	// to the directory itself is still the original one.
	sorted := make([]entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return pathDepth(sorted[i].rel) > pathDepth(sorted[j].rel)
	})
	for _, e := range sorted {
		oldPath := filepath.Join(target, e.rel)
		dir := filepath.Dir(e.rel)
		base := newBase[e.rel]
		var next string
		if dir == "." {
			next = filepath.Join(target, base)
		} else {
			next = filepath.Join(target, dir, base)
		}
		if err := os.Rename(oldPath, next); err != nil {
			return report, fmt.Errorf("failed to rename %s: %w", e.rel, err)
		}
		report.Files = append(report.Files, e.rel)
		report.Changes = append(report.Changes, reportRename(e.rel, newRel(e.rel)))
	}

	if err := m.Save(mappingPath); err != nil {
		return report, err
	}
	o.logger.Info("name mapping persisted",
		zap.String("mapping", mappingPath), zap.Int("entries", m.Len()))

	report.RenamedIdentifiers = m.Len()
	report.Duration = time.Since(start)
	return report, nil
}

type entry struct {
	rel   string
	isDir bool
}

// collectEntries lists every file and directory under root (excluding root
// itself), skipping hidden entries and the mapping artifacts.
func collectEntries(root, mappingName string) ([]entry, error) {
	var entries []entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if name == mappingName || strings.HasSuffix(name, mapping.ReversalScriptSuffix) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, entry{rel: rel, isDir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })
	return entries, nil
}

func pathDepth(rel string) int {
	return strings.Count(rel, string(os.PathSeparator))
}
