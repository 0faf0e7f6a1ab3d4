// Package safety implements the pre-flight scan for constructs that make
// textual renaming unsafe: foreign linkage, cgo, and raw memory
// reinterpretation.
//
// The scan is a cheap substring heuristic over raw source text, not semantic
// analysis. It errs on the side of refusing: a banned marker inside a string
// literal still aborts the run.
package safety

import (
	"errors"
	"fmt"
	"strings"
)

// ErrViolation is returned when any banned construct is present.
var ErrViolation = errors.New("safety violation")

// Banned low-level markers. Symbols reached through these escape lexical
// renaming entirely, so an obfuscated tree would silently misbehave.
var bannedPatterns = []string{
	`import "C"`,              // cgo: foreign function linkage
	"//export ",               // cgo export marker, pins symbol names
	"//go:linkname",           // cross-package symbol aliasing
	"//go:cgo_import_dynamic", // dynamic linkage directive
	"//go:noescape",           // assembly-backed declarations
	"unsafe.Pointer",          // raw memory reinterpretation
}

// Violation is one banned pattern found in one file.
type Violation struct {
	Path    string
	Pattern string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Pattern)
}

// Scan returns every banned pattern present in src. The path is carried
// through for reporting only.
func Scan(path, src string) []Violation {
	var found []Violation
	for _, p := range bannedPatterns {
		if strings.Contains(src, p) {
			found = append(found, Violation{Path: path, Pattern: p})
		}
	}
	return found
}

// Check wraps Scan into an error suitable for aborting a run before any file
// is written.
func Check(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	descs := make([]string, len(violations))
	for i, v := range violations {
		descs[i] = v.String()
	}
	return fmt.Errorf("%w: refusing to obfuscate code with dangerous patterns:\n  %s",
		ErrViolation, strings.Join(descs, "\n  "))
}
