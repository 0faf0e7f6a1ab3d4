package mapping

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ReversalScriptSuffix is appended to the obfuscated path to name the
// generated script.
const ReversalScriptSuffix = ".reversal.sh"

// sedEscapePattern escapes a literal for the pattern side of a sed s///
// expression. sed patterns are POSIX BREs, where only these characters are
// special; backslashing ( ) + { } would turn them INTO metacharacters.
func sedEscapePattern(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '.', '*', '[', ']', '^', '$', '/':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// sedEscapeReplacement escapes a literal for the replacement side, where
// only backslash, the whole-match reference & and the / delimiter are
// special.
func sedEscapeReplacement(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '&', '/':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// GenerateReversalScript writes a shell script that best-effort undoes a
// Code or Strings transformation: one literal substitution per mapping pair
// across every .go file under targetPath, after backing up the obfuscated
// tree. Returns the script path.
//
// This is a textual inverse, not a tree-based one: a replacement name that
// also occurs as natural text will be rewritten too.
func (m *Mapping) GenerateReversalScript(targetPath string) (string, error) {
	scriptPath := targetPath + ReversalScriptSuffix

	var sb strings.Builder
	fmt.Fprintf(&sb, `#!/bin/sh
# Obfuscation reversal script
# Generated: %s
# Method: %s
# Target: %s

echo "Reversing obfuscation under %s..."

# Back up the obfuscated tree before mutating it.
cp -r %q %q.pre_reversal

`, m.Timestamp, m.Method, targetPath, targetPath, targetPath, targetPath)

	// Sorted for reproducible scripts across runs over the same mapping.
	originals := make([]string, 0, len(m.OriginalToObfuscated))
	for original := range m.OriginalToObfuscated {
		originals = append(originals, original)
	}
	sort.Strings(originals)

	for _, original := range originals {
		obfuscated := m.OriginalToObfuscated[original]
		fmt.Fprintf(&sb, "find %q -type f -name '*.go' -exec sed -i 's/%s/%s/g' {} \\;\n",
			targetPath, sedEscapePattern(obfuscated), sedEscapeReplacement(original))
	}

	sb.WriteString("\necho \"Reversal complete.\"\n")

	if err := os.WriteFile(scriptPath, []byte(sb.String()), 0755); err != nil {
		return "", fmt.Errorf("failed to write reversal script %s: %w", scriptPath, err)
	}
	return scriptPath, nil
}
