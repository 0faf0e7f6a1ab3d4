package obfuscator

import (
	"fmt"
	"strings"

	"github.com/whit3rabbit/shroud/internal/stringcipher"
)

// injectRuntimeSnippet adds the decryption function and its imports to the
// printed source of the designated root file. The edit is textual: imports
// are merged into the existing import block (or a new one after the package
// clause) and the function goes in at the first blank line after the leading
// imports, falling back to the end of the file.
func injectRuntimeSnippet(src []byte, cipher stringcipher.Cipher) []byte {
	imports, funcSrc := cipher.RuntimeSnippet()
	text := string(src)

	if len(imports) > 0 {
		text = mergeImports(text, imports)
	}
	if funcSrc != "" {
		text = insertAfterImports(text, funcSrc)
	}
	return []byte(text)
}

// insertAfterImports places snippet at the first blank line following the
// import section (or the package clause when there are no imports). When no
// blank line exists the snippet is appended.
func insertAfterImports(text, snippet string) string {
	at := 0
	if idx := strings.LastIndex(text, "\nimport"); idx >= 0 {
		at = idx + 1
		// Skip past a grouped block's closing paren or the single line.
		if end := strings.Index(text[at:], "\n)"); strings.HasPrefix(text[at:], "import (") && end >= 0 {
			at += end + 2
		}
	} else if idx := strings.Index(text, "package "); idx >= 0 {
		at = idx
	}
	if nl := strings.Index(text[at:], "\n\n"); nl >= 0 {
		insertAt := at + nl + 2
		return text[:insertAt] + snippet + "\n\n" + text[insertAt:]
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + "\n" + snippet + "\n"
}

// mergeImports inserts the given import paths into the file's import block,
// creating one after the package clause when none exists. Already-imported
// paths are left alone.
func mergeImports(text string, paths []string) string {
	var missing []string
	for _, p := range paths {
		if !strings.Contains(text, fmt.Sprintf("%q", p)) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return text
	}

	var lines strings.Builder
	for _, p := range missing {
		fmt.Fprintf(&lines, "\t%q\n", p)
	}

	if idx := strings.Index(text, "import ("); idx >= 0 {
		insertAt := idx + len("import (")
		// Keep the opening line intact; new paths go on the next line.
		if nl := strings.IndexByte(text[insertAt:], '\n'); nl >= 0 {
			insertAt += nl + 1
		}
		return text[:insertAt] + lines.String() + text[insertAt:]
	}

	// No grouped import block: add one right after the package clause.
	if idx := strings.Index(text, "package "); idx >= 0 {
		if nl := strings.IndexByte(text[idx:], '\n'); nl >= 0 {
			insertAt := idx + nl + 1
			block := "\nimport (\n" + lines.String() + ")\n"
			return text[:insertAt] + block + text[insertAt:]
		}
	}
	return text
}
