package scramble

// --- Reserved Go Keywords and Predeclared Identifiers ---
// Renaming any of these would change what the program means (or fail to
// compile), so they are permanently protected.

var reservedKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true,
	"for": true, "func": true, "go": true, "goto": true, "if": true,
	"import": true, "interface": true, "map": true, "package": true,
	"range": true, "return": true, "select": true, "struct": true,
	"switch": true, "type": true, "var": true,
}

// Predeclared types, constants and functions from the universe scope, plus
// the identifiers the runtime treats specially.
var predeclared = map[string]bool{
	// types
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true, "float32": true,
	"float64": true, "int": true, "int8": true, "int16": true, "int32": true,
	"int64": true, "rune": true, "string": true, "uint": true, "uint8": true,
	"uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	// constants
	"true": true, "false": true, "iota": true, "nil": true,
	// functions
	"append": true, "cap": true, "clear": true, "close": true, "complex": true,
	"copy": true, "delete": true, "imag": true, "len": true, "make": true,
	"max": true, "min": true, "new": true, "panic": true, "print": true,
	"println": true, "real": true, "recover": true,
	// special linkage names
	"main": true, "init": true, "_": true,
}

// isReserved reports whether name may never be renamed regardless of config.
func isReserved(name string) bool {
	return reservedKeywords[name] || predeclared[name]
}
