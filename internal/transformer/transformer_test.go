package transformer

import (
	"bytes"
	"go/format"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/whit3rabbit/shroud/internal/config"
	"github.com/whit3rabbit/shroud/internal/scramble"
	"github.com/whit3rabbit/shroud/internal/stringcipher"
)

func createTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Silent = true
	cfg.MinIdentifierLength = 1
	return cfg
}

// transformSource parses src, runs the transformer over it and returns the
// printed result together with the transformer for inspection.
func transformSource(t *testing.T, cfg *config.Config, src string, rename, encrypt bool) (string, *Transformer, *scramble.Context) {
	t.Helper()
	if cfg == nil {
		cfg = createTestConfig()
	}
	ctx := scramble.NewContext(cfg, "test-seed")

	var enc *stringcipher.Encryptor
	if encrypt {
		var err error
		enc, err = stringcipher.NewEncryptor(cfg.Strings, nil)
		if err != nil {
			t.Fatalf("failed to create encryptor: %v", err)
		}
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("test source does not parse: %v", err)
	}

	tr := New(cfg, ctx, enc)
	tr.RenameIdents = rename
	tr.EncryptStrings = encrypt
	if err := tr.File(file); err != nil {
		t.Fatalf("transform failed: %v", err)
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		t.Fatalf("failed to print transformed tree: %v", err)
	}
	out := buf.String()

	// Transformed output must itself be valid Go.
	if _, err := parser.ParseFile(token.NewFileSet(), "out.go", out, parser.ParseComments); err != nil {
		t.Fatalf("transformed output does not parse: %v\n%s", err, out)
	}
	return out, tr, ctx
}

func TestRenameFunctionAndLocals(t *testing.T) {
	src := `package main

func add(first, second int) int {
	total := first + second
	return total
}
`
	out, tr, ctx := transformSource(t, nil, src, true, false)

	for _, original := range []string{"add", "first", "second", "total"} {
		replacement, ok := ctx.Lookup(original)
		if !ok {
			t.Fatalf("%q was never mapped", original)
		}
		if !strings.Contains(out, replacement) {
			t.Errorf("output missing replacement %q for %q:\n%s", replacement, original, out)
		}
		if strings.Contains(out, original) {
			t.Errorf("original identifier %q survived:\n%s", original, out)
		}
	}
	if tr.RenamedOccurrences() < 6 {
		t.Errorf("RenamedOccurrences() = %d, want at least 6", tr.RenamedOccurrences())
	}
}

func TestConsistentRenamingAcrossScopes(t *testing.T) {
	src := `package main

func outer(value int) int {
	inner := func(value int) int { return value * 2 }
	return inner(value)
}
`
	_, _, ctx := transformSource(t, nil, src, true, false)

	// Renaming is keyed by identifier text: both "value" declarations must
	// share one replacement.
	if _, ok := ctx.Lookup("value"); !ok {
		t.Fatal("value was never mapped")
	}
	if len(ctx.Mappings()) != 3 { // outer, value, inner
		t.Errorf("mapped %d names, want 3: %v", len(ctx.Mappings()), ctx.Mappings())
	}
}

func TestBuiltinsKeywordsAndImportsUntouched(t *testing.T) {
	src := `package main

import "fmt"

func report(items []string) {
	for index := range items {
		fmt.Println(len(items), index)
	}
}
`
	out, _, _ := transformSource(t, nil, src, true, false)

	for _, keep := range []string{"fmt.Println", "len(", "range", `import "fmt"`, "package main"} {
		if !strings.Contains(out, keep) {
			t.Errorf("output lost %q:\n%s", keep, out)
		}
	}
}

func TestExportedNamesPreservedByDefault(t *testing.T) {
	src := `package lib

type Widget struct {
	Label  string
	weight int
}

func (w *Widget) Describe() string { return w.Label }

func internalHelper() int { return 1 }
`
	out, _, _ := transformSource(t, nil, src, true, false)

	for _, exported := range []string{"Widget", "Label", "Describe"} {
		if !strings.Contains(out, exported) {
			t.Errorf("exported name %q was renamed:\n%s", exported, out)
		}
	}
	for _, private := range []string{"weight", "internalHelper"} {
		if strings.Contains(out, private) {
			t.Errorf("unexported name %q survived:\n%s", private, out)
		}
	}
}

func TestExportedNamesRenamedWhenPreservationOff(t *testing.T) {
	cfg := createTestConfig()
	cfg.PreservePublicAPI = false
	src := `package lib

func Exported() int { return 1 }
`
	out, _, _ := transformSource(t, cfg, src, true, false)
	if strings.Contains(out, "Exported") {
		t.Errorf("Exported survived with preservation off:\n%s", out)
	}
}

func TestLinkageDirectivesProtect(t *testing.T) {
	src := `package main

import _ "unsafe"

//go:linkname nanotime runtime.nanotime
func nanotime() int64

func caller() int64 { return nanotime() }
`
	out, _, _ := transformSource(t, nil, src, true, false)
	if !strings.Contains(out, "nanotime") {
		t.Errorf("linkname-pinned symbol was renamed:\n%s", out)
	}
}

func TestStructTagsPreserved(t *testing.T) {
	src := `package lib

type record struct {
	field string ` + "`json:\"field_name\"`" + `
}
`
	out, _, _ := transformSource(t, nil, src, true, false)
	if !strings.Contains(out, "`json:\"field_name\"`") {
		t.Errorf("struct tag was modified:\n%s", out)
	}
}

func TestDryRunLeavesTreeUnchanged(t *testing.T) {
	cfg := createTestConfig()
	cfg.DryRun = true
	src := `package main

func worker(input int) int { return input }
`
	out, tr, _ := transformSource(t, cfg, src, true, false)

	if !strings.Contains(out, "worker") || !strings.Contains(out, "input") {
		t.Errorf("dry run modified the tree:\n%s", out)
	}
	if len(tr.Changes()) == 0 {
		t.Error("dry run recorded no planned changes")
	}
}

func TestStringLiteralEncryption(t *testing.T) {
	src := `package main

func greeting() string {
	return "hello world"
}
`
	out, tr, _ := transformSource(t, nil, src, false, true)

	if strings.Contains(out, `"hello world"`) {
		t.Errorf("plaintext literal survived:\n%s", out)
	}
	if !strings.Contains(out, stringcipher.DecodeFuncName+"(") {
		t.Errorf("no decryption call emitted:\n%s", out)
	}
	if tr.EncryptedOccurrences() != 1 {
		t.Errorf("EncryptedOccurrences() = %d, want 1", tr.EncryptedOccurrences())
	}
}

func TestConstDeclarationsNotEncrypted(t *testing.T) {
	// A const initializer must stay a constant expression; a call is not.
	src := `package main

const banner = "startup banner"

func show() string { return banner }
`
	out, _, _ := transformSource(t, nil, src, false, true)
	if !strings.Contains(out, `"startup banner"`) {
		t.Errorf("const initializer was encrypted:\n%s", out)
	}
}

func TestArrayLengthsNotEncrypted(t *testing.T) {
	// An array length is a constant expression too; len(shroudDecode(...))
	// would parse but never compile.
	src := `package main

var buf [len("hi")]byte

func fill() [len("hi")]byte {
	var local [len("hi")]byte
	copy(local[:], "hi")
	return local
}
`
	out, _, _ := transformSource(t, nil, src, false, true)
	if !strings.Contains(out, `[len("hi")]byte`) {
		t.Errorf("array length literal was encrypted:\n%s", out)
	}
	if strings.Contains(out, `[len(`+stringcipher.DecodeFuncName) {
		t.Errorf("decode call emitted inside an array length:\n%s", out)
	}
	// The same literal outside the length position is still fair game.
	if strings.Contains(out, `copy(local[:], "hi")`) {
		t.Errorf("literal outside the constant context was left plaintext:\n%s", out)
	}
}

func TestSkipPolicyAppliesToLiterals(t *testing.T) {
	src := `package main

import "fmt"

func show(count int) {
	fmt.Printf("count: %d\n", count)
}
`
	out, tr, _ := transformSource(t, nil, src, false, true)
	if !strings.Contains(out, `"count: %d\n"`) {
		t.Errorf("format string was encrypted:\n%s", out)
	}
	if tr.EncryptedOccurrences() != 0 {
		t.Errorf("EncryptedOccurrences() = %d, want 0", tr.EncryptedOccurrences())
	}
}

func TestIdenticalLiteralsShareOneToken(t *testing.T) {
	src := `package main

var first = "repeated"
var second = "repeated"
`
	out, tr, _ := transformSource(t, nil, src, false, true)

	if tr.EncryptedOccurrences() != 2 {
		t.Errorf("EncryptedOccurrences() = %d, want 2", tr.EncryptedOccurrences())
	}
	// Memoized token: both occurrences must carry the same argument.
	tokens := tr.Encryptor.Tokens()
	if len(tokens) != 1 {
		t.Fatalf("distinct tokens = %d, want 1", len(tokens))
	}
	if got := strings.Count(out, tokens["repeated"]); got != 2 {
		t.Errorf("token appears %d times, want 2:\n%s", got, out)
	}
}

func TestControlFlowRewrite(t *testing.T) {
	cfg := createTestConfig()
	cfg.ControlFlowRewrite = true
	src := `package main

func classify(n int) string {
	if n > 0 {
		return "positive"
	} else {
		return "other"
	}
}
`
	out, _, _ := transformSource(t, cfg, src, true, false)

	if !strings.Contains(out, "switch (map[bool]int{true: 0, false: 1})[") {
		t.Errorf("if/else was not rewritten to an opaque switch:\n%s", out)
	}
	if !strings.Contains(out, "case 0:") || !strings.Contains(out, "case 1:") {
		t.Errorf("rewritten switch missing branch clauses:\n%s", out)
	}
}

func TestControlFlowSkipsIfWithInit(t *testing.T) {
	cfg := createTestConfig()
	cfg.ControlFlowRewrite = true
	src := `package main

func check(m map[string]int) int {
	if v, ok := m["k"]; ok {
		return v
	}
	return 0
}
`
	out, _, _ := transformSource(t, cfg, src, false, false)
	if strings.Contains(out, "map[bool]int") {
		t.Errorf("if with init statement was rewritten:\n%s", out)
	}
}

func TestControlFlowSkipsElseIfChains(t *testing.T) {
	cfg := createTestConfig()
	cfg.ControlFlowRewrite = true
	src := `package main

func sign(n int) string {
	if n > 0 {
		return "positive"
	} else if n < 0 {
		return "negative"
	} else {
		return "zero"
	}
}
`
	// Only an if or a block may follow else, so the chain must not be
	// converted anywhere along it. transformSource re-parses the output,
	// which would fail on an "else switch".
	out, _, _ := transformSource(t, cfg, src, false, false)
	if strings.Contains(out, "map[bool]int") {
		t.Errorf("else-if chain was rewritten:\n%s", out)
	}
}

func TestControlFlowSkipsBranchesWithNakedBreak(t *testing.T) {
	cfg := createTestConfig()
	cfg.ControlFlowRewrite = true
	src := `package main

func firstNegative(values []int) int {
	result := -1
	for i := 0; i < len(values); i++ {
		if values[i] < 0 {
			result = i
			break
		}
	}
	return result
}
`
	out, _, _ := transformSource(t, cfg, src, false, false)
	// Moving the break into a switch would retarget it, so this if must
	// survive untouched.
	if strings.Contains(out, "map[bool]int") {
		t.Errorf("if containing a naked break was rewritten:\n%s", out)
	}
}
