package safety

import (
	"errors"
	"strings"
	"testing"
)

func TestScanCleanSource(t *testing.T) {
	src := `package main

import "fmt"

func main() {
	fmt.Println("hello")
}
`
	if found := Scan("main.go", src); len(found) != 0 {
		t.Errorf("clean source flagged: %v", found)
	}
}

func TestScanFlagsDangerousConstructs(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"cgo import", `package main` + "\n" + `import "C"`},
		{"cgo export", "package main\n//export MyFunc\nfunc MyFunc() {}"},
		{"linkname", "package main\n//go:linkname now time.now\nfunc now() int64"},
		{"unsafe pointer", "package main\nvar p = unsafe.Pointer(nil)"},
		{"noescape", "package hash\n//go:noescape\nfunc block(h []uint32, p []byte)"},
	}
	for _, tc := range cases {
		found := Scan(tc.name+".go", tc.src)
		if len(found) == 0 {
			t.Errorf("%s: not flagged", tc.name)
			continue
		}
		if found[0].Path != tc.name+".go" {
			t.Errorf("%s: violation carries path %q", tc.name, found[0].Path)
		}
	}
}

func TestScanInsideStringStillFlags(t *testing.T) {
	// The scan is textual on purpose: a marker inside a literal is treated
	// as a violation rather than risking a miss.
	src := "package main\nvar doc = `uses unsafe.Pointer internally`"
	if found := Scan("doc.go", src); len(found) == 0 {
		t.Error("marker inside a string literal should still be flagged")
	}
}

func TestCheck(t *testing.T) {
	if err := Check(nil); err != nil {
		t.Errorf("Check(nil) = %v, want nil", err)
	}

	violations := []Violation{
		{Path: "a.go", Pattern: "//go:linkname"},
		{Path: "b.go", Pattern: "unsafe.Pointer"},
	}
	err := Check(violations)
	if err == nil {
		t.Fatal("Check with violations returned nil")
	}
	if !errors.Is(err, ErrViolation) {
		t.Errorf("error does not wrap ErrViolation: %v", err)
	}
	for _, want := range []string{"a.go", "b.go", "unsafe.Pointer"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error message missing %q: %v", want, err)
		}
	}
}
