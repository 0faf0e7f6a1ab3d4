package mapping

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/whit3rabbit/shroud/internal/config"
)

func createTestMapping(t *testing.T) *Mapping {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Silent = true
	m := New(config.MethodCode, cfg, "test-seed")
	m.Add("processItems", "xK9fQ2m")
	m.Add("itemCount", "vB3nW7d")
	return m
}

func TestAddAndLen(t *testing.T) {
	m := createTestMapping(t)
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if m.OriginalToObfuscated["processItems"] != "xK9fQ2m" {
		t.Error("forward direction missing")
	}
	if m.ObfuscatedToOriginal["xK9fQ2m"] != "processItems" {
		t.Error("reverse direction missing")
	}
}

func TestMerge(t *testing.T) {
	m := createTestMapping(t)
	m.Merge(map[string]string{"helper": "qR5tY8u"})
	if m.Len() != 3 {
		t.Errorf("Len() after merge = %d, want 3", m.Len())
	}
	if m.ObfuscatedToOriginal["qR5tY8u"] != "helper" {
		t.Error("merged pair missing from reverse direction")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := createTestMapping(t)
	path := filepath.Join(t.TempDir(), "mapping.json")

	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Method != config.MethodCode {
		t.Errorf("Method = %q, want code", loaded.Method)
	}
	if loaded.Seed != "test-seed" {
		t.Errorf("Seed = %q, want test-seed", loaded.Seed)
	}
	if loaded.RunID == "" {
		t.Error("RunID was not persisted")
	}
	if loaded.OriginalToObfuscated["processItems"] != "xK9fQ2m" {
		t.Error("pairs did not survive the round trip")
	}
	if loaded.Config == nil || loaded.Config.MinIdentifierLength != 3 {
		t.Error("run configuration was not persisted")
	}
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, ErrLoad) {
		t.Errorf("missing file: error = %v, want ErrLoad", err)
	}

	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrLoad) {
		t.Errorf("corrupt file: error = %v, want ErrLoad", err)
	}
}

func TestLoadForMethodMismatch(t *testing.T) {
	m := createTestMapping(t)
	path := filepath.Join(t.TempDir(), "mapping.json")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadForMethod(path, config.MethodCode); err != nil {
		t.Errorf("matching method rejected: %v", err)
	}
	_, err := LoadForMethod(path, config.MethodNames)
	if !errors.Is(err, ErrLoad) {
		t.Errorf("mismatched method: error = %v, want ErrLoad", err)
	}
}

func TestGenerateReversalScript(t *testing.T) {
	m := createTestMapping(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "project")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatal(err)
	}

	scriptPath, err := m.GenerateReversalScript(target)
	if err != nil {
		t.Fatalf("GenerateReversalScript failed: %v", err)
	}
	if !strings.HasSuffix(scriptPath, ReversalScriptSuffix) {
		t.Errorf("script path %q missing suffix", scriptPath)
	}

	info, err := os.Stat(scriptPath)
	if err != nil {
		t.Fatalf("script was not written: %v", err)
	}
	if info.Mode()&0111 == 0 {
		t.Error("script is not executable")
	}

	data, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatal(err)
	}
	script := string(data)
	if !strings.HasPrefix(script, "#!/bin/sh") {
		t.Error("script missing shebang")
	}
	if !strings.Contains(script, "s/xK9fQ2m/processItems/g") {
		t.Error("script missing substitution for processItems")
	}
	if !strings.Contains(script, ".pre_reversal") {
		t.Error("script does not back up the tree before rewriting")
	}
}

func TestReversalScriptEscapesSedMetacharacters(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(config.MethodStrings, cfg, "")
	m.Add(`"a/b & c"`, `shroudDecode("dG9r+bQ==")`)

	dir := t.TempDir()
	scriptPath, err := m.GenerateReversalScript(dir)
	if err != nil {
		t.Fatalf("GenerateReversalScript failed: %v", err)
	}
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatal(err)
	}
	script := string(data)

	// sed patterns are BREs: ( ) + must stay bare (backslashing them would
	// make them metacharacters), while the delimiter and replacement-side &
	// need escaping.
	want := `s/shroudDecode("dG9r+bQ==")/"a\/b \& c"/g`
	if !strings.Contains(script, want) {
		t.Errorf("script missing substitution %q:\n%s", want, script)
	}
	for _, bad := range []string{`\(`, `\)`, `\+`} {
		if strings.Contains(script, bad) {
			t.Errorf("script contains %q, which sed would treat as a metacharacter", bad)
		}
	}
}

func TestReversalScriptRunsUnderSed(t *testing.T) {
	if _, err := exec.LookPath("sed"); err != nil {
		t.Skip("sed not available")
	}
	out, err := exec.Command("sed", "--version").CombinedOutput()
	if err != nil || !strings.Contains(string(out), "GNU") {
		t.Skip("script uses GNU sed -i")
	}

	cfg := config.DefaultConfig()
	m := New(config.MethodStrings, cfg, "")
	m.Add(`"plain text"`, `shroudDecode("dG9r+bQ==")`)

	target := filepath.Join(t.TempDir(), "project")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatal(err)
	}
	obfuscated := `package main

var banner = shroudDecode("dG9r+bQ==")
`
	if err := os.WriteFile(filepath.Join(target, "main.go"), []byte(obfuscated), 0644); err != nil {
		t.Fatal(err)
	}

	scriptPath, err := m.GenerateReversalScript(target)
	if err != nil {
		t.Fatalf("GenerateReversalScript failed: %v", err)
	}
	if out, err := exec.Command("sh", scriptPath).CombinedOutput(); err != nil {
		t.Fatalf("reversal script failed: %v\n%s", err, out)
	}

	restored, err := os.ReadFile(filepath.Join(target, "main.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(restored), `var banner = "plain text"`) {
		t.Errorf("substitution did not apply:\n%s", restored)
	}
}
