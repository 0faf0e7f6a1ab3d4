package api

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/whit3rabbit/shroud/internal/config"
)

func init() {
	config.Testing = true
}

const sampleSource = `package sample

func computeChecksum(payload []byte) int {
	checksum := 0
	for _, octet := range payload {
		checksum += int(octet)
	}
	return checksum
}
`

func TestNewObfuscatorDefaults(t *testing.T) {
	obf, err := NewObfuscator(Options{Silent: true})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}
	if !obf.Config.Silent {
		t.Error("Silent option was not applied")
	}
	if obf.Config.MinIdentifierLength != 3 {
		t.Errorf("defaults not loaded: MinIdentifierLength = %d", obf.Config.MinIdentifierLength)
	}
}

func TestNewObfuscatorMissingConfig(t *testing.T) {
	if _, err := NewObfuscator(Options{ConfigPath: "/nonexistent/shroud.yaml"}); err == nil {
		t.Error("explicit missing config file should be an error")
	}
}

func TestObfuscateCodeString(t *testing.T) {
	obf, err := NewObfuscator(Options{Silent: true, Seed: "api-test"})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}

	out, mappings, err := obf.ObfuscateCodeWithMapping(sampleSource)
	if err != nil {
		t.Fatalf("ObfuscateCodeWithMapping failed: %v", err)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "out.go", out, parser.ParseComments); err != nil {
		t.Fatalf("obfuscated output does not parse: %v\n%s", err, out)
	}
	if strings.Contains(out, "computeChecksum") {
		t.Errorf("identifier survived obfuscation:\n%s", out)
	}
	if _, ok := mappings["computeChecksum"]; !ok {
		t.Error("mapping does not record computeChecksum")
	}

	// Same seed, same input: the string form must be reproducible.
	again, err := obf.ObfuscateCode(sampleSource)
	if err != nil {
		t.Fatalf("second ObfuscateCode failed: %v", err)
	}
	if again != out {
		t.Error("seeded in-memory obfuscation is not reproducible")
	}
}

func TestObfuscateFileAndReverse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	if err := os.WriteFile(path, []byte(sampleSource), 0644); err != nil {
		t.Fatal(err)
	}

	obf, err := NewObfuscator(Options{Silent: true, Seed: "api-test"})
	if err != nil {
		t.Fatalf("NewObfuscator failed: %v", err)
	}

	report, err := obf.ObfuscateFile(path, "")
	if err != nil {
		t.Fatalf("ObfuscateFile failed: %v", err)
	}
	if report.MappingPath == "" {
		t.Fatal("report missing mapping path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "computeChecksum") {
		t.Error("file still holds the original identifier")
	}

	if _, err := obf.Reverse(path, report.MappingPath); err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "computeChecksum") {
		t.Error("reversal did not restore the original identifier")
	}
}

func TestPackUnpack(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "main.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}

	archivePath := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if err := Pack(src, archivePath, true); err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if !IsArchive(archivePath) {
		t.Error("IsArchive = false for freshly packed archive")
	}

	dst := t.TempDir()
	if err := Unpack(archivePath, dst); err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "main.go")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}
