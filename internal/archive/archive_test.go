package archive

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTree lays out a small directory tree for packing tests.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func verifyTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, want := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			t.Errorf("missing %s after unpack: %v", rel, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s content = %q, want %q", rel, data, want)
		}
	}
}

var testFiles = map[string]string{
	"main.go":          "package main\n",
	"internal/util.go": "package internal\n",
	"deep/nested/x.go": "package nested\n",
	"README.md":        "docs\n",
}

func TestPackUnpackRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		src := t.TempDir()
		writeTree(t, src, testFiles)

		archivePath := filepath.Join(t.TempDir(), "out.tar")
		if compress {
			archivePath += ".gz"
		}
		if err := Pack(src, archivePath, compress); err != nil {
			t.Fatalf("Pack(compress=%v) failed: %v", compress, err)
		}
		if !IsArchive(archivePath) {
			t.Errorf("IsArchive(%s) = false after Pack", archivePath)
		}

		dst := t.TempDir()
		if err := Unpack(archivePath, dst); err != nil {
			t.Fatalf("Unpack(compress=%v) failed: %v", compress, err)
		}
		verifyTree(t, dst, testFiles)
	}
}

func TestPackRejectsFileInput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "single.go")
	if err := os.WriteFile(file, []byte("package x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Pack(file, file+".tar", false); err == nil {
		t.Error("packing a plain file should fail")
	}
}

func TestIsArchiveNegative(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "source.go")
	if err := os.WriteFile(plain, []byte("package main\nfunc main() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if IsArchive(plain) {
		t.Error("Go source misdetected as archive")
	}
	if IsArchive(filepath.Join(dir, "does-not-exist")) {
		t.Error("missing path misdetected as archive")
	}
}
