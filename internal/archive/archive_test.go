package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ig.zip")
	writeZip(t, src, map[string]string{
		"site/toc.html":              "<html></html>",
		"site/package.manifest.json": `{"name":"x"}`,
	})

	dst := filepath.Join(dir, "out")
	if err := ExtractZip(src, dst); err != nil {
		t.Fatalf("ExtractZip: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "site", "toc.html"))
	if err != nil {
		t.Fatalf("expected extracted toc: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")
	writeZip(t, src, map[string]string{"../escape.txt": "nope"})

	err := ExtractZip(src, filepath.Join(dir, "out"))
	if !errors.Is(err, ErrUnsafePath) && !errors.Is(err, zip.ErrInsecurePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "escape.txt")); statErr == nil {
		t.Error("traversal entry was written")
	}
}

func TestExtractZipMissingFile(t *testing.T) {
	if err := ExtractZip(filepath.Join(t.TempDir(), "missing.zip"), t.TempDir()); err == nil {
		t.Fatal("expected error for missing archive")
	}
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pkg.tgz")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	body := []byte(`{"name":"example.ig"}`)
	if err := tw.WriteHeader(&tar.Header{Name: "package/", Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
		t.Fatal(err)
	}
	if err := tw.WriteHeader(&tar.Header{Name: "package/package.json", Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(body); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gz.Close()
	f.Close()

	if err := ExtractTarGz(src, dir); err != nil {
		t.Fatalf("ExtractTarGz: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "package", "package.json"))
	if err != nil {
		t.Fatalf("expected extracted manifest: %v", err)
	}
	if string(data) != string(body) {
		t.Errorf("unexpected content %q", data)
	}
}

func TestExtractTarGzNotGzip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pkg.tgz")
	if err := os.WriteFile(src, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ExtractTarGz(src, dir); err == nil {
		t.Fatal("expected error for non-gzip input")
	}
}

func TestSafeJoin(t *testing.T) {
	dst := t.TempDir()
	tests := []struct {
		name string
		ok   bool
	}{
		{"page.html", true},
		{"a/../page.html", true},
		{"/abs/page.html", true},
		{"../page.html", false},
		{"../../etc/secret.html", false},
		{"a/../../page.html", false},
	}
	for _, tt := range tests {
		got, err := SafeJoin(dst, tt.name)
		if tt.ok {
			if err != nil {
				t.Errorf("SafeJoin(%q): unexpected error %v", tt.name, err)
			}
			if rel, _ := filepath.Rel(dst, got); rel == ".." || filepath.IsAbs(rel) {
				t.Errorf("SafeJoin(%q) = %q escapes %q", tt.name, got, dst)
			}
			continue
		}
		if !errors.Is(err, ErrUnsafePath) {
			t.Errorf("SafeJoin(%q): got %v, want ErrUnsafePath", tt.name, err)
		}
	}
}
