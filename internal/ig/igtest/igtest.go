// Package igtest writes small IG exports to disk for tests.
package igtest

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Export describes an IG export. Pages maps page file name to body text;
// TOC lists the hrefs written into the table of contents.
type Export struct {
	Name        string
	Version     string
	FHIRVersion string
	TOC         []string
	Pages       map[string]string
	Artifacts   []map[string]any
	// Canonicals overrides the ids written to canonicals.json (publisher
	// layout). Nil lists every artifact.
	Canonicals []string
	BOM        bool
}

// Default is a publisher export with two narrative pages, one artifact page
// and two artifacts, one of which declares a mustSupport element.
func Default() Export {
	return Export{
		Name:        "example.fhir.ig",
		Version:     "1.0.0",
		FHIRVersion: "4.0.1",
		TOC:         []string{"index.html", "background.html", "StructureDefinition-patient.html", "https://hl7.org/fhir/index.html"},
		Pages: map[string]string{
			"index.html":      "Welcome to the Example IG. FHIR version 4.0.1. IG version 1.0.0.",
			"background.html": "Background: this guide exists because patients move between systems.",
		},
		Artifacts: []map[string]any{
			{
				"resourceType": "StructureDefinition",
				"id":           "patient",
				"text":         map[string]any{"status": "generated"},
				"differential": map[string]any{"element": []any{
					map[string]any{"path": "Patient.name", "mustSupport": true},
				}},
			},
			{
				"resourceType": "ImplementationGuide",
				"id":           "example.fhir.ig",
				"text":         map[string]any{"status": "generated"},
				"publisher":    "Example Org",
			},
		},
	}
}

func page(title, body string) string {
	return fmt.Sprintf("<html><head><title>%s</title><style>body{}</style><script>var x=1;</script></head><body><p>%s</p></body></html>", title, body)
}

func toc(links []string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, l := range links {
		fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, l, l)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

func write(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeJSON(t testing.TB, path string, v any, bom bool) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if bom {
		data = append([]byte{0xEF, 0xBB, 0xBF}, data...)
	}
	write(t, path, data)
}

// WritePublisher lays out an IG publisher export (site/ directory) under root.
func WritePublisher(t testing.TB, root string, e Export) {
	t.Helper()
	site := filepath.Join(root, "site")
	writeJSON(t, filepath.Join(site, "package.manifest.json"), map[string]any{
		"name":        e.Name,
		"version":     e.Version,
		"fhirVersion": []string{e.FHIRVersion},
	}, e.BOM)
	write(t, filepath.Join(site, "toc.html"), []byte(toc(e.TOC)))
	for name, body := range e.Pages {
		write(t, filepath.Join(site, name), []byte(page(name, body)))
	}

	canonicals := e.Canonicals
	if canonicals == nil {
		for _, a := range e.Artifacts {
			canonicals = append(canonicals, a["id"].(string))
		}
	}
	var entries []map[string]string
	for _, id := range canonicals {
		entries = append(entries, map[string]string{"id": id})
	}
	writeJSON(t, filepath.Join(site, "canonicals.json"), entries, false)

	for _, a := range e.Artifacts {
		base := fmt.Sprintf("%s-%s", a["resourceType"], a["id"])
		writeJSON(t, filepath.Join(site, base+".json"), a, e.BOM)
		write(t, filepath.Join(site, base+".html"), []byte(page(base, "artifact page")))
	}
}

// WritePackaged lays out a packaged export (packages/<name>.tgz and Home.html) under root.
func WritePackaged(t testing.TB, root string, e Export) {
	t.Helper()
	write(t, filepath.Join(root, "Home.html"), []byte(toc(e.TOC)))
	for name, body := range e.Pages {
		write(t, filepath.Join(root, name), []byte(page(name, body)))
	}
	for _, a := range e.Artifacts {
		writeJSON(t, filepath.Join(root, "artifacts", fmt.Sprintf("%s.json", a["id"])), a, e.BOM)
	}

	manifest, err := json.Marshal(map[string]any{
		"name":              e.Name,
		"version":           e.Version,
		"fhir-version-list": []string{e.FHIRVersion},
	})
	if err != nil {
		t.Fatal(err)
	}
	tgz := filepath.Join(root, "packages", e.Name+".tgz")
	if err := os.MkdirAll(filepath.Dir(tgz), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(tgz)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{Name: "package/package.json", Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(manifest))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(manifest); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

// Zip archives every file under dir into dst.
func Zip(t testing.TB, dir, dst string) {
	t.Helper()
	f, err := os.Create(dst)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}
