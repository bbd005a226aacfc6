package ig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"verifhir/internal/archive"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type publisherManifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	FHIRVersion json.RawMessage `json:"fhirVersion"`
}

type packageManifest struct {
	Name            string          `json:"name"`
	Version         string          `json:"version"`
	FHIRVersionList json.RawMessage `json:"fhir-version-list"`
}

// loadMetadata returns the metadata and the directory pages are resolved from.
// A site/ directory marks an IG publisher export; otherwise the export is
// expected to ship its package as a tarball under packages/.
func loadMetadata(root string) (Metadata, string, error) {
	site := filepath.Join(root, "site")
	if info, err := os.Stat(site); err == nil && info.IsDir() {
		var m publisherManifest
		if err := readJSON(filepath.Join(site, "package.manifest.json"), &m); err != nil {
			return Metadata{}, "", fmt.Errorf("%w: %v", ErrManifest, err)
		}
		return Metadata{
			Layout:      LayoutPublisher,
			Name:        m.Name,
			Version:     m.Version,
			FHIRVersion: firstString(m.FHIRVersion),
		}, site, nil
	}

	packages := filepath.Join(root, "packages")
	entries, err := os.ReadDir(packages)
	if err != nil {
		return Metadata{}, "", fmt.Errorf("%w: %v", ErrManifest, err)
	}
	var tarball string
	for _, e := range entries {
		if !e.IsDir() {
			tarball = filepath.Join(packages, e.Name())
			break
		}
	}
	if tarball == "" {
		return Metadata{}, "", fmt.Errorf("%w: no package tarball in %s", ErrManifest, packages)
	}
	if err := archive.ExtractTarGz(tarball, packages); err != nil {
		return Metadata{}, "", fmt.Errorf("%w: %v", ErrManifest, err)
	}
	var m packageManifest
	if err := readJSON(filepath.Join(packages, "package", "package.json"), &m); err != nil {
		return Metadata{}, "", fmt.Errorf("%w: %v", ErrManifest, err)
	}
	return Metadata{
		Layout:      LayoutPackaged,
		Name:        m.Name,
		Version:     m.Version,
		FHIRVersion: firstString(m.FHIRVersionList),
	}, root, nil
}

// readJSON decodes a file that may start with a UTF-8 byte order mark.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), v)
}

// firstString accepts either a string or a list of strings.
func firstString(raw json.RawMessage) string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 0 {
			return list[0]
		}
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
