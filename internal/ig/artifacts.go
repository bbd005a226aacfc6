package ig

import (
	"log/slog"
	"path/filepath"
	"sort"
)

// Artifact is a structured resource (profile, extension, value set, ...) of the IG.
type Artifact struct {
	ID      string
	Type    string
	Path    string
	Content map[string]any
}

// Has reports whether the resource carries a top-level field.
func (a Artifact) Has(field string) bool {
	_, ok := a.Content[field]
	return ok
}

// Missing returns the fields absent from the resource, in the given order.
func (a Artifact) Missing(fields []string) []string {
	var out []string
	for _, f := range fields {
		if !a.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// MustSupportPaths lists the element paths flagged mustSupport in the
// snapshot and differential of a StructureDefinition.
func (a Artifact) MustSupportPaths() []string {
	if a.Content["resourceType"] != "StructureDefinition" {
		return nil
	}
	var paths []string
	for _, section := range []string{"snapshot", "differential"} {
		sec, _ := a.Content[section].(map[string]any)
		elements, _ := sec["element"].([]any)
		for _, e := range elements {
			el, _ := e.(map[string]any)
			if ms, _ := el["mustSupport"].(bool); ms {
				path, _ := el["path"].(string)
				paths = append(paths, path)
			}
		}
	}
	return paths
}

func anyMustSupport(artifacts []Artifact) bool {
	for _, a := range artifacts {
		if len(a.MustSupportPaths()) > 0 {
			return true
		}
	}
	return false
}

// loadArtifacts reads the JSON resources of the export. IG publisher exports
// keep them next to the pages and list the IG's own ones in canonicals.json;
// packaged exports keep them under artifacts/.
func loadArtifacts(base string, layout Layout, log *slog.Logger) ([]Artifact, error) {
	dir := base
	var allowed map[string]bool
	if layout == LayoutPublisher {
		allowed = canonicalIDs(filepath.Join(base, "canonicals.json"))
	} else {
		dir = filepath.Join(base, "artifacts")
		if !exists(dir) {
			return nil, nil
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var artifacts []Artifact
	for _, file := range files {
		var content map[string]any
		if err := readJSON(file, &content); err != nil {
			log.Debug("skipping non-object json file", "file", filepath.Base(file), "err", err)
			continue
		}
		id, _ := content["id"].(string)
		resourceType, _ := content["resourceType"].(string)
		if id == "" || resourceType == "" {
			continue
		}
		if allowed != nil && !allowed[id] {
			continue
		}
		artifacts = append(artifacts, Artifact{ID: id, Type: resourceType, Path: file, Content: content})
	}
	return artifacts, nil
}

// canonicalIDs returns the ids listed in canonicals.json. A missing or
// malformed file yields an empty, non-nil set: no resource is the IG's own.
func canonicalIDs(path string) map[string]bool {
	ids := make(map[string]bool)
	var entries []map[string]any
	if err := readJSON(path, &entries); err != nil {
		return ids
	}
	for _, e := range entries {
		if id, ok := e["id"].(string); ok {
			ids[id] = true
		}
	}
	return ids
}
