// Package ig loads an extracted FHIR Implementation Guide export: its
// manifest metadata, table of contents, narrative pages and artifacts.
package ig

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"verifhir/internal/logger"
)

// Structural failures. Any of these aborts the audit before checkers run.
var (
	ErrManifest     = errors.New("ig manifest not found or unreadable")
	ErrTOCNotFound  = errors.New("ig table of contents page not found")
	ErrNoPages      = errors.New("no pages found from the ig table of contents")
	ErrTooManyPages = errors.New("too many narrative pages in the ig")
)

// DefaultMaxPages bounds the narrative page set so a non-IG page set is not
// mistaken for narrative.
const DefaultMaxPages = 50

// Layout identifies how the IG was exported.
type Layout string

const (
	LayoutPublisher Layout = "IGPublisher"
	LayoutPackaged  Layout = "Simplifier"
)

// Metadata is the IG's declared identity.
type Metadata struct {
	Layout      Layout
	Name        string
	Version     string
	FHIRVersion string
}

// Page is a narrative page reduced to plain text.
type Page struct {
	Name string
	Path string
	Text string
}

// Guide is a loaded IG. It is read-only once Load returns.
type Guide struct {
	Root        string
	Metadata    Metadata
	TOCPath     string
	Pages       []Page
	Artifacts   []Artifact
	MustSupport bool
}

// Options tunes loading.
type Options struct {
	MaxPages int
	Log      *slog.Logger
}

// Load detects the export layout under root and loads the guide.
func Load(root string, opts Options) (*Guide, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}

	meta, base, err := loadMetadata(root)
	if err != nil {
		return nil, err
	}
	g := &Guide{Root: base, Metadata: meta}

	g.TOCPath, err = findTOC(base, meta.Layout)
	if err != nil {
		return nil, err
	}
	g.Pages, err = loadPages(g.TOCPath, base, meta.Layout, opts.MaxPages, opts.Log)
	if err != nil {
		return nil, err
	}
	g.Artifacts, err = loadArtifacts(base, meta.Layout, opts.Log)
	if err != nil {
		return nil, err
	}
	g.MustSupport = anyMustSupport(g.Artifacts)

	opts.Log.Info("ig loaded",
		"name", meta.Name,
		"version", meta.Version,
		"layout", meta.Layout,
		"pages", len(g.Pages),
		"artifacts", len(g.Artifacts),
		"must_support", g.MustSupport,
	)
	return g, nil
}

// ArtifactsOfType returns the artifacts whose resourceType is one of types,
// or every artifact when types is empty.
func (g *Guide) ArtifactsOfType(types ...string) []Artifact {
	if len(types) == 0 {
		return g.Artifacts
	}
	var out []Artifact
	for _, a := range g.Artifacts {
		for _, t := range types {
			if a.Type == t {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func findTOC(base string, layout Layout) (string, error) {
	name := "toc.html"
	if layout == LayoutPackaged {
		name = "Home.html"
	}
	path := filepath.Join(base, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrTOCNotFound, name)
	}
	return path, nil
}
