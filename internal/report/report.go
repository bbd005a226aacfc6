package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"verifhir/internal/ig"
)

//go:embed report.css
var css string

//go:embed report.html.tmpl
var pageTemplate string

var tmpl = template.Must(template.New("report").Parse(pageTemplate))

// Report accumulates check results in submission order.
type Report struct {
	checks []Check
}

// New returns an empty report.
func New() *Report {
	return &Report{}
}

// Add appends checks to the report.
func (r *Report) Add(checks ...Check) {
	r.checks = append(r.checks, checks...)
}

// Checks returns a copy of the accumulated checks.
func (r *Report) Checks() []Check {
	out := make([]Check, len(r.checks))
	copy(out, r.checks)
	return out
}

// DomainCount aggregates the outcomes of one domain.
type DomainCount struct {
	Domain        string `json:"domain"`
	Passed        int    `json:"passed"`
	Failed        int    `json:"failed"`
	Indeterminate int    `json:"indeterminate"`
}

// PassPct is the share of decided checks that passed, truncated.
func (d DomainCount) PassPct() int {
	if total := d.Passed + d.Failed; total > 0 {
		return d.Passed * 100 / total
	}
	return 0
}

// FailPct is the share of decided checks that failed, truncated.
func (d DomainCount) FailPct() int {
	if total := d.Passed + d.Failed; total > 0 {
		return d.Failed * 100 / total
	}
	return 0
}

// Summary counts outcomes per domain, domains in order of first appearance.
func (r *Report) Summary() []DomainCount {
	index := make(map[string]int)
	var out []DomainCount
	for _, c := range r.checks {
		i, ok := index[c.Domain]
		if !ok {
			i = len(out)
			index[c.Domain] = i
			out = append(out, DomainCount{Domain: c.Domain})
		}
		switch c.Value {
		case Pass:
			out[i].Passed++
		case Fail:
			out[i].Failed++
		default:
			out[i].Indeterminate++
		}
	}
	return out
}

// Header carries what the report says about the audited IG and the run.
type Header struct {
	Metadata    ig.Metadata
	RunID       string
	GeneratedAt time.Time
}

type pageData struct {
	CSS     template.CSS
	Date    string
	Header  Header
	Summary []DomainCount
	Checks  []Check
}

// Render writes the HTML report to w.
func (r *Report) Render(w io.Writer, h Header) error {
	data := pageData{
		CSS:     template.CSS(css),
		Date:    h.GeneratedAt.Format("Monday 02 January 2006 (15:04)"),
		Header:  h,
		Summary: r.Summary(),
		Checks:  r.checks,
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// FileName is the report file name for an IG rendered at t.
func FileName(igName string, t time.Time) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, igName)
	return fmt.Sprintf("quality-review_%s_%s.html", name, t.Format("2006-01-02-15-04"))
}

// WriteFile renders the report into dir and returns the file path.
func (r *Report) WriteFile(dir string, h Header) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, h); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(h.Metadata.Name, h.GeneratedAt))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
