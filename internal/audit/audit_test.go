package audit

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifhir/internal/ig"
	"verifhir/internal/ig/igtest"
	"verifhir/internal/llm"
	"verifhir/internal/logger"
	"verifhir/internal/report"
)

// scripted answers each request with a function of the request.
type scripted func(llm.Request) (string, error)

func (s scripted) Complete(_ context.Context, req llm.Request) (string, error) {
	return s(req)
}

func reviewer(req llm.Request) (string, error) {
	switch {
	case strings.Contains(req.System, "Page types"):
		if strings.Contains(req.User, "Page name: index.html\n") {
			return `{"type": "index"}`, nil
		}
		return `{"type": null}`, nil
	case req.Format == llm.JSONObject:
		return `{"FHIR version": true, "IG version": true}`, nil
	default:
		return `{"responses": [{"id": "background", "extract": "this guide exists because patients move between systems"}]}`, nil
	}
}

func exportZip(t *testing.T, e igtest.Export) string {
	t.Helper()
	src := t.TempDir()
	igtest.WritePublisher(t, src, e)
	dst := filepath.Join(t.TempDir(), "ig.zip")
	igtest.Zip(t, src, dst)
	return dst
}

func TestRun(t *testing.T) {
	out := t.TempDir()
	res, err := Run(context.Background(), nil, scripted(reviewer), Options{
		ArchivePath: exportZip(t, igtest.Default()),
		OutputDir:   out,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "example.fhir.ig", res.Guide.Metadata.Name)
	assert.True(t, res.Guide.MustSupport)

	values := make(map[string]report.Value)
	for _, c := range res.Report.Checks() {
		values[c.Name] = c.Value
	}
	assert.Len(t, values, 14)
	assert.Equal(t, report.Pass, values["Presence of page: index"])
	assert.Equal(t, report.Pass, values["Presence of page: toc"])
	assert.Equal(t, report.Fail, values["Presence of page: artifacts"])
	assert.Equal(t, report.Pass, values["Presence of FHIR version in all pages"])
	assert.Equal(t, report.Pass, values["Presence of background information providing context and motivation for the IG"])
	assert.Equal(t, report.Pass, values["Presence of element text in all artifacts"])
	assert.Equal(t, report.Fail, values["Presence of elements publisher, contact in artifacts of type ImplementationGuide"])

	assert.Equal(t, out, filepath.Dir(res.ReportPath))
	assert.True(t, strings.HasPrefix(filepath.Base(res.ReportPath), "quality-review_example.fhir.ig_"))
	html, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "example.fhir.ig#1.0.0")
	assert.Contains(t, string(html), res.RunID)
}

func TestRunTooManyPages(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports")
	_, err := Run(context.Background(), nil, scripted(reviewer), Options{
		ArchivePath: exportZip(t, igtest.Default()),
		OutputDir:   out,
		MaxPages:    1,
	})
	require.ErrorIs(t, err, ig.ErrTooManyPages)
	assert.True(t, IsStructural(err))
	assert.NoDirExists(t, out)
}

func TestRunFatalLLMErrorWritesNoReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports")
	fail := scripted(func(llm.Request) (string, error) { return "", context.Canceled })
	_, err := Run(context.Background(), nil, fail, Options{
		ArchivePath: exportZip(t, igtest.Default()),
		OutputDir:   out,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsStructural(err))
	assert.NoDirExists(t, out)
}

func TestRunMissingArchive(t *testing.T) {
	_, err := Run(context.Background(), nil, scripted(reviewer), Options{
		ArchivePath: filepath.Join(t.TempDir(), "missing.zip"),
		OutputDir:   t.TempDir(),
	})
	assert.Error(t, err)
}

func TestRunIsRepeatable(t *testing.T) {
	zip := exportZip(t, igtest.Default())
	verdicts := func() []string {
		res, err := Run(context.Background(), nil, scripted(reviewer), Options{ArchivePath: zip, OutputDir: t.TempDir()})
		require.NoError(t, err)
		var out []string
		for _, c := range res.Report.Checks() {
			out = append(out, c.Name+"="+c.Value.String())
		}
		return out
	}
	assert.Equal(t, verdicts(), verdicts())
}

func TestRunLogsGuideOnce(t *testing.T) {
	var buf bytes.Buffer
	_, err := Run(context.Background(), logger.NewWithWriter(&buf, "info", "json"), scripted(reviewer), Options{
		ArchivePath: exportZip(t, igtest.Default()),
		OutputDir:   t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(buf.String(), `"msg":"ig loaded"`))
	assert.Equal(t, 1, strings.Count(buf.String(), `"msg":"audit complete"`))
}
