// Package audit runs one IG review end to end: unpack the export, load the
// guide, run the checklists and write the HTML report.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"verifhir/internal/archive"
	"verifhir/internal/checker"
	"verifhir/internal/ig"
	"verifhir/internal/llm"
	"verifhir/internal/logger"
	"verifhir/internal/report"
)

// Options describes one audit run.
type Options struct {
	ArchivePath string
	OutputDir   string
	MaxPages    int
	BatchSize   int
}

// Result is a completed audit.
type Result struct {
	RunID      string
	ReportPath string
	Guide      *ig.Guide
	Report     *report.Report
}

// IsStructural reports whether err means the upload is not a usable IG
// export, as opposed to a failure of the audit itself.
func IsStructural(err error) bool {
	return errors.Is(err, ig.ErrManifest) ||
		errors.Is(err, ig.ErrTOCNotFound) ||
		errors.Is(err, ig.ErrNoPages) ||
		errors.Is(err, ig.ErrTooManyPages) ||
		errors.Is(err, archive.ErrUnsafePath)
}

// Run audits the ZIP export at opts.ArchivePath. Checkers run in their
// canonical order; the first fatal error aborts the run and no report is
// written.
func Run(ctx context.Context, log *slog.Logger, client llm.Client, opts Options) (*Result, error) {
	if log == nil {
		log = logger.Discard()
	}
	runID := uuid.NewString()
	log = log.With("run_id", runID)
	start := time.Now()

	workDir, err := os.MkdirTemp("", "verifhir-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := archive.ExtractZip(opts.ArchivePath, workDir); err != nil {
		return nil, fmt.Errorf("unpack ig export: %w", err)
	}

	g, err := ig.Load(workDir, ig.Options{MaxPages: opts.MaxPages, Log: log})
	if err != nil {
		return nil, err
	}
	m := checker.NewManager(log)
	m.Register(checker.Standard(log, client, checker.Options{BatchSize: opts.BatchSize})...)
	r, err := m.Run(ctx, g)
	if err != nil {
		return nil, err
	}

	path, err := r.WriteFile(opts.OutputDir, report.Header{
		Metadata:    g.Metadata,
		RunID:       runID,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	log.Info("audit complete", "report", path, "checks", len(r.Checks()), "duration_ms", time.Since(start).Milliseconds())
	return &Result{RunID: runID, ReportPath: path, Guide: g, Report: r}, nil
}
