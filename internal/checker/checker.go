// Package checker holds the audit checklists. Each Checker evaluates one
// checklist against a loaded IG, either deterministically or by asking an
// LLM, and emits one report.Check per checklist element it can decide.
package checker

import (
	"context"
	"fmt"
	"log/slog"

	"verifhir/internal/ig"
	"verifhir/internal/llm"
	"verifhir/internal/logger"
	"verifhir/internal/report"
)

// Domains group checks in the report summary.
const (
	DomainArtifacts = "Artifacts"
	DomainPages     = "Pages and organization"
	DomainNarrative = "Writing and narrative"
)

// Checker evaluates one checklist against an IG.
type Checker interface {
	Name() string
	Domain() string
	// Check returns the results of the checklist. An error aborts the audit.
	Check(ctx context.Context, g *ig.Guide) ([]report.Check, error)
}

type base struct {
	name   string
	domain string
	log    *slog.Logger
}

func newBase(name, domain string, log *slog.Logger) base {
	if log == nil {
		log = logger.Discard()
	}
	return base{name: name, domain: domain, log: log.With("checker", name)}
}

func (b base) Name() string   { return b.name }
func (b base) Domain() string { return b.domain }

func (b base) check(name string, value report.Value, proof *report.Proof) report.Check {
	return report.NewCheck(name, value, proof, b.domain)
}

// FormatProof renders evidence as a titled bullet list. It returns nil when
// there is no evidence.
func FormatProof(title string, items []report.ProofItem) *report.Proof {
	if len(items) == 0 {
		return nil
	}
	return &report.Proof{Title: title, Items: items}
}

// prompt is an LLM client bound to a fixed system prompt.
type prompt struct {
	client llm.Client
	system string
	format *llm.ResponseFormat
}

func (p prompt) ask(ctx context.Context, user string) (string, error) {
	return p.client.Complete(ctx, llm.Request{System: p.system, User: user, Format: p.format})
}

// tolerate decides what to do with a failed LLM call: fatal errors are
// returned for propagation, anything else is logged and the caller skips
// the input it was evaluating.
func (b base) tolerate(err error, msg string, attrs ...any) error {
	if llm.IsFatal(err) {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	b.log.Warn(msg, append(attrs, "err", err)...)
	return nil
}
