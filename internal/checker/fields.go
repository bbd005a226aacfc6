package checker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"verifhir/internal/ig"
	"verifhir/internal/report"
)

// FieldRule requires top-level fields on artifacts, optionally only on
// artifacts of the listed resource types.
type FieldRule struct {
	Names []string
	Types []string
}

// DefaultFieldRules is the artifact checklist.
var DefaultFieldRules = []FieldRule{
	{Names: []string{"text"}},
	{Names: []string{"publisher", "contact"}, Types: []string{"ImplementationGuide"}},
}

// FieldPresenceChecker inspects artifact content directly, without an LLM.
type FieldPresenceChecker struct {
	base
	rules []FieldRule
}

// NewFieldPresence builds the checker; no rules means DefaultFieldRules.
func NewFieldPresence(log *slog.Logger, rules ...FieldRule) *FieldPresenceChecker {
	if len(rules) == 0 {
		rules = DefaultFieldRules
	}
	return &FieldPresenceChecker{
		base:  newBase("field-presence", DomainArtifacts, log),
		rules: rules,
	}
}

func (c *FieldPresenceChecker) Check(_ context.Context, g *ig.Guide) ([]report.Check, error) {
	checks := make([]report.Check, 0, len(c.rules))
	for _, rule := range c.rules {
		checks = append(checks, c.evaluate(g, rule))
	}
	return checks, nil
}

// evaluate passes iff every matching artifact carries every named field.
// An empty name list is trivially satisfied.
func (c *FieldPresenceChecker) evaluate(g *ig.Guide, rule FieldRule) report.Check {
	name := fieldCheckName(rule)
	artifacts := g.ArtifactsOfType(rule.Types...)
	if len(artifacts) == 0 {
		return c.check(name, report.Indeterminate, report.Note("No artifacts found."))
	}

	var failing []report.ProofItem
	for _, a := range artifacts {
		if missing := a.Missing(rule.Names); len(missing) > 0 {
			failing = append(failing, report.ProofItem{Label: a.ID, Children: missing})
		}
	}
	c.log.Debug("artifacts inspected", "rule", name, "artifacts", len(artifacts), "failing", len(failing))
	return c.check(name, report.ValueOf(len(failing) == 0), FormatProof("Missing fields per artifacts", failing))
}

func fieldCheckName(rule FieldRule) string {
	label := "elements"
	if len(rule.Names) == 1 {
		label = "element"
	}
	names := strings.Join(rule.Names, ", ")
	if names == "" {
		names = "(none)"
	}
	scope := "all artifacts"
	if len(rule.Types) > 0 {
		scope = "artifacts of type " + strings.Join(rule.Types, ", ")
	}
	return fmt.Sprintf("Presence of %s %s in %s", label, names, scope)
}
