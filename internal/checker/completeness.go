package checker

import (
	"context"
	"fmt"
	"log/slog"

	"verifhir/internal/chunker"
	"verifhir/internal/ig"
	"verifhir/internal/llm"
	"verifhir/internal/report"
)

// DefaultCompletenessLabels is the information every page must state.
var DefaultCompletenessLabels = []string{"FHIR version", "IG version"}

// CompletenessChecker asks, page by page, whether each label appears on
// the page. A label passes when no page is a confirmed miss.
type CompletenessChecker struct {
	base
	labels    []string
	batchSize int
	llm       prompt
}

// NewCompleteness builds the checker. batchSize caps labels per request;
// zero sends them all at once. No labels means DefaultCompletenessLabels.
func NewCompleteness(log *slog.Logger, client llm.Client, batchSize int, labels ...string) *CompletenessChecker {
	if len(labels) == 0 {
		labels = DefaultCompletenessLabels
	}
	return &CompletenessChecker{
		base:      newBase("completeness", DomainPages, log),
		labels:    labels,
		batchSize: batchSize,
		llm:       prompt{client: client, system: completenessPrompt, format: llm.JSONObject},
	}
}

func (c *CompletenessChecker) Check(ctx context.Context, g *ig.Guide) ([]report.Check, error) {
	evaluated := make(map[string]int, len(c.labels))
	missing := make(map[string][]report.ProofItem, len(c.labels))

	for _, page := range g.Pages {
		for _, batch := range chunker.Chunk(c.labels, c.batchSize) {
			resp, err := c.llm.ask(ctx, itemsPrompt(batch, page.Text))
			if err != nil {
				if err := c.tolerate(err, "completeness query failed; skipping page", "page", page.Name); err != nil {
					return nil, err
				}
				continue
			}
			obj, err := parseObject(resp)
			if err != nil {
				c.log.Warn("completeness response is not a JSON object; skipping page", "page", page.Name, "err", err)
				continue
			}
			for _, label := range batch {
				evaluated[label]++
				v, _ := lookup(obj, label)
				// anything but an explicit true counts as absent
				if normalizeBool(v) != report.Pass {
					missing[label] = append(missing[label], report.ProofItem{Label: page.Name})
				}
			}
		}
	}

	var checks []report.Check
	for _, label := range c.labels {
		if evaluated[label] == 0 {
			c.log.Warn("no usable evidence for label; omitting check", "label", label)
			continue
		}
		pages := missing[label]
		proof := FormatProof(fmt.Sprintf("Missing information %s in pages", label), pages)
		checks = append(checks, c.check(fmt.Sprintf("Presence of %s in all pages", label), report.ValueOf(len(pages) == 0), proof))
	}
	return checks, nil
}
