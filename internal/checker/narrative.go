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

// NarrativeItem is content expected somewhere in the narrative.
type NarrativeItem struct {
	ID          string
	Description string
}

// MustSupportItem only applies to IGs that flag mustSupport elements.
const MustSupportItem = "ms"

// DefaultNarrativeItems is the narrative checklist.
var DefaultNarrativeItems = []NarrativeItem{
	{"prior", "a section that explains key information that needs to be understood prior to reading the IG"},
	{MustSupportItem, "an explanation of what 'mustSupport' means for different types of implementations of the IG"},
	{"community", "information on how to engage with the community"},
	{"relationship", "an explanation of the relationship of the IG to any other guides"},
	{"registry", "a reference to the IG registry as a location to find more IGs of interest"},
	{"background", "background information providing context and motivation for the IG"},
	{"downloads", "information on how to access downloadable artifacts and resources"},
}

// NarrativeChecker asks, page by page, for verbatim excerpts covering each
// item. An item passes as soon as one page yields an excerpt.
type NarrativeChecker struct {
	base
	items     []NarrativeItem
	batchSize int
	llm       prompt
}

// NewNarrative builds the checker; no items means DefaultNarrativeItems.
func NewNarrative(log *slog.Logger, client llm.Client, batchSize int, items ...NarrativeItem) *NarrativeChecker {
	if len(items) == 0 {
		items = DefaultNarrativeItems
	}
	return &NarrativeChecker{
		base:      newBase("narrative", DomainNarrative, log),
		items:     items,
		batchSize: batchSize,
		llm:       prompt{client: client, system: narrativePrompt, format: narrativeFormat},
	}
}

func (c *NarrativeChecker) applies(g *ig.Guide, item NarrativeItem) bool {
	return item.ID != MustSupportItem || g.MustSupport
}

func (c *NarrativeChecker) Check(ctx context.Context, g *ig.Guide) ([]report.Check, error) {
	var queried []NarrativeItem
	for _, item := range c.items {
		if c.applies(g, item) {
			queried = append(queried, item)
		}
	}

	evaluated := make(map[string]int)
	found := make(map[string][]report.ProofItem)
	for _, page := range g.Pages {
		for _, batch := range chunker.Chunk(queried, c.batchSize) {
			lines := make([]string, len(batch))
			inBatch := make(map[string]bool, len(batch))
			for i, item := range batch {
				lines[i] = fmt.Sprintf("%s: %s", item.ID, item.Description)
				inBatch[item.ID] = true
			}
			resp, err := c.llm.ask(ctx, itemsPrompt(lines, page.Text))
			if err != nil {
				if err := c.tolerate(err, "narrative query failed; skipping page", "page", page.Name); err != nil {
					return nil, err
				}
				continue
			}
			extracts, err := parseExtracts(resp)
			if err != nil {
				c.log.Warn("malformed narrative response; skipping page", "page", page.Name, "err", err)
				continue
			}
			for id := range inBatch {
				evaluated[id]++
			}
			for _, e := range extracts {
				if !inBatch[e.ID] {
					continue
				}
				found[e.ID] = append(found[e.ID], report.ProofItem{Label: page.Name, Value: e.Text})
			}
		}
	}

	var checks []report.Check
	for _, item := range c.items {
		name := "Presence of " + item.Description
		switch {
		case !c.applies(g, item):
			checks = append(checks, c.check(name, report.Indeterminate, report.Note("mustSupport not used.")))
		case len(found[item.ID]) > 0:
			checks = append(checks, c.check(name, report.Pass, FormatProof("Extract per page", found[item.ID])))
		case evaluated[item.ID] == 0:
			c.log.Warn("no usable evidence for narrative item; omitting check", "item", item.ID)
		default:
			checks = append(checks, c.check(name, report.Fail, nil))
		}
	}
	return checks, nil
}
