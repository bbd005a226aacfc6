package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"verifhir/internal/ig"
	"verifhir/internal/llm"
	"verifhir/internal/report"
)

// RoleTOC is decided from the export layout, never by the LLM.
const RoleTOC = "toc"

// DefaultPageRoles are the pages every IG is expected to have.
var DefaultPageRoles = []string{"index", RoleTOC, "artifacts"}

// PageTypeChecker asks the LLM to classify each page into one of the
// expected roles, then asks a second prompt to break ties between several
// candidates for the same role.
type PageTypeChecker struct {
	base
	roles    []string
	classify prompt
	disambig prompt
	llmRoles map[string]bool
}

// NewPageType builds the checker; no roles means DefaultPageRoles.
func NewPageType(log *slog.Logger, client llm.Client, roles ...string) *PageTypeChecker {
	if len(roles) == 0 {
		roles = DefaultPageRoles
	}
	llmRoles := make(map[string]bool)
	var listed []string
	for _, r := range roles {
		if r != RoleTOC {
			llmRoles[strings.ToLower(r)] = true
			listed = append(listed, r)
		}
	}
	return &PageTypeChecker{
		base:     newBase("page-type", DomainPages, log),
		roles:    roles,
		classify: prompt{client: client, system: pageTypePrompt(listed), format: llm.JSONObject},
		disambig: prompt{client: client, system: disambiguationPrompt},
		llmRoles: llmRoles,
	}
}

func (c *PageTypeChecker) Check(ctx context.Context, g *ig.Guide) ([]report.Check, error) {
	candidates := make(map[string][]string)
	unusable := 0
	if len(c.llmRoles) > 0 {
		for _, page := range g.Pages {
			resp, err := c.classify.ask(ctx, fmt.Sprintf("\nPage name: %s\nPage content:\n%s", page.Name, page.Text))
			if err != nil {
				if err := c.tolerate(err, "page classification failed; skipping page", "page", page.Name); err != nil {
					return nil, err
				}
				unusable++
				continue
			}
			role, ok := parseRole(resp)
			if !ok {
				c.log.Warn("unparseable page classification; skipping page", "page", page.Name, "response", resp)
				unusable++
				continue
			}
			if role == "" {
				continue
			}
			if !c.llmRoles[role] {
				c.log.Debug("page classified into unknown role", "page", page.Name, "role", role)
				continue
			}
			candidates[role] = append(candidates[role], page.Name)
		}
	}

	var checks []report.Check
	for _, role := range c.roles {
		name := "Presence of page: " + role
		if role == RoleTOC {
			checks = append(checks, c.tocCheck(name, g))
			continue
		}
		pages := candidates[strings.ToLower(role)]
		switch {
		case len(pages) == 1:
			checks = append(checks, c.check(name, report.Pass, report.Note("Page: "+pages[0])))
		case len(pages) > 1:
			check, ok, err := c.resolve(ctx, name, role, pages)
			if err != nil {
				return nil, err
			}
			if ok {
				checks = append(checks, check)
			}
		case unusable > 0:
			c.log.Warn("no usable classification for role; omitting check", "role", role, "unusable_pages", unusable)
		default:
			checks = append(checks, c.check(name, report.Fail, nil))
		}
	}
	return checks, nil
}

func (c *PageTypeChecker) tocCheck(name string, g *ig.Guide) report.Check {
	if g.TOCPath != "" {
		if _, err := os.Stat(g.TOCPath); err == nil {
			return c.check(name, report.Pass, report.Note("Page: "+filepath.Base(g.TOCPath)))
		}
	}
	return c.check(name, report.Fail, nil)
}

// resolve picks the single best page among several candidates. The answer
// must equal a candidate's name, with or without its extension. ok is false
// when the reply is unusable and no check should be emitted.
func (c *PageTypeChecker) resolve(ctx context.Context, name, role string, pages []string) (report.Check, bool, error) {
	list, _ := json.Marshal(pages)
	resp, err := c.disambig.ask(ctx, fmt.Sprintf("\nType: %s\nPage names: %s", role, list))
	if err != nil {
		return report.Check{}, false, c.tolerate(err, "page disambiguation failed; omitting check", "role", role)
	}
	answer := parsePageName(resp)
	if answer == "" {
		c.log.Warn("empty page disambiguation; omitting check", "role", role)
		return report.Check{}, false, nil
	}
	for _, page := range pages {
		if matchesPage(answer, page) {
			return c.check(name, report.Pass, report.Note("Page: "+page)), true, nil
		}
	}
	c.log.Warn("disambiguation matched no candidate", "role", role, "answer", answer, "candidates", pages)
	items := make([]report.ProofItem, len(pages))
	for i, p := range pages {
		items[i] = report.ProofItem{Label: p}
	}
	return c.check(name, report.Fail, FormatProof("Ambiguous candidate pages", items)), true, nil
}

func matchesPage(answer, page string) bool {
	p := strings.ToLower(page)
	return answer == p || answer == strings.TrimSuffix(p, filepath.Ext(p))
}
