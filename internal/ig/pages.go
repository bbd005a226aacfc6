package ig

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"verifhir/internal/archive"
)

// loadPages follows the .html links of the table of contents. Links that
// resolve to artifact pages or outside base are left out.
func loadPages(tocPath, base string, layout Layout, maxPages int, log *slog.Logger) ([]Page, error) {
	links, err := tocLinks(tocPath)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var pages []Page
	for _, link := range links {
		if seen[link] || !isLocalHTML(link) {
			continue
		}
		path, err := archive.SafeJoin(base, link)
		if err != nil {
			log.Debug("skipping toc link outside the export", "link", link)
			continue
		}
		if !exists(path) {
			continue
		}
		if isArtifactPage(base, link, layout) {
			continue
		}
		seen[link] = true
		text, err := pageText(path)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", link, err)
		}
		pages = append(pages, Page{Name: link, Path: path, Text: text})
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	if len(pages) > maxPages {
		return nil, fmt.Errorf("%w: %d found, limit %d", ErrTooManyPages, len(pages), maxPages)
	}
	return pages, nil
}

func isLocalHTML(link string) bool {
	return strings.HasSuffix(link, ".html") && !strings.Contains(link, "://")
}

func isArtifactPage(base, link string, layout Layout) bool {
	if layout == LayoutPublisher {
		return exists(strings.TrimSuffix(filepath.Join(base, filepath.FromSlash(link)), ".html") + ".json")
	}
	return strings.Contains(strings.ToLower(link), "artifact")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// tocLinks returns the href of every anchor in document order.
func tocLinks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse toc: %w", err)
	}
	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					links = append(links, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// pageText flattens a page to its visible text, one text run per line.
func pageText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ExtractText(html.NewTokenizer(f))
}

// ExtractText drains z and returns its text content without script and style bodies.
func ExtractText(z *html.Tokenizer) (string, error) {
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", err
			}
			return strings.TrimSpace(b.String()), nil
		case html.StartTagToken:
			if hidden(z) {
				skip++
			}
		case html.EndTagToken:
			if hidden(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.Join(strings.Fields(string(z.Text())), " ")
			if text == "" {
				continue
			}
			b.WriteString(text)
			b.WriteByte('\n')
		}
	}
}

func hidden(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style, atom.Noscript:
		return true
	}
	return false
}
