package patent

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The live site's markup has shifted across schema versions, so no single
// selector is reliable. Every field is extracted through an ordered list
// of strategies; the first non-empty result wins. Keeping the lists as
// data makes adding a strategy for the next markup revision a one-liner.

// textStrategy reads one candidate location: the text of the selector's
// first match, or a named attribute when Attr is set.
type textStrategy struct {
	Sel  string
	Attr string
}

func (s textStrategy) extract(doc *goquery.Document) string {
	sel := doc.Find(s.Sel).First()
	if sel.Length() == 0 {
		return ""
	}
	if s.Attr != "" {
		v, _ := sel.Attr(s.Attr)
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(sel.Text())
}

// firstText tries strategies in order and returns the first non-empty hit.
func firstText(doc *goquery.Document, strategies []textStrategy) string {
	for _, s := range strategies {
		if v := s.extract(doc); v != "" {
			return v
		}
	}
	return ""
}

// firstHTML is firstText for inner-HTML fields (claims, description).
func firstHTML(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if h, err := node.Html(); err == nil && strings.TrimSpace(h) != "" {
			return h
		}
	}
	return ""
}

// cellText reads one table cell with an itemprop-scoped selector first and
// a numeric column position as fallback for markup without itemprops.
func cellText(row *goquery.Selection, strategies []textStrategy) string {
	for _, s := range strategies {
		sel := row.Find(s.Sel).First()
		if sel.Length() == 0 {
			continue
		}
		if v := strings.TrimSpace(sel.Text()); v != "" {
			return v
		}
	}
	return ""
}

var titleStrategies = []textStrategy{
	{Sel: "h2#title"},
	{Sel: `meta[name="DC.title"]`, Attr: "content"},
	{Sel: "h1"},
	{Sel: "title"},
}

var abstractStrategies = []textStrategy{
	{Sel: "div.abstract"},
	{Sel: `section[itemprop="abstract"] p`},
	{Sel: "abstract"},
	{Sel: "div.abstract-text"},
}

var publicationNumberStrategies = []textStrategy{
	{Sel: `span[itemprop="publicationNumber"]`},
	{Sel: `meta[name="DC.identifier"]`, Attr: "content"},
}

var publicationDateStrategies = []textStrategy{
	{Sel: `time[itemprop="publicationDate"]`},
	{Sel: `span[itemprop="publicationDate"]`},
	{Sel: `meta[name="DC.date"]`, Attr: "content"},
}

var filingDateStrategies = []textStrategy{
	{Sel: `time[itemprop="filingDate"]`},
	{Sel: `span[itemprop="filingDate"]`},
	{Sel: "div.filing-date"},
}

var priorityDateStrategies = []textStrategy{
	{Sel: `time[itemprop="priorityDate"]`},
	{Sel: `span[itemprop="priorityDate"]`},
	{Sel: "div.priority-date"},
}

var assigneeStrategies = []textStrategy{
	{Sel: `dd[itemprop="assigneeOriginal"]`},
	{Sel: `span[itemprop="assignee"]`},
	{Sel: `dd[itemprop="assignee"]`},
	{Sel: "div.assignee"},
}

var statusStrategies = []textStrategy{
	{Sel: `span[itemprop="status"]`},
	{Sel: "div.status"},
	{Sel: "div.patent-status"},
}

var claimsSelectors = []string{
	`section[itemprop="claims"]`,
	"div.claims",
	"div#claims",
}

var descriptionSelectors = []string{
	`section[itemprop="description"]`,
	"div.description",
	"div#description",
}

var inventorSelectors = []string{
	`span[itemprop="inventor"]`,
	`dd[itemprop="inventor"]`,
}
