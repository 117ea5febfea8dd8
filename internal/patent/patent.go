// Package patent extracts a structured record from Google Patents HTML.
// Extraction is a total function: a page yielding nothing for a field
// produces an empty string or slice, never an error, and each tab of the
// record independently decides whether it has data to show.
package patent

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/splitview/content-service/internal/content"
)

var (
	pubTokenRe = regexp.MustCompile(`[A-Z]{2}[0-9A-Z]+`)
	isoDateRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	multiSepRe = regexp.MustCompile(`,+\s*|\s*,\s*|\s+`)
)

// Extract parses a patent page into a record. pageURL supplies the
// publication-number fallback (last path segment) when the page carries
// none. It never fails on well-formed HTML.
func Extract(html, pageURL string) *content.Patent {
	rec := &content.Patent{
		Inventors:          []string{},
		PublicationNumbers: []string{},
		PublicationDates:   []string{},
		Classifications:    []content.Classification{},
		Citations:          []content.Citation{},
		CitedBy:            []content.Citation{},
		LegalEvents:        []content.LegalEvent{},
		Family:             []content.FamilyMember{},
		SimilarDocs:        []content.SimilarDoc{},
		DrawingURLs:        []string{},
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return rec
	}

	rec.Title = firstText(doc, titleStrategies)
	rec.Abstract = firstText(doc, abstractStrategies)
	rec.FilingDate = firstText(doc, filingDateStrategies)
	rec.PriorityDate = firstText(doc, priorityDateStrategies)
	rec.Assignee = firstText(doc, assigneeStrategies)
	rec.Status = firstText(doc, statusStrategies)
	rec.ClaimsHTML = firstHTML(doc, claimsSelectors)
	rec.DescriptionHTML = firstHTML(doc, descriptionSelectors)

	for _, sel := range inventorSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v := strings.TrimSpace(s.Text()); v != "" {
				rec.Inventors = append(rec.Inventors, v)
			}
		})
		if len(rec.Inventors) > 0 {
			break
		}
	}
	if len(rec.Inventors) == 0 {
		doc.Find(`meta[name="DC.contributor"]`).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
				rec.Inventors = append(rec.Inventors, strings.TrimSpace(v))
			}
		})
	}

	rawNumber := firstText(doc, publicationNumberStrategies)
	if rawNumber == "" {
		rawNumber = lastPathSegment(pageURL)
	}
	rec.PublicationNumbers = NormalizePublicationNumber(rawNumber)

	rawDate := firstText(doc, publicationDateStrategies)
	if m := isoDateRe.FindString(rawDate); m != "" && len(SplitMultiValue(rawDate)) <= 1 {
		rawDate = m
	}
	rec.PublicationDates = SplitMultiValue(rawDate)

	doc.Find(`span[itemprop="cpcs"]`).Each(func(_ int, s *goquery.Selection) {
		cls := extractClassification(s)
		if cls.Code != "" || cls.Description != "" {
			rec.Classifications = append(rec.Classifications, cls)
		}
	})

	rec.Citations = extractReferenceRows(doc, "backwardReferences")
	rec.CitedBy = extractReferenceRows(doc, "forwardReferences")
	rec.LegalEvents = extractLegalEvents(doc)
	rec.Family = extractFamily(doc)
	rec.SimilarDocs = extractSimilarDocs(doc)

	doc.Find(`meta[itemprop="full"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && v != "" {
			rec.DrawingURLs = append(rec.DrawingURLs, v)
		}
	})

	return rec
}

func extractClassification(s *goquery.Selection) content.Classification {
	code := strings.TrimSpace(s.Find(`span[itemprop="Code"]`).First().Text())
	desc := strings.TrimSpace(s.Find(`span[itemprop="Description"]`).First().Text())
	if code == "" || desc == "" {
		// Older markup joins code and description with " - ".
		whole := strings.TrimSpace(s.Text())
		if before, after, ok := strings.Cut(whole, " - "); ok {
			if code == "" {
				code = strings.TrimSpace(before)
			}
			if desc == "" {
				desc = strings.TrimSpace(after)
			}
		} else if code == "" {
			code = strings.TrimSpace(s.Find("a").First().Text())
		}
	}
	if desc == "" {
		desc = strings.TrimSpace(s.Find("span.description").First().Text())
	}
	return content.Classification{Code: code, Description: desc}
}

func extractReferenceRows(doc *goquery.Document, itemprop string) []content.Citation {
	out := []content.Citation{}
	doc.Find(`tr[itemprop="` + itemprop + `"]`).Each(func(_ int, row *goquery.Selection) {
		c := content.Citation{
			Number: cellText(row, []textStrategy{
				{Sel: `td[itemprop="publicationNumber"] a`},
				{Sel: `td[itemprop="publicationNumber"]`},
				{Sel: "td:nth-child(1)"},
			}),
			Date: cellText(row, []textStrategy{
				{Sel: `time[itemprop="publicationDate"]`},
				{Sel: `td[itemprop="publicationDate"]`},
				{Sel: "td:nth-child(2)"},
			}),
			Title: cellText(row, []textStrategy{
				{Sel: `td[itemprop="title"]`},
				{Sel: "td:nth-child(3)"},
			}),
			Assignee: cellText(row, []textStrategy{
				{Sel: `td[itemprop="assignee"]`},
				{Sel: "td:nth-child(4)"},
			}),
		}
		if c != (content.Citation{}) {
			out = append(out, c)
		}
	})
	return out
}

func extractLegalEvents(doc *goquery.Document) []content.LegalEvent {
	out := []content.LegalEvent{}
	doc.Find(`tr[itemprop="legalEvents"]`).Each(func(_ int, row *goquery.Selection) {
		e := content.LegalEvent{
			Date: cellText(row, []textStrategy{
				{Sel: `time[itemprop="date"]`},
				{Sel: `td[itemprop="date"]`},
				{Sel: "td:nth-child(1)"},
			}),
			Description: cellText(row, []textStrategy{
				{Sel: `td[itemprop="description"]`},
				{Sel: "td:nth-child(2)"},
			}),
		}
		if e != (content.LegalEvent{}) {
			out = append(out, e)
		}
	})
	return out
}

func extractFamily(doc *goquery.Document) []content.FamilyMember {
	out := []content.FamilyMember{}
	doc.Find(`tr[itemprop="family"]`).Each(func(_ int, row *goquery.Selection) {
		m := content.FamilyMember{
			Number: cellText(row, []textStrategy{
				{Sel: `td[itemprop="publicationNumber"]`},
				{Sel: "td:nth-child(1)"},
			}),
			Date: cellText(row, []textStrategy{
				{Sel: `time[itemprop="publicationDate"]`},
				{Sel: `td[itemprop="publicationDate"]`},
				{Sel: "td:nth-child(2)"},
			}),
			Country: cellText(row, []textStrategy{
				{Sel: `td[itemprop="country"]`},
				{Sel: "td:nth-child(3)"},
			}),
		}
		if m != (content.FamilyMember{}) {
			out = append(out, m)
		}
	})
	return out
}

func extractSimilarDocs(doc *goquery.Document) []content.SimilarDoc {
	out := []content.SimilarDoc{}
	doc.Find(`tr[itemprop="similarDocuments"]`).Each(func(_ int, row *goquery.Selection) {
		d := content.SimilarDoc{
			Number: cellText(row, []textStrategy{
				{Sel: `td[itemprop="publicationNumber"]`},
				{Sel: "td:nth-child(1)"},
			}),
			Date: cellText(row, []textStrategy{
				{Sel: `time[itemprop="publicationDate"]`},
				{Sel: `td[itemprop="publicationDate"]`},
				{Sel: "td:nth-child(2)"},
			}),
			Title: cellText(row, []textStrategy{
				{Sel: `td[itemprop="title"]`},
				{Sel: "td:nth-child(3)"},
			}),
		}
		if d != (content.SimilarDoc{}) {
			out = append(out, d)
		}
	})
	return out
}

// NormalizePublicationNumber extracts country-code-prefixed alphanumeric
// tokens from scraped text. Raw values arrive as anything from "US1234567B1"
// to "US1234567B1 US1234568A1, worldwide".
func NormalizePublicationNumber(raw string) []string {
	tokens := pubTokenRe.FindAllString(strings.ToUpper(strings.TrimSpace(raw)), -1)
	if tokens == nil {
		if v := strings.TrimSpace(raw); v != "" {
			return []string{v}
		}
		return []string{}
	}
	return tokens
}

// SplitMultiValue splits comma- or whitespace-joined display values,
// dropping empties. Used for multi-valued publication dates alongside the
// parallel number tokens.
func SplitMultiValue(raw string) []string {
	out := []string{}
	for _, part := range multiSepRe.Split(strings.TrimSpace(raw), -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CleanCitationNumber strips annotations and punctuation from a scraped
// citation number so it can form a patent URL: "US 1234567 (B1)" becomes
// "US1234567".
func CleanCitationNumber(number string) string {
	s := regexp.MustCompile(`\s+`).ReplaceAllString(number, " ")
	s = regexp.MustCompile(`\s*\([^()]+?\)\s*`).ReplaceAllString(s, "")
	s = regexp.MustCompile(`[^a-zA-Z0-9]`).ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func lastPathSegment(rawURL string) string {
	trimmed := strings.TrimSuffix(rawURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
