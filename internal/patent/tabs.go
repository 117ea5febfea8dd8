package patent

import "github.com/splitview/content-service/internal/content"

// Tab names in their fixed display order. A tab is navigable iff its
// backing field is non-empty; the set is derived from the record, never
// stored.
const (
	TabOverview        = "Overview"
	TabPDF             = "PDF"
	TabImages          = "Images"
	TabClaims          = "Claims"
	TabDescription     = "Description"
	TabClassifications = "Classifications"
	TabCitations       = "Citations"
	TabCitedBy         = "Cited By"
	TabLegalEvents     = "Legal Events"
	TabFamily          = "Patent Family"
	TabSimilarDocs     = "Similar Documents"
)

// Tabs returns the navigable tab names for a record, in fixed order.
func Tabs(rec *content.Patent) []string {
	if rec == nil {
		return nil
	}

	ordered := []struct {
		name    string
		hasData bool
	}{
		{TabOverview, rec.Title != "" || rec.Abstract != "" ||
			len(rec.Inventors) > 0 || len(rec.PublicationNumbers) > 0},
		{TabPDF, rec.PDFURL != ""},
		{TabImages, len(rec.DrawingURLs) > 0},
		{TabClaims, rec.ClaimsHTML != ""},
		{TabDescription, rec.DescriptionHTML != ""},
		{TabClassifications, len(rec.Classifications) > 0},
		{TabCitations, len(rec.Citations) > 0},
		{TabCitedBy, len(rec.CitedBy) > 0},
		{TabLegalEvents, len(rec.LegalEvents) > 0},
		{TabFamily, len(rec.Family) > 0},
		{TabSimilarDocs, len(rec.SimilarDocs) > 0},
	}

	var tabs []string
	for _, t := range ordered {
		if t.hasData {
			tabs = append(tabs, t.name)
		}
	}
	return tabs
}
