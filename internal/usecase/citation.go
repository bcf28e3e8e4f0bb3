package usecase

import (
	"fmt"
	"sort"
	"strings"

	"essaygenius/internal/domain/model"
)

// FormatReferences returns one reference entry per source, sorted
// alphabetically the way a references page lists them. Sources carry a
// preformatted citation from the discovery stage; when that is missing a
// deterministic fallback is built from the bibliographic fields.
func FormatReferences(sources []model.Source, format model.CitationFormat) []string {
	entries := make([]string, 0, len(sources))
	for _, s := range sources {
		c := strings.TrimSpace(s.Citation)
		if c == "" {
			c = fallbackCitation(s, format)
		}
		entries = append(entries, c)
	}
	sort.Strings(entries)
	return entries
}

func fallbackCitation(s model.Source, format model.CitationFormat) string {
	switch format {
	case model.CitationMLA:
		return fmt.Sprintf("%s. %q %s, %d. %s", s.Author, s.Title, s.PublicationInfo, s.PublicationYear, s.URL)
	case model.CitationChicago:
		return fmt.Sprintf("%s. %q %s (%d). %s", s.Author, s.Title, s.PublicationInfo, s.PublicationYear, s.URL)
	case model.CitationHarvard:
		return fmt.Sprintf("%s (%d) '%s', %s. %s", s.Author, s.PublicationYear, s.Title, s.PublicationInfo, s.URL)
	default:
		return fmt.Sprintf("%s (%d). %s. %s. %s", s.Author, s.PublicationYear, s.Title, s.PublicationInfo, s.URL)
	}
}
