package model

import "strings"

// CitationFormat enumerates the supported reference styles.
type CitationFormat string

const (
	CitationAPA     CitationFormat = "apa"
	CitationMLA     CitationFormat = "mla"
	CitationChicago CitationFormat = "chicago"
	CitationHarvard CitationFormat = "harvard"
)

// ParseCitationFormat normalizes client input, defaulting to APA.
func ParseCitationFormat(s string) CitationFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mla":
		return CitationMLA
	case "chicago":
		return CitationChicago
	case "harvard":
		return CitationHarvard
	default:
		return CitationAPA
	}
}

// Source is one academic reference produced by the source-discovery stage.
type Source struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	AuthorLastName  string `json:"author_last_name"`
	PublicationYear int    `json:"publication_year"`
	PublicationInfo string `json:"publication_info"`
	URL             string `json:"url"`
	Citation        string `json:"citation"`
	Relevance       string `json:"relevance"`
	Details         string `json:"details"`
}

// DedupKey is the text embedded for similarity comparison against sources
// already used in the same request.
func (s Source) DedupKey() string {
	return s.Title + " " + s.Author + " " + s.PublicationInfo
}
