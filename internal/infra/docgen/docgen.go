// Package docgen assembles the final paper as a .docx document in an
// academic layout: a title page, the essay body, and a references page.
package docgen

import (
	"bytes"
	"strings"
	"time"

	"github.com/fumiama/go-docx"
)

// bodySize is in half-points; "24" renders as 12pt.
const bodySize = "24"

// Paper is everything the generator needs to lay out a document.
type Paper struct {
	Title         string
	Content       string
	Citations     []string
	StudentName   string
	ProfessorName string
	ClassName     string
	Date          time.Time
}

// Generator renders Paper values to DOCX bytes.
type Generator struct{}

func New() *Generator { return &Generator{} }

// Render builds the document and returns the serialized bytes along with
// the body word count.
func (g *Generator) Render(p Paper) ([]byte, int, error) {
	w := docx.New().WithDefaultTheme()

	date := p.Date
	if date.IsZero() {
		date = time.Now()
	}

	// Title page: title centered a third of the way down, then the
	// student info block.
	for i := 0; i < 4; i++ {
		w.AddParagraph()
	}
	title := w.AddParagraph().Justification("center")
	title.AddText(p.Title).Size(bodySize)

	for i := 0; i < 8; i++ {
		w.AddParagraph()
	}
	for _, line := range []string{p.StudentName, p.ClassName, p.ProfessorName, date.Format("2 January 2006")} {
		if line == "" {
			continue
		}
		para := w.AddParagraph().Justification("center")
		para.AddText(line).Size(bodySize)
	}
	w.AddParagraph().AddPageBreaks()

	// Body.
	words := 0
	for _, text := range splitParagraphs(p.Content) {
		words += len(strings.Fields(text))
		para := w.AddParagraph()
		para.AddText(text).Size(bodySize)
	}

	// References page.
	if len(p.Citations) > 0 {
		w.AddParagraph().AddPageBreaks()
		header := w.AddParagraph().Justification("center")
		header.AddText("References").Size(bodySize)
		w.AddParagraph()
		for _, c := range p.Citations {
			para := w.AddParagraph()
			para.AddText(c).Size(bodySize)
		}
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), words, nil
}

func splitParagraphs(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(content, "\n") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
