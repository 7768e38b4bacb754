package export

import (
	"fmt"
	"html"
	"strings"

	"redline/api/internal/highlight"
)

// FragmentsToHTML renders one paragraph's fragment sequence. Plain
// fragments become escaped text; highlighted fragments become <mark>
// elements classed by annotation status so exported highlights keep
// their triage colors.
func FragmentsToHTML(fragments []highlight.Fragment) string {
	var b strings.Builder
	for _, f := range fragments {
		if f.AnnotationID == "" {
			b.WriteString(html.EscapeString(f.Text))
			continue
		}
		b.WriteString(fmt.Sprintf(
			`<mark class="hl hl-%s" data-annotation-id="%s">%s</mark>`,
			html.EscapeString(statusClass(f.Status)),
			html.EscapeString(f.AnnotationID),
			html.EscapeString(f.Text),
		))
	}
	return b.String()
}

func statusClass(status string) string {
	switch status {
	case "open", "resolved", "needs-remap":
		return status
	default:
		return "open"
	}
}

func documentToHTML(doc Document) string {
	var b strings.Builder
	for _, section := range doc.Sections {
		if section.Heading != "" {
			b.WriteString(fmt.Sprintf("<h2>%s</h2>\n", html.EscapeString(section.Heading)))
		}
		for _, paragraph := range section.Paragraphs {
			b.WriteString(fmt.Sprintf("<p>%s</p>\n", FragmentsToHTML(paragraph)))
		}
	}
	return b.String()
}
