package export

import (
	"fmt"
	"html/template"
	"time"
)

// Service renders prepared review documents to downloadable files
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// Export generates an export of the reviewed document in the requested
// format. The caller supplies content that already carries highlight
// fragments; this layer only handles presentation.
func (s *Service) Export(doc Document, annotations []AnnotationInfo, format Format) (*Result, error) {
	data := TemplateData{
		Title:        doc.Title,
		Subtitle:     doc.Subtitle,
		VersionLabel: doc.VersionLabel,
		ContentHTML:  template.HTML(documentToHTML(doc)),
		ExportedAt:   time.Now().UTC(),
		Annotations:  annotations,
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(doc.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(html, doc.Title)
	case FormatDOCX:
		return exportDOCX(html, doc.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
