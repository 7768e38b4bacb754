// Package export renders the reviewed document, highlights included,
// to HTML, PDF and DOCX.
package export

import (
	"errors"

	"redline/api/internal/highlight"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Document is the reviewed content prepared for export: every
// paragraph already rendered into highlight fragments.
type Document struct {
	Title        string
	Subtitle     string
	VersionLabel string
	Sections     []Section
}

type Section struct {
	Heading    string
	Paragraphs [][]highlight.Fragment
}

// AnnotationInfo is one annotation row in the exported summary.
type AnnotationInfo struct {
	Quote    string
	Category string
	Severity string
	Status   string
	Assignee string
	Comment  string
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat indicates an unknown export format was requested.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
