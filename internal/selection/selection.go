// Package selection converts a reported text selection into a validated
// anchor draft. The browser selection surface is abstracted behind the
// Source capability so the same extraction runs against HTTP payloads
// and test harness input.
package selection

import (
	"strings"

	"redline/api/internal/anchor"
)

// Rect is the bounding rectangle of a selection, used only to position
// transient UI and recomputed on every reading.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ParagraphRef locates the paragraph container of a selection endpoint.
// Index is -1 when the paragraph index could not be resolved.
type ParagraphRef struct {
	SectionID string `json:"sectionId"`
	Index     int    `json:"paragraphIndex"`
}

// Reading is one observation of the active selection.
type Reading struct {
	Collapsed   bool         `json:"collapsed"`
	InViewer    bool         `json:"inViewer"`
	Text        string       `json:"text"`
	Start       ParagraphRef `json:"start"`
	End         ParagraphRef `json:"end"`
	StartOffset int          `json:"startOffset"`
	EndOffset   int          `json:"endOffset"`
	Bounds      Rect         `json:"bounds"`
}

// Source supplies the current selection reading, or reports none.
type Source interface {
	Read() (Reading, bool)
}

// Draft is a transient, unsaved candidate anchor. ParagraphIndex is
// kept only for the creation flow; the anchor itself is section-scoped.
type Draft struct {
	Anchor         anchor.Anchor `json:"anchor"`
	Quote          string        `json:"quote"`
	ParagraphIndex int           `json:"paragraphIndex"`
	Bounds         Rect          `json:"bounds"`
}

// Extract validates the source's current reading into a draft.
// Any validation failure yields nil; extraction never mutates anything.
func Extract(src Source) *Draft {
	reading, ok := src.Read()
	if !ok {
		return nil
	}
	return FromReading(reading)
}

// FromReading applies the validation rules, in order, to one reading.
func FromReading(r Reading) *Draft {
	if r.Collapsed {
		return nil
	}
	if !r.InViewer {
		return nil
	}
	quote := strings.TrimSpace(r.Text)
	if quote == "" {
		return nil
	}
	if r.Start.SectionID != r.End.SectionID || r.Start.Index != r.End.Index {
		return nil
	}
	if strings.TrimSpace(r.Start.SectionID) == "" || r.Start.Index < 0 {
		return nil
	}
	start, end := r.StartOffset, r.EndOffset
	if start > end {
		start, end = end, start
	}
	a, ok := anchor.TextRange(r.Start.SectionID, start, end)
	if !ok {
		return nil
	}
	return &Draft{
		Anchor:         a,
		Quote:          quote,
		ParagraphIndex: r.Start.Index,
		Bounds:         r.Bounds,
	}
}
