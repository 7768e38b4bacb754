// Package highlight renders a set of possibly-overlapping annotation
// spans onto paragraph text as an ordered fragment sequence.
package highlight

import "sort"

// Span is one annotation's range within a paragraph's section, already
// filtered to that paragraph's section by the caller.
type Span struct {
	ID     string
	Start  int
	End    int
	Status string
}

// Fragment is either plain text (AnnotationID empty) or a highlighted
// run carrying the owning annotation id and its status.
type Fragment struct {
	Text         string `json:"text"`
	AnnotationID string `json:"annotationId,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Render sweeps the spans left to right and produces non-overlapping,
// gap-free coverage of text: concatenating the fragments always yields
// the input exactly, no matter how spans overlap or exceed the bounds.
// Ties on start keep insertion order (stable sort), so rendering is
// deterministic when two spans share a start.
func Render(text string, spans []Span) []Fragment {
	clamped := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > len(text) {
			s.End = len(text)
		}
		if s.End <= s.Start {
			continue
		}
		clamped = append(clamped, s)
	}
	sort.SliceStable(clamped, func(i, j int) bool {
		return clamped[i].Start < clamped[j].Start
	})

	fragments := make([]Fragment, 0, 2*len(clamped)+1)
	cursor := 0
	for _, s := range clamped {
		if s.Start > cursor {
			fragments = append(fragments, Fragment{Text: text[cursor:s.Start]})
		}
		// A span swallowed by an earlier overlap starts at the cursor
		// instead, so no character is emitted twice.
		from := s.Start
		if from < cursor {
			from = cursor
		}
		if s.End > from {
			fragments = append(fragments, Fragment{
				Text:         text[from:s.End],
				AnnotationID: s.ID,
				Status:       s.Status,
			})
		}
		if s.End > cursor {
			cursor = s.End
		}
	}
	if cursor < len(text) {
		fragments = append(fragments, Fragment{Text: text[cursor:]})
	}
	return fragments
}
