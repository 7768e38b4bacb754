// Package anchor defines how a highlighted span of document text is
// identified independent of any rendered structure.
package anchor

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindTextRange  Kind = "textRange"
	KindUnanchored Kind = "unanchored"
)

// Reason explains why an anchor has no valid position in the current version.
type Reason string

const (
	ReasonNotFoundInVersion Reason = "notFoundInVersion"
	ReasonUserNeedsRemap    Reason = "userNeedsRemap"
)

// Anchor is a tagged union: either a half-open character range
// [Start, End) into the local text of one section, or an unanchored
// marker carrying a reason. Anchors are immutable values; remap and
// carry-over replace the whole anchor on the owning annotation.
type Anchor struct {
	Kind      Kind
	SectionID string
	Start     int
	End       int
	Reason    Reason
}

// TextRange builds a range anchor. Offsets outside 0 <= start < end are
// rejected with a zero anchor and false.
func TextRange(sectionID string, start, end int) (Anchor, bool) {
	if sectionID == "" || start < 0 || end <= start {
		return Anchor{}, false
	}
	return Anchor{Kind: KindTextRange, SectionID: sectionID, Start: start, End: end}, true
}

func Unanchored(reason Reason) Anchor {
	if reason != ReasonNotFoundInVersion && reason != ReasonUserNeedsRemap {
		reason = ReasonUserNeedsRemap
	}
	return Anchor{Kind: KindUnanchored, Reason: reason}
}

func (a Anchor) IsTextRange() bool  { return a.Kind == KindTextRange }
func (a Anchor) IsUnanchored() bool { return a.Kind == KindUnanchored }

// Equal compares anchors structurally.
func (a Anchor) Equal(b Anchor) bool { return a == b }

type textRangeJSON struct {
	Kind      Kind   `json:"kind"`
	SectionID string `json:"sectionId"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
}

type unanchoredJSON struct {
	Kind   Kind   `json:"kind"`
	Reason Reason `json:"reason"`
}

func (a Anchor) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case KindTextRange:
		return json.Marshal(textRangeJSON{Kind: a.Kind, SectionID: a.SectionID, Start: a.Start, End: a.End})
	case KindUnanchored:
		return json.Marshal(unanchoredJSON{Kind: a.Kind, Reason: a.Reason})
	default:
		return nil, fmt.Errorf("anchor: unknown kind %q", a.Kind)
	}
}

func (a *Anchor) UnmarshalJSON(data []byte) error {
	var probe struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.Kind {
	case KindTextRange:
		var tr textRangeJSON
		if err := json.Unmarshal(data, &tr); err != nil {
			return err
		}
		parsed, ok := TextRange(tr.SectionID, tr.Start, tr.End)
		if !ok {
			return fmt.Errorf("anchor: invalid text range [%d,%d) in section %q", tr.Start, tr.End, tr.SectionID)
		}
		*a = parsed
		return nil
	case KindUnanchored:
		var un unanchoredJSON
		if err := json.Unmarshal(data, &un); err != nil {
			return err
		}
		*a = Unanchored(un.Reason)
		return nil
	default:
		return fmt.Errorf("anchor: unknown kind %q", probe.Kind)
	}
}
