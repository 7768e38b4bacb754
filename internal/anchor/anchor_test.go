package anchor

import (
	"encoding/json"
	"testing"
)

func TestTextRangeRejectsInvalidOffsets(t *testing.T) {
	cases := []struct {
		name      string
		sectionID string
		start     int
		end       int
		ok        bool
	}{
		{"valid", "s2", 10, 19, true},
		{"zero width", "s2", 5, 5, false},
		{"inverted", "s2", 8, 3, false},
		{"negative start", "s2", -1, 4, false},
		{"empty section", "", 0, 4, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, ok := TextRange(tc.sectionID, tc.start, tc.end)
			if ok != tc.ok {
				t.Fatalf("TextRange(%q, %d, %d) ok = %v, want %v", tc.sectionID, tc.start, tc.end, ok, tc.ok)
			}
			if !ok && a != (Anchor{}) {
				t.Fatalf("rejected range should yield zero anchor, got %+v", a)
			}
			if ok && !a.IsTextRange() {
				t.Fatalf("accepted range should be a text range, got kind %q", a.Kind)
			}
		})
	}
}

func TestUnanchoredDefaultsReason(t *testing.T) {
	a := Unanchored("something-else")
	if !a.IsUnanchored() {
		t.Fatalf("expected unanchored kind, got %q", a.Kind)
	}
	if a.Reason != ReasonUserNeedsRemap {
		t.Fatalf("unknown reason should default to %q, got %q", ReasonUserNeedsRemap, a.Reason)
	}
}

func TestAnchorJSONRoundTrip(t *testing.T) {
	ranged, _ := TextRange("s2", 10, 19)
	for _, original := range []Anchor{ranged, Unanchored(ReasonNotFoundInVersion)} {
		data, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded Anchor
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if !decoded.Equal(original) {
			t.Fatalf("round trip changed anchor: %+v != %+v", decoded, original)
		}
	}
}

func TestUnanchoredJSONOmitsRangeFields(t *testing.T) {
	data, err := json.Marshal(Unanchored(ReasonUserNeedsRemap))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := fields["start"]; present {
		t.Fatalf("unanchored payload should not carry offsets: %s", data)
	}
	if fields["kind"] != string(KindUnanchored) || fields["reason"] != string(ReasonUserNeedsRemap) {
		t.Fatalf("unexpected payload: %s", data)
	}
}

func TestUnmarshalRejectsUnknownKind(t *testing.T) {
	var a Anchor
	if err := json.Unmarshal([]byte(`{"kind":"fuzzy"}`), &a); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestUnmarshalRejectsInvalidRange(t *testing.T) {
	var a Anchor
	if err := json.Unmarshal([]byte(`{"kind":"textRange","sectionId":"s1","start":9,"end":4}`), &a); err == nil {
		t.Fatal("expected error for inverted range")
	}
}
