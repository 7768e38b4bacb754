package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		mode   Mode
		action Action
		want   bool
	}{
		{ModeEditor, ActionRead, true},
		{ModeEditor, ActionMutate, true},
		{ModeEditor, ActionExport, true},
		{ModeViewer, ActionRead, true},
		{ModeViewer, ActionExport, true},
		{ModeViewer, ActionMutate, false},
		{Mode("ghost"), ActionRead, false},
	}
	for _, tc := range cases {
		if got := Can(tc.mode, tc.action); got != tc.want {
			t.Errorf("Can(%q, %q) = %v, want %v", tc.mode, tc.action, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("editor") != ModeEditor {
		t.Error("editor should pass through")
	}
	if Normalize("viewer") != ModeViewer {
		t.Error("viewer should pass through")
	}
	if Normalize("admin") != ModeViewer {
		t.Error("unknown mode must default to viewer")
	}
	if Normalize("") != ModeViewer {
		t.Error("empty mode must default to viewer")
	}
}
