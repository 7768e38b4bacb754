package review

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"redline/api/internal/anchor"
	"redline/api/internal/selection"
)

// testStore returns a store with deterministic ids and clock.
func testStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore("adr-142", "v1")
	seq := 0
	s.newID = func(prefix string) string {
		seq++
		return fmt.Sprintf("%s-%d", prefix, seq)
	}
	base := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	return s
}

func draftFor(t *testing.T, sectionID string, start, end int, quote string) selection.Draft {
	t.Helper()
	a, ok := anchor.TextRange(sectionID, start, end)
	if !ok {
		t.Fatalf("bad test range [%d, %d)", start, end)
	}
	return selection.Draft{Anchor: a, Quote: quote}
}

func TestCreateAddsOpenAnnotationAndSelectsIt(t *testing.T) {
	s := testStore(t)
	created := s.Create(draftFor(t, "s2", 10, 19, "services."), CategoryClarity, SeverityMedium, nil, "Which services?")

	if created.Status != StatusOpen {
		t.Fatalf("new annotation status = %q", created.Status)
	}
	if created.VersionID != "v1" || created.DocID != "adr-142" {
		t.Fatalf("annotation scoped wrong: %+v", created)
	}
	if !created.Anchor.IsTextRange() || created.Anchor.Start != 10 || created.Anchor.End != 19 {
		t.Fatalf("anchor wrong: %+v", created.Anchor)
	}

	st := s.Snapshot()
	if st.SelectedID != created.ID {
		t.Fatalf("created annotation should be selected, got %q", st.SelectedID)
	}
	if len(st.Buckets["v1"]) != 1 {
		t.Fatalf("bucket size = %d", len(st.Buckets["v1"]))
	}
	if len(st.Activity) != 1 || st.Activity[0].Type != ActivityCreated {
		t.Fatalf("expected one created activity entry, got %+v", st.Activity)
	}
}

func TestCreatePrependsNewestFirst(t *testing.T) {
	s := testStore(t)
	first := s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryStyle, SeverityLow, nil, "")
	second := s.Create(draftFor(t, "s1", 5, 13, "limiting"), CategoryStyle, SeverityLow, nil, "")

	bucket := s.Snapshot().Buckets["v1"]
	if bucket[0].ID != second.ID || bucket[1].ID != first.ID {
		t.Fatalf("bucket not newest-first: %v, %v", bucket[0].ID, bucket[1].ID)
	}
}

func TestToggleResolvedRoundTrip(t *testing.T) {
	s := testStore(t)
	a := s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityHigh, nil, "")

	if !s.ToggleResolved(a.ID) {
		t.Fatal("toggle should succeed")
	}
	if got, _ := s.Snapshot().Find(a.ID); got.Status != StatusResolved {
		t.Fatalf("status = %q after resolve", got.Status)
	}
	if !s.ToggleResolved(a.ID) {
		t.Fatal("second toggle should succeed")
	}
	if got, _ := s.Snapshot().Find(a.ID); got.Status != StatusOpen {
		t.Fatalf("status = %q after reopen", got.Status)
	}

	activity := s.Snapshot().Activity
	if activity[0].Type != ActivityReopened || activity[1].Type != ActivityResolved {
		t.Fatalf("activity types wrong: %v, %v", activity[0].Type, activity[1].Type)
	}
}

func TestToggleResolvedIgnoresNeedsRemapAndUnknown(t *testing.T) {
	s := testStore(t)
	s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")
	s.SwitchVersion("v2", true)

	carried := s.Snapshot().Buckets["v2"][0]
	if carried.Status != StatusNeedsRemap {
		t.Fatalf("carried annotation status = %q", carried.Status)
	}
	if s.ToggleResolved(carried.ID) {
		t.Fatal("needs-remap annotation must not resolve")
	}
	if got, _ := s.Snapshot().Find(carried.ID); got.Status != StatusNeedsRemap {
		t.Fatalf("status changed to %q", got.Status)
	}
	if s.ToggleResolved("ann-missing") {
		t.Fatal("unknown id must be ignored")
	}
}

func TestChangeAssignee(t *testing.T) {
	s := testStore(t)
	a := s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryQuestion, SeverityLow, nil, "")

	marcus := "u-marcus"
	if !s.ChangeAssignee(a.ID, &marcus) {
		t.Fatal("assign should succeed")
	}
	got, _ := s.Snapshot().Find(a.ID)
	if got.AssigneeID == nil || *got.AssigneeID != marcus {
		t.Fatalf("assignee = %v", got.AssigneeID)
	}

	if !s.ChangeAssignee(a.ID, nil) {
		t.Fatal("unassign should succeed")
	}
	got, _ = s.Snapshot().Find(a.ID)
	if got.AssigneeID != nil {
		t.Fatalf("assignee not cleared: %v", *got.AssigneeID)
	}

	item := s.Snapshot().Activity[0]
	if item.Type != ActivityAssigneeChanged {
		t.Fatalf("activity type = %q", item.Type)
	}
	if item.Meta["assigneeId"] != nil {
		t.Fatalf("cleared assignee meta should be nil, got %v", item.Meta["assigneeId"])
	}
}

func TestCarryOverClonesUnresolvedOnly(t *testing.T) {
	s := testStore(t)
	open1 := s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")
	resolved := s.Create(draftFor(t, "s1", 5, 13, "limiting"), CategoryStyle, SeverityLow, nil, "")
	open2 := s.Create(draftFor(t, "s2", 10, 19, "services."), CategoryClarity, SeverityMedium, nil, "")
	s.ToggleResolved(resolved.ID)

	count := s.CarryOver("v1", "v2")
	if count != 2 {
		t.Fatalf("carried %d, want 2", count)
	}

	st := s.Snapshot()
	if len(st.Buckets["v1"]) != 3 {
		t.Fatal("carry-over must copy, not move: source bucket shrank")
	}
	target := st.Buckets["v2"]
	if len(target) != 2 {
		t.Fatalf("target bucket size = %d", len(target))
	}
	// Source order preserved: open2 was newest, stays first.
	if target[0].Quote != open2.Quote || target[1].Quote != open1.Quote {
		t.Fatalf("carried order wrong: %q, %q", target[0].Quote, target[1].Quote)
	}
	for _, a := range target {
		if a.Status != StatusNeedsRemap {
			t.Fatalf("carried status = %q", a.Status)
		}
		if !a.Anchor.IsUnanchored() || a.Anchor.Reason != anchor.ReasonUserNeedsRemap {
			t.Fatalf("carried anchor = %+v", a.Anchor)
		}
		if a.ID == open1.ID || a.ID == open2.ID {
			t.Fatal("carried annotation must get a new id")
		}
		if a.VersionID != "v2" {
			t.Fatalf("carried version = %q", a.VersionID)
		}
	}

	if st.Activity[0].Type != ActivityCarriedOver {
		t.Fatalf("activity head = %q", st.Activity[0].Type)
	}
	if st.Activity[0].Meta["count"] != 2 {
		t.Fatalf("carried-over count meta = %v", st.Activity[0].Meta["count"])
	}
}

func TestCarryOverNothingEligible(t *testing.T) {
	s := testStore(t)
	a := s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")
	s.ToggleResolved(a.ID)

	if count := s.CarryOver("v1", "v2"); count != 0 {
		t.Fatalf("carried %d, want 0", count)
	}
	st := s.Snapshot()
	if len(st.Buckets["v2"]) != 0 {
		t.Fatalf("target bucket should be empty, got %d", len(st.Buckets["v2"]))
	}
	for _, item := range st.Activity {
		if item.Type == ActivityCarriedOver {
			t.Fatal("no carried-over activity when nothing was eligible")
		}
	}
}

func TestCarryOverSameVersionNoOp(t *testing.T) {
	s := testStore(t)
	s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")
	if count := s.CarryOver("v1", "v1"); count != 0 {
		t.Fatalf("same-version carry must be a no-op, carried %d", count)
	}
}

func TestSwitchVersionRecordsActivityAndClearsSelection(t *testing.T) {
	s := testStore(t)
	s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")

	s.SwitchVersion("v2", false)
	st := s.Snapshot()
	if st.VersionID != "v2" {
		t.Fatalf("version = %q", st.VersionID)
	}
	if st.SelectedID != "" || st.RemapTargetID != "" {
		t.Fatal("switching versions must clear selection and remap target")
	}
	if st.Activity[0].Type != ActivityVersionSwitched {
		t.Fatalf("activity head = %q", st.Activity[0].Type)
	}
	if len(st.Buckets["v2"]) != 0 {
		t.Fatal("switch without carry must not clone annotations")
	}

	// Switching to the current version does nothing.
	before := len(s.Snapshot().Activity)
	s.SwitchVersion("v2", true)
	if got := len(s.Snapshot().Activity); got != before {
		t.Fatalf("no-op switch added activity: %d -> %d", before, got)
	}
}

func TestRemapReanchorsAndReopens(t *testing.T) {
	s := testStore(t)
	s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")
	s.SwitchVersion("v2", true)
	carried := s.Snapshot().Buckets["v2"][0]

	if !s.StartRemap(carried.ID) {
		t.Fatal("start remap should succeed")
	}
	if s.Snapshot().RemapTargetID != carried.ID {
		t.Fatal("remap target not armed")
	}

	if !s.Remap(carried.ID, draftFor(t, "s2", 13, 22, "services.")) {
		t.Fatal("remap should succeed")
	}
	st := s.Snapshot()
	got, _ := st.Find(carried.ID)
	if got.Status != StatusOpen {
		t.Fatalf("remap must reopen, status = %q", got.Status)
	}
	if !got.Anchor.IsTextRange() || got.Anchor.SectionID != "s2" || got.Anchor.Start != 13 {
		t.Fatalf("anchor not replaced: %+v", got.Anchor)
	}
	if got.Quote != "services." {
		t.Fatalf("quote not replaced: %q", got.Quote)
	}
	if st.RemapTargetID != "" {
		t.Fatal("remap target must clear after confirm")
	}
	if st.SelectedID != carried.ID {
		t.Fatal("remapped annotation should be selected")
	}
	if st.Activity[0].Type != ActivityRemapped {
		t.Fatalf("activity head = %q", st.Activity[0].Type)
	}
}

func TestRemapResolvedAnnotationReopens(t *testing.T) {
	s := testStore(t)
	a := s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")
	s.ToggleResolved(a.ID)

	if !s.Remap(a.ID, draftFor(t, "s1", 5, 13, "limiting")) {
		t.Fatal("remap should succeed")
	}
	if got, _ := s.Snapshot().Find(a.ID); got.Status != StatusOpen {
		t.Fatalf("remap of resolved annotation must reopen it, status = %q", got.Status)
	}
}

func TestSelectClearsRemapTarget(t *testing.T) {
	s := testStore(t)
	a := s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")
	b := s.Create(draftFor(t, "s1", 5, 13, "limiting"), CategoryStyle, SeverityLow, nil, "")

	s.StartRemap(a.ID)
	s.Select(b.ID)
	st := s.Snapshot()
	if st.SelectedID != b.ID {
		t.Fatalf("selected = %q", st.SelectedID)
	}
	if st.RemapTargetID != "" {
		t.Fatal("selecting must supersede the remap target")
	}

	s.Select("ann-missing")
	if got := s.Snapshot().SelectedID; got != "" {
		t.Fatalf("selecting unknown id must clear focus, got %q", got)
	}
}

func TestCancelRemapKeepsAnnotationUntouched(t *testing.T) {
	s := testStore(t)
	a := s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")
	before, _ := s.Snapshot().Find(a.ID)

	s.StartRemap(a.ID)
	s.CancelRemap()
	st := s.Snapshot()
	if st.RemapTargetID != "" {
		t.Fatal("cancel must clear the target")
	}
	after, _ := st.Find(a.ID)
	if after.Anchor != before.Anchor || after.Status != before.Status {
		t.Fatal("cancel must not mutate the annotation")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := testStore(t)
	s.Create(draftFor(t, "s2", 10, 19, "services."), CategoryClarity, SeverityMedium, nil, "Which services?")
	s.SwitchVersion("v2", true)

	payload := s.Export()
	if payload.Schema != SchemaVersion {
		t.Fatalf("schema = %q", payload.Schema)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := NewStore("adr-142", "v1")
	if !restored.Import(raw, func(v string) bool { return v == "v1" || v == "v2" || v == "v3" }) {
		t.Fatal("import of a valid payload must succeed")
	}
	st := restored.Snapshot()
	if st.VersionID != "v2" {
		t.Fatalf("imported version = %q, want v2", st.VersionID)
	}
	if len(st.Buckets["v1"]) != 1 || len(st.Buckets["v2"]) != 1 {
		t.Fatalf("imported buckets wrong: %d, %d", len(st.Buckets["v1"]), len(st.Buckets["v2"]))
	}
	if got := st.Buckets["v1"][0].Quote; got != "services." {
		t.Fatalf("imported quote = %q", got)
	}
	if len(st.Activity) != len(payload.Activity) {
		t.Fatalf("imported activity length = %d, want %d", len(st.Activity), len(payload.Activity))
	}
}

func TestImportRejections(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"schema":               SchemaVersion,
			"exportedAt":           time.Now().UTC(),
			"docId":                "adr-142",
			"versionId":            "v1",
			"annotationsByVersion": map[string][]Annotation{},
			"activity":             []ActivityItem{},
		}
	}
	cases := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"wrong schema", func(p map[string]any) { p["schema"] = "review-mini-v2" }},
		{"missing annotations", func(p map[string]any) { delete(p, "annotationsByVersion") }},
		{"missing activity", func(p map[string]any) { delete(p, "activity") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testStore(t)
			kept := s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")

			p := valid()
			tc.mutate(p)
			raw, err := json.Marshal(p)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if s.Import(raw, func(string) bool { return true }) {
				t.Fatal("import must be rejected")
			}
			if _, ok := s.Snapshot().Find(kept.ID); !ok {
				t.Fatal("rejected import must keep prior state")
			}
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		s := testStore(t)
		if s.Import([]byte("{nope"), func(string) bool { return true }) {
			t.Fatal("malformed payload must be rejected")
		}
	})
}

func TestImportKeepsCurrentVersionWhenUnknown(t *testing.T) {
	s := testStore(t)
	raw, err := json.Marshal(map[string]any{
		"schema":               SchemaVersion,
		"docId":                "adr-142",
		"versionId":            "v9",
		"annotationsByVersion": map[string][]Annotation{},
		"activity":             []ActivityItem{},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !s.Import(raw, func(v string) bool { return v == "v1" }) {
		t.Fatal("import should succeed")
	}
	if got := s.Snapshot().VersionID; got != "v1" {
		t.Fatalf("version = %q, want current kept", got)
	}
}

func TestFilterNarrowsListing(t *testing.T) {
	s := testStore(t)
	marcus := "u-marcus"
	a := s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityHigh, &marcus, "")
	s.Create(draftFor(t, "s1", 5, 13, "limiting"), CategoryStyle, SeverityLow, nil, "")
	s.ToggleResolved(a.ID)

	st := s.Snapshot()
	if got := len(st.Annotations("v1", Filter{})); got != 2 {
		t.Fatalf("unfiltered count = %d", got)
	}
	if got := st.Annotations("v1", Filter{Status: StatusResolved}); len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("status filter wrong: %+v", got)
	}
	if got := st.Annotations("v1", Filter{Category: CategoryStyle}); len(got) != 1 {
		t.Fatalf("category filter wrong: %+v", got)
	}
	if got := st.Annotations("v1", Filter{AssigneeID: "none"}); len(got) != 1 || got[0].AssigneeID != nil {
		t.Fatalf("unassigned filter wrong: %+v", got)
	}
	if got := st.Annotations("v1", Filter{AssigneeID: marcus}); len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("assignee filter wrong: %+v", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := testStore(t)
	s.Create(draftFor(t, "s1", 0, 4, "Rate"), CategoryAccuracy, SeverityLow, nil, "")
	before := s.Snapshot()

	s.Create(draftFor(t, "s1", 5, 13, "limiting"), CategoryStyle, SeverityLow, nil, "")

	if len(before.Buckets["v1"]) != 1 || len(before.Activity) != 1 {
		t.Fatal("earlier snapshot must not observe later mutations")
	}
}
