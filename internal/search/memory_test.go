package search

import "testing"

func seededMemory() *Memory {
	m := NewMemory()
	m.IndexAnnotation(AnnotationRecord{
		ID: "ann-1", DocID: "adr-142", VersionID: "v1",
		Quote: "services.", Comment: "Which services?",
		Category: "clarity", Severity: "medium", Status: "open",
	})
	m.IndexAnnotation(AnnotationRecord{
		ID: "ann-2", DocID: "adr-142", VersionID: "v1",
		Quote: "limiting", Category: "style", Severity: "low", Status: "resolved",
	})
	m.IndexActivity(ActivityRecord{
		ID: "act-1", DocID: "adr-142", Type: "created",
		Summary: `Annotation created on "services."`,
	})
	return m
}

func TestMemorySearchMatchesQuoteAndComment(t *testing.T) {
	m := seededMemory()

	results, total, err := m.Search(Query{Text: "services"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want annotation and activity", total)
	}
	_ = results

	results, total, err = m.Search(Query{Text: "which"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || results[0].ID != "ann-1" {
		t.Fatalf("comment match wrong: total=%d results=%+v", total, results)
	}
}

func TestMemorySearchFilters(t *testing.T) {
	m := seededMemory()

	_, total, err := m.Search(Query{Text: "services", FilterType: ResultAnnotation})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 {
		t.Fatalf("type filter total = %d", total)
	}

	results, total, err := m.Search(Query{FilterType: ResultAnnotation, Status: "resolved"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || results[0].ID != "ann-2" {
		t.Fatalf("status filter wrong: %+v", results)
	}

	_, total, err = m.Search(Query{FilterType: ResultAnnotation, Category: "clarity"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 {
		t.Fatalf("category filter total = %d", total)
	}
}

func TestMemorySearchPagination(t *testing.T) {
	m := seededMemory()

	results, total, err := m.Search(Query{Limit: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 3 || len(results) != 1 {
		t.Fatalf("pagination wrong: total=%d page=%d", total, len(results))
	}

	rest, _, err := m.Search(Query{Limit: 10, Offset: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("offset page size = %d", len(rest))
	}
}

func TestMemoryReplaceAll(t *testing.T) {
	m := seededMemory()
	m.ReplaceAll([]AnnotationRecord{{ID: "ann-9", DocID: "adr-142", Quote: "tokens"}}, nil)

	_, total, err := m.Search(Query{Text: "services"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 0 {
		t.Fatalf("old records survived ReplaceAll: %d", total)
	}
	_, total, err = m.Search(Query{Text: "tokens"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 {
		t.Fatalf("replacement records missing: %d", total)
	}
}

func TestServiceFallsBackToMemory(t *testing.T) {
	svc := NewService(nil, seededMemory())
	resp := svc.Search(Query{Text: "services"})
	if resp.Total == 0 {
		t.Fatalf("fallback search found nothing: %+v", resp)
	}
	if resp.Results == nil {
		t.Fatal("results must never be nil")
	}
}
