package journal

import (
	"strings"
	"testing"
)

func TestRecordAndHistory(t *testing.T) {
	svc := New(t.TempDir())

	first, err := svc.Record("adr-142", []byte(`{"versionId":"v1"}`), "Avery", "Export review state at v1")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(first.Hash) != 7 {
		t.Fatalf("hash = %q, want short hash", first.Hash)
	}
	if first.Author != "Avery" {
		t.Fatalf("author = %q", first.Author)
	}

	second, err := svc.Record("adr-142", []byte(`{"versionId":"v2"}`), "Marcus K.", "Export review state at v2")
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := svc.History("adr-142", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history length = %d", len(entries))
	}
	// Newest first.
	if entries[0].Hash != second.Hash || entries[1].Hash != first.Hash {
		t.Fatalf("history order wrong: %+v", entries)
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := New(t.TempDir())
	for i := 0; i < 3; i++ {
		if _, err := svc.Record("adr-142", []byte(`{}`), "Avery", ""); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	entries, err := svc.History("adr-142", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("limited history length = %d", len(entries))
	}
}

func TestHistoryOfUnknownDocumentIsEmpty(t *testing.T) {
	svc := New(t.TempDir())
	entries, err := svc.History("never-exported", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %+v", entries)
	}
}

func TestPayloadAtCommit(t *testing.T) {
	svc := New(t.TempDir())

	entry, err := svc.Record("adr-142", []byte(`{"versionId":"v1"}`), "Avery", "Export review state at v1")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := svc.Record("adr-142", []byte(`{"versionId":"v2"}`), "Avery", "Export review state at v2"); err != nil {
		t.Fatalf("record: %v", err)
	}

	payload, err := svc.Payload("adr-142", entry.Hash)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if !strings.Contains(string(payload), `"v1"`) {
		t.Fatalf("payload at first commit = %s", payload)
	}
}

func TestDocumentsAreIsolated(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.Record("adr-142", []byte(`{}`), "Avery", ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	entries, err := svc.History("rfc-auth", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("histories must not leak across documents: %+v", entries)
	}
}
