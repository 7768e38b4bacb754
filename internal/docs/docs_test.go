package docs

import (
	"context"
	"errors"
	"testing"
)

func TestSeedProviderLookups(t *testing.T) {
	p := NewSeedProvider()
	ctx := context.Background()

	documents, err := p.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(documents) != 2 {
		t.Fatalf("document count = %d", len(documents))
	}

	doc, err := p.GetDocument(ctx, "adr-142")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if len(doc.Versions) != 3 {
		t.Fatalf("version count = %d", len(doc.Versions))
	}

	if _, err := p.GetDocument(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	version, err := p.GetVersion(ctx, "adr-142", "v1")
	if err != nil {
		t.Fatalf("get version: %v", err)
	}
	if version.Label != "Draft 1" {
		t.Fatalf("label = %q", version.Label)
	}
	if _, err := p.GetVersion(ctx, "adr-142", "v9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSeedFixtureAnchorsTheTierParagraph(t *testing.T) {
	p := NewSeedProvider()
	version, err := p.GetVersion(context.Background(), "adr-142", "v1")
	if err != nil {
		t.Fatalf("get version: %v", err)
	}
	section, ok := version.Section("s2")
	if !ok {
		t.Fatal("section s2 missing")
	}
	// The canonical demo selection: [10, 19) in s2's offset space.
	if got := section.Paragraphs[0][10:19]; got != "services." {
		t.Fatalf("fixture drifted, offsets [10,19) = %q", got)
	}
}

func TestUserLookups(t *testing.T) {
	p := NewSeedProvider()
	ctx := context.Background()

	user, err := p.GetUserByName(ctx, "avery")
	if err != nil {
		t.Fatalf("lookup is case-insensitive: %v", err)
	}
	if user.ID != "u-avery" || user.Role != "editor" {
		t.Fatalf("user wrong: %+v", user)
	}

	if _, err := p.GetUser(ctx, "u-sarah"); err != nil {
		t.Fatalf("get user: %v", err)
	}
	if _, err := p.GetUserByName(ctx, "Nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVersionNavigationHelpers(t *testing.T) {
	p := NewSeedProvider()
	doc, err := p.GetDocument(context.Background(), "adr-142")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}

	prev, ok := doc.PreviousVersion("v2")
	if !ok || prev.ID != "v1" {
		t.Fatalf("previous of v2 = %+v, %v", prev, ok)
	}
	if _, ok := doc.PreviousVersion("v1"); ok {
		t.Fatal("first version has no predecessor")
	}
	if _, ok := doc.PreviousVersion("v9"); ok {
		t.Fatal("unknown version has no predecessor")
	}

	if !doc.HasVersion("v3") || doc.HasVersion("v9") {
		t.Fatal("HasVersion wrong")
	}
}
