// Package docs serves the read-only reference data the review service
// operates over: documents with ordered immutable versions, and the
// reviewer directory. Providers never mutate; review state lives
// elsewhere.
package docs

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("docs: not found")

type User struct {
	ID           string
	Name         string
	Role         string
	PasswordHash string
}

// Section is one titled block of paragraphs. Annotation anchors are
// section-scoped: all paragraphs of a section share one offset space
// for highlight lookup.
type Section struct {
	ID         string
	Heading    string
	Paragraphs []string
}

type Version struct {
	ID        string
	Label     string
	CreatedAt time.Time
	Sections  []Section
}

type Document struct {
	ID       string
	Title    string
	Subtitle string
	Versions []Version
}

// Provider supplies reference data. Versions are never mutated once
// created; callers may hold returned values across requests.
type Provider interface {
	ListDocuments(ctx context.Context) ([]Document, error)
	GetDocument(ctx context.Context, docID string) (Document, error)
	GetVersion(ctx context.Context, docID, versionID string) (Version, error)
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, userID string) (User, error)
	GetUserByName(ctx context.Context, name string) (User, error)
}

// Section returns the section with the given id, if present.
func (v Version) Section(sectionID string) (Section, bool) {
	for _, s := range v.Sections {
		if s.ID == sectionID {
			return s, true
		}
	}
	return Section{}, false
}

// PreviousVersion returns the version ordered immediately before
// versionID, used by the carry-over flow.
func (d Document) PreviousVersion(versionID string) (Version, bool) {
	for i, v := range d.Versions {
		if v.ID == versionID {
			if i == 0 {
				return Version{}, false
			}
			return d.Versions[i-1], true
		}
	}
	return Version{}, false
}

// HasVersion reports whether the document carries the given version.
func (d Document) HasVersion(versionID string) bool {
	for _, v := range d.Versions {
		if v.ID == versionID {
			return true
		}
	}
	return false
}
