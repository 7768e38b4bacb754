package docs

import (
	"context"
	"sort"
	"strings"
	"time"
)

// SeedProvider serves a fixed in-memory corpus. It is the default
// backend when no database is configured and the fixture source for
// tests.
type SeedProvider struct {
	documents []Document
	users     []User
}

func NewSeedProvider() *SeedProvider {
	return &SeedProvider{documents: seedDocuments(), users: seedUsers()}
}

// NewStaticProvider wraps caller-supplied reference data, mainly for tests.
func NewStaticProvider(documents []Document, users []User) *SeedProvider {
	return &SeedProvider{documents: documents, users: users}
}

func (p *SeedProvider) ListDocuments(context.Context) ([]Document, error) {
	items := make([]Document, len(p.documents))
	copy(items, p.documents)
	return items, nil
}

func (p *SeedProvider) GetDocument(_ context.Context, docID string) (Document, error) {
	for _, d := range p.documents {
		if d.ID == docID {
			return d, nil
		}
	}
	return Document{}, ErrNotFound
}

func (p *SeedProvider) GetVersion(ctx context.Context, docID, versionID string) (Version, error) {
	doc, err := p.GetDocument(ctx, docID)
	if err != nil {
		return Version{}, err
	}
	for _, v := range doc.Versions {
		if v.ID == versionID {
			return v, nil
		}
	}
	return Version{}, ErrNotFound
}

func (p *SeedProvider) ListUsers(context.Context) ([]User, error) {
	items := make([]User, len(p.users))
	copy(items, p.users)
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (p *SeedProvider) GetUser(_ context.Context, userID string) (User, error) {
	for _, u := range p.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (p *SeedProvider) GetUserByName(_ context.Context, name string) (User, error) {
	for _, u := range p.users {
		if strings.EqualFold(u.Name, name) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func seedUsers() []User {
	return []User{
		{ID: "u-avery", Name: "Avery", Role: "editor"},
		{ID: "u-marcus", Name: "Marcus K.", Role: "editor"},
		{ID: "u-jamie", Name: "Jamie L.", Role: "editor"},
		{ID: "u-sarah", Name: "Sarah R.", Role: "viewer"},
	}
}

func seedDocuments() []Document {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	opsV1 := Version{
		ID:        "v1",
		Label:     "Draft 1",
		CreatedAt: base,
		Sections: []Section{
			{
				ID:      "s1",
				Heading: "Purpose",
				Paragraphs: []string{
					"Rate limiting protects infrastructure from abuse, preserves fairness, and maintains availability for every tenant.",
					"This policy applies to all public and internal API surfaces.",
				},
			},
			{
				ID:      "s2",
				Heading: "Tier Definitions",
				Paragraphs: []string{
					"Inventory services. Each deployment target reports capacity to the scheduler before rollout.",
					"Standard tier consumers are limited to 2,000 requests per minute.",
				},
			},
			{
				ID:      "s3",
				Heading: "Enforcement",
				Paragraphs: []string{
					"Exceeded limits return 429 with rate-limit headers and retry guidance.",
				},
			},
		},
	}

	opsV2 := Version{
		ID:        "v2",
		Label:     "Draft 2",
		CreatedAt: base.AddDate(0, 0, 7),
		Sections: []Section{
			{
				ID:      "s1",
				Heading: "Purpose",
				Paragraphs: []string{
					"Rate limiting protects infrastructure from abuse and maintains fairness for all tenants, including DDoS mitigation.",
					"This policy applies to all public and internal API surfaces.",
				},
			},
			{
				ID:      "s2",
				Heading: "Tier Definitions",
				Paragraphs: []string{
					"Inventory of platform services. Each deployment target reports capacity to the scheduler before rollout.",
					"Standard tier consumers are limited to 4,000 requests per minute pending load-testing evidence.",
				},
			},
			{
				ID:      "s3",
				Heading: "Enforcement",
				Paragraphs: []string{
					"Exceeded limits return 429 with retry guidance and per-key concurrent WebSocket caps.",
				},
			},
		},
	}

	opsV3 := Version{
		ID:        "v3",
		Label:     "Review candidate",
		CreatedAt: base.AddDate(0, 0, 14),
		Sections: []Section{
			{
				ID:      "s1",
				Heading: "Purpose",
				Paragraphs: []string{
					"Rate limiting protects infrastructure from abuse and maintains fairness for all tenants, including DDoS mitigation.",
				},
			},
			{
				ID:      "s2",
				Heading: "Tier Definitions",
				Paragraphs: []string{
					"Inventory of platform services. Capacity is reported to the scheduler before each rollout window.",
					"Standard tier consumers are limited to 4,000 requests per minute, backed by the Q2 load test report.",
				},
			},
			{
				ID:      "s3",
				Heading: "Enforcement",
				Paragraphs: []string{
					"Exceeded limits return 429 with retry guidance. Jitter algorithm specifics live in the SDK docs.",
				},
			},
		},
	}

	authV1 := Version{
		ID:        "v1",
		Label:     "Proposal",
		CreatedAt: base.AddDate(0, 0, 2),
		Sections: []Section{
			{
				ID:      "s1",
				Heading: "Session Flow",
				Paragraphs: []string{
					"Authentication uses short-lived access tokens with rotating refresh tokens.",
					"Magic link sign-in is offered when no password is configured.",
				},
			},
			{
				ID:      "s2",
				Heading: "Revocation",
				Paragraphs: []string{
					"Refresh tokens are revoked on logout and rotated on every use.",
				},
			},
		},
	}

	return []Document{
		{
			ID:       "adr-142",
			Title:    "ADR-142: Event Retention Model",
			Subtitle: "Governing fair use and abuse prevention across all public and internal APIs.",
			Versions: []Version{opsV1, opsV2, opsV3},
		},
		{
			ID:       "rfc-auth",
			Title:    "RFC: OAuth and Magic Link Session Flow",
			Subtitle: "Authentication and session lifecycle proposal.",
			Versions: []Version{authV1},
		},
	}
}
