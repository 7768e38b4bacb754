package docs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresProvider reads the same reference shapes from Postgres.
// Tables hold seed-style reference data only; the provider never writes.
type PostgresProvider struct {
	db *sql.DB
}

func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

func (p *PostgresProvider) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, title, subtitle FROM documents ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var items []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Subtitle); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	for i := range items {
		versions, err := p.loadVersions(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Versions = versions
	}
	return items, nil
}

func (p *PostgresProvider) GetDocument(ctx context.Context, docID string) (Document, error) {
	var doc Document
	err := p.db.QueryRowContext(ctx, `SELECT id, title, subtitle FROM documents WHERE id=$1`, docID).
		Scan(&doc.ID, &doc.Title, &doc.Subtitle)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	doc.Versions, err = p.loadVersions(ctx, doc.ID)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (p *PostgresProvider) GetVersion(ctx context.Context, docID, versionID string) (Version, error) {
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

func (p *PostgresProvider) loadVersions(ctx context.Context, docID string) ([]Version, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, label, created_at
		FROM document_versions
		WHERE document_id=$1
		ORDER BY created_at, id
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.ID, &v.Label, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	for i := range versions {
		sections, err := p.loadSections(ctx, docID, versions[i].ID)
		if err != nil {
			return nil, err
		}
		versions[i].Sections = sections
	}
	return versions, nil
}

func (p *PostgresProvider) loadSections(ctx context.Context, docID, versionID string) ([]Section, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT s.id, s.heading, par.body
		FROM version_sections s
		JOIN section_paragraphs par
		  ON par.document_id = s.document_id
		 AND par.version_id = s.version_id
		 AND par.section_id = s.id
		WHERE s.document_id=$1 AND s.version_id=$2
		ORDER BY s.sort_order, par.sort_order
	`, docID, versionID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []Section
	index := map[string]int{}
	for rows.Next() {
		var sectionID, heading, body string
		if err := rows.Scan(&sectionID, &heading, &body); err != nil {
			return nil, fmt.Errorf("scan section paragraph: %w", err)
		}
		at, ok := index[sectionID]
		if !ok {
			at = len(sections)
			index[sectionID] = at
			sections = append(sections, Section{ID: sectionID, Heading: heading})
		}
		sections[at].Paragraphs = append(sections[at].Paragraphs, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return sections, nil
}

func (p *PostgresProvider) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, display_name, role, COALESCE(password_hash, '')
		FROM reviewers
		ORDER BY display_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.PasswordHash); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (p *PostgresProvider) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := p.db.QueryRowContext(ctx, `
		SELECT id, display_name, role, COALESCE(password_hash, '')
		FROM reviewers WHERE id=$1
	`, userID).Scan(&u.ID, &u.Name, &u.Role, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (p *PostgresProvider) GetUserByName(ctx context.Context, name string) (User, error) {
	var u User
	err := p.db.QueryRowContext(ctx, `
		SELECT id, display_name, role, COALESCE(password_hash, '')
		FROM reviewers WHERE LOWER(display_name)=LOWER($1)
	`, name).Scan(&u.ID, &u.Name, &u.Role, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by name: %w", err)
	}
	return u, nil
}

// Ping reports database reachability for the readiness probe.
func (p *PostgresProvider) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
