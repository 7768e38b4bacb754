package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"redline/api/internal/archive"
	"redline/api/internal/auth"
	"redline/api/internal/config"
	"redline/api/internal/docs"
	"redline/api/internal/export"
	"redline/api/internal/highlight"
	"redline/api/internal/journal"
	"redline/api/internal/rbac"
	"redline/api/internal/search"
	"redline/api/internal/selection"
	"redline/api/internal/snapshot"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	Mode      rbac.Mode
	ExpiresAt time.Time
}

// CreateAnnotationInput carries a creation request: the raw selection
// reading plus the triage fields chosen in the composer.
type CreateAnnotationInput struct {
	Reading    selection.Reading `json:"reading"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	AssigneeID *string           `json:"assigneeId"`
	Comment    string            `json:"comment"`
}

// Service coordinates review sessions: one Store per document, the
// read-only reference data provider, and the optional side systems
// (search, journal, snapshots, archive, file export).
type Service struct {
	cfg      config.Config
	provider docs.Provider
	search   *search.Service
	journal  *journal.Service
	snaps    *snapshot.RedisStore
	archive  *archive.Service
	exporter *export.Service

	mu     sync.Mutex
	stores map[string]*Store
}

func NewService(
	cfg config.Config,
	provider docs.Provider,
	searchSvc *search.Service,
	journalSvc *journal.Service,
	snaps *snapshot.RedisStore,
	archiveSvc *archive.Service,
	exporter *export.Service,
) *Service {
	return &Service{
		cfg:      cfg,
		provider: provider,
		search:   searchSvc,
		journal:  journalSvc,
		snaps:    snaps,
		archive:  archiveSvc,
		exporter: exporter,
		stores:   make(map[string]*Store),
	}
}

// Ping reports provider readiness when the provider is backed by a
// live system. The seed provider always reports ready.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.provider.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Login authenticates a reviewer by name and password and issues a
// session token carrying the requested mode. A viewer-role reviewer
// never receives editor mode regardless of what was requested.
func (s *Service) Login(ctx context.Context, name, password, requestedMode string) (Session, error) {
	user, err := s.provider.GetUserByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid name or password", nil)
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid name or password", nil)
	}

	mode := rbac.Normalize(requestedMode)
	if user.Role != string(rbac.ModeEditor) {
		mode = rbac.ModeViewer
	}

	expiresAt := time.Now().Add(s.cfg.SessionTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.Name,
		Mode: string(mode),
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		Mode:      mode,
		ExpiresAt: expiresAt,
	}, nil
}

// SessionFromToken validates a bearer token into a session.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Mode:      rbac.Normalize(claims.Mode),
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Can(mode rbac.Mode, action rbac.Action) bool {
	return rbac.Can(mode, action)
}

// ListDocuments returns the reviewable documents with their versions.
func (s *Service) ListDocuments(ctx context.Context) ([]map[string]any, error) {
	documents, err := s.provider.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	payload := make([]map[string]any, 0, len(documents))
	for _, d := range documents {
		payload = append(payload, map[string]any{
			"id":       d.ID,
			"title":    d.Title,
			"subtitle": d.Subtitle,
			"versions": versionsPayload(d.Versions),
		})
	}
	return payload, nil
}

// storeFor returns the review store for a document, creating it on
// first access with the document's latest version selected.
func (s *Service) storeFor(ctx context.Context, docID string) (*Store, docs.Document, error) {
	doc, err := s.provider.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, docs.ErrNotFound) {
			return nil, docs.Document{}, domainError(http.StatusNotFound, "NOT_FOUND", "Document not found", nil)
		}
		return nil, docs.Document{}, fmt.Errorf("get document: %w", err)
	}
	if len(doc.Versions) == 0 {
		return nil, docs.Document{}, domainError(http.StatusNotFound, "NOT_FOUND", "Document has no versions", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.stores[docID]
	if !ok {
		store = NewStore(docID, doc.Versions[len(doc.Versions)-1].ID)
		s.stores[docID] = store
	}
	return store, doc, nil
}

// Workspace assembles everything the review screen needs for one
// document: rendered sections, the filtered annotation list, activity
// with resolved names, versions and the reviewer directory.
func (s *Service) Workspace(ctx context.Context, docID string, f Filter) (map[string]any, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, err
	}
	return s.workspace(ctx, store, doc, f)
}

func (s *Service) workspace(ctx context.Context, store *Store, doc docs.Document, f Filter) (map[string]any, error) {
	st := store.Snapshot()

	version, err := s.provider.GetVersion(ctx, doc.ID, st.VersionID)
	if err != nil {
		return nil, fmt.Errorf("get version %s: %w", st.VersionID, err)
	}

	users, err := s.provider.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	directory := make(map[string]docs.User, len(users))
	for _, u := range users {
		directory[u.ID] = u
	}

	annotations := st.Annotations(st.VersionID, f)

	sections := make([]map[string]any, 0, len(version.Sections))
	for _, sec := range version.Sections {
		sections = append(sections, map[string]any{
			"id":         sec.ID,
			"heading":    sec.Heading,
			"paragraphs": renderSection(sec, sectionSpans(annotations, sec.ID)),
		})
	}

	annotationViews := make([]map[string]any, 0, len(annotations))
	for _, a := range annotations {
		annotationViews = append(annotationViews, annotationPayload(a, directory))
	}

	activityViews := make([]map[string]any, 0, len(st.Activity))
	for _, item := range st.Activity {
		activityViews = append(activityViews, map[string]any{
			"id":      item.ID,
			"type":    item.Type,
			"at":      item.At,
			"meta":    item.Meta,
			"summary": activitySummary(item, directory),
		})
	}

	userViews := make([]map[string]any, 0, len(users))
	for _, u := range users {
		userViews = append(userViews, map[string]any{
			"id":   u.ID,
			"name": u.Name,
			"role": u.Role,
		})
	}

	return map[string]any{
		"document": map[string]any{
			"id":       doc.ID,
			"title":    doc.Title,
			"subtitle": doc.Subtitle,
		},
		"versionId":     st.VersionID,
		"versions":      versionsPayload(doc.Versions),
		"sections":      sections,
		"annotations":   annotationViews,
		"activity":      activityViews,
		"users":         userViews,
		"selectedId":    nullableID(st.SelectedID),
		"remapTargetId": nullableID(st.RemapTargetID),
	}, nil
}

// CreateAnnotation validates the selection reading into a draft and
// creates an Open annotation from it. An unusable selection is a
// silent no-op that returns the unchanged workspace, the same way a
// disabled composer ignores a click.
func (s *Service) CreateAnnotation(ctx context.Context, docID string, input CreateAnnotationInput, f Filter) (map[string]any, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, err
	}

	draft := selection.FromReading(input.Reading)
	if draft == nil {
		return s.workspace(ctx, store, doc, f)
	}

	st := store.Snapshot()
	version, err := s.provider.GetVersion(ctx, docID, st.VersionID)
	if err != nil {
		return nil, fmt.Errorf("get version %s: %w", st.VersionID, err)
	}
	if _, ok := version.Section(draft.Anchor.SectionID); !ok {
		return s.workspace(ctx, store, doc, f)
	}

	category, ok := NormalizeCategory(input.Category)
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "category must be one of accuracy, clarity, compliance, style, question", nil)
	}
	severity, ok := NormalizeSeverity(input.Severity)
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "severity must be one of low, medium, high", nil)
	}

	created := store.Create(*draft, category, severity, input.AssigneeID, strings.TrimSpace(input.Comment))
	s.indexAnnotation(created)
	s.indexLatestActivity(store)
	return s.workspace(ctx, store, doc, f)
}

// ToggleResolved flips an annotation between Open and Resolved.
func (s *Service) ToggleResolved(ctx context.Context, docID, annotationID string, f Filter) (map[string]any, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, err
	}
	if store.ToggleResolved(annotationID) {
		if a, ok := store.Snapshot().Find(annotationID); ok {
			s.indexAnnotation(a)
		}
		s.indexLatestActivity(store)
	}
	return s.workspace(ctx, store, doc, f)
}

// ChangeAssignee reassigns or unassigns an annotation.
func (s *Service) ChangeAssignee(ctx context.Context, docID, annotationID string, assigneeID *string, f Filter) (map[string]any, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, err
	}
	if assigneeID != nil {
		if _, err := s.provider.GetUser(ctx, *assigneeID); err != nil {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "assignee is not a known reviewer", nil)
		}
	}
	if store.ChangeAssignee(annotationID, assigneeID) {
		s.indexLatestActivity(store)
	}
	return s.workspace(ctx, store, doc, f)
}

// Select focuses an annotation; selecting an unknown id clears focus.
func (s *Service) Select(ctx context.Context, docID, annotationID string, f Filter) (map[string]any, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, err
	}
	store.Select(annotationID)
	return s.workspace(ctx, store, doc, f)
}

// StartRemap arms the remap workflow for one annotation.
func (s *Service) StartRemap(ctx context.Context, docID, annotationID string, f Filter) (map[string]any, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, err
	}
	store.StartRemap(annotationID)
	return s.workspace(ctx, store, doc, f)
}

// CancelRemap discards the armed remap target.
func (s *Service) CancelRemap(ctx context.Context, docID string, f Filter) (map[string]any, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, err
	}
	store.CancelRemap()
	return s.workspace(ctx, store, doc, f)
}

// ConfirmRemap applies the reading to the armed remap target. With no
// armed target, or an unusable reading, nothing changes.
func (s *Service) ConfirmRemap(ctx context.Context, docID string, reading selection.Reading, f Filter) (map[string]any, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, err
	}

	st := store.Snapshot()
	if st.RemapTargetID == "" {
		return s.workspace(ctx, store, doc, f)
	}
	draft := selection.FromReading(reading)
	if draft == nil {
		return s.workspace(ctx, store, doc, f)
	}
	version, err := s.provider.GetVersion(ctx, docID, st.VersionID)
	if err != nil {
		return nil, fmt.Errorf("get version %s: %w", st.VersionID, err)
	}
	if _, ok := version.Section(draft.Anchor.SectionID); !ok {
		return s.workspace(ctx, store, doc, f)
	}

	if store.Remap(st.RemapTargetID, *draft) {
		if a, ok := store.Snapshot().Find(st.RemapTargetID); ok {
			s.indexAnnotation(a)
		}
		s.indexLatestActivity(store)
	}
	return s.workspace(ctx, store, doc, f)
}

// SwitchVersion moves the session to another version of the document,
// optionally carrying unresolved annotations over from the one left.
func (s *Service) SwitchVersion(ctx context.Context, docID, toVersionID string, carry bool, f Filter) (map[string]any, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !doc.HasVersion(toVersionID) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Version not found", nil)
	}

	before := store.Snapshot().VersionID
	store.SwitchVersion(toVersionID, carry)
	if before != toVersionID {
		if carry {
			st := store.Snapshot()
			for _, a := range st.Buckets[toVersionID] {
				if a.Status == StatusNeedsRemap {
					s.indexAnnotation(a)
				}
			}
		}
		s.indexLatestActivity(store)
	}
	return s.workspace(ctx, store, doc, f)
}

// Export captures the session as a portable payload and records it in
// the journal and, when configured, the archive. Side systems failing
// never blocks the export itself.
func (s *Service) Export(ctx context.Context, docID, actor string) (Payload, error) {
	store, _, err := s.storeFor(ctx, docID)
	if err != nil {
		return Payload{}, err
	}
	payload := store.Export()

	raw, err := json.Marshal(payload)
	if err != nil {
		return Payload{}, fmt.Errorf("marshal export payload: %w", err)
	}
	if s.journal != nil {
		if _, err := s.journal.Record(docID, raw, actor, fmt.Sprintf("Export review state at %s", payload.VersionID)); err != nil {
			log.Printf("review: journal export for %s: %v", docID, err)
		}
	}
	if s.archive != nil {
		if _, err := s.archive.Upload(ctx, docID, raw); err != nil {
			log.Printf("review: archive export for %s: %v", docID, err)
		}
	}
	return payload, nil
}

// ExportFile renders the current version, highlights and annotation
// summary included, to a downloadable HTML, PDF or DOCX file.
func (s *Service) ExportFile(ctx context.Context, docID string, format export.Format) (*export.Result, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "File export not configured", nil)
	}

	st := store.Snapshot()
	version, err := s.provider.GetVersion(ctx, docID, st.VersionID)
	if err != nil {
		return nil, fmt.Errorf("get version %s: %w", st.VersionID, err)
	}
	users, err := s.provider.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	directory := make(map[string]docs.User, len(users))
	for _, u := range users {
		directory[u.ID] = u
	}

	annotations := st.Annotations(st.VersionID, Filter{})

	exportDoc := export.Document{
		Title:        doc.Title,
		Subtitle:     doc.Subtitle,
		VersionLabel: version.Label,
	}
	for _, sec := range version.Sections {
		exportDoc.Sections = append(exportDoc.Sections, export.Section{
			Heading:    sec.Heading,
			Paragraphs: renderSection(sec, sectionSpans(annotations, sec.ID)),
		})
	}

	infos := make([]export.AnnotationInfo, 0, len(annotations))
	for _, a := range annotations {
		assignee := ""
		if a.AssigneeID != nil {
			if u, ok := directory[*a.AssigneeID]; ok {
				assignee = u.Name
			}
		}
		infos = append(infos, export.AnnotationInfo{
			Quote:    a.Quote,
			Category: string(a.Category),
			Severity: string(a.Severity),
			Status:   string(a.Status),
			Assignee: assignee,
			Comment:  a.Comment,
		})
	}

	return s.exporter.Export(exportDoc, infos, format)
}

// Import replaces the whole session from an exported payload. An
// invalid payload is silently ignored and the prior state kept; the
// caller learns the outcome through the imported flag.
func (s *Service) Import(ctx context.Context, docID string, raw []byte, f Filter) (map[string]any, bool, error) {
	store, doc, err := s.storeFor(ctx, docID)
	if err != nil {
		return nil, false, err
	}

	imported := store.Import(raw, doc.HasVersion)
	if imported {
		s.reindex(store)
	}
	workspace, err := s.workspace(ctx, store, doc, f)
	if err != nil {
		return nil, imported, err
	}
	workspace["imported"] = imported
	return workspace, imported, nil
}

// Journal lists the export history of a document.
func (s *Service) Journal(ctx context.Context, docID string, limit int) ([]journal.Entry, error) {
	if _, _, err := s.storeFor(ctx, docID); err != nil {
		return nil, err
	}
	if s.journal == nil {
		return []journal.Entry{}, nil
	}
	return s.journal.History(docID, limit)
}

// JournalPayload reads one journaled export payload by commit hash.
func (s *Service) JournalPayload(ctx context.Context, docID, hash string) ([]byte, error) {
	if _, _, err := s.storeFor(ctx, docID); err != nil {
		return nil, err
	}
	if s.journal == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Journal not configured", nil)
	}
	raw, err := s.journal.Payload(docID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Journal entry not found", nil)
	}
	return raw, nil
}

// SaveSnapshot stores the current session under a name in Redis.
func (s *Service) SaveSnapshot(ctx context.Context, docID, name string) error {
	store, _, err := s.storeFor(ctx, docID)
	if err != nil {
		return err
	}
	if s.snaps == nil {
		return domainError(http.StatusServiceUnavailable, "SNAPSHOTS_UNAVAILABLE", "Snapshots not configured", nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	raw, err := json.Marshal(store.Export())
	if err != nil {
		return fmt.Errorf("marshal snapshot payload: %w", err)
	}
	return s.snaps.Save(ctx, docID, name, raw)
}

// ListSnapshots lists the saved snapshots of a document.
func (s *Service) ListSnapshots(ctx context.Context, docID string) ([]snapshot.Meta, error) {
	if _, _, err := s.storeFor(ctx, docID); err != nil {
		return nil, err
	}
	if s.snaps == nil {
		return []snapshot.Meta{}, nil
	}
	return s.snaps.List(ctx, docID)
}

// RestoreSnapshot feeds a saved snapshot through the import path, so
// restoring applies the same all-or-nothing validation.
func (s *Service) RestoreSnapshot(ctx context.Context, docID, name string, f Filter) (map[string]any, error) {
	if s.snaps == nil {
		return nil, domainError(http.StatusServiceUnavailable, "SNAPSHOTS_UNAVAILABLE", "Snapshots not configured", nil)
	}
	raw, err := s.snaps.Load(ctx, docID, name)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Snapshot not found", nil)
	}
	workspace, imported, err := s.Import(ctx, docID, raw, f)
	if err != nil {
		return nil, err
	}
	if !imported {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Snapshot payload is not importable", nil)
	}
	return workspace, nil
}

// DeleteSnapshot removes a named snapshot.
func (s *Service) DeleteSnapshot(ctx context.Context, docID, name string) error {
	if s.snaps == nil {
		return domainError(http.StatusServiceUnavailable, "SNAPSHOTS_UNAVAILABLE", "Snapshots not configured", nil)
	}
	return s.snaps.Delete(ctx, docID, name)
}

// ListArchive lists archived export objects for a document.
func (s *Service) ListArchive(ctx context.Context, docID string, limit int) ([]archive.Object, error) {
	if _, _, err := s.storeFor(ctx, docID); err != nil {
		return nil, err
	}
	if s.archive == nil {
		return []archive.Object{}, nil
	}
	return s.archive.List(ctx, docID, limit)
}

// Search finds annotations and activity by text.
func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

func (s *Service) indexAnnotation(a Annotation) {
	if s.search == nil {
		return
	}
	s.search.IndexAnnotation(annotationRecord(a))
}

// indexLatestActivity pushes the newest activity entry into search.
// Activity is newest-first, so the head is the entry just recorded.
func (s *Service) indexLatestActivity(store *Store) {
	if s.search == nil {
		return
	}
	st := store.Snapshot()
	if len(st.Activity) == 0 {
		return
	}
	item := st.Activity[0]
	s.search.IndexActivity(search.ActivityRecord{
		ID:      item.ID,
		DocID:   store.docID,
		Type:    string(item.Type),
		Summary: activitySummary(item, nil),
	})
}

// reindex rebuilds the search index from the whole store state, used
// after import replaces the session wholesale.
func (s *Service) reindex(store *Store) {
	if s.search == nil {
		return
	}
	st := store.Snapshot()
	annotations := make([]search.AnnotationRecord, 0)
	for _, bucket := range st.Buckets {
		for _, a := range bucket {
			annotations = append(annotations, annotationRecord(a))
		}
	}
	activity := make([]search.ActivityRecord, 0, len(st.Activity))
	for _, item := range st.Activity {
		activity = append(activity, search.ActivityRecord{
			ID:      item.ID,
			DocID:   store.docID,
			Type:    string(item.Type),
			Summary: activitySummary(item, nil),
		})
	}
	s.search.ReindexAll(annotations, activity)
}

func annotationRecord(a Annotation) search.AnnotationRecord {
	return search.AnnotationRecord{
		ID:        a.ID,
		DocID:     a.DocID,
		VersionID: a.VersionID,
		Quote:     a.Quote,
		Comment:   a.Comment,
		Category:  string(a.Category),
		Severity:  string(a.Severity),
		Status:    string(a.Status),
	}
}

// sectionSpans projects the annotations anchored in a section onto
// highlight spans. Unanchored annotations contribute nothing.
func sectionSpans(annotations []Annotation, sectionID string) []highlight.Span {
	spans := make([]highlight.Span, 0, len(annotations))
	for _, a := range annotations {
		if !a.Anchor.IsTextRange() || a.Anchor.SectionID != sectionID {
			continue
		}
		spans = append(spans, highlight.Span{
			ID:     a.ID,
			Start:  a.Anchor.Start,
			End:    a.Anchor.End,
			Status: string(a.Status),
		})
	}
	return spans
}

// renderSection renders a section's paragraphs with highlights.
// Anchors are section-scoped: the paragraphs share one offset space,
// joined by single newline separators, so the joined text is rendered
// once and the fragment run split back at newline boundaries.
func renderSection(sec docs.Section, spans []highlight.Span) [][]highlight.Fragment {
	joined := strings.Join(sec.Paragraphs, "\n")
	fragments := highlight.Render(joined, spans)

	paragraphs := make([][]highlight.Fragment, 0, len(sec.Paragraphs))
	current := []highlight.Fragment{}
	for _, f := range fragments {
		parts := strings.Split(f.Text, "\n")
		for i, part := range parts {
			if i > 0 {
				paragraphs = append(paragraphs, current)
				current = []highlight.Fragment{}
			}
			if part == "" {
				continue
			}
			current = append(current, highlight.Fragment{
				Text:         part,
				AnnotationID: f.AnnotationID,
				Status:       f.Status,
			})
		}
	}
	paragraphs = append(paragraphs, current)
	for len(paragraphs) < len(sec.Paragraphs) {
		paragraphs = append(paragraphs, []highlight.Fragment{})
	}
	return paragraphs
}

func annotationPayload(a Annotation, directory map[string]docs.User) map[string]any {
	var assigneeID any
	var assigneeName any
	if a.AssigneeID != nil {
		assigneeID = *a.AssigneeID
		if u, ok := directory[*a.AssigneeID]; ok {
			assigneeName = u.Name
		}
	}
	return map[string]any{
		"id":           a.ID,
		"docId":        a.DocID,
		"versionId":    a.VersionID,
		"quote":        a.Quote,
		"category":     a.Category,
		"severity":     a.Severity,
		"status":       a.Status,
		"assigneeId":   assigneeID,
		"assigneeName": assigneeName,
		"comment":      a.Comment,
		"anchor":       a.Anchor,
		"createdAt":    a.CreatedAt,
		"updatedAt":    a.UpdatedAt,
	}
}

// activitySummary renders a human-readable line for one activity
// entry. Assignee ids resolve against the directory at render time, so
// a renamed reviewer shows the current name in old entries.
func activitySummary(item ActivityItem, directory map[string]docs.User) string {
	meta := item.Meta
	switch item.Type {
	case ActivityCreated:
		return fmt.Sprintf("Annotation created on %q", metaString(meta, "quote"))
	case ActivityResolved:
		return "Annotation resolved"
	case ActivityReopened:
		return "Annotation reopened"
	case ActivityAssigneeChanged:
		id := metaString(meta, "assigneeId")
		if id == "" {
			return "Assignee cleared"
		}
		if u, ok := directory[id]; ok {
			return fmt.Sprintf("Assigned to %s", u.Name)
		}
		return fmt.Sprintf("Assigned to %s", id)
	case ActivityVersionSwitched:
		return fmt.Sprintf("Switched from %s to %s", metaString(meta, "from"), metaString(meta, "to"))
	case ActivityCarriedOver:
		return fmt.Sprintf("Carried %v annotations from %s to %s", meta["count"], metaString(meta, "from"), metaString(meta, "to"))
	case ActivityRemapped:
		return fmt.Sprintf("Annotation remapped to %s [%v, %v)", metaString(meta, "sectionId"), meta["start"], meta["end"])
	default:
		return string(item.Type)
	}
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func versionsPayload(versions []docs.Version) []map[string]any {
	payload := make([]map[string]any, 0, len(versions))
	for _, v := range versions {
		payload = append(payload, map[string]any{
			"id":        v.ID,
			"label":     v.Label,
			"createdAt": v.CreatedAt,
		})
	}
	return payload
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
