package review

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"redline/api/internal/auth"
	"redline/api/internal/export"
	"redline/api/internal/rbac"
	"redline/api/internal/search"
	"redline/api/internal/selection"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"docs": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["docs"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/login" {
		var body struct {
			Name     string `json:"name"`
			Password string `json:"password"`
			Mode     string `json:"mode"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Login(r.Context(), body.Name, body.Password, body.Mode)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":     session.Token,
			"userId":    session.UserID,
			"userName":  session.UserName,
			"mode":      session.Mode,
			"expiresAt": session.ExpiresAt.Unix(),
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userId":        session.UserID,
			"userName":      session.UserName,
			"mode":          session.Mode,
		})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		q := search.Query{
			Text:       strings.TrimSpace(r.URL.Query().Get("q")),
			FilterType: search.ResultType(strings.TrimSpace(r.URL.Query().Get("type"))),
			Status:     strings.TrimSpace(r.URL.Query().Get("status")),
			Category:   strings.TrimSpace(r.URL.Query().Get("category")),
		}
		var err error
		if q.Limit, err = queryInt(r, "limit", 20); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		if q.Offset, err = queryInt(r, "offset", 0); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		writeJSON(w, http.StatusOK, s.service.Search(q))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/documents" {
		documents, err := s.service.ListDocuments(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": documents})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 3 || parts[0] != "api" || parts[1] != "documents" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	docID := parts[2]
	rest := parts[3:]
	filter := filterFromQuery(r)

	// GET /api/documents/{id}/review
	if r.Method == http.MethodGet && len(rest) == 1 && rest[0] == "review" {
		s.respond(w)(s.service.Workspace(r.Context(), docID, filter))
		return
	}

	// POST /api/documents/{id}/annotations
	if r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "annotations" {
		if !s.requireAction(w, session, rbac.ActionMutate) {
			return
		}
		var body CreateAnnotationInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w)(s.service.CreateAnnotation(r.Context(), docID, body, filter))
		return
	}

	// POST /api/documents/{id}/annotations/{annID}/toggle-resolved
	if r.Method == http.MethodPost && len(rest) == 3 && rest[0] == "annotations" && rest[2] == "toggle-resolved" {
		if !s.requireAction(w, session, rbac.ActionMutate) {
			return
		}
		s.respond(w)(s.service.ToggleResolved(r.Context(), docID, rest[1], filter))
		return
	}

	// PUT /api/documents/{id}/annotations/{annID}/assignee
	if r.Method == http.MethodPut && len(rest) == 3 && rest[0] == "annotations" && rest[2] == "assignee" {
		if !s.requireAction(w, session, rbac.ActionMutate) {
			return
		}
		var body struct {
			AssigneeID *string `json:"assigneeId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w)(s.service.ChangeAssignee(r.Context(), docID, rest[1], body.AssigneeID, filter))
		return
	}

	// POST /api/documents/{id}/annotations/{annID}/select
	if r.Method == http.MethodPost && len(rest) == 3 && rest[0] == "annotations" && rest[2] == "select" {
		s.respond(w)(s.service.Select(r.Context(), docID, rest[1], filter))
		return
	}

	// POST /api/documents/{id}/annotations/{annID}/remap
	if r.Method == http.MethodPost && len(rest) == 3 && rest[0] == "annotations" && rest[2] == "remap" {
		if !s.requireAction(w, session, rbac.ActionMutate) {
			return
		}
		s.respond(w)(s.service.StartRemap(r.Context(), docID, rest[1], filter))
		return
	}

	// POST /api/documents/{id}/remap/cancel
	if r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "remap" && rest[1] == "cancel" {
		if !s.requireAction(w, session, rbac.ActionMutate) {
			return
		}
		s.respond(w)(s.service.CancelRemap(r.Context(), docID, filter))
		return
	}

	// POST /api/documents/{id}/remap/confirm
	if r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "remap" && rest[1] == "confirm" {
		if !s.requireAction(w, session, rbac.ActionMutate) {
			return
		}
		var body struct {
			Reading selection.Reading `json:"reading"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w)(s.service.ConfirmRemap(r.Context(), docID, body.Reading, filter))
		return
	}

	// POST /api/documents/{id}/version
	if r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "version" {
		var body struct {
			VersionID string `json:"versionId"`
			Carry     bool   `json:"carry"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		// Viewer mode may navigate versions but never spawns
		// carried annotations.
		carry := body.Carry && s.service.Can(session.Mode, rbac.ActionMutate)
		s.respond(w)(s.service.SwitchVersion(r.Context(), docID, body.VersionID, carry, filter))
		return
	}

	// GET /api/documents/{id}/export
	if r.Method == http.MethodGet && len(rest) == 1 && rest[0] == "export" {
		if !s.requireAction(w, session, rbac.ActionExport) {
			return
		}
		payload, err := s.service.Export(r.Context(), docID, session.UserName)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	// GET /api/documents/{id}/export/file?format=html|pdf|docx
	if r.Method == http.MethodGet && len(rest) == 2 && rest[0] == "export" && rest[1] == "file" {
		if !s.requireAction(w, session, rbac.ActionExport) {
			return
		}
		format := export.Format(strings.TrimSpace(r.URL.Query().Get("format")))
		if format == "" {
			format = export.FormatHTML
		}
		result, err := s.service.ExportFile(r.Context(), docID, format)
		if err != nil {
			status, code, message, details := mapFileExportError(err)
			writeError(w, status, code, message, details)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return
	}

	// POST /api/documents/{id}/import
	if r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "import" {
		if !s.requireAction(w, session, rbac.ActionMutate) {
			return
		}
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "payload too large or unreadable", nil)
			return
		}
		workspace, _, err := s.service.Import(r.Context(), docID, raw, filter)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, workspace)
		return
	}

	// GET /api/documents/{id}/journal
	if r.Method == http.MethodGet && len(rest) == 1 && rest[0] == "journal" {
		limit, err := queryInt(r, "limit", 50)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		entries, err := s.service.Journal(r.Context(), docID, limit)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
		return
	}

	// GET /api/documents/{id}/journal/{hash}
	if r.Method == http.MethodGet && len(rest) == 2 && rest[0] == "journal" {
		raw, err := s.service.JournalPayload(r.Context(), docID, rest[1])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
		return
	}

	// GET /api/documents/{id}/snapshots
	if r.Method == http.MethodGet && len(rest) == 1 && rest[0] == "snapshots" {
		metas, err := s.service.ListSnapshots(r.Context(), docID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"snapshots": metas})
		return
	}

	// POST /api/documents/{id}/snapshots
	if r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "snapshots" {
		if !s.requireAction(w, session, rbac.ActionMutate) {
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.SaveSnapshot(r.Context(), docID, body.Name); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "name": strings.TrimSpace(body.Name)})
		return
	}

	// POST /api/documents/{id}/snapshots/{name}/restore
	if r.Method == http.MethodPost && len(rest) == 3 && rest[0] == "snapshots" && rest[2] == "restore" {
		if !s.requireAction(w, session, rbac.ActionMutate) {
			return
		}
		s.respond(w)(s.service.RestoreSnapshot(r.Context(), docID, rest[1], filter))
		return
	}

	// DELETE /api/documents/{id}/snapshots/{name}
	if r.Method == http.MethodDelete && len(rest) == 2 && rest[0] == "snapshots" {
		if !s.requireAction(w, session, rbac.ActionMutate) {
			return
		}
		if err := s.service.DeleteSnapshot(r.Context(), docID, rest[1]); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	// GET /api/documents/{id}/archive
	if r.Method == http.MethodGet && len(rest) == 1 && rest[0] == "archive" {
		limit, err := queryInt(r, "limit", 50)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		objects, err := s.service.ListArchive(r.Context(), docID, limit)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"objects": objects})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// respond writes a workspace-or-error result.
func (s *HTTPServer) respond(w http.ResponseWriter) func(map[string]any, error) {
	return func(payload map[string]any, err error) {
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (s *HTTPServer) requireAction(w http.ResponseWriter, session Session, action rbac.Action) bool {
	if !s.service.Can(session.Mode, action) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return false
	}
	return true
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func filterFromQuery(r *http.Request) Filter {
	return Filter{
		Status:     Status(strings.TrimSpace(r.URL.Query().Get("status"))),
		Category:   Category(strings.TrimSpace(r.URL.Query().Get("category"))),
		Severity:   Severity(strings.TrimSpace(r.URL.Query().Get("severity"))),
		AssigneeID: strings.TrimSpace(r.URL.Query().Get("assignee")),
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func mapFileExportError(err error) (status int, code, message string, details any) {
	if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	}
	if errors.Is(err, export.ErrUnsupportedFormat) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be one of html, pdf, docx", nil
	}
	return mapError(err)
}
