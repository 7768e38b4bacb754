// Package search finds annotations and activity by text. Meilisearch
// is used when configured and healthy; an in-memory index answers
// otherwise, so search always works against seed data.
package search

type ResultType string

const (
	ResultAnnotation ResultType = "annotation"
	ResultActivity   ResultType = "activity"
)

type Query struct {
	Text       string
	FilterType ResultType
	Status     string
	Category   string
	Limit      int
	Offset     int
}

type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	DocID     string     `json:"docId"`
	VersionID string     `json:"versionId,omitempty"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	Status    string     `json:"status,omitempty"`
	Category  string     `json:"category,omitempty"`
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// AnnotationRecord is the indexed projection of an annotation.
type AnnotationRecord struct {
	ID        string `json:"id"`
	DocID     string `json:"docId"`
	VersionID string `json:"versionId"`
	Quote     string `json:"quote"`
	Comment   string `json:"comment"`
	Category  string `json:"category"`
	Severity  string `json:"severity"`
	Status    string `json:"status"`
}

// ActivityRecord is the indexed projection of an activity log entry.
type ActivityRecord struct {
	ID      string `json:"id"`
	DocID   string `json:"docId"`
	Type    string `json:"type"`
	Summary string `json:"summary"`
}
