package review

import (
	"time"

	"redline/api/internal/anchor"
)

type Category string

const (
	CategoryAccuracy   Category = "accuracy"
	CategoryClarity    Category = "clarity"
	CategoryCompliance Category = "compliance"
	CategoryStyle      Category = "style"
	CategoryQuestion   Category = "question"
)

var allowedCategories = map[Category]struct{}{
	CategoryAccuracy:   {},
	CategoryClarity:    {},
	CategoryCompliance: {},
	CategoryStyle:      {},
	CategoryQuestion:   {},
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var allowedSeverities = map[Severity]struct{}{
	SeverityLow:    {},
	SeverityMedium: {},
	SeverityHigh:   {},
}

type Status string

const (
	StatusOpen       Status = "open"
	StatusResolved   Status = "resolved"
	StatusNeedsRemap Status = "needs-remap"
)

// Annotation belongs to exactly one (docId, versionId) pair. A carried
// annotation is a new entity with a new id, never a moved one.
// Invariant: Status == StatusNeedsRemap exactly when the anchor is
// unanchored. Annotations are never hard-deleted.
type Annotation struct {
	ID         string        `json:"id"`
	DocID      string        `json:"docId"`
	VersionID  string        `json:"versionId"`
	Quote      string        `json:"quote"`
	Category   Category      `json:"category"`
	Severity   Severity      `json:"severity"`
	Status     Status        `json:"status"`
	AssigneeID *string       `json:"assigneeId"`
	Comment    string        `json:"comment"`
	Anchor     anchor.Anchor `json:"anchor"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

type ActivityType string

const (
	ActivityCreated         ActivityType = "created"
	ActivityResolved        ActivityType = "resolved"
	ActivityReopened        ActivityType = "reopened"
	ActivityAssigneeChanged ActivityType = "assignee-changed"
	ActivityVersionSwitched ActivityType = "version-switched"
	ActivityCarriedOver     ActivityType = "carried-over"
	ActivityRemapped        ActivityType = "remapped"
)

// ActivityItem is an immutable, append-only log record. The metadata
// payload is sufficient to render a summary without re-querying the
// store; assignee names deliberately stay as ids and resolve at render
// time. Ordering is strictly newest-first by insertion.
type ActivityItem struct {
	ID   string         `json:"id"`
	Type ActivityType   `json:"type"`
	At   time.Time      `json:"at"`
	Meta map[string]any `json:"meta"`
}

// Filter narrows an annotation listing for triage. Zero values match
// everything; AssigneeID "none" matches unassigned annotations.
type Filter struct {
	Status     Status
	Category   Category
	Severity   Severity
	AssigneeID string
}

func (f Filter) matches(a Annotation) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	switch f.AssigneeID {
	case "":
	case "none":
		if a.AssigneeID != nil {
			return false
		}
	default:
		if a.AssigneeID == nil || *a.AssigneeID != f.AssigneeID {
			return false
		}
	}
	return true
}

func NormalizeCategory(raw string) (Category, bool) {
	c := Category(raw)
	_, ok := allowedCategories[c]
	return c, ok
}

func NormalizeSeverity(raw string) (Severity, bool) {
	s := Severity(raw)
	_, ok := allowedSeverities[s]
	return s, ok
}
