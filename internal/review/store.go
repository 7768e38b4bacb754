package review

import (
	"encoding/json"
	"sync"
	"time"

	"redline/api/internal/anchor"
	"redline/api/internal/selection"
	"redline/api/internal/util"
)

// SchemaVersion tags exported payloads; import rejects anything else.
const SchemaVersion = "review-mini-v1"

// State is one consistent view of a document's review session. Buckets
// map version ids to newest-first annotation lists; Activity is
// newest-first. The store replaces the whole value on every mutation,
// so a snapshot handed out between mutations never tears.
type State struct {
	VersionID     string
	Buckets       map[string][]Annotation
	Activity      []ActivityItem
	SelectedID    string
	RemapTargetID string
}

// Payload is the export/import wire format.
type Payload struct {
	Schema               string                  `json:"schema"`
	ExportedAt           time.Time               `json:"exportedAt"`
	DocID                string                  `json:"docId"`
	VersionID            string                  `json:"versionId"`
	AnnotationsByVersion map[string][]Annotation `json:"annotationsByVersion"`
	Activity             []ActivityItem          `json:"activity"`
}

// Store owns all annotations and activity for one document for the
// lifetime of the session. Mutations serialize through one mutex and
// run to completion, the service-side analog of a single UI event
// thread; invalid inputs degrade to inert no-ops rather than errors.
type Store struct {
	docID string

	mu    sync.Mutex
	state State

	now   func() time.Time
	newID func(prefix string) string
}

func NewStore(docID, versionID string) *Store {
	return &Store{
		docID: docID,
		state: State{
			VersionID: versionID,
			Buckets:   map[string][]Annotation{},
			Activity:  []ActivityItem{},
		},
		now:   time.Now,
		newID: util.NewID,
	}
}

// Snapshot returns the current state. Callers may read it freely; the
// store never mutates handed-out values.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Annotations lists the bucket for a version, newest first, narrowed
// by the filter.
func (st State) Annotations(versionID string, f Filter) []Annotation {
	items := make([]Annotation, 0, len(st.Buckets[versionID]))
	for _, a := range st.Buckets[versionID] {
		if f.matches(a) {
			items = append(items, a)
		}
	}
	return items
}

// Find looks an annotation up by id across every version bucket.
func (st State) Find(id string) (Annotation, bool) {
	for _, bucket := range st.Buckets {
		for _, a := range bucket {
			if a.ID == id {
				return a, true
			}
		}
	}
	return Annotation{}, false
}

// Create adds an Open annotation from a validated draft to the current
// version's bucket and selects it.
func (s *Store) Create(draft selection.Draft, category Category, severity Severity, assigneeID *string, comment string) Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	created := Annotation{
		ID:         s.newID("ann"),
		DocID:      s.docID,
		VersionID:  s.state.VersionID,
		Quote:      draft.Quote,
		Category:   category,
		Severity:   severity,
		Status:     StatusOpen,
		AssigneeID: assigneeID,
		Comment:    comment,
		Anchor:     draft.Anchor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	next := s.state
	next.Buckets = prependToBucket(s.state.Buckets, s.state.VersionID, created)
	next.SelectedID = created.ID
	next.RemapTargetID = ""
	next.Activity = prependActivity(s.state.Activity, s.activity(ActivityCreated, map[string]any{
		"annotationId": created.ID,
		"category":     string(category),
		"severity":     string(severity),
		"quote":        draft.Quote,
		"sectionId":    draft.Anchor.SectionID,
	}))
	s.state = next
	return created
}

// ToggleResolved flips Open and Resolved. Resolution is blocked while
// the annotation needs remap; unknown ids are ignored.
func (s *Store) ToggleResolved(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.state.Find(id)
	if !ok || current.Status == StatusNeedsRemap {
		return false
	}

	activityType := ActivityResolved
	nextStatus := StatusResolved
	if current.Status == StatusResolved {
		activityType = ActivityReopened
		nextStatus = StatusOpen
	}

	next := s.state
	next.Buckets = replaceInBucket(s.state.Buckets, current.VersionID, id, func(a Annotation) Annotation {
		a.Status = nextStatus
		a.UpdatedAt = s.now()
		return a
	})
	next.Activity = prependActivity(s.state.Activity, s.activity(activityType, map[string]any{
		"annotationId": id,
	}))
	s.state = next
	return true
}

// ChangeAssignee records the id only; the display name resolves at
// render time against the user directory.
func (s *Store) ChangeAssignee(id string, assigneeID *string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.state.Find(id)
	if !ok {
		return false
	}

	var meta any
	if assigneeID != nil {
		meta = *assigneeID
	}
	next := s.state
	next.Buckets = replaceInBucket(s.state.Buckets, current.VersionID, id, func(a Annotation) Annotation {
		a.AssigneeID = assigneeID
		a.UpdatedAt = s.now()
		return a
	})
	next.Activity = prependActivity(s.state.Activity, s.activity(ActivityAssigneeChanged, map[string]any{
		"annotationId": id,
		"assigneeId":   meta,
	}))
	s.state = next
	return true
}

// Remap replaces the quote and anchor with the draft's values and
// forces the annotation back to Open from any prior status.
func (s *Store) Remap(id string, draft selection.Draft) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.state.Find(id)
	if !ok {
		return false
	}

	next := s.state
	next.Buckets = replaceInBucket(s.state.Buckets, current.VersionID, id, func(a Annotation) Annotation {
		a.Quote = draft.Quote
		a.Anchor = draft.Anchor
		a.Status = StatusOpen
		a.UpdatedAt = s.now()
		return a
	})
	if next.RemapTargetID == id {
		next.RemapTargetID = ""
	}
	next.SelectedID = id
	next.Activity = prependActivity(s.state.Activity, s.activity(ActivityRemapped, map[string]any{
		"annotationId": id,
		"sectionId":    draft.Anchor.SectionID,
		"start":        draft.Anchor.Start,
		"end":          draft.Anchor.End,
	}))
	s.state = next
	return true
}

// SwitchVersion moves the session to another version, optionally
// carrying unresolved annotations over from the version being left.
func (s *Store) SwitchVersion(toVersionID string, carry bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state.VersionID
	if from == toVersionID {
		return
	}

	next := s.state
	next.VersionID = toVersionID
	next.SelectedID = ""
	next.RemapTargetID = ""
	next.Activity = prependActivity(s.state.Activity, s.activity(ActivityVersionSwitched, map[string]any{
		"from": from,
		"to":   toVersionID,
	}))
	s.state = next

	if carry {
		s.carryOverLocked(from, toVersionID)
	}
}

// CarryOver clones every non-Resolved annotation of the source version
// into the target version as a new unanchored NeedsRemap entity. The
// source bucket is untouched: carry-over is a copy, not a move.
func (s *Store) CarryOver(fromVersionID, toVersionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carryOverLocked(fromVersionID, toVersionID)
}

func (s *Store) carryOverLocked(fromVersionID, toVersionID string) int {
	if fromVersionID == "" || fromVersionID == toVersionID {
		return 0
	}

	source := s.state.Buckets[fromVersionID]
	carried := make([]Annotation, 0, len(source))
	now := s.now()
	// Walk oldest-first so prepending keeps the source ordering.
	for i := len(source) - 1; i >= 0; i-- {
		a := source[i]
		if a.Status == StatusResolved {
			continue
		}
		carried = append(carried, Annotation{
			ID:         s.newID("ann"),
			DocID:      a.DocID,
			VersionID:  toVersionID,
			Quote:      a.Quote,
			Category:   a.Category,
			Severity:   a.Severity,
			Status:     StatusNeedsRemap,
			AssigneeID: a.AssigneeID,
			Comment:    a.Comment,
			Anchor:     anchor.Unanchored(anchor.ReasonUserNeedsRemap),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if len(carried) == 0 {
		return 0
	}

	next := s.state
	buckets := cloneBuckets(s.state.Buckets)
	target := buckets[toVersionID]
	merged := make([]Annotation, 0, len(carried)+len(target))
	for i := len(carried) - 1; i >= 0; i-- {
		merged = append(merged, carried[i])
	}
	merged = append(merged, target...)
	buckets[toVersionID] = merged
	next.Buckets = buckets
	next.Activity = prependActivity(s.state.Activity, s.activity(ActivityCarriedOver, map[string]any{
		"from":  fromVersionID,
		"to":    toVersionID,
		"count": len(carried),
	}))
	s.state = next
	return len(carried)
}

// Select marks an annotation as the focused one, superseding any
// in-flight remap target. Selecting an unknown id clears the focus.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	if _, ok := s.state.Find(id); ok {
		next.SelectedID = id
	} else {
		next.SelectedID = ""
	}
	next.RemapTargetID = ""
	s.state = next
}

// StartRemap arms the remap workflow for one annotation; the next
// confirmed draft replaces its anchor. Only one target is active at a
// time, last writer wins.
func (s *Store) StartRemap(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Find(id); !ok {
		return false
	}
	next := s.state
	next.RemapTargetID = id
	next.SelectedID = id
	s.state = next
	return true
}

// CancelRemap discards the transient remap target without mutating any
// annotation.
func (s *Store) CancelRemap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.RemapTargetID = ""
	s.state = next
}

// Export captures the full session as a portable payload.
func (s *Store) Export() Payload {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Payload{
		Schema:               SchemaVersion,
		ExportedAt:           s.now().UTC(),
		DocID:                s.docID,
		VersionID:            s.state.VersionID,
		AnnotationsByVersion: s.state.Buckets,
		Activity:             s.state.Activity,
	}
}

// Import replaces the whole session with the payload, all-or-nothing.
// Schema mismatch, malformed JSON, or a payload missing either
// annotationsByVersion or activity is silently ignored and the prior
// state retained. The imported version id is adopted only when the
// document actually has it, as reported by hasVersion.
func (s *Store) Import(raw []byte, hasVersion func(string) bool) bool {
	var probe struct {
		Schema               string                   `json:"schema"`
		VersionID            string                   `json:"versionId"`
		AnnotationsByVersion *map[string][]Annotation `json:"annotationsByVersion"`
		Activity             *[]ActivityItem          `json:"activity"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	if probe.Schema != SchemaVersion || probe.AnnotationsByVersion == nil || probe.Activity == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := State{
		VersionID: s.state.VersionID,
		Buckets:   *probe.AnnotationsByVersion,
		Activity:  *probe.Activity,
	}
	if next.Buckets == nil {
		next.Buckets = map[string][]Annotation{}
	}
	if next.Activity == nil {
		next.Activity = []ActivityItem{}
	}
	if probe.VersionID != "" && hasVersion != nil && hasVersion(probe.VersionID) {
		next.VersionID = probe.VersionID
	}
	s.state = next
	return true
}

func (s *Store) activity(activityType ActivityType, meta map[string]any) ActivityItem {
	return ActivityItem{
		ID:   s.newID("act"),
		Type: activityType,
		At:   s.now(),
		Meta: meta,
	}
}

func cloneBuckets(buckets map[string][]Annotation) map[string][]Annotation {
	next := make(map[string][]Annotation, len(buckets))
	for versionID, bucket := range buckets {
		next[versionID] = bucket
	}
	return next
}

func prependToBucket(buckets map[string][]Annotation, versionID string, a Annotation) map[string][]Annotation {
	next := cloneBuckets(buckets)
	bucket := next[versionID]
	merged := make([]Annotation, 0, len(bucket)+1)
	merged = append(merged, a)
	merged = append(merged, bucket...)
	next[versionID] = merged
	return next
}

func replaceInBucket(buckets map[string][]Annotation, versionID, id string, update func(Annotation) Annotation) map[string][]Annotation {
	next := cloneBuckets(buckets)
	bucket := next[versionID]
	replaced := make([]Annotation, len(bucket))
	for i, a := range bucket {
		if a.ID == id {
			a = update(a)
		}
		replaced[i] = a
	}
	next[versionID] = replaced
	return next
}

func prependActivity(activity []ActivityItem, item ActivityItem) []ActivityItem {
	merged := make([]ActivityItem, 0, len(activity)+1)
	merged = append(merged, item)
	merged = append(merged, activity...)
	return merged
}
