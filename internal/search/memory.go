package search

import (
	"sort"
	"strings"
	"sync"
)

// Memory is the fallback index: exact substring matching over the
// records pushed to it, case-insensitive. It replaces the Postgres FTS
// backend a database-backed deployment would use, because review state
// here never touches a database.
type Memory struct {
	mu          sync.RWMutex
	annotations map[string]AnnotationRecord
	activity    map[string]ActivityRecord
}

func NewMemory() *Memory {
	return &Memory{
		annotations: make(map[string]AnnotationRecord),
		activity:    make(map[string]ActivityRecord),
	}
}

func (m *Memory) IndexAnnotation(record AnnotationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.annotations[record.ID] = record
}

func (m *Memory) IndexActivity(record ActivityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity[record.ID] = record
}

// ReplaceAll swaps the whole index, used after import replaces the
// review state wholesale.
func (m *Memory) ReplaceAll(annotations []AnnotationRecord, activity []ActivityRecord) {
	next := make(map[string]AnnotationRecord, len(annotations))
	for _, record := range annotations {
		next[record.ID] = record
	}
	nextActivity := make(map[string]ActivityRecord, len(activity))
	for _, record := range activity {
		nextActivity[record.ID] = record
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.annotations = next
	m.activity = nextActivity
}

func (m *Memory) Search(q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []Result
	if q.FilterType == "" || q.FilterType == ResultAnnotation {
		for _, record := range m.annotations {
			if q.Status != "" && record.Status != q.Status {
				continue
			}
			if q.Category != "" && record.Category != q.Category {
				continue
			}
			if needle != "" &&
				!strings.Contains(strings.ToLower(record.Quote), needle) &&
				!strings.Contains(strings.ToLower(record.Comment), needle) {
				continue
			}
			results = append(results, Result{
				Type:      ResultAnnotation,
				ID:        record.ID,
				DocID:     record.DocID,
				VersionID: record.VersionID,
				Title:     record.Quote,
				Snippet:   record.Comment,
				Status:    record.Status,
				Category:  record.Category,
			})
		}
	}
	if q.FilterType == "" || q.FilterType == ResultActivity {
		for _, record := range m.activity {
			if q.Status != "" || q.Category != "" {
				continue
			}
			if needle != "" &&
				!strings.Contains(strings.ToLower(record.Summary), needle) &&
				!strings.Contains(strings.ToLower(record.Type), needle) {
				continue
			}
			results = append(results, Result{
				Type:    ResultActivity,
				ID:      record.ID,
				DocID:   record.DocID,
				Title:   record.Type,
				Snippet: record.Summary,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Type != results[j].Type {
			return results[i].Type < results[j].Type
		}
		return results[i].ID < results[j].ID
	})

	total := len(results)
	offset := q.Offset
	if offset > total {
		offset = total
	}
	results = results[offset:]
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, total, nil
}
