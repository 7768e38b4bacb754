package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to
// the in-memory index.
type Service struct {
	meili  *Meili
	memory *Memory
}

// NewService creates a search service. meili may be nil when
// Meilisearch is not configured.
func NewService(meili *Meili, memory *Memory) *Service {
	return &Service{meili: meili, memory: memory}
}

// Search tries Meilisearch if healthy, otherwise the in-memory index.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to memory index: %v", err)
	}

	results, total, err := s.memory.Search(q)
	if err != nil {
		log.Printf("search: memory index error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexAnnotation indexes an annotation in both backends; the
// Meilisearch push is fire-and-forget.
func (s *Service) IndexAnnotation(record AnnotationRecord) {
	s.memory.IndexAnnotation(record)
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexAnnotation(record); err != nil {
			log.Printf("search: index annotation %s: %v", record.ID, err)
		}
	}()
}

// IndexActivity indexes an activity entry in both backends.
func (s *Service) IndexActivity(record ActivityRecord) {
	s.memory.IndexActivity(record)
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexActivity(record); err != nil {
			log.Printf("search: index activity %s: %v", record.ID, err)
		}
	}()
}

// ReindexAll replaces both backends with the given records, used after
// import swaps the review state wholesale.
func (s *Service) ReindexAll(annotations []AnnotationRecord, activity []ActivityRecord) {
	s.memory.ReplaceAll(annotations, activity)
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexAnnotations(annotations); err != nil {
			log.Printf("search: reindex annotations: %v", err)
		}
		if err := s.meili.IndexActivities(activity); err != nil {
			log.Printf("search: reindex activity: %v", err)
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
