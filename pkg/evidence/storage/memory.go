package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/covenant/pkg/evidence"
)

// MemoryStorage keeps records in a map. Records are lost on Close; use it
// for tests and one-shot CLI runs.
type MemoryStorage struct {
	records map[string]*evidence.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*evidence.Record),
	}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return evidence.NewStorageError("memory", "store", fmt.Errorf("duplicate record id %q", record.ID))
	}
	s.records[record.ID] = copyRecord(record)
	return nil
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*evidence.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, evidence.ErrNotFound
	}
	return copyRecord(record), nil
}

// Query returns copies of the matching records, sorted and paginated.
func (s *MemoryStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.Record, error) {
	s.mu.RLock()
	results := s.filter(query)
	s.mu.RUnlock()

	return paginate(results, query), nil
}

// QueryStream streams the matching records. The result set is snapshotted
// before streaming starts.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)

	s.mu.RLock()
	results := paginate(s.filter(query), query)
	s.mu.RUnlock()

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range results {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes the matching records.
func (s *MemoryStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*evidence.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// filter returns sorted copies of the matching records. Callers hold mu.
func (s *MemoryStorage) filter(query *evidence.Query) []*evidence.Record {
	var results []*evidence.Record
	for _, record := range s.records {
		if matchesQuery(record, query) {
			results = append(results, copyRecord(record))
		}
	}

	asc := query != nil && query.SortOrder == "asc"
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.RecordedAt.Equal(b.RecordedAt) {
			if asc {
				return a.RecordedAt.Before(b.RecordedAt)
			}
			return a.RecordedAt.After(b.RecordedAt)
		}
		return a.ID < b.ID
	})
	return results
}

func paginate(results []*evidence.Record, query *evidence.Query) []*evidence.Record {
	if query == nil {
		return results
	}
	if query.Offset >= len(results) {
		return []*evidence.Record{}
	}
	results = results[query.Offset:]
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results
}

func matchesQuery(record *evidence.Record, query *evidence.Query) bool {
	if query == nil {
		return true
	}
	if query.StartTime != nil && record.RecordedAt.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.RecordedAt.After(*query.EndTime) {
		return false
	}
	if query.SchemaID != "" && record.SchemaID != query.SchemaID {
		return false
	}
	if query.ConstraintID != "" && record.ConstraintID != query.ConstraintID {
		return false
	}
	if query.EvaluationID != "" && record.EvaluationID != query.EvaluationID {
		return false
	}
	if query.Result != "" && record.Result != query.Result {
		return false
	}
	return true
}

func copyRecord(record *evidence.Record) *evidence.Record {
	c := *record
	if record.TraceContext != nil {
		c.TraceContext = make(map[string]string, len(record.TraceContext))
		for k, v := range record.TraceContext {
			c.TraceContext[k] = v
		}
	}
	return &c
}
