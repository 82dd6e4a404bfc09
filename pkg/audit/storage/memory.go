package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/archivist/pkg/audit"
)

// MemoryStore implements audit.Store with an in-memory map.
// Intended for tests and throwaway deployments.
type MemoryStore struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*audit.Record),
	}
}

// Save stores a copy of the record, assigning a UUID when it has no ID.
func (s *MemoryStore) Save(ctx context.Context, record *audit.Record) (*audit.Record, error) {
	rec := record.Clone()
	if err := rec.Normalize(); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = rec.Clone()
	return rec, nil
}

// FindByID returns the record with the given ID or audit.ErrNotFound.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, audit.ErrNotFound
	}
	return rec.Clone(), nil
}

// FindBetween returns records with start <= CreatedAt < end, oldest first.
func (s *MemoryStore) FindBetween(ctx context.Context, start, end time.Time) ([]*audit.Record, error) {
	results := s.collect(&audit.Filter{StartTime: &start, EndTime: &end})
	sortAscending(results)
	return results, nil
}

// FindAll returns every record, oldest first.
func (s *MemoryStore) FindAll(ctx context.Context) ([]*audit.Record, error) {
	results := s.collect(nil)
	sortAscending(results)
	return results, nil
}

// Search returns records matching the filter, newest first.
func (s *MemoryStore) Search(ctx context.Context, filter *audit.Filter, page audit.Page) ([]*audit.Record, error) {
	results := s.collect(filter)
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].ID > results[j].ID
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > len(results) {
		return []*audit.Record{}, nil
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}
	return results[start:end], nil
}

// Count returns the number of records matching the filter.
func (s *MemoryStore) Count(ctx context.Context, filter *audit.Filter) (int64, error) {
	return int64(len(s.collect(filter))), nil
}

// FindLatest returns up to limit records, newest first.
func (s *MemoryStore) FindLatest(ctx context.Context, limit int) ([]*audit.Record, error) {
	return s.Search(ctx, nil, audit.Page{Limit: limit})
}

// CountBefore returns the number of records with CreatedAt < before.
func (s *MemoryStore) CountBefore(ctx context.Context, before time.Time) (int64, error) {
	return int64(len(s.collect(&audit.Filter{EndTime: &before}))), nil
}

// DeleteBefore removes records with CreatedAt < before.
func (s *MemoryStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, rec := range s.records {
		if rec.CreatedAt.Before(before) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteIDs removes the records with the given IDs.
func (s *MemoryStore) DeleteIDs(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// collect returns copies of all matching records in no particular order.
func (s *MemoryStore) collect(filter *audit.Filter) []*audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*audit.Record{}
	for _, rec := range s.records {
		if filter.Matches(rec) {
			results = append(results, rec.Clone())
		}
	}
	return results
}

func sortAscending(records []*audit.Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
