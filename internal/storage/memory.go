package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xrmkit/xrmsoap/pkg/entity"
)

type record struct {
	seq    uint64
	entity *entity.BusinessEntity
}

// InMemoryRecordStore is a thread-safe in-memory implementation of RecordStore.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	seq     uint64
	records map[string]map[string]*record
}

// NewInMemoryRecordStore creates a new InMemoryRecordStore.
func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		records: make(map[string]map[string]*record),
	}
}

// Get retrieves a record. Returns nil if not found.
func (s *InMemoryRecordStore) Get(logicalName, id string) *entity.BusinessEntity {
	key, err := entity.CanonicalID(id)
	if err != nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[strings.ToLower(logicalName)][key]
	if !ok {
		return nil
	}
	return clone(r.entity)
}

// Set stores or replaces a record. Replacing keeps the original insertion
// position.
func (s *InMemoryRecordStore) Set(e *entity.BusinessEntity) error {
	if e == nil {
		return nil
	}
	if e.ID == "" {
		return ErrNoID
	}
	key, err := entity.CanonicalID(e.ID)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", e.ID, err)
	}

	stored := clone(e)
	stored.ID = key
	name := strings.ToLower(e.LogicalName)

	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.records[name]
	if !ok {
		table = make(map[string]*record)
		s.records[name] = table
	}
	if existing, ok := table[key]; ok {
		existing.entity = stored
		return nil
	}
	s.seq++
	table[key] = &record{seq: s.seq, entity: stored}
	return nil
}

// Delete removes a record. Returns true if deleted, false if not found.
func (s *InMemoryRecordStore) Delete(logicalName, id string) bool {
	key, err := entity.CanonicalID(id)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.records[strings.ToLower(logicalName)]
	if _, exists := table[key]; exists {
		delete(table, key)
		return true
	}
	return false
}

// List returns all records of an entity, sorted by insertion order.
func (s *InMemoryRecordStore) List(logicalName string) []*entity.BusinessEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := s.records[strings.ToLower(logicalName)]
	records := make([]*record, 0, len(table))
	for _, r := range table {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].seq < records[j].seq
	})

	result := make([]*entity.BusinessEntity, len(records))
	for i, r := range records {
		result[i] = clone(r.entity)
	}
	return result
}

// Count returns the number of records of an entity.
func (s *InMemoryRecordStore) Count(logicalName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[strings.ToLower(logicalName)])
}

// Clear removes all stored records.
func (s *InMemoryRecordStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]map[string]*record)
}

func clone(e *entity.BusinessEntity) *entity.BusinessEntity {
	out := entity.New(e.LogicalName)
	out.ID = e.ID
	for _, k := range e.Keys() {
		out.Set(k, e.MustGet(k))
	}
	return out
}

var _ RecordStore = (*InMemoryRecordStore)(nil)
