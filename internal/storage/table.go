package storage

import (
	"github.com/xrmkit/xrmsoap/pkg/entity"
)

// Table wraps a RecordStore and scopes it to one entity logical name.
// This provides a live view of the underlying store; writes set the
// record's logical name.
type Table struct {
	underlying  RecordStore
	logicalName string
}

// NewTable creates a view of store for one entity.
func NewTable(store RecordStore, logicalName string) *Table {
	return &Table{
		underlying:  store,
		logicalName: logicalName,
	}
}

// Get retrieves a record by id.
func (t *Table) Get(id string) *entity.BusinessEntity {
	return t.underlying.Get(t.logicalName, id)
}

// Set stores a record, setting its logical name.
func (t *Table) Set(e *entity.BusinessEntity) error {
	e.LogicalName = t.logicalName
	return t.underlying.Set(e)
}

// Delete removes a record by id.
func (t *Table) Delete(id string) bool {
	return t.underlying.Delete(t.logicalName, id)
}

// List returns all records in this table.
func (t *Table) List() []*entity.BusinessEntity {
	return t.underlying.List(t.logicalName)
}

// Count returns the number of records in this table.
func (t *Table) Count() int {
	return t.underlying.Count(t.logicalName)
}

// Exists checks if a record with the given id exists in this table.
func (t *Table) Exists(id string) bool {
	return t.Get(id) != nil
}

// LogicalName returns the entity this table is scoped to.
func (t *Table) LogicalName() string {
	return t.logicalName
}
