package storage

import (
	"errors"

	"github.com/xrmkit/xrmsoap/pkg/entity"
)

// ErrNoID is returned by Set for records without an id.
var ErrNoID = errors.New("record has no id")

// RecordStore defines the interface for storing and retrieving records.
type RecordStore interface {
	// Get retrieves a record. Returns nil if not found.
	Get(logicalName, id string) *entity.BusinessEntity

	// Set stores or replaces a record.
	Set(e *entity.BusinessEntity) error

	// Delete removes a record. Returns true if deleted, false if not found.
	Delete(logicalName, id string) bool

	// List returns all records of an entity, in insertion order.
	List(logicalName string) []*entity.BusinessEntity

	// Count returns the number of records of an entity.
	Count(logicalName string) int

	// Clear removes all stored records.
	Clear()
}
