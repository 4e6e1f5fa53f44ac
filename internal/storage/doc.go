// Package storage provides the record store behind the mock Organization
// service.
//
// Key types:
//
//   - RecordStore: Interface defining the contract for record storage backends
//   - InMemoryRecordStore: Thread-safe in-memory implementation of RecordStore
//   - Table: View of a RecordStore scoped to one entity logical name
//
// Records are *entity.BusinessEntity values keyed by logical name and
// canonical id. Stores hand out copies, so callers may modify what they get
// back without affecting stored state.
package storage
