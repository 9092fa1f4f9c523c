package engine

import "gearline/internal/domain"

// backupRecords deep-copies the collection before mutation. The backup is
// fully independent of anything the mutator does afterwards.
func backupRecords(items []domain.Record) []domain.Record {
	return domain.CloneRecords(items)
}

// rollbackRecords restores the collection to the backed-up contents,
// identity and order included. The caller's slice header is reused so the
// borrowed collection stays owned by the caller.
func rollbackRecords(collection *[]domain.Record, backup []domain.Record) {
	*collection = (*collection)[:0]
	*collection = append(*collection, backup...)
}
