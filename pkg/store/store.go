// Package store provides corpus persistence. The contract is deliberately
// blunt: a corpus is read and replaced wholesale, with an atomic-replace
// guarantee on write and on-demand backups before destructive operations.
// No partial updates, no transactions.
package store

import (
	"github.com/corralhq/corral/pkg/records"
)

// Store is the persistence collaborator for record corpora.
type Store interface {
	// Load reads the entire corpus.
	Load(corpusID string) ([]*records.Record, error)

	// Save replaces the entire corpus atomically.
	Save(recs []*records.Record, corpusID string) error

	// Backup snapshots the corpus before a destructive operation and
	// returns an opaque handle usable with Restore. The suffix names the
	// operation (e.g. "pre-dedupe") for humans browsing backups.
	Backup(corpusID, suffix string) (string, error)

	// Restore replaces the corpus with a previously taken backup.
	Restore(handle, corpusID string) error

	// DiscardBackup removes a backup that is no longer needed. Discarding
	// an already-removed backup is not an error.
	DiscardBackup(handle string) error
}
