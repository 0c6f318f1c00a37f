package refdb

import (
	"fmt"

	"github.com/dacapoday/refdb/kv"
	"github.com/dacapoday/refdb/refcodec"
)

// Rename moves oldName to newName within tx, which must be a freshly begun
// read-write transaction (the caller must not already be inside another
// write transaction — §4.3 rename). It rejects renaming a symbolic ref,
// checks the name hierarchy for newName (ignoring oldName itself), rewrites
// every reflog entry under oldName to newName preserving timestamps, and
// moves the ref's own value. The caller commits tx afterward as a single
// transactional unit.
func (b *Backend[F]) Rename(tx *kv.Tx[kv.Iter[F]], oldName, newName string) error {
	raw, err := tx.Get(refKey(oldName))
	if err != nil {
		return fmt.Errorf("refdb: rename %q: %w", oldName, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: %q", ErrNotFound, oldName)
	}
	if refcodec.DecodeValue(raw).Kind == refcodec.Symbolic {
		return fmt.Errorf("refdb: rename %q: renaming a symbolic ref is unsupported", oldName)
	}

	if err := b.VerifyAvailable(tx, newName, nil, map[string]bool{oldName: true}); err != nil {
		return err
	}

	if err := b.EnsureReflog(tx, newName); err != nil {
		return err
	}

	oldHeader := logsHeaderKey(oldName)
	keys, err := b.collectReflogKeys(tx, oldHeader)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if !isEntryKey(key, oldHeader) {
			continue // the header row itself; handled by the final delete below
		}
		stamp := entryStamp(key, oldHeader)
		val, err := tx.Get(key)
		if err != nil {
			return fmt.Errorf("refdb: rename %q -> %q: %w", oldName, newName, err)
		}
		tx.Set(logsEntryKey(newName, stamp), val)
		tx.Set(key, nil)
	}
	tx.Set(oldHeader, nil)

	tx.Set(refKey(oldName), nil)
	tx.Set(refKey(newName), raw)
	return nil
}
