package refdb

import (
	"fmt"

	"github.com/dacapoday/refdb/kv"
	"github.com/dacapoday/refdb/objectdb"
	"github.com/dacapoday/refdb/refcodec"
)

// Update writes a Direct value (or deletes, when new is zero) to name's
// key and, if logging applies, appends a reflog entry. old is compared
// against the currently stored value when haveOld is set (compare-and-
// swap); a mismatch returns ErrUnexpectedValue and leaves the transaction's
// pending changes for name untouched.
//
// When new is non-zero and name is classified as a branch (refs/heads/*),
// the commit-on-branch check consults Objects to ensure new resolves to a
// commit, returning ErrNonCommitOnBranch otherwise.
func (b *Backend[F]) Update(tx *kv.Tx[kv.Iter[F]], name string, old, new refcodec.ObjectID, haveOld bool, shouldLog bool, forceCreateReflog bool, committer refcodec.Committer, tzOffsetMinutes int, msg string) error {
	raw, err := tx.Get(refKey(name))
	if err != nil {
		return fmt.Errorf("refdb: update %q: %w", name, err)
	}

	var currentID refcodec.ObjectID
	wasDirect := false
	if raw != nil {
		val := refcodec.DecodeValue(raw)
		if val.Kind == refcodec.Direct {
			currentID = val.ID
			wasDirect = true
		}
	}

	if haveOld && currentID != old {
		return fmt.Errorf("%w: %q: expected %s, found %s", ErrUnexpectedValue, name, old, currentID)
	}

	if !new.IsZero() && isBranch(name) && b.Objects != nil {
		typ, err := b.Objects.GetType(new)
		if err != nil || typ != objectdb.TypeCommit {
			return fmt.Errorf("%w: %q -> %s", ErrNonCommitOnBranch, name, new)
		}
	}

	noop := wasDirect && currentID == new || (!wasDirect && raw == nil && new.IsZero())

	if new.IsZero() {
		tx.Set(refKey(name), nil)
		if err := b.deleteReflog(tx, name); err != nil {
			return err
		}
	} else {
		tx.Set(refKey(name), refcodec.EncodeDirect(new))
	}

	if !shouldLog || (noop && !forceCreateReflog) {
		return nil
	}
	return b.appendReflogEntry(tx, name, currentID, new, committer, tzOffsetMinutes, msg)
}

func isBranch(name string) bool {
	const prefix = "refs/heads/"
	return len(name) > len(prefix) && name[:len(prefix)] == prefix
}

// EnsureReflog creates the header key for name if it is absent (a force
// create), matching §4.3's "ensure logs/<refname>\x00 header exists".
func (b *Backend[F]) EnsureReflog(tx *kv.Tx[kv.Iter[F]], name string) error {
	header := logsHeaderKey(name)
	val, err := tx.Get(header)
	if err != nil {
		return fmt.Errorf("refdb: ensure reflog %q: %w", name, err)
	}
	if val == nil {
		tx.Set(header, []byte{})
	}
	return nil
}

func (b *Backend[F]) appendReflogEntry(tx *kv.Tx[kv.Iter[F]], name string, old, new refcodec.ObjectID, committer refcodec.Committer, tzOffsetMinutes int, msg string) error {
	header := logsHeaderKey(name)
	val, err := tx.Get(header)
	if err != nil {
		return fmt.Errorf("refdb: append reflog %q: %w", name, err)
	}
	if val == nil {
		// The original silently drops entries for refs whose reflog was
		// never created (§9 design notes). That is a bug, not a policy:
		// create the header here instead of replicating it.
		tx.Set(header, []byte{})
	}

	stamp := b.nextStamp()
	const nanosPerSecond = 1_000_000_000
	line := refcodec.FormatReflogEntry(old, new, committer, stamp/nanosPerSecond, tzOffsetMinutes, msg)
	line = append(line, 0)
	tx.Set(logsEntryKey(name, stamp), line)
	return nil
}

// AppendReflogOnly records a reflog entry for name without touching its
// stored value, matching the dereferenced-symref LOG_ONLY case in the
// transaction engine: a symref like HEAD keeps pointing at its target, but
// still accrues a log entry describing the transition that happened on the
// target's behalf.
func (b *Backend[F]) AppendReflogOnly(tx *kv.Tx[kv.Iter[F]], name string, old, new refcodec.ObjectID, committer refcodec.Committer, tzOffsetMinutes int, msg string) error {
	return b.appendReflogEntry(tx, name, old, new, committer, tzOffsetMinutes, msg)
}

// ReflogExists reports whether name currently has a reflog header.
func (b *Backend[F]) ReflogExists(tx *kv.Tx[kv.Iter[F]], name string) (bool, error) {
	val, err := tx.Get(logsHeaderKey(name))
	if err != nil {
		return false, fmt.Errorf("refdb: reflog exists %q: %w", name, err)
	}
	return val != nil, nil
}

// DeleteReflog removes name's reflog header and every entry under it.
func (b *Backend[F]) DeleteReflog(tx *kv.Tx[kv.Iter[F]], name string) error {
	return b.deleteReflog(tx, name)
}

func (b *Backend[F]) deleteReflog(tx *kv.Tx[kv.Iter[F]], name string) error {
	header := logsHeaderKey(name)
	keys, err := b.collectReflogKeys(tx, header)
	if err != nil {
		return err
	}
	for _, key := range keys {
		tx.Set(key, nil)
	}
	tx.Set(header, nil)
	return nil
}

// collectReflogKeys performs a read-only scan of every key at or under
// header (the header itself plus every entry) and returns them. It is a
// read pass with no mutation, matching the two-phase "collect, then Set"
// approach that Tx's append-only pending buffer requires (see
// SPEC_FULL.md §2 on why Tx.Set cannot be called while a Tx.Iter() born
// from the same Tx is still open).
func (b *Backend[F]) collectReflogKeys(tx *kv.Tx[kv.Iter[F]], header []byte) ([][]byte, error) {
	iter := tx.Iter()
	defer iter.Close()

	var keys [][]byte
	for ok := iter.Seek(header); ok; ok = iter.Next() {
		key := iter.Key()
		if len(key) < len(header) || string(key[:len(header)]) != string(header) {
			break
		}
		keys = append(keys, append([]byte(nil), key...))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("refdb: scan reflog: %w", err)
	}
	return keys, nil
}
