package refdb

import (
	"bytes"
	"fmt"

	"github.com/dacapoday/refdb/kv"
	"github.com/dacapoday/refdb/refcodec"
)

// ForEachReflogEnt iterates name's reflog entries in forward (oldest-first)
// timestamp order, decoding each with refcodec.ParseReflogLine. The header
// row is explicitly filtered out by key length (isEntryKey), resolving the
// header-vs-entry ambiguity called out in the design notes rather than
// guessing from an all-zero timestamp suffix.
func (b *Backend[F]) ForEachReflogEnt(tx *kv.Tx[kv.Iter[F]], name string, fn func(entry refcodec.Entry, stamp int64) error) error {
	header := logsHeaderKey(name)
	iter := tx.Iter()
	defer iter.Close()

	for ok := iter.Seek(header); ok && bytes.HasPrefix(iter.Key(), header); ok = iter.Next() {
		key := iter.Key()
		if !isEntryKey(key, header) {
			continue
		}
		entry, err := parseStoredEntry(iter.Val())
		if err != nil {
			return fmt.Errorf("refdb: reflog %q: %w", name, err)
		}
		if err := fn(entry, entryStamp(key, header)); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("refdb: reflog %q: %w", name, err)
	}
	return nil
}

// ForEachReflogEntReverse iterates name's reflog entries newest-first.
func (b *Backend[F]) ForEachReflogEntReverse(tx *kv.Tx[kv.Iter[F]], name string, fn func(entry refcodec.Entry, stamp int64) error) error {
	header := logsHeaderKey(name)
	// One past the last possible entry key for this header: header+0xff*8
	// would work, but simpler is to seek one byte past the header prefix
	// region by appending a byte higher than any timestamp byte can start
	// a fresh, unrelated key; instead we seek to header+stampSize 0xFF
	// bytes exactly, then confirm/adjust with Prev.
	upper := append(append([]byte(nil), header...), bytes.Repeat([]byte{0xff}, stampSize)...)

	iter := tx.Iter()
	defer iter.Close()

	ok := iter.Seek(upper)
	if !ok {
		ok = iter.SeekLast()
	} else if !bytes.Equal(iter.Key(), upper) {
		ok = iter.Prev()
	}
	for ; ok && bytes.HasPrefix(iter.Key(), header); ok = iter.Prev() {
		key := iter.Key()
		if !isEntryKey(key, header) {
			continue
		}
		entry, err := parseStoredEntry(iter.Val())
		if err != nil {
			return fmt.Errorf("refdb: reflog %q: %w", name, err)
		}
		if err := fn(entry, entryStamp(key, header)); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("refdb: reflog %q: %w", name, err)
	}
	return nil
}

func parseStoredEntry(raw []byte) (refcodec.Entry, error) {
	if len(raw) > 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-1]
	}
	return refcodec.ParseReflogLine(raw)
}

// DeleteReflogEntry deletes the single entry at stamp under name's reflog,
// used by reflog expiry to prune one entry at a time via a cursor-style
// delete (modeled as a direct Set-to-nil, since Tx exposes no raw
// del_current primitive).
func (b *Backend[F]) DeleteReflogEntry(tx *kv.Tx[kv.Iter[F]], name string, stamp int64) error {
	tx.Set(logsEntryKey(name, stamp), nil)
	return nil
}

// RewriteReflogEntry rewrites the entry at stamp under name's reflog with a
// new old field, used by expiry's REWRITE mode to keep the remaining chain
// internally consistent after entries in the middle are pruned.
func (b *Backend[F]) RewriteReflogEntry(tx *kv.Tx[kv.Iter[F]], name string, stamp int64, old, new refcodec.ObjectID, committer refcodec.Committer, tzOffsetMinutes int, msg string) error {
	const nanosPerSecond = 1_000_000_000
	line := refcodec.FormatReflogEntry(old, new, committer, stamp/nanosPerSecond, tzOffsetMinutes, msg)
	line = append(line, 0)
	tx.Set(logsEntryKey(name, stamp), line)
	return nil
}
