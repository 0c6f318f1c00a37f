package refdb

import (
	"fmt"

	"github.com/dacapoday/refdb/kv"
	"github.com/dacapoday/refdb/refcodec"
)

// CreateSymref writes "ref: <target>\x00" under name, within an already
// open read-write transaction. When logmsg is non-empty, the old and new
// resolved ids of name (before and after the write) are logged as a single
// reflog entry, matching §4.3's create-symref.
func (b *Backend[F]) CreateSymref(tx *kv.Tx[kv.Iter[F]], name, target string, logmsg string, committer refcodec.Committer, tzOffsetMinutes int) error {
	var oldID refcodec.ObjectID
	if logmsg != "" {
		resolved, err := b.resolve(tx, name, 0, maxDepth)
		if err != nil {
			return fmt.Errorf("refdb: create symref %q: %w", name, err)
		}
		oldID = resolved.ID
	}

	tx.Set(refKey(name), refcodec.EncodeSymbolic(target))

	if logmsg == "" {
		return nil
	}

	resolved, err := b.resolve(tx, name, 0, maxDepth)
	if err != nil {
		return fmt.Errorf("refdb: create symref %q: %w", name, err)
	}
	return b.appendReflogEntry(tx, name, oldID, resolved.ID, committer, tzOffsetMinutes, logmsg)
}

// PackRefs is a documented no-op, matching lmdb_pack_refs: this backend has
// no denser on-disk form to pack into.
func (b *Backend[F]) PackRefs() error {
	return nil
}
