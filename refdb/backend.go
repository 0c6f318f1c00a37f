// Package refdb implements the ordered-KV reference backend: it resolves
// refs, enumerates refs and reflogs by prefix, enforces the name hierarchy,
// writes and expires reflogs, renames refs, and creates symrefs, all on top
// of a single process-wide transaction singleton over the embedded ordered
// key-value store in package kv.
package refdb

import (
	"fmt"
	"os"
	"sync"

	"github.com/dacapoday/refdb/kv"
	"github.com/dacapoday/refdb/objectdb"
)

// Mode records whether the process-wide transaction was opened for reading
// or for writing, governing the upgrade rules in Backend.Begin.
type Mode uint8

const (
	ModeReadOnly Mode = iota
	ModeReadWrite
)

// Clock yields a nanosecond timestamp. Implementations must be
// monotonically non-decreasing within a process; Backend enforces strict
// monotonicity itself by bumping on collision.
type Clock func() int64

// Backend is the ordered-KV reference backend. It owns exactly one
// process-wide *kv.Tx at a time, matching §4.3's transaction singleton: all
// callers share it through Begin/End rather than opening independent
// transactions.
type Backend[F kv.File] struct {
	DB      *kv.KV[F]
	Objects objectdb.Store
	Clock   Clock

	// Generation reports the host's subprocess counter: a monotonic count
	// bumped whenever a child process may have mutated the store. Begin
	// observes it and re-begins the singleton transaction when it has
	// advanced since the current transaction started. The zero value (nil)
	// is treated as "never advances", matching a refdb that never forks
	// children of its own.
	Generation func() int64

	mu        sync.Mutex
	tx        *kv.Tx[kv.Iter[F]]
	mode      Mode
	lastGen   int64
	lastStamp int64
}

func (b *Backend[F]) generation() int64 {
	if b.Generation == nil {
		return 0
	}
	return b.Generation()
}

func (b *Backend[F]) clock() int64 {
	if b.Clock == nil {
		panic("refdb: Backend.Clock is nil")
	}
	return b.Clock()
}

// Begin applies the transaction singleton's upgrade rules (§4.3):
//   - none open → begin as requested.
//   - open ReadOnly, ReadWrite requested → abort the RO transaction, begin RW.
//   - open ReadWrite, ReadOnly requested → reuse the RW transaction.
//   - open ReadWrite, ReadWrite requested → programmer error, panics.
//
// It additionally re-begins whenever Generation() has advanced since the
// current transaction was begun, so that writes made by a child process
// become visible.
func (b *Backend[F]) Begin(want Mode) *kv.Tx[kv.Iter[F]] {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.generation()
	if b.tx != nil && gen != b.lastGen {
		b.tx.Rollback()
		b.tx = nil
	}

	if b.tx == nil {
		b.tx = b.DB.Begin()
		b.mode = want
		b.lastGen = gen
		return b.tx
	}

	switch {
	case b.mode == ModeReadOnly && want == ModeReadWrite:
		b.tx.Rollback()
		b.tx = b.DB.Begin()
		b.mode = ModeReadWrite
		b.lastGen = gen
		return b.tx
	case b.mode == ModeReadWrite && want == ModeReadWrite:
		panic("refdb: read-write transaction started during another read-write transaction")
	default:
		return b.tx
	}
}

// End closes out a Begin(ModeReadWrite) call: commit applies pending
// changes (or discards them if the caller rolls back via commit=false).
// After End, the backend's singleton is cleared so the next Begin opens a
// fresh transaction.
func (b *Backend[F]) End(tx *kv.Tx[kv.Iter[F]], commit bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if commit {
		err = tx.Commit()
	} else {
		tx.Rollback()
	}
	if b.tx == tx {
		b.tx = nil
	}
	return err
}

// nextStamp returns a nanosecond timestamp guaranteed to be strictly
// greater than every previously returned value from this Backend, bumping
// by one on collision rather than relying on clock resolution (per the
// design notes on nanosecond timestamp collisions).
func (b *Backend[F]) nextStamp() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock()
	if now <= b.lastStamp {
		now = b.lastStamp + 1
	}
	b.lastStamp = now
	return now
}

// InitDB creates the directory that will hold the KV store's files, mode
// 0775, matching §6's on-disk layout (the KV library itself creates the
// store file within it on first Open).
func InitDB(dir string) error {
	if err := os.MkdirAll(dir, 0775); err != nil {
		return fmt.Errorf("refdb: init db: %w", err)
	}
	return nil
}
