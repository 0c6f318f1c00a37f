// Package reftx implements the transaction engine: the backend-agnostic
// layer that accumulates a batch of ref updates, dereferences symrefs the
// way dereference_symrefs does in original_source/refs.c, partitions the
// batch between the ordered-KV backend (package refdb) and the loose-file
// backend (package filesref) by name classification, and drives them
// through a two-stage commit that reports a partial failure distinctly
// from a clean abort.
package reftx

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dacapoday/refdb/filesref"
	"github.com/dacapoday/refdb/kv"
	"github.com/dacapoday/refdb/refcodec"
	"github.com/dacapoday/refdb/refdb"
)

// Flag governs how a single update in a Transaction is applied.
type Flag uint32

const (
	// HaveOld requests a compare-and-swap check against Old.
	HaveOld Flag = 1 << iota
	// NoDeref disables symref dereferencing for this update: it is applied
	// literally to RefName even when that name currently holds a symref.
	NoDeref
	// LogOnly records a reflog entry without writing RefName's stored
	// value, used internally for the symref side of a dereferenced update.
	LogOnly
	// ForceCreateReflog creates a reflog entry even when the update is a
	// no-op, matching §4.3's force-create-reflog knob.
	ForceCreateReflog
)

// State records a Transaction's lifecycle position.
type State uint8

const (
	StateOpen State = iota
	StateClosed
	StateError
)

// ErrTransactionClosed is returned by Transaction methods called after
// Commit or Free.
var ErrTransactionClosed = errors.New("reftx: transaction is closed")

// ErrDuplicateRefName is returned by Commit when the same refname, after
// dereferencing, appears more than once within a single backend's
// partition of the batch.
var ErrDuplicateRefName = errors.New("reftx: duplicate refname in transaction")

// ErrSplitTransactionPartial is returned when the ordered-KV half of a
// commit succeeded but the loose-file half subsequently failed: the store
// is left in a partially-applied state and the caller
// must reconcile it, matching the split-transaction warning in
// do_ref_transaction_commit.
var ErrSplitTransactionPartial = errors.New("reftx: transaction partially committed across backends")

// Update is one queued change: move RefName from Old to New.
type Update struct {
	RefName string
	Old     refcodec.ObjectID
	New     refcodec.ObjectID
	Flags   Flag
	Msg     string
}

// Transaction accumulates Updates before they are dereferenced, verified,
// and committed by an Engine.
type Transaction struct {
	state   State
	updates []Update
}

// Begin returns a new open Transaction ready to accumulate updates.
func Begin() *Transaction {
	return &Transaction{state: StateOpen}
}

func (tx *Transaction) queue(u Update) error {
	if tx.state != StateOpen {
		return ErrTransactionClosed
	}
	tx.updates = append(tx.updates, u)
	return nil
}

// Update queues a compare-and-swap move of name from old to new.
func (tx *Transaction) Update(name string, old, new refcodec.ObjectID, msg string) error {
	return tx.queue(Update{RefName: name, Old: old, New: new, Flags: HaveOld, Msg: msg})
}

// Create queues the creation of name at new, failing if it already exists
// (old is implicitly the zero id with HaveOld set).
func (tx *Transaction) Create(name string, new refcodec.ObjectID, msg string) error {
	return tx.queue(Update{RefName: name, New: new, Flags: HaveOld, Msg: msg})
}

// Delete queues the removal of name, optionally verified against old.
func (tx *Transaction) Delete(name string, old refcodec.ObjectID, haveOld bool, msg string) error {
	flags := Flag(0)
	if haveOld {
		flags |= HaveOld
	}
	return tx.queue(Update{RefName: name, Old: old, Flags: flags, Msg: msg})
}

// Verify queues a check that name currently holds old, without changing
// it: New equals Old and the literal write is a no-op.
func (tx *Transaction) Verify(name string, old refcodec.ObjectID) error {
	return tx.queue(Update{RefName: name, Old: old, New: old, Flags: HaveOld | NoDeref})
}

// Free discards the transaction. It is always safe to call, including
// after Commit.
func (tx *Transaction) Free() {
	tx.state = StateClosed
	tx.updates = nil
}

// classify mirrors filesref's name classification, plus the Normal
// fallthrough that routes everything else to the ordered-KV backend.
type class uint8

const (
	classNormal class = iota
	classPerWorktree
	classPseudoref
)

func classify(name string) class {
	switch {
	case filesref.IsPerWorktree(name):
		return classPerWorktree
	case filesref.IsPseudoref(name):
		return classPseudoref
	default:
		return classNormal
	}
}

// Engine drives a Transaction's Commit across the two backends.
type Engine[F kv.File] struct {
	Primary         *refdb.Backend[F]
	Files           *filesref.Backend
	Committer       refcodec.Committer
	TZOffsetMinutes int
}

// dereferenced is an update that has passed through symref resolution:
// finalRef is where the value actually lands, and logOnly marks the
// original symref-name entry that should only gain a reflog line.
type dereferenced struct {
	Update
	logOnly bool
}

// resolveTarget follows name to its terminal storage location: for
// classNormal names this defers entirely to refdb.Resolve; for
// classPerWorktree/classPseudoref names it reads the loose file directly
// and, if that file holds a symref, continues resolution through the
// ordered-KV backend (the common real-world case of HEAD pointing at a
// branch).
func (e *Engine[F]) resolveTarget(tx *kv.Tx[kv.Iter[F]], name string) (finalName string, wasSymref bool, err error) {
	switch classify(name) {
	case classNormal:
		r, err := e.Primary.Resolve(tx, name, 0)
		if err != nil {
			return "", false, err
		}
		return r.FinalName, r.Info&refdb.IsSymref != 0, nil
	default:
		val, ok, err := e.Files.ReadValue(name)
		if err != nil {
			return "", false, err
		}
		if !ok || val.Kind != refcodec.Symbolic {
			return name, false, nil
		}
		if classify(val.Target) == classNormal {
			r, err := e.Primary.Resolve(tx, val.Target, 0)
			if err != nil {
				return "", false, err
			}
			return r.FinalName, true, nil
		}
		return val.Target, true, nil
	}
}

// dereferenceAll walks the queued updates, expanding any update against a
// symref name into a pair: a LogOnly entry against the symref's own name
// plus a literal entry against the name it resolved to, matching
// dereference_symrefs. Updates with NoDeref set are left untouched.
func (e *Engine[F]) dereferenceAll(tx *kv.Tx[kv.Iter[F]], updates []Update) ([]dereferenced, error) {
	out := make([]dereferenced, 0, len(updates))
	for _, u := range updates {
		if u.Flags&NoDeref != 0 {
			out = append(out, dereferenced{Update: u})
			continue
		}

		finalName, wasSymref, err := e.resolveTarget(tx, u.RefName)
		if err != nil {
			return nil, fmt.Errorf("reftx: dereference %q: %w", u.RefName, err)
		}
		if !wasSymref {
			out = append(out, dereferenced{Update: u})
			continue
		}

		out = append(out, dereferenced{Update: Update{
			RefName: u.RefName,
			Old:     u.Old,
			New:     u.New,
			Flags:   LogOnly,
			Msg:     u.Msg,
		}, logOnly: true})
		out = append(out, dereferenced{Update: Update{
			RefName: finalName,
			Old:     u.Old,
			New:     u.New,
			Flags:   u.Flags | NoDeref,
			Msg:     u.Msg,
		}})
	}
	return out, nil
}

func checkDuplicates(updates []dereferenced) error {
	names := make([]string, len(updates))
	for i, u := range updates {
		names[i] = u.RefName
	}
	sort.Strings(names)
	for i := 1; i < len(names); i++ {
		if names[i] == names[i-1] {
			return fmt.Errorf("%w: %q", ErrDuplicateRefName, names[i])
		}
	}
	return nil
}

// Commit dereferences, verifies, and applies tx. The ordered-KV partition
// commits first; if the loose-file partition then fails, Commit returns
// ErrSplitTransactionPartial wrapping the underlying error, since the KV
// half is already durable. tx is left in StateClosed (success) or
// StateError (any failure) either way.
func (e *Engine[F]) Commit(tx *Transaction) error {
	if tx.state != StateOpen {
		return ErrTransactionClosed
	}

	roTx := e.Primary.Begin(refdb.ModeReadOnly)
	deref, err := e.dereferenceAll(roTx, tx.updates)
	e.Primary.End(roTx, false)
	if err != nil {
		tx.state = StateError
		return err
	}

	var normal, other []dereferenced
	for _, u := range deref {
		// LogOnly entries record a reflog line for a dereferenced symref's
		// own name (e.g. HEAD); only the ordered-KV backend has reflog
		// storage, so these always route to it regardless of how the
		// symref's own name classifies.
		if u.logOnly || classify(u.RefName) == classNormal {
			normal = append(normal, u)
		} else {
			other = append(other, u)
		}
	}
	if err := checkDuplicates(normal); err != nil {
		tx.state = StateError
		return err
	}
	if err := checkDuplicates(other); err != nil {
		tx.state = StateError
		return err
	}

	if err := e.commitNormal(normal); err != nil {
		tx.state = StateError
		return err
	}

	if err := e.commitOther(other); err != nil {
		tx.state = StateError
		return fmt.Errorf("%w: %v", ErrSplitTransactionPartial, err)
	}

	tx.state = StateClosed
	return nil
}

func (e *Engine[F]) commitNormal(updates []dereferenced) error {
	if len(updates) == 0 {
		return nil
	}
	rwTx := e.Primary.Begin(refdb.ModeReadWrite)
	for _, u := range updates {
		var err error
		if u.logOnly {
			err = e.Primary.AppendReflogOnly(rwTx, u.RefName, u.Old, u.New, e.Committer, e.TZOffsetMinutes, u.Msg)
		} else {
			err = e.Primary.Update(rwTx, u.RefName, u.Old, u.New, u.Flags&HaveOld != 0, true, u.Flags&ForceCreateReflog != 0, e.Committer, e.TZOffsetMinutes, u.Msg)
		}
		if err != nil {
			e.Primary.End(rwTx, false)
			return err
		}
	}
	return e.Primary.End(rwTx, true)
}

// commitOther applies literal writes to the loose-file backend. LogOnly
// entries never reach here (Commit routes them to commitNormal instead,
// the only backend with reflog storage).
func (e *Engine[F]) commitOther(updates []dereferenced) error {
	for _, u := range updates {
		var err error
		if u.New.IsZero() {
			err = e.Files.Delete(u.RefName, u.Old, u.Flags&HaveOld != 0)
		} else {
			err = e.Files.Write(u.RefName, u.Old, u.New, u.Flags&HaveOld != 0)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
