// Package reflogexpiry implements policy-driven pruning of reflog entries:
// dry-run, verbose, rewrite, and update-ref-to-last-kept modes on top of
// refdb.Backend's low-level reflog iteration.
package reflogexpiry

import (
	"fmt"

	"github.com/dacapoday/refdb/kv"
	"github.com/dacapoday/refdb/refcodec"
	"github.com/dacapoday/refdb/refdb"
)

// Flags selects which expiry behaviors are active.
type Flags uint8

const (
	DryRun Flags = 1 << iota
	Verbose
	Rewrite
	UpdateRef
)

// Policy is consulted by ShouldPrune to decide, for each entry, whether it
// should be pruned. Prepare/Cleanup bracket a single ref's expiry run.
type Policy interface {
	Prepare(refname string, id refcodec.ObjectID)
	ShouldPrune(old, new refcodec.ObjectID, committer refcodec.Committer, ts int64, tzOffset int, msg string) bool
	Cleanup()
}

// Result summarizes one ref's expiry run.
type Result struct {
	Pruned    int
	Kept      int
	LastKept  refcodec.ObjectID
	UpdatedTo bool
}

// Expire runs reflog expiry for refname under the given policy and flags,
// matching §4.3's reflog expiry: begin (RO if DryRun), resolve, prepare,
// walk entries in forward order pruning or rewriting as directed, cleanup,
// commit (unless DryRun), and optionally update the ref to the last kept
// value in a fresh transaction.
func Expire[F kv.File](b *refdb.Backend[F], refname string, flags Flags, policy Policy, committer refcodec.Committer, tzOffsetMinutes int) (Result, error) {
	mode := refdb.ModeReadWrite
	if flags&DryRun != 0 {
		mode = refdb.ModeReadOnly
	}
	tx := b.Begin(mode)

	resolved, err := b.Resolve(tx, refname, refdb.ReadingRequired)
	if err != nil {
		b.End(tx, false)
		return Result{}, fmt.Errorf("reflogexpiry: %w", err)
	}

	policy.Prepare(refname, resolved.ID)
	defer policy.Cleanup()

	var result Result
	var lastKeptNew refcodec.ObjectID
	var rewriteFrom *refcodec.ObjectID
	var mutations []func() error // applied after the walk has closed its iterator

	err = b.ForEachReflogEnt(tx, refname, func(entry refcodec.Entry, stamp int64) error {
		old := entry.Old
		if flags&Rewrite != 0 && rewriteFrom != nil {
			old = *rewriteFrom
		}

		if policy.ShouldPrune(old, entry.New, entry.Committer, entry.Timestamp, entry.TZOffset, entry.Message) {
			result.Pruned++
			if flags&DryRun == 0 {
				mutations = append(mutations, func() error { return pruneEntry(b, tx, refname, stamp) })
			}
			return nil
		}

		result.Kept++
		lastKeptNew = entry.New
		if flags&Rewrite != 0 {
			next := entry.New
			rewriteFrom = &next
			if old != entry.Old && flags&DryRun == 0 {
				mutations = append(mutations, func() error {
					return rewriteEntryOld(b, tx, refname, stamp, old, entry.New, entry.Committer, entry.TZOffset, entry.Message)
				})
			}
		}
		return nil
	})
	for i := 0; err == nil && i < len(mutations); i++ {
		err = mutations[i]()
	}
	if err != nil {
		b.End(tx, false)
		return Result{}, err
	}

	result.LastKept = lastKeptNew

	if flags&DryRun != 0 {
		b.End(tx, false)
		return result, nil
	}
	if err := b.End(tx, true); err != nil {
		return result, fmt.Errorf("reflogexpiry: commit: %w", err)
	}

	if flags&UpdateRef != 0 && resolved.Info&refdb.IsSymref == 0 && !lastKeptNew.IsZero() {
		wtx := b.Begin(refdb.ModeReadWrite)
		if err := b.Update(wtx, refname, refcodec.ObjectID{}, lastKeptNew, false, false, false, committer, tzOffsetMinutes, ""); err != nil {
			b.End(wtx, false)
			return result, fmt.Errorf("reflogexpiry: update ref to last kept: %w", err)
		}
		if err := b.End(wtx, true); err != nil {
			return result, fmt.Errorf("reflogexpiry: update ref to last kept: %w", err)
		}
		result.UpdatedTo = true
	}

	return result, nil
}

func pruneEntry[F kv.File](b *refdb.Backend[F], tx *kv.Tx[kv.Iter[F]], refname string, stamp int64) error {
	return b.DeleteReflogEntry(tx, refname, stamp)
}

func rewriteEntryOld[F kv.File](b *refdb.Backend[F], tx *kv.Tx[kv.Iter[F]], refname string, stamp int64, old, new refcodec.ObjectID, committer refcodec.Committer, tzOffset int, msg string) error {
	return b.RewriteReflogEntry(tx, refname, stamp, old, new, committer, tzOffset, msg)
}
