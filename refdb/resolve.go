package refdb

import (
	"bytes"
	"fmt"

	"github.com/dacapoday/refdb/kv"
	"github.com/dacapoday/refdb/refcodec"
	"github.com/dacapoday/refdb/refname"
)

const maxDepth = 5

// ResolveFlags controls Resolve's behavior.
type ResolveFlags uint8

const (
	// ReadingRequired reports ErrNotFound on a missing ref rather than
	// synthesizing a zero id.
	ReadingRequired ResolveFlags = 1 << iota
	// NoRecurse stops after one hop, returning the immediate symref target
	// with a zero id instead of following the chain.
	NoRecurse
)

// InfoFlags reports how a resolution concluded.
type InfoFlags uint8

const (
	IsSymref InfoFlags = 1 << iota
	IsBroken
)

// Resolved is the outcome of Resolve.
type Resolved struct {
	FinalName string
	ID        refcodec.ObjectID
	Info      InfoFlags
}

// Resolve follows name to its terminal value within tx: validates the name
// (unless it is merely "safe", which still permits reads for cleanup of
// corrupted stores), looks up its stored value, and if that value is
// symbolic, recurses up to maxDepth hops unless NoRecurse is set.
func (b *Backend[F]) Resolve(tx *kv.Tx[kv.Iter[F]], name string, flags ResolveFlags) (Resolved, error) {
	if err := refname.Check(name, refname.AllowOneLevel); err != nil && !refname.IsSafe(name) {
		return Resolved{}, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	resolved, err := b.resolve(tx, name, flags, maxDepth)
	if err != nil {
		return Resolved{}, err
	}
	if flags&ReadingRequired != 0 && resolved.Info&IsBroken != 0 {
		return Resolved{}, fmt.Errorf("%w: %q", ErrBroken, name)
	}
	return resolved, nil
}

func (b *Backend[F]) resolve(tx *kv.Tx[kv.Iter[F]], name string, flags ResolveFlags, depth int) (Resolved, error) {
	raw, err := tx.Get(refKey(name))
	if err != nil {
		return Resolved{}, fmt.Errorf("refdb: resolve %q: %w", name, err)
	}
	if raw == nil {
		if flags&ReadingRequired != 0 {
			return Resolved{}, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return Resolved{FinalName: name}, nil
	}

	val := refcodec.DecodeValue(raw)
	switch val.Kind {
	case refcodec.Direct:
		return Resolved{FinalName: name, ID: val.ID}, nil
	case refcodec.Symbolic:
		if flags&NoRecurse != 0 {
			return Resolved{FinalName: val.Target, Info: IsSymref}, nil
		}
		if err := refname.Check(val.Target, refname.AllowOneLevel); err != nil && !refname.IsSafe(val.Target) {
			return Resolved{FinalName: name, Info: IsSymref | IsBroken}, nil
		}
		if depth == 0 {
			return Resolved{FinalName: name, Info: IsSymref | IsBroken}, nil
		}
		inner, err := b.resolve(tx, val.Target, flags&^ReadingRequired, depth-1)
		if err != nil {
			return Resolved{}, err
		}
		inner.Info |= IsSymref
		return inner, nil
	default:
		return Resolved{FinalName: name, Info: IsBroken}, nil
	}
}

// ForEach opens a cursor range-scan over prefix and invokes fn for each
// decoded reference, trimming the leading trim bytes from each reported
// name. Iteration stops and fn's error is propagated the moment fn returns
// a non-nil error. Broken values are skipped unless includeBroken is set.
func (b *Backend[F]) ForEach(tx *kv.Tx[kv.Iter[F]], prefix string, trim int, includeBroken bool, fn func(name string, id refcodec.ObjectID, info InfoFlags) error) error {
	lower := append([]byte(refsPrefix), prefix...)
	iter := tx.Iter()
	defer iter.Close()

	for ok := iter.Seek(lower); ok && bytes.HasPrefix(iter.Key(), lower); ok = iter.Next() {
		name := nameFromRefKey(iter.Key())
		val := refcodec.DecodeValue(iter.Val())

		var info InfoFlags
		var id refcodec.ObjectID
		switch val.Kind {
		case refcodec.Direct:
			id = val.ID
		case refcodec.Symbolic:
			info = IsSymref
			resolved, err := b.resolve(tx, name, 0, maxDepth)
			if err != nil {
				return err
			}
			id = resolved.ID
			info |= resolved.Info &^ IsSymref
		default:
			info = IsBroken
		}
		if info&IsBroken != 0 && !includeBroken {
			continue
		}
		reported := name
		if trim <= len(name) {
			reported = name[trim:]
		}
		if err := fn(reported, id, info); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("refdb: for each %q: %w", prefix, err)
	}
	return nil
}
