package refdb

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dacapoday/refdb/kv"
)

// ConflictError reports that creating a ref would violate the name
// hierarchy: one of the two names is a path-prefix of the other.
type ConflictError struct {
	Requested string
	Existing  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%q exists; cannot create %q", e.Existing, e.Requested)
}

func (e *ConflictError) Unwrap() error { return ErrNameConflict }

func conflict(requested, existing string) error {
	return &ConflictError{Requested: requested, Existing: existing}
}

// VerifyAvailable checks that name may be created as a Normal ref without
// violating invariant 2 (no two live refs in a path-prefix relation).
// extras names other refs about to be created in the same transaction
// (so a batch of sibling creates can be checked against each other before
// any of them is visible to a cursor); skip names that should be ignored
// even if they currently exist (used by Rename to ignore the ref being
// renamed away from).
func (b *Backend[F]) VerifyAvailable(tx *kv.Tx[kv.Iter[F]], name string, extras, skip map[string]bool) error {
	iter := tx.Iter()
	defer iter.Close()

	childPrefix := append([]byte(refsPrefix+name), '/')
	for ok := iter.Seek(childPrefix); ok && bytes.HasPrefix(iter.Key(), childPrefix); ok = iter.Next() {
		descendant := nameFromRefKey(iter.Key())
		if !skip[descendant] {
			return conflict(name, descendant)
		}
	}

	parts := strings.Split(name, "/")
	for i := 1; i < len(parts); i++ {
		ancestor := strings.Join(parts[:i], "/")
		if skip[ancestor] {
			continue
		}
		if extras[ancestor] {
			return conflict(name, ancestor)
		}
		key := refKey(ancestor)
		if iter.Seek(key) && bytes.Equal(iter.Key(), key) {
			return conflict(name, ancestor)
		}
	}

	for extra := range extras {
		if extra == name || skip[extra] {
			continue
		}
		if strings.HasPrefix(extra, name+"/") {
			return conflict(extra, name)
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("refdb: verify available %q: %w", name, err)
	}
	return nil
}
