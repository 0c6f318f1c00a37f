// Package filesref implements the ancillary per-worktree and pseudoref
// backend: HEAD, refs/bisect/*, and all-uppercase names like FETCH_HEAD are
// written as loose files under a repository root, each update guarded by a
// sibling ".lock" file created with O_EXCL, matching write_pseudoref and
// delete_pseudoref in original_source/refs.c.
package filesref

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dacapoday/refdb/refcodec"
)

// ErrLocked is returned when a lockfile already exists for the target path.
var ErrLocked = errors.New("cannot lock ref")

// ErrUnexpectedValue is returned on a compare-and-swap mismatch against the
// caller-supplied old id.
var ErrUnexpectedValue = errors.New("unexpected old value")

// Backend implements per-worktree refs and pseudorefs as loose files.
type Backend struct {
	Root string
}

func (b *Backend) path(name string) string {
	return filepath.Join(b.Root, filepath.FromSlash(name))
}

// lockPath returns the sibling lockfile path for name's file.
func (b *Backend) lockPath(name string) string {
	return b.path(name) + ".lock"
}

// acquireLock creates name's lockfile with O_EXCL, guaranteeing mutual
// exclusion with any other writer of the same loose file. The caller must
// release it, successful write or not.
func (b *Backend) acquireLock(name string) (*os.File, error) {
	lockPath := b.lockPath(name)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0775); err != nil {
		return nil, fmt.Errorf("filesref: %w", err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0666)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: cannot lock ref '%s'", ErrLocked, name)
		}
		return nil, fmt.Errorf("filesref: %w", err)
	}
	return f, nil
}

func (b *Backend) releaseLock(name string, lock *os.File) {
	lock.Close()
	os.Remove(b.lockPath(name))
}

// Read returns the currently stored id for name, or the zero id if the
// file does not exist.
func (b *Backend) Read(name string) (refcodec.ObjectID, error) {
	raw, err := os.ReadFile(b.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return refcodec.ObjectID{}, nil
		}
		return refcodec.ObjectID{}, fmt.Errorf("filesref: read %q: %w", name, err)
	}
	id, err := refcodec.ParseObjectID(trimTrailingNewline(raw))
	if err != nil {
		return refcodec.ObjectID{}, fmt.Errorf("filesref: read %q: %w", name, err)
	}
	return id, nil
}

func trimTrailingNewline(b []byte) string {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return string(b)
}

// Write performs a scoped, locked compare-and-swap write of new to name's
// file. When haveOld is set, the write is rejected with ErrUnexpectedValue
// if the currently stored id does not match old. The lock is always
// released, write or not.
func (b *Backend) Write(name string, old, new refcodec.ObjectID, haveOld bool) error {
	lock, err := b.acquireLock(name)
	if err != nil {
		return err
	}
	defer b.releaseLock(name, lock)

	if haveOld {
		current, err := b.Read(name)
		if err != nil {
			return err
		}
		if current != old {
			return fmt.Errorf("%w: %q: expected %s, found %s", ErrUnexpectedValue, name, old, current)
		}
	}

	if err := os.MkdirAll(filepath.Dir(b.path(name)), 0775); err != nil {
		return fmt.Errorf("filesref: %w", err)
	}
	if _, err := lock.WriteString(new.String() + "\n"); err != nil {
		return fmt.Errorf("filesref: write %q: %w", name, err)
	}
	if err := lock.Sync(); err != nil {
		return fmt.Errorf("filesref: sync %q: %w", name, err)
	}
	return os.Rename(b.lockPath(name), b.path(name))
}

// Delete removes name's file under the same locked compare-and-swap
// discipline as Write. The lock file is removed either way.
func (b *Backend) Delete(name string, old refcodec.ObjectID, haveOld bool) error {
	lock, err := b.acquireLock(name)
	if err != nil {
		return err
	}
	defer b.releaseLock(name, lock)

	if haveOld {
		current, err := b.Read(name)
		if err != nil {
			return err
		}
		if current != old {
			return fmt.Errorf("%w: %q: expected %s, found %s", ErrUnexpectedValue, name, old, current)
		}
	}

	if err := os.Remove(b.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filesref: delete %q: %w", name, err)
	}
	return nil
}

// ReadValue returns the decoded value stored at name's file: Direct, parsed
// as a loose hex id, or Symbolic, when the file holds a "ref: <target>"
// line. ok is false when the file does not exist.
func (b *Backend) ReadValue(name string) (val refcodec.Value, ok bool, err error) {
	raw, err := os.ReadFile(b.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return refcodec.Value{}, false, nil
		}
		return refcodec.Value{}, false, fmt.Errorf("filesref: read %q: %w", name, err)
	}
	line := trimTrailingNewline(raw)
	const symPrefix = "ref: "
	if len(line) > len(symPrefix) && line[:len(symPrefix)] == symPrefix {
		return refcodec.Value{Kind: refcodec.Symbolic, Target: line[len(symPrefix):]}, true, nil
	}
	id, err := refcodec.ParseObjectID(line)
	if err != nil {
		return refcodec.Value{}, false, fmt.Errorf("filesref: read %q: %w", name, err)
	}
	return refcodec.Value{Kind: refcodec.Direct, ID: id}, true, nil
}

// WriteSymbolic points name's file at target, unconditionally (pseudorefs
// and per-worktree refs do not carry a compare-and-swap discipline for
// symbolic writes, matching create_symref in original_source/refs.c).
func (b *Backend) WriteSymbolic(name, target string) error {
	lock, err := b.acquireLock(name)
	if err != nil {
		return err
	}
	defer b.releaseLock(name, lock)

	if err := os.MkdirAll(filepath.Dir(b.path(name)), 0775); err != nil {
		return fmt.Errorf("filesref: %w", err)
	}
	if _, err := lock.WriteString("ref: " + target + "\n"); err != nil {
		return fmt.Errorf("filesref: write %q: %w", name, err)
	}
	if err := lock.Sync(); err != nil {
		return fmt.Errorf("filesref: sync %q: %w", name, err)
	}
	return os.Rename(b.lockPath(name), b.path(name))
}

// IsPerWorktree reports whether name is classified PerWorktree: exactly
// "HEAD" or starting with "refs/bisect/".
func IsPerWorktree(name string) bool {
	return name == "HEAD" || len(name) > len("refs/bisect/") && name[:len("refs/bisect/")] == "refs/bisect/"
}

// IsPseudoref reports whether name is classified Pseudoref: every
// character drawn from [A-Z_-].
func IsPseudoref(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if !(ch >= 'A' && ch <= 'Z') && ch != '_' && ch != '-' {
			return false
		}
	}
	return true
}
