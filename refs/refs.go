// Package refs is the convenience dispatch layer: update_ref, delete_ref,
// read_ref, for_each_ref, dwim_ref, shorten_unambiguous_ref, peel_ref, and
// resolve_ref, each routing through the ordered-KV backend or the
// loose-file backend by name classification, matching the top-level
// wrapper functions in original_source/refs.c.
package refs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dacapoday/refdb/filesref"
	"github.com/dacapoday/refdb/kv"
	"github.com/dacapoday/refdb/objectdb"
	"github.com/dacapoday/refdb/refcodec"
	"github.com/dacapoday/refdb/refdb"
	"github.com/dacapoday/refdb/reflogexpiry"
	"github.com/dacapoday/refdb/reftx"
)

// Repository bundles the ordered-KV backend, the loose-file backend, and
// the transaction engine behind a single convenience surface.
type Repository[F kv.File] struct {
	Primary         *refdb.Backend[F]
	Files           *filesref.Backend
	Engine          *reftx.Engine[F]
	Objects         objectdb.Store
	Committer       refcodec.Committer
	TZOffsetMinutes int
}

// Open opens (creating if absent) a disk-backed repository rooted at dir,
// backed by an in-memory objectdb.Store: the ordered-KV store lives at
// dir/refs.kv, loose pseudorefs and per-worktree refs live directly under
// dir. Callers with a real object database should use OpenWithObjects
// instead, so the commit-on-branch check and PeelRef actually consult it.
func Open(dir string) (*Repository[*os.File], error) {
	return OpenWithObjects(dir, objectdb.NewMemory())
}

// OpenWithObjects is Open, but wires objects into both the commit-on-branch
// check (refdb.Backend.Objects) and PeelRef, instead of defaulting to an
// empty in-memory store.
func OpenWithObjects(dir string, objects objectdb.Store) (*Repository[*os.File], error) {
	if err := refdb.InitDB(dir); err != nil {
		return nil, err
	}
	db, err := kv.Open(filepath.Join(dir, "refs.kv"))
	if err != nil {
		return nil, fmt.Errorf("refs: open %q: %w", dir, err)
	}

	primary := &refdb.Backend[*os.File]{
		DB:      db,
		Objects: objects,
		Clock:   func() int64 { return time.Now().UnixNano() },
	}
	files := &filesref.Backend{Root: dir}
	repo := &Repository[*os.File]{
		Primary: primary,
		Files:   files,
		Engine: &reftx.Engine[*os.File]{
			Primary: primary,
			Files:   files,
		},
		Objects: objects,
	}
	return repo, nil
}

func isAncillary(name string) bool {
	return filesref.IsPerWorktree(name) || filesref.IsPseudoref(name)
}

// ReadRef resolves name to its terminal id, matching read_ref's "must
// exist" semantics.
func (r *Repository[F]) ReadRef(name string) (refcodec.ObjectID, error) {
	_, id, err := r.ResolveRef(name)
	return id, err
}

// ResolveRef follows name to its terminal storage location and value,
// crossing from the loose-file backend into the ordered-KV backend when a
// per-worktree or pseudoref name holds a symref (HEAD pointing at a
// branch is the common case).
func (r *Repository[F]) ResolveRef(name string) (finalName string, id refcodec.ObjectID, err error) {
	if isAncillary(name) {
		val, ok, err := r.Files.ReadValue(name)
		if err != nil {
			return "", refcodec.ObjectID{}, err
		}
		if !ok {
			return "", refcodec.ObjectID{}, fmt.Errorf("%w: %q", refdb.ErrNotFound, name)
		}
		if val.Kind == refcodec.Symbolic {
			return r.ResolveRef(val.Target)
		}
		return name, val.ID, nil
	}

	tx := r.Primary.Begin(refdb.ModeReadOnly)
	defer r.Primary.End(tx, false)
	resolved, err := r.Primary.Resolve(tx, name, refdb.ReadingRequired)
	if err != nil {
		return "", refcodec.ObjectID{}, err
	}
	return resolved.FinalName, resolved.ID, nil
}

// UpdateRef moves name from old to new, creating it when haveOld is false.
func (r *Repository[F]) UpdateRef(name string, old, new refcodec.ObjectID, haveOld bool, msg string) error {
	tx := reftx.Begin()
	var err error
	if haveOld {
		err = tx.Update(name, old, new, msg)
	} else {
		err = tx.Create(name, new, msg)
	}
	if err != nil {
		return err
	}
	return r.Engine.Commit(tx)
}

// DeleteRef removes name, optionally verified against old.
func (r *Repository[F]) DeleteRef(name string, old refcodec.ObjectID, haveOld bool, msg string) error {
	tx := reftx.Begin()
	if err := tx.Delete(name, old, haveOld, msg); err != nil {
		return err
	}
	return r.Engine.Commit(tx)
}

// CreateSymref points name at target: a loose-file write for pseudorefs
// and per-worktree refs, a KV write (with an optional reflog entry) for
// everything else.
func (r *Repository[F]) CreateSymref(name, target, logmsg string) error {
	if isAncillary(name) {
		return r.Files.WriteSymbolic(name, target)
	}
	tx := r.Primary.Begin(refdb.ModeReadWrite)
	if err := r.Primary.CreateSymref(tx, name, target, logmsg, r.Committer, r.TZOffsetMinutes); err != nil {
		r.Primary.End(tx, false)
		return err
	}
	return r.Primary.End(tx, true)
}

// RenameRef moves oldName to newName. Cross-backend renames (a name that
// classifies differently on each side) are not supported, matching the
// teacher's lack of a files<->KV move primitive.
func (r *Repository[F]) RenameRef(oldName, newName string) error {
	if isAncillary(oldName) || isAncillary(newName) {
		return fmt.Errorf("refs: rename %q -> %q: cross-backend rename unsupported", oldName, newName)
	}
	tx := r.Primary.Begin(refdb.ModeReadWrite)
	if err := r.Primary.Rename(tx, oldName, newName); err != nil {
		r.Primary.End(tx, false)
		return err
	}
	return r.Primary.End(tx, true)
}

// ForEachRef enumerates every Normal ref under prefix.
func (r *Repository[F]) ForEachRef(prefix string, fn func(name string, id refcodec.ObjectID) error) error {
	tx := r.Primary.Begin(refdb.ModeReadOnly)
	defer r.Primary.End(tx, false)
	return r.Primary.ForEach(tx, prefix, 0, false, func(name string, id refcodec.ObjectID, _ refdb.InfoFlags) error {
		return fn(name, id)
	})
}

// PeelRef resolves name, then follows any tag chain down to the first
// non-tag object.
func (r *Repository[F]) PeelRef(name string) (refcodec.ObjectID, error) {
	_, id, err := r.ResolveRef(name)
	if err != nil {
		return refcodec.ObjectID{}, err
	}
	if r.Objects == nil {
		return id, nil
	}
	peeled, ok := objectdb.Peel(r.Objects, id)
	if !ok {
		return id, nil
	}
	return peeled, nil
}

// dwimRules is the ordered prefix-expansion list dwim_ref tries, most
// permissive first.
var dwimRules = []string{
	"%s",
	"refs/%s",
	"refs/tags/%s",
	"refs/heads/%s",
	"refs/remotes/%s",
	"refs/remotes/%s/HEAD",
}

// DwimRef tries each rule in dwimRules against short and returns the
// first that resolves. ambiguous reports whether a later rule also
// resolved, a warning condition rather than a failure.
func (r *Repository[F]) DwimRef(short string) (fullname string, id refcodec.ObjectID, ambiguous bool, err error) {
	found := false
	for _, rule := range dwimRules {
		candidate := fmt.Sprintf(rule, short)
		cid, cerr := r.ReadRef(candidate)
		if cerr != nil {
			continue
		}
		if !found {
			fullname, id, found = candidate, cid, true
			continue
		}
		ambiguous = true
	}
	if !found {
		return "", refcodec.ObjectID{}, false, fmt.Errorf("%w: no ref matches %q", refdb.ErrNotFound, short)
	}
	return fullname, id, ambiguous, nil
}

// shortenRule is a parsed "<prefix>%s<suffix>" dwim pattern.
type shortenRule struct{ prefix, suffix string }

func parseShortenRule(pattern string) shortenRule {
	parts := strings.SplitN(pattern, "%s", 2)
	return shortenRule{prefix: parts[0], suffix: parts[1]}
}

// ShortenUnambiguousRef extracts the shortest dwim candidate for full: it
// tries rules from the most specific (refs/remotes/%s/HEAD) to the least
// (%s), and accepts the first candidate that does not also expand, via
// another rule, to an existing ref distinct from full. In strict mode
// every other rule is checked; otherwise only the less specific rules,
// which DwimRef tries before the candidate's own rule, are.
func (r *Repository[F]) ShortenUnambiguousRef(full string, strict bool) (string, error) {
	order := []string{
		"refs/remotes/%s/HEAD",
		"refs/remotes/%s",
		"refs/heads/%s",
		"refs/tags/%s",
		"refs/%s",
		"%s",
	}

	for i, pattern := range order {
		rule := parseShortenRule(pattern)
		if len(full) < len(rule.prefix)+len(rule.suffix) {
			continue
		}
		if !strings.HasPrefix(full, rule.prefix) || !strings.HasSuffix(full, rule.suffix) {
			continue
		}
		candidate := full[len(rule.prefix) : len(full)-len(rule.suffix)]
		if candidate == "" {
			continue
		}

		ambiguous := false
		for j, otherPattern := range order {
			if j == i || (!strict && j < i) {
				continue
			}
			expanded := fmt.Sprintf(otherPattern, candidate)
			if expanded == full {
				continue
			}
			if _, err := r.ReadRef(expanded); err == nil {
				ambiguous = true
				break
			}
		}
		if !ambiguous {
			return candidate, nil
		}
	}
	return full, nil
}

// ReflogShow streams name's reflog entries from oldest to newest.
func (r *Repository[F]) ReflogShow(name string, fn func(refcodec.Entry) error) error {
	tx := r.Primary.Begin(refdb.ModeReadOnly)
	defer r.Primary.End(tx, false)
	return r.Primary.ForEachReflogEnt(tx, name, func(e refcodec.Entry, _ int64) error {
		return fn(e)
	})
}

// ReflogExpire prunes name's reflog under policy, matching the
// ReflogExpiry capability in full.
func (r *Repository[F]) ReflogExpire(name string, flags reflogexpiry.Flags, policy reflogexpiry.Policy) (reflogexpiry.Result, error) {
	return reflogexpiry.Expire(r.Primary, name, flags, policy, r.Committer, r.TZOffsetMinutes)
}
