package refdb

import "errors"

// Sentinel errors for the KVBackend, matching the error taxonomy: each kind
// is checked with errors.Is after being wrapped with the offending name(s).
var (
	// ErrBadName reports that a refname fails the refname grammar.
	ErrBadName = errors.New("bad refname")
	// ErrNameConflict reports a name-hierarchy violation.
	ErrNameConflict = errors.New("name conflict")
	// ErrNotFound reports that a read required the ref to exist.
	ErrNotFound = errors.New("ref not found")
	// ErrUnexpectedValue reports a compare-and-swap mismatch on old_id.
	ErrUnexpectedValue = errors.New("unexpected old value")
	// ErrBroken reports a symref chain loop/overflow or malformed value.
	ErrBroken = errors.New("broken ref")
	// ErrNonCommitOnBranch reports an attempt to point refs/heads/* at a
	// non-commit object.
	ErrNonCommitOnBranch = errors.New("non-commit object on branch")
	// ErrTransactionClosed reports a misordered API call against a closed
	// or never-begun transaction. Nested read-write begin is a programmer
	// error and panics instead, matching §7's "fatal, not recoverable".
	ErrTransactionClosed = errors.New("transaction closed")
)
