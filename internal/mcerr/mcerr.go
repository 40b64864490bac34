// Package mcerr defines the sentinel error kinds shared across the module,
// so that every layer can wrap context onto them with
// fmt.Errorf("...: %w", ...) and callers can still dispatch on kind with
// errors.Is.
package mcerr

import "errors"

var (
	// ErrArityMismatch: a chunk's shard-key arity does not match the
	// distribution it is being inserted into.
	ErrArityMismatch = errors.New("arity mismatch")

	// ErrNamespaceMismatch: a chunk's namespace does not match the
	// distribution it is being inserted into.
	ErrNamespaceMismatch = errors.New("namespace mismatch")

	// ErrNotFound: a lookup (by range, by containing key, by equal-range
	// remove) found nothing.
	ErrNotFound = errors.New("not found")

	// ErrInconsistentJournal: a journal event references a chunk absent
	// from the current distribution, or a post-inversion invariant check
	// failed. Fatal to the current catalog's reconstruction.
	ErrInconsistentJournal = errors.New("inconsistent journal")

	// ErrMalformedEvent: a journal entry is missing required sub-records.
	// Logged and skipped, never fatal.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrNoCommonHistory: the comparator exhausted all streams without
	// finding equal distributions. A definite negative result, not an
	// error condition as far as the CLI exit code is concerned.
	ErrNoCommonHistory = errors.New("no common history")

	// ErrCatalogUnreachable: a catalog connection or query failed at the
	// I/O boundary.
	ErrCatalogUnreachable = errors.New("catalog unreachable")
)
