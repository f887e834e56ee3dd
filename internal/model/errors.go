package model

import "errors"

// Failure taxonomy. Commands map these onto process exit codes, so every
// layer wraps rather than replaces them.
var (
	// ErrBaselineFailure means the unmutated tree did not pass its own
	// test suite; mutation results would be meaningless.
	ErrBaselineFailure = errors.New("baseline test run failed on unmutated code")

	// ErrNoEligibleSources means scanning found nothing to mutate.
	ErrNoEligibleSources = errors.New("no eligible source files found")

	// ErrGenerationFailure means no mutation manifest could be produced.
	ErrGenerationFailure = errors.New("mutation manifest generation failed")

	// ErrAnchorMismatch means the on-disk bytes no longer match the
	// mutation's anchor text, usually a concurrent edit. The affected
	// mutant is recorded as an error; the run continues.
	ErrAnchorMismatch = errors.New("anchor text mismatch")

	// ErrInvariantViolation means apply or revert was requested in the
	// wrong repository state. This is a programming error and halts the run.
	ErrInvariantViolation = errors.New("repository state invariant violated")

	// ErrRevertFailure means restoring the original file content failed.
	// The source tree can no longer be trusted, so the run halts.
	ErrRevertFailure = errors.New("revert failed")
)
