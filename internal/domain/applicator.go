package domain

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openshift-eng/mutest/internal/adapter"
	m "github.com/openshift-eng/mutest/internal/model"
)

// Applicator mutates the working tree in place, one mutation at a time.
// Apply refuses to stack mutations and Revert restores the exact original
// bytes, so the tree is always either clean or carrying a single known
// mutation. It is driven sequentially by the orchestrator and is not safe
// for concurrent use.
type Applicator interface {
	Apply(mutation m.Mutation) error
	Revert(mutation m.Mutation) error
	State() m.RepoState
}

type applicator struct {
	adapter.SourceFSAdapter

	root     m.Path
	state    m.RepoState
	snapshot fileSnapshot
}

// fileSnapshot preserves everything needed to put a mutated file back.
type fileSnapshot struct {
	path    m.Path
	content []byte
	mode    os.FileMode
	digest  string
}

// NewApplicator creates an Applicator rooted at the scanned repository root.
func NewApplicator(fsAdapter adapter.SourceFSAdapter, root m.Path) Applicator {
	return &applicator{
		SourceFSAdapter: fsAdapter,
		root:            root,
	}
}

// Apply verifies the anchor text still matches the file and splices the
// replacement in. On an anchor mismatch the file is untouched and the tree
// stays clean.
func (a *applicator) Apply(mutation m.Mutation) error {
	if !a.state.Clean() {
		return fmt.Errorf("%w: cannot apply %s while %s is still applied",
			m.ErrInvariantViolation, mutation.ID, a.state.MutationID)
	}

	fullPath := a.resolve(mutation.File)

	info, err := a.FileInfo(fullPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", mutation.File, err)
	}

	content, err := a.ReadFile(fullPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", mutation.File, err)
	}

	if mutation.StartOffset < 0 || mutation.EndOffset > len(content) || mutation.StartOffset > mutation.EndOffset {
		return fmt.Errorf("%w: span %d-%d out of range for %s",
			m.ErrAnchorMismatch, mutation.StartOffset, mutation.EndOffset, mutation.File)
	}

	actual := string(content[mutation.StartOffset:mutation.EndOffset])
	if actual != mutation.Anchor {
		return fmt.Errorf("%w: %s:%d expected %q, found %q",
			m.ErrAnchorMismatch, mutation.File, mutation.Line, mutation.Anchor, actual)
	}

	snapshot := fileSnapshot{
		path:    fullPath,
		content: content,
		mode:    info.Mode().Perm(),
		digest:  contentDigest(content),
	}

	mutated := spliceSpan(content, mutation.StartOffset, mutation.EndOffset, mutation.Replacement)

	if err := a.WriteFile(fullPath, mutated, snapshot.mode); err != nil {
		if restoreErr := a.WriteFile(fullPath, content, snapshot.mode); restoreErr != nil {
			return fmt.Errorf("%w: write failed (%v) and restore failed: %v",
				m.ErrRevertFailure, err, restoreErr)
		}

		return fmt.Errorf("write %s: %w", mutation.File, err)
	}

	a.snapshot = snapshot
	a.state = m.RepoState{Mutated: true, MutationID: mutation.ID}

	slog.Debug("Applied mutation", "id", mutation.ID, "file", mutation.File, "line", mutation.Line)

	return nil
}

// Revert writes the snapshot back and verifies the restored bytes hash to
// the original digest before declaring the tree clean again.
func (a *applicator) Revert(mutation m.Mutation) error {
	if a.state.Clean() {
		return fmt.Errorf("%w: revert of %s requested on a clean tree",
			m.ErrInvariantViolation, mutation.ID)
	}

	if a.state.MutationID != mutation.ID {
		return fmt.Errorf("%w: revert of %s requested while %s is applied",
			m.ErrInvariantViolation, mutation.ID, a.state.MutationID)
	}

	if err := a.WriteFile(a.snapshot.path, a.snapshot.content, a.snapshot.mode); err != nil {
		return fmt.Errorf("%w: restoring %s: %v", m.ErrRevertFailure, mutation.File, err)
	}

	restored, err := a.ReadFile(a.snapshot.path)
	if err != nil {
		return fmt.Errorf("%w: verifying %s: %v", m.ErrRevertFailure, mutation.File, err)
	}

	if contentDigest(restored) != a.snapshot.digest {
		return fmt.Errorf("%w: %s does not match its pre-mutation digest",
			m.ErrRevertFailure, mutation.File)
	}

	a.snapshot = fileSnapshot{}
	a.state = m.RepoState{}

	slog.Debug("Reverted mutation", "id", mutation.ID, "file", mutation.File)

	return nil
}

// State reports whether the tree is clean or which mutation is applied.
func (a *applicator) State() m.RepoState {
	return a.state
}

func (a *applicator) resolve(file m.Path) m.Path {
	return m.Path(filepath.Join(string(a.root), filepath.FromSlash(string(file))))
}

// spliceSpan replaces src[start:end] with replacement, leaving src intact.
func spliceSpan(src []byte, start, end int, replacement string) []byte {
	out := make([]byte, 0, len(src)-(end-start)+len(replacement))
	out = append(out, src[:start]...)
	out = append(out, replacement...)
	out = append(out, src[end:]...)

	return out
}
