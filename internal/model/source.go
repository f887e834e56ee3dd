package model

// Path represents a file system path.
type Path string

// String returns the path as a plain string.
func (p Path) String() string {
	return string(p)
}

// SourceFile is one eligible source file discovered by the scanner,
// identified by its path relative to the repository root.
type SourceFile struct {
	Path   Path
	Digest string // sha256 of the unmutated content
}

// RepoState tracks whether the source tree is pristine or carries exactly
// one applied mutation. The zero value is the clean state.
type RepoState struct {
	Mutated    bool
	MutationID string
}

// Clean reports whether no mutation is currently applied.
func (s RepoState) Clean() bool {
	return !s.Mutated
}

func (s RepoState) String() string {
	if s.Mutated {
		return "mutated(" + s.MutationID + ")"
	}
	return "clean"
}
