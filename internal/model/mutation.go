// Package model defines the data structures for mutation testing.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Category represents the category of mutation an operator produces.
type Category string

const (
	// CategoryConditionalNegation flips comparison operators in conditionals.
	CategoryConditionalNegation Category = "conditional-negation"
	// CategoryErrorHandlingRemoval disables `err != nil` checks.
	CategoryErrorHandlingRemoval Category = "error-handling-removal"
	// CategoryReturnValueChange alters returned literal values.
	CategoryReturnValueChange Category = "return-value-change"
	// CategoryRequeueTimingChange zeroes reconcile requeue settings.
	CategoryRequeueTimingChange Category = "requeue-timing-change"
	// CategoryStatusUpdateSkip drops status update calls.
	CategoryStatusUpdateSkip Category = "status-update-skip"
	// CategoryAPICallTypeChange swaps client verbs (Create/Update/Delete).
	CategoryAPICallTypeChange Category = "api-call-type-change"
	// CategoryArithmeticChange swaps arithmetic operators.
	CategoryArithmeticChange Category = "arithmetic-operator-change"
)

// AllCategories lists every mutation category in report order.
func AllCategories() []Category {
	return []Category{
		CategoryConditionalNegation,
		CategoryErrorHandlingRemoval,
		CategoryReturnValueChange,
		CategoryRequeueTimingChange,
		CategoryStatusUpdateSkip,
		CategoryAPICallTypeChange,
		CategoryArithmeticChange,
	}
}

// ParseCategory validates a user-supplied category name.
func ParseCategory(name string) (Category, error) {
	for _, c := range AllCategories() {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown mutation category %q", name)
}

// Mutation describes one candidate code change at one source location.
// It carries everything needed to apply the change and to put the file
// back exactly as it was.
type Mutation struct {
	ID          string   `json:"id"`
	Category    Category `json:"type"`
	File        Path     `json:"file"`
	Line        int      `json:"line"`
	Column      int      `json:"column"`
	Description string   `json:"description"`
	Anchor      string   `json:"anchor"`
	Replacement string   `json:"replacement"`

	// Byte span of the anchor in the unmutated file. Recomputed
	// deterministically on every generation, so it stays out of the
	// wire format.
	StartOffset int `json:"-"`
	EndOffset   int `json:"-"`

	// Seq orders mutations that share a location and category.
	Seq int `json:"-"`

	// Diff is a unified diff preview, shown for surviving mutants.
	Diff string `json:"-"`
}

// MutationID derives the stable identifier for a mutation site. It hashes
// the location, byte span, category and per-location sequence index, so
// regenerating the same tree always reproduces the same IDs.
func MutationID(file Path, line, column, startOffset, endOffset int, category Category, seq int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%d-%d|%s|%d",
		file, line, column, startOffset, endOffset, category, seq)))

	return hex.EncodeToString(h[:])[:16]
}

// SkippedFile records a source file that could not be analyzed.
type SkippedFile struct {
	File   Path   `json:"file"`
	Reason string `json:"reason"`
}

// Manifest is the ordered, deduplicated set of mutations planned for a run.
type Manifest struct {
	TotalMutations int           `json:"total_mutations"`
	Mutations      []Mutation    `json:"mutations"`
	SkippedFiles   []SkippedFile `json:"skipped_files,omitempty"`
}

// Digest fingerprints the manifest by its mutation IDs, in order. Two runs
// over the same tree with the same options share a digest, which is what
// lets an interrupted run resume.
func (m Manifest) Digest() string {
	h := sha256.New()
	for _, mu := range m.Mutations {
		h.Write([]byte(mu.ID))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
