// Package operators defines the syntactic mutation operators applied to
// controller source files.
package operators

import (
	"go/ast"
	"go/token"

	m "github.com/openshift-eng/mutest/internal/model"
)

// Site is one candidate mutation found by an Operator: the byte span to
// rewrite, its position, the exact text expected there, and the replacement.
type Site struct {
	StartOffset int
	EndOffset   int
	Line        int
	Column      int
	Anchor      string
	Replacement string
	Description string
}

// Operator finds every site of one mutation category in a parsed file.
// Operators are purely syntactic: no type information, no build context.
// A mutant that fails to compile is simply killed by the suite.
type Operator interface {
	// Category names the kind of mutation this operator produces.
	Category() m.Category

	// Sites walks the AST and returns candidate sites in source order.
	Sites(file *ast.File, fset *token.FileSet, src []byte) []Site
}

// All returns the complete operator set in canonical category order.
func All() []Operator {
	return []Operator{
		conditionalNegation{},
		errorHandlingRemoval{},
		returnValueChange{},
		requeueTimingChange{},
		statusUpdateSkip{},
		apiCallTypeChange{},
		arithmeticChange{},
	}
}
