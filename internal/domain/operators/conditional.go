package operators

import (
	"fmt"
	"go/ast"
	"go/token"

	m "github.com/openshift-eng/mutest/internal/model"
)

// negatedComparison maps each comparison operator to its logical negation.
var negatedComparison = map[token.Token]token.Token{
	token.EQL: token.NEQ,
	token.NEQ: token.EQL,
	token.LSS: token.GEQ,
	token.GTR: token.LEQ,
	token.LEQ: token.GTR,
	token.GEQ: token.LSS,
}

// conditionalNegation flips comparison operators, turning every branch
// decision into its opposite.
type conditionalNegation struct{}

func (conditionalNegation) Category() m.Category {
	return m.CategoryConditionalNegation
}

func (conditionalNegation) Sites(file *ast.File, fset *token.FileSet, src []byte) []Site {
	var sites []Site

	ast.Inspect(file, func(node ast.Node) bool {
		binExpr, ok := node.(*ast.BinaryExpr)
		if !ok {
			return true
		}

		negated, ok := negatedComparison[binExpr.Op]
		if !ok {
			return true
		}

		opEnd := binExpr.OpPos + token.Pos(len(binExpr.Op.String()))

		site, ok := spanSite(fset, src, binExpr.OpPos, opEnd, negated.String(),
			fmt.Sprintf("Change %s to %s", binExpr.Op, negated))
		if !ok {
			return true
		}

		sites = append(sites, site)

		return true
	})

	return sites
}
