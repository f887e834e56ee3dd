package operators

import (
	"fmt"
	"go/ast"
	"go/token"

	m "github.com/openshift-eng/mutest/internal/model"
)

// arithmeticChange replaces an arithmetic operator with every alternative,
// so a single `+` yields four mutants. Expressions concatenating string
// literals are skipped: swapping their `+` can only produce code that fails
// to compile, never a meaningful survivor.
type arithmeticChange struct{}

func (arithmeticChange) Category() m.Category {
	return m.CategoryArithmeticChange
}

func (arithmeticChange) Sites(file *ast.File, fset *token.FileSet, src []byte) []Site {
	var sites []Site

	ast.Inspect(file, func(node ast.Node) bool {
		binExpr, ok := node.(*ast.BinaryExpr)
		if !ok {
			return true
		}

		if !isArithmeticOp(binExpr.Op) {
			return true
		}

		if isStringLit(binExpr.X) || isStringLit(binExpr.Y) {
			return true
		}

		opEnd := binExpr.OpPos + token.Pos(len(binExpr.Op.String()))

		for _, mutatedOp := range arithmeticAlternatives(binExpr.Op) {
			site, ok := spanSite(fset, src, binExpr.OpPos, opEnd, mutatedOp.String(),
				fmt.Sprintf("Change %s to %s", binExpr.Op, mutatedOp))
			if !ok {
				continue
			}

			sites = append(sites, site)
		}

		return true
	})

	return sites
}

// isArithmeticOp checks if a token is an arithmetic operator.
func isArithmeticOp(op token.Token) bool {
	return op == token.ADD || op == token.SUB || op == token.MUL || op == token.QUO || op == token.REM
}

// arithmeticAlternatives returns all alternative operators for mutation.
func arithmeticAlternatives(original token.Token) []token.Token {
	allOps := []token.Token{token.ADD, token.SUB, token.MUL, token.QUO, token.REM}

	var alternatives []token.Token

	for _, op := range allOps {
		if op != original {
			alternatives = append(alternatives, op)
		}
	}

	return alternatives
}

func isStringLit(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)

	return ok && lit.Kind == token.STRING
}
