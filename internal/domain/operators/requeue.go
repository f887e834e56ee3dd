package operators

import (
	"go/ast"
	"go/token"

	m "github.com/openshift-eng/mutest/internal/model"
)

// requeueTimingChange zeroes reconcile requeue settings in composite
// literals: `RequeueAfter: <expr>` becomes `RequeueAfter: 0` and
// `Requeue: true` becomes `Requeue: false`. A controller that silently stops
// rescheduling itself should fail its reconcile-loop tests.
type requeueTimingChange struct{}

func (requeueTimingChange) Category() m.Category {
	return m.CategoryRequeueTimingChange
}

func (requeueTimingChange) Sites(file *ast.File, fset *token.FileSet, src []byte) []Site {
	var sites []Site

	ast.Inspect(file, func(node ast.Node) bool {
		kv, ok := node.(*ast.KeyValueExpr)
		if !ok {
			return true
		}

		key, ok := kv.Key.(*ast.Ident)
		if !ok {
			return true
		}

		var (
			replacement string
			description string
		)

		switch key.Name {
		case "RequeueAfter":
			if isLiteral(kv.Value, "0") {
				return true
			}

			replacement = "0"
			description = "Change RequeueAfter to 0"
		case "Requeue":
			if !isBoolIdent(kv.Value, "true") {
				return true
			}

			replacement = "false"
			description = "Change Requeue from true to false"
		default:
			return true
		}

		site, ok := spanSite(fset, src, kv.Value.Pos(), kv.Value.End(), replacement, description)
		if !ok {
			return true
		}

		sites = append(sites, site)

		return true
	})

	return sites
}

func isLiteral(expr ast.Expr, value string) bool {
	lit, ok := expr.(*ast.BasicLit)

	return ok && lit.Kind == token.INT && lit.Value == value
}

func isBoolIdent(expr ast.Expr, value string) bool {
	ident, ok := expr.(*ast.Ident)

	return ok && ident.Name == value
}
