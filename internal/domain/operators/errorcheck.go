package operators

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	m "github.com/openshift-eng/mutest/internal/model"
)

// errorHandlingRemoval disables `err != nil` guards. The condition is
// extended with `&& false` rather than deleted, so the guarded block simply
// never runs and the mutant always compiles.
type errorHandlingRemoval struct{}

func (errorHandlingRemoval) Category() m.Category {
	return m.CategoryErrorHandlingRemoval
}

func (errorHandlingRemoval) Sites(file *ast.File, fset *token.FileSet, src []byte) []Site {
	var sites []Site

	ast.Inspect(file, func(node ast.Node) bool {
		binExpr, ok := node.(*ast.BinaryExpr)
		if !ok {
			return true
		}

		if !isErrNilCheck(binExpr) {
			return true
		}

		site, ok := spanSite(fset, src, binExpr.Pos(), binExpr.End(), "",
			fmt.Sprintf("Remove error check %q", exprText(fset, src, binExpr)))
		if !ok {
			return true
		}

		site.Replacement = site.Anchor + " && false"
		sites = append(sites, site)

		return true
	})

	return sites
}

// isErrNilCheck matches `X != nil` where X is an identifier that looks like
// an error variable (err, parseErr, lastError, ...).
func isErrNilCheck(binExpr *ast.BinaryExpr) bool {
	if binExpr.Op != token.NEQ {
		return false
	}

	lhs, ok := binExpr.X.(*ast.Ident)
	if !ok || !looksLikeErrName(lhs.Name) {
		return false
	}

	rhs, ok := binExpr.Y.(*ast.Ident)

	return ok && rhs.Name == "nil"
}

func looksLikeErrName(name string) bool {
	return name == "err" || strings.HasSuffix(name, "Err") || strings.HasSuffix(name, "Error")
}

func exprText(fset *token.FileSet, src []byte, node ast.Node) string {
	start, ok := offsetForPos(fset, node.Pos())
	if !ok {
		return ""
	}

	end, ok := offsetForPos(fset, node.End())
	if !ok || end > len(src) {
		return ""
	}

	return string(src[start:end])
}
