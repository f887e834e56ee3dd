package operators

import (
	"fmt"
	"go/ast"
	"go/token"

	m "github.com/openshift-eng/mutest/internal/model"
)

// returnValueChange alters literal values in return statements: booleans are
// flipped, integer zero becomes one, every other integer becomes zero.
type returnValueChange struct{}

func (returnValueChange) Category() m.Category {
	return m.CategoryReturnValueChange
}

func (returnValueChange) Sites(file *ast.File, fset *token.FileSet, src []byte) []Site {
	var sites []Site

	ast.Inspect(file, func(node ast.Node) bool {
		ret, ok := node.(*ast.ReturnStmt)
		if !ok {
			return true
		}

		for _, result := range ret.Results {
			replacement, ok := returnReplacement(result)
			if !ok {
				continue
			}

			site, ok := spanSite(fset, src, result.Pos(), result.End(), replacement, "")
			if !ok {
				continue
			}

			site.Description = fmt.Sprintf("Change return value %s to %s", site.Anchor, replacement)
			sites = append(sites, site)
		}

		return true
	})

	return sites
}

func returnReplacement(expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.Ident:
		switch e.Name {
		case "true":
			return "false", true
		case "false":
			return "true", true
		}
	case *ast.BasicLit:
		if e.Kind != token.INT {
			return "", false
		}

		if e.Value == "0" {
			return "1", true
		}

		return "0", true
	}

	return "", false
}
