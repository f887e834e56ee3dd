package operators

import (
	"go/ast"
	"go/token"

	m "github.com/openshift-eng/mutest/internal/model"
)

// statusUpdateSkip drops controller status writes. A bare
// `recv.Status().Update(...)` statement is removed, together with its line
// when it stands alone on one; an
// assignment such as `err := recv.Status().Update(...)` keeps the assignment
// but replaces the call with `error(nil)` so the mutant still compiles under
// both `=` and `:=`. Tests that never read the written status let these
// mutants survive.
type statusUpdateSkip struct{}

func (statusUpdateSkip) Category() m.Category {
	return m.CategoryStatusUpdateSkip
}

func (statusUpdateSkip) Sites(file *ast.File, fset *token.FileSet, src []byte) []Site {
	var sites []Site

	ast.Inspect(file, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.BlockStmt:
			sites = append(sites, statementDeleteSites(n.List, fset, src)...)
		case *ast.CaseClause:
			sites = append(sites, statementDeleteSites(n.Body, fset, src)...)
		case *ast.CommClause:
			sites = append(sites, statementDeleteSites(n.Body, fset, src)...)
		case *ast.AssignStmt:
			if len(n.Rhs) != 1 || !isStatusUpdateCall(n.Rhs[0]) {
				return true
			}

			site, ok := spanSite(fset, src, n.Rhs[0].Pos(), n.Rhs[0].End(),
				"error(nil)", "Replace status update call with error(nil)")
			if !ok {
				return true
			}

			sites = append(sites, site)
		}

		return true
	})

	return sites
}

// statementDeleteSites collects whole-line delete sites for the bare status
// update statements directly inside a block or clause body. Only statements
// that stand on their own can be deleted together with their line; the same
// call inside an if-init or assignment needs the expression form instead.
func statementDeleteSites(stmts []ast.Stmt, fset *token.FileSet, src []byte) []Site {
	var sites []Site

	for _, stmt := range stmts {
		exprStmt, ok := stmt.(*ast.ExprStmt)
		if !ok || !isStatusUpdateCall(exprStmt.X) {
			continue
		}

		start, ok := offsetForPos(fset, exprStmt.Pos())
		if !ok {
			continue
		}

		end, ok := offsetForPos(fset, exprStmt.End())
		if !ok {
			continue
		}

		if start < 0 || end > len(src) || start >= end {
			continue
		}

		// Extend through the end of the line so the statement vanishes
		// entirely instead of leaving a blank line behind, but only when
		// it has the line to itself. A closing brace or a `;`-separated
		// sibling after the call must survive the deletion.
		lineEnd := end
		for lineEnd < len(src) && src[lineEnd] != '\n' {
			lineEnd++
		}

		if lineTailIsBlank(src[end:lineEnd]) {
			end = lineEnd
			if end < len(src) {
				end++
			}
		}

		position := fset.Position(exprStmt.Pos())

		sites = append(sites, Site{
			StartOffset: start,
			EndOffset:   end,
			Line:        position.Line,
			Column:      position.Column,
			Anchor:      string(src[start:end]),
			Replacement: "",
			Description: "Remove status update call",
		})
	}

	return sites
}

// lineTailIsBlank reports whether the bytes between a statement's end and its
// newline hold only whitespace and an optional line comment.
func lineTailIsBlank(tail []byte) bool {
	i := 0
	for i < len(tail) && (tail[i] == ' ' || tail[i] == '\t' || tail[i] == '\r') {
		i++
	}

	if i == len(tail) {
		return true
	}

	return i+1 < len(tail) && tail[i] == '/' && tail[i+1] == '/'
}

// isStatusUpdateCall reports whether expr is a call of the form
// `X.Status().Update(...)`.
func isStatusUpdateCall(expr ast.Expr) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return false
	}

	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Update" {
		return false
	}

	return isStatusCall(sel.X)
}
