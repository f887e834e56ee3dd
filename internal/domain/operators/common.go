package operators

import (
	"go/ast"
	"go/token"
)

func offsetForPos(fset *token.FileSet, pos token.Pos) (int, bool) {
	file := fset.File(pos)
	if file == nil {
		return 0, false
	}

	return file.Offset(pos), true
}

// spanSite assembles a Site covering [pos, end) with the given replacement.
// The anchor is lifted verbatim from src so the applicator can verify it.
func spanSite(fset *token.FileSet, src []byte, pos, end token.Pos, replacement, description string) (Site, bool) {
	start, ok := offsetForPos(fset, pos)
	if !ok {
		return Site{}, false
	}

	stop, ok := offsetForPos(fset, end)
	if !ok || start < 0 || stop < start || stop > len(src) {
		return Site{}, false
	}

	position := fset.Position(pos)

	return Site{
		StartOffset: start,
		EndOffset:   stop,
		Line:        position.Line,
		Column:      position.Column,
		Anchor:      string(src[start:stop]),
		Replacement: replacement,
		Description: description,
	}, true
}

// isStatusCall reports whether expr is a call of the form `X.Status()`.
func isStatusCall(expr ast.Expr) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return false
	}

	sel, ok := call.Fun.(*ast.SelectorExpr)

	return ok && sel.Sel.Name == "Status" && len(call.Args) == 0
}
