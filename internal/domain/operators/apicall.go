package operators

import (
	"fmt"
	"go/ast"
	"go/token"

	m "github.com/openshift-eng/mutest/internal/model"
)

// apiCallVerbs are the client verbs that can stand in for each other. Each
// verb at a matching call site is swapped for the other two.
var apiCallVerbs = []string{"Create", "Update", "Delete"}

// apiCallTypeChange swaps the verb of Kubernetes-style client calls, turning
// `r.Client.Create(ctx, obj)` into Update or Delete. Matching is purely
// syntactic: a method named Create, Update, or Delete, at least two
// arguments, the first of which is an identifier named ctx. Status writer
// calls stay with statusUpdateSkip.
type apiCallTypeChange struct{}

func (apiCallTypeChange) Category() m.Category {
	return m.CategoryAPICallTypeChange
}

func (apiCallTypeChange) Sites(file *ast.File, fset *token.FileSet, src []byte) []Site {
	var sites []Site

	ast.Inspect(file, func(node ast.Node) bool {
		call, ok := node.(*ast.CallExpr)
		if !ok {
			return true
		}

		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || !isAPICallVerb(sel.Sel.Name) {
			return true
		}

		if isStatusCall(sel.X) {
			return true
		}

		if len(call.Args) < 2 {
			return true
		}

		first, ok := call.Args[0].(*ast.Ident)
		if !ok || first.Name != "ctx" {
			return true
		}

		for _, verb := range apiCallVerbs {
			if verb == sel.Sel.Name {
				continue
			}

			site, ok := spanSite(fset, src, sel.Sel.Pos(), sel.Sel.End(), verb,
				fmt.Sprintf("Change %s to %s", sel.Sel.Name, verb))
			if !ok {
				continue
			}

			sites = append(sites, site)
		}

		return true
	})

	return sites
}

func isAPICallVerb(name string) bool {
	for _, verb := range apiCallVerbs {
		if verb == name {
			return true
		}
	}

	return false
}
