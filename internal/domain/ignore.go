package domain

import (
	"go/ast"
	"go/token"
	"strings"
	"unicode"

	m "github.com/openshift-eng/mutest/internal/model"
)

// ignoreDirective is the comment prefix that suppresses mutation generation.
// A bare directive ignores every category; a comma-separated list of category
// names ignores only those.
const ignoreDirective = "mutest:ignore"

type ignoreRule struct {
	all        bool
	categories map[string]struct{}
}

func (r ignoreRule) ignores(category m.Category) bool {
	if r.all {
		return true
	}

	if len(r.categories) == 0 {
		return false
	}

	_, ok := r.categories[strings.ToLower(string(category))]

	return ok
}

func (r ignoreRule) empty() bool {
	return !r.all && len(r.categories) == 0
}

func mergeIgnoreRule(dst *ignoreRule, src ignoreRule) {
	if src.all {
		dst.all = true
		dst.categories = nil

		return
	}

	if dst.all || len(src.categories) == 0 {
		return
	}

	if dst.categories == nil {
		dst.categories = make(map[string]struct{}, len(src.categories))
	}

	for name := range src.categories {
		dst.categories[name] = struct{}{}
	}
}

func parseIgnoreDirective(commentText string) (ignoreRule, bool) {
	s := strings.TrimSpace(commentText)
	if strings.HasPrefix(s, "//") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "//"))
	} else if strings.HasPrefix(s, "/*") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "/*"))
		s = strings.TrimSpace(strings.TrimSuffix(s, "*/"))
	}

	if !strings.HasPrefix(s, ignoreDirective) {
		return ignoreRule{}, false
	}

	rest := strings.TrimSpace(strings.TrimPrefix(s, ignoreDirective))
	if rest == "" {
		return ignoreRule{all: true}, true
	}

	parts := strings.Split(rest, ",")
	rule := ignoreRule{categories: make(map[string]struct{}, len(parts))}

	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}

		rule.categories[name] = struct{}{}
	}

	if len(rule.categories) == 0 {
		rule.all = true
		rule.categories = nil
	}

	return rule, true
}

// funcIgnoreRange carries a function-level rule with the line span it covers.
type funcIgnoreRange struct {
	startLine int
	endLine   int
	rule      ignoreRule
}

// ignoreIndex resolves which mutation categories are suppressed at a given
// line, combining file, function and line scoped directives.
type ignoreIndex struct {
	file  ignoreRule
	funcs []funcIgnoreRange
	line  map[int]ignoreRule
}

func (idx ignoreIndex) ignoredAt(category m.Category, line int) bool {
	if idx.file.ignores(category) {
		return true
	}

	for _, fr := range idx.funcs {
		if line >= fr.startLine && line <= fr.endLine && fr.rule.ignores(category) {
			return true
		}
	}

	return idx.line[line].ignores(category)
}

func buildIgnoreIndex(file *ast.File, fset *token.FileSet, content []byte) ignoreIndex {
	funcs, funcDocGroups := buildFuncIgnoreRanges(file, fset)

	return ignoreIndex{
		file:  buildFileIgnoreRule(file),
		funcs: funcs,
		line:  buildLineIgnoreRules(file, fset, content, funcDocGroups),
	}
}

func buildFuncIgnoreRanges(file *ast.File, fset *token.FileSet) ([]funcIgnoreRange, map[*ast.CommentGroup]struct{}) {
	var funcs []funcIgnoreRange

	funcDocGroups := map[*ast.CommentGroup]struct{}{}

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Doc == nil {
			continue
		}

		funcDocGroups[fd.Doc] = struct{}{}

		var rule ignoreRule

		for _, c := range fd.Doc.List {
			r, ok := parseIgnoreDirective(c.Text)
			if !ok {
				continue
			}

			mergeIgnoreRule(&rule, r)
		}

		if rule.empty() {
			continue
		}

		funcs = append(funcs, funcIgnoreRange{
			startLine: fset.Position(fd.Pos()).Line,
			endLine:   fset.Position(fd.End()).Line,
			rule:      rule,
		})
	}

	return funcs, funcDocGroups
}

func buildFileIgnoreRule(file *ast.File) ignoreRule {
	var rule ignoreRule

	for _, group := range file.Comments {
		if group.End() >= file.Package {
			continue
		}

		for _, c := range group.List {
			r, ok := parseIgnoreDirective(c.Text)
			if !ok {
				continue
			}

			mergeIgnoreRule(&rule, r)
		}
	}

	return rule
}

func buildLineIgnoreRules(
	file *ast.File,
	fset *token.FileSet,
	content []byte,
	funcDocGroups map[*ast.CommentGroup]struct{},
) map[int]ignoreRule {
	lineRules := make(map[int]ignoreRule)
	lineStarts := computeLineStarts(content)

	for _, group := range file.Comments {
		if group.End() < file.Package {
			continue
		}

		if _, ok := funcDocGroups[group]; ok {
			continue
		}

		for _, c := range group.List {
			r, ok := parseIgnoreDirective(c.Text)
			if !ok {
				continue
			}

			pos := fset.PositionFor(c.Slash, true)
			if pos.Line <= 0 {
				continue
			}

			// A directive on its own line guards the line below it; a
			// trailing directive guards its own line.
			targetLine := pos.Line
			if isLeadingComment(pos.Line, pos.Offset, lineStarts, content) {
				targetLine = pos.Line + 1
			}

			current := lineRules[targetLine]
			mergeIgnoreRule(&current, r)
			lineRules[targetLine] = current
		}
	}

	return lineRules
}

func computeLineStarts(content []byte) []int {
	starts := []int{0}

	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}

	return starts
}

func isLeadingComment(line int, slashOffset int, lineStarts []int, content []byte) bool {
	if line <= 0 || line > len(lineStarts) {
		return false
	}

	start := lineStarts[line-1]
	if slashOffset < start || slashOffset > len(content) {
		return false
	}

	for _, b := range content[start:slashOffset] {
		if !unicode.IsSpace(rune(b)) {
			return false
		}
	}

	return true
}
