package domain

import (
	"go/parser"
	"go/token"
	"testing"

	m "github.com/openshift-eng/mutest/internal/model"
)

func TestParseIgnoreDirective_All(t *testing.T) {
	r, ok := parseIgnoreDirective("//mutest:ignore")
	if !ok {
		t.Fatalf("expected directive to be parsed")
	}
	if !r.all || r.categories != nil {
		t.Fatalf("expected all=true and categories=nil")
	}
}

func TestParseIgnoreDirective_Categories(t *testing.T) {
	r, ok := parseIgnoreDirective("//mutest:ignore Conditional-Negation, requeue-timing-change ")
	if !ok {
		t.Fatalf("expected directive to be parsed")
	}
	if r.all {
		t.Fatalf("expected all=false")
	}
	if len(r.categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(r.categories))
	}
	if !r.ignores(m.CategoryConditionalNegation) {
		t.Fatalf("expected conditional-negation to be ignored")
	}
	if !r.ignores(m.CategoryRequeueTimingChange) {
		t.Fatalf("expected requeue-timing-change to be ignored")
	}
	if r.ignores(m.CategoryArithmeticChange) {
		t.Fatalf("did not expect arithmetic-operator-change to be ignored")
	}
}

func TestParseIgnoreDirective_BlockComment(t *testing.T) {
	r, ok := parseIgnoreDirective("/* mutest:ignore status-update-skip */")
	if !ok {
		t.Fatalf("expected directive to be parsed")
	}
	if r.all {
		t.Fatalf("expected all=false")
	}
	if !r.ignores(m.CategoryStatusUpdateSkip) {
		t.Fatalf("expected status-update-skip to be ignored")
	}
}

func TestParseIgnoreDirective_NotADirective(t *testing.T) {
	if _, ok := parseIgnoreDirective("// plain comment"); ok {
		t.Fatalf("did not expect a directive")
	}
	if _, ok := parseIgnoreDirective("// ignore mutest noise"); ok {
		t.Fatalf("did not expect a directive")
	}
}

func TestIgnoreIndex_Scopes(t *testing.T) {
	const src = "//mutest:ignore arithmetic-operator-change\n" + // line 1
		"package p\n" + // line 2
		"\n" +
		"//mutest:ignore\n" + // line 4
		"func ignoredFunc() {\n" + // line 5
		"\t_ = 1 + 2\n" + // line 6
		"}\n" + // line 7
		"\n" +
		"func f() {\n" + // line 9
		"\t//mutest:ignore conditional-negation\n" + // line 10
		"\t_ = 1 + 2\n" + // line 11
		"\t_ = 1 + 2 //mutest:ignore requeue-timing-change\n" + // line 12
		"}\n" // line 13

	content := []byte(src)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", content, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	idx := buildIgnoreIndex(file, fset, content)

	if !idx.ignoredAt(m.CategoryArithmeticChange, 11) {
		t.Fatalf("expected file-level ignore for arithmetic-operator-change")
	}
	if idx.ignoredAt(m.CategoryStatusUpdateSkip, 11) {
		t.Fatalf("did not expect file-level ignore for status-update-skip")
	}

	if !idx.ignoredAt(m.CategoryConditionalNegation, 6) {
		t.Fatalf("expected function-level ignore inside ignoredFunc")
	}
	if idx.ignoredAt(m.CategoryConditionalNegation, 9) {
		t.Fatalf("did not expect function-level ignore to leak into f")
	}

	if !idx.ignoredAt(m.CategoryConditionalNegation, 11) {
		t.Fatalf("expected leading comment to guard the next line")
	}
	if idx.ignoredAt(m.CategoryConditionalNegation, 12) {
		t.Fatalf("did not expect conditional-negation ignore on line 12")
	}
	if !idx.ignoredAt(m.CategoryRequeueTimingChange, 12) {
		t.Fatalf("expected trailing comment to guard its own line")
	}
}
