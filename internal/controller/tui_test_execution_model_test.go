package controller

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	m "github.com/openshift-eng/mutest/internal/model"
)

func TestTestResult_FilterValue(t *testing.T) {
	result := testResult{id: "1", file: "a.go", category: "conditional-negation", status: "killed"}
	got := result.FilterValue()
	for _, want := range []string{"1", "a.go", "conditional-negation", "killed"} {
		if !strings.Contains(got, want) {
			t.Fatalf("FilterValue() = %q, missing %q", got, want)
		}
	}
}

func TestAnimateScrollFileAndTruncateFile(t *testing.T) {
	if got := truncateFile("hello", 0); got != "" {
		t.Fatalf("truncateFile width 0 = %q", got)
	}
	if got := truncateFile("hello", 1); got != "…" {
		t.Fatalf("truncateFile width 1 = %q", got)
	}
	if got := truncateFile("hello", 10); got != "hello" {
		t.Fatalf("truncateFile no truncation = %q", got)
	}

	if got := animateScrollFile("abcdef", 3, 0); got != "ab…" {
		t.Fatalf("animateScrollFile pause = %q", got)
	}
	got := animateScrollFile("abcdef", 3, 10)
	if got == "ab…" || len([]rune(got)) != 3 {
		t.Fatalf("animateScrollFile scrolled = %q", got)
	}
}

func TestTestExecutionModel_HandleStartAndComplete(t *testing.T) {
	model := newTestExecutionModel(nil)
	model = model.handleStartMutation(startMutationMsg{
		id: "abcdef0123456789", category: "conditional-negation", file: "controllers/app.go", index: 1, total: 1,
	})
	if model.currentFile != "controllers/app.go" || model.currentID != "abcdef0123456789" || !model.rendered {
		t.Fatalf("handleStartMutation did not set state")
	}

	model.totalMutations = 1
	model = model.handleCompletedMutation(completedMutationMsg{
		id: "abcdef0123456789", category: "conditional-negation", file: "controllers/app.go", status: "killed",
	})
	if model.completedCount != 1 || model.progressPercent != 1 || !model.testingFinished {
		t.Fatalf("handleCompletedMutation did not complete progress")
	}
	if model.currentID != "" {
		t.Fatalf("currentID = %q, want cleared after completion", model.currentID)
	}
	if len(model.results) != 1 {
		t.Fatalf("results length = %d, want 1", len(model.results))
	}
	if model.results[0].id != "abcdef01" {
		t.Fatalf("result id = %q, want shortened", model.results[0].id)
	}
	if len(model.resultsList.Items()) != 1 {
		t.Fatalf("results list items = %d, want 1", len(model.resultsList.Items()))
	}

	// when totalMutations is zero, progress should not update
	model.totalMutations = 0
	model = model.handleCompletedMutation(completedMutationMsg{id: "ffff", status: "survived"})
	if model.progressPercent != 1 {
		t.Fatalf("progressPercent = %v, want 1", model.progressPercent)
	}
}

func TestTestExecutionModel_HandleUpcomingSeedsResumedProgress(t *testing.T) {
	model := newTestExecutionModel(nil)
	model = model.handleUpcoming(upcomingMsg{total: 4, resumed: 1})

	if model.totalMutations != 4 || model.resumedCount != 1 {
		t.Fatalf("handleUpcoming totals = %d/%d", model.totalMutations, model.resumedCount)
	}
	if model.completedCount != 1 {
		t.Fatalf("completedCount = %d, want resumed results counted", model.completedCount)
	}
	if model.progressPercent != 0.25 {
		t.Fatalf("progressPercent = %v, want 0.25", model.progressPercent)
	}
	if !model.rendered {
		t.Fatalf("handleUpcoming should mark the model rendered")
	}
}

func TestTestExecutionModel_BaselineLifecycle(t *testing.T) {
	model := newTestExecutionModel(nil)

	updated, _ := model.Update(baselineStartMsg{})
	model = updated.(testExecutionModel)
	if !model.baselineRunning || !model.rendered {
		t.Fatalf("baselineStartMsg not applied")
	}

	model = model.handleBaselineResult(baselineResultMsg{passed: true, duration: 1200 * time.Millisecond})
	if model.baselineRunning || !model.baselineDone || !model.baselinePassed {
		t.Fatalf("handleBaselineResult not applied")
	}

	model.width = 80
	box := model.renderRunBox("6")
	if !strings.Contains(box, "Baseline") || !strings.Contains(box, "1.2s") {
		t.Fatalf("renderRunBox missing baseline result\n%s", box)
	}
	if !strings.Contains(box, "idle") {
		t.Fatalf("renderRunBox missing idle marker\n%s", box)
	}

	model = model.handleStartMutation(startMutationMsg{id: "abcdef0123456789", category: "arithmetic-operator-change", file: "a.go"})
	box = model.renderRunBox("6")
	if !strings.Contains(box, "abcdef01") || !strings.Contains(box, "a.go") {
		t.Fatalf("renderRunBox missing current mutant\n%s", box)
	}
}

func TestTestExecutionModel_QuitCancelsRun(t *testing.T) {
	canceled := false
	model := newTestExecutionModel(func() { canceled = true })

	_, cmd := model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit cmd")
	}
	if !canceled {
		t.Fatalf("q must invoke the cancel function")
	}
}

func TestTestExecutionModel_HandleKeyMsgAndTick(t *testing.T) {
	model := newTestExecutionModel(nil)
	model.testingFinished = true
	model.rendered = true
	model.resultsList.SetItems([]list.Item{
		testResult{id: "1", file: "a.go", category: "conditional-negation", status: "killed"},
		testResult{id: "2", file: "b.go", category: "arithmetic-operator-change", status: "survived"},
	})

	model.lastSelected = -1
	updated, _ := model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyDown})
	if updated.lastSelected == -1 {
		t.Fatalf("expected selection to update")
	}

	_, cmd := updated.handleKeyMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit cmd")
	}

	updated.animOffset = 0
	model, _ = updated.handleTickMsg(tickMsg(time.Now()))
	if model.animOffset != 1 {
		t.Fatalf("animOffset = %d, want 1", model.animOffset)
	}

	updated.testingFinished = false
	expectedOffset := updated.animOffset
	model, _ = updated.handleTickMsg(tickMsg(time.Now()))
	if model.animOffset != expectedOffset {
		t.Fatalf("animOffset changed unexpectedly")
	}

	fresh := newTestExecutionModel(nil)
	_, cmd = fresh.handleKeyMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd != nil {
		t.Fatalf("expected nil cmd when not finished")
	}
}

func TestTestExecutionModel_WindowSizeAndViews(t *testing.T) {
	model := newTestExecutionModel(nil)
	model = model.handleWindowSize(tea.WindowSizeMsg{Width: 10, Height: 5})
	if model.progressBar.Width != 20 {
		t.Fatalf("progress bar width = %d, want 20", model.progressBar.Width)
	}

	model = model.handleWindowSize(tea.WindowSizeMsg{Width: 80, Height: 30})
	if model.progressBar.Width != 72 {
		t.Fatalf("progress bar width = %d, want 72", model.progressBar.Width)
	}

	if got := model.View(); got != "Initializing mutation run…\n" {
		t.Fatalf("View() before rendered = %q", got)
	}

	model.rendered = true
	model.totalMutations = 2
	model.completedCount = 1
	model.totalShards = 2
	model.shardIndex = 0

	progressView := model.viewProgress()
	if !strings.Contains(progressView, "Mutest Mutation Testing") {
		t.Fatalf("viewProgress missing title")
	}
	if !strings.Contains(progressView, "Shard") {
		t.Fatalf("viewProgress missing shard info")
	}

	model.testingFinished = true
	model.results = []testResult{{status: "killed"}, {status: "error"}, {status: "killed-timeout"}}
	resultsView := model.viewResults()
	if !strings.Contains(resultsView, "Mutest Results") {
		t.Fatalf("viewResults missing title")
	}

	box := model.renderResultsBox("6")
	if !strings.Contains(box, "ID") {
		t.Fatalf("renderResultsBox missing headers")
	}

	if got := model.countStatus("killed-timeout"); got != 1 {
		t.Fatalf("countStatus killed-timeout = %d, want 1", got)
	}
}

func TestTestExecutionModel_ResultsSummaryPrefersReport(t *testing.T) {
	model := newTestExecutionModel(nil)
	model.results = []testResult{{status: "killed"}}

	summary := model.resultsSummary(lipglossAccent())
	if !strings.Contains(summary, "Total: 1") {
		t.Fatalf("counted summary = %q", summary)
	}

	model.report = &m.ScoreReport{
		Summary: m.Summary{Total: 10, Killed: 7, Survived: 2, KilledTimeout: 1, MutationScore: 80.00},
	}

	summary = model.resultsSummary(lipglossAccent())
	for _, want := range []string{"80.00%", "Total: 10", "Killed: 7"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("report summary = %q, missing %q", summary, want)
		}
	}
}

func TestTestResultDelegateStyles(t *testing.T) {
	delegate := testResultDelegate{}
	result := testResult{id: "12345678", file: "path/to/file.go", category: "conditional-negation", status: "custom"}

	_, _, _, _, display := delegate.getStylesAndFile(result, false, 10)
	if len([]rune(display)) == 0 {
		t.Fatalf("expected display file for unselected")
	}

	_, _, _, _, display = delegate.getStylesAndFile(result, true, 10)
	if len([]rune(display)) == 0 {
		t.Fatalf("expected display file for selected")
	}
}

func TestTestResultDelegate_Render(t *testing.T) {
	delegate := testResultDelegate{}
	items := []list.Item{testResult{id: "1", file: "short.go", category: "conditional-negation", status: "killed"}}
	lst := list.New(items, delegate, 80, 5)
	var buf strings.Builder
	delegate.Render(&buf, lst, 0, items[0])
	if !strings.Contains(buf.String(), "short.go") {
		t.Fatalf("render output missing file")
	}

	// Render with bad item type should not panic
	buf.Reset()
	delegate.Render(&buf, lst, 0, struct{ list.Item }{})

	if delegate.Height() != 1 {
		t.Fatalf("Height() = %d, want 1", delegate.Height())
	}
	if delegate.Spacing() != 0 {
		t.Fatalf("Spacing() = %d, want 0", delegate.Spacing())
	}
	if cmd := delegate.Update(nil, &lst); cmd != nil {
		t.Fatalf("Update() returned cmd")
	}
}

func TestTestExecutionModel_UpdateSwitch(t *testing.T) {
	model := newTestExecutionModel(nil)
	if cmd := model.Init(); cmd == nil {
		t.Fatalf("Init() returned nil cmd")
	}

	if view := model.View(); !strings.Contains(view, "Initializing") {
		t.Fatalf("View before start should show initializing")
	}

	_, _ = model.Update(tea.WindowSizeMsg{Width: 50, Height: 10})
	_, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	_, _ = model.Update(tickMsg(time.Now()))

	updated, _ := model.Update(startMutationMsg{id: "abcd", category: "conditional-negation", file: "a.go", index: 1, total: 2})
	model = updated.(testExecutionModel)

	if view := model.View(); !strings.Contains(view, "Mutest Mutation Testing") {
		t.Fatalf("View after start should show testing")
	}

	_, _ = model.Update(completedMutationMsg{id: "abcd", category: "conditional-negation", file: "a.go", status: "killed"})
	_, _ = model.Update(shardMsg{index: 1, total: 3})
	_, _ = model.Update(upcomingMsg{total: 10})

	updated, _ = model.Update(scoreMsg{report: m.ScoreReport{
		Summary: m.Summary{Total: 1, Killed: 1, MutationScore: 100.00},
	}})
	model = updated.(testExecutionModel)

	if !model.testingFinished || model.report == nil {
		t.Fatalf("scoreMsg must finish the run and record the report")
	}

	if view := model.View(); !strings.Contains(view, "100.00%") {
		t.Fatalf("results view missing score\n%s", view)
	}
}

// lipglossAccent builds the accent style the views use, for direct summary calls.
func lipglossAccent() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
}
