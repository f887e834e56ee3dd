package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	m "github.com/openshift-eng/mutest/internal/model"
	"golang.org/x/term"
)

// TUI implements UI with a Bubble Tea program. Workflow callbacks are
// forwarded into the program as messages; the program owns the screen
// until the user quits it.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
	started bool
	cancel  context.CancelFunc
}

// NewTUI creates a new TUI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start builds the model for the requested mode and launches the program.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := &StartConfig{mode: ModeTest}
	for _, option := range options {
		option(cfg)
	}

	t.cancel = cfg.cancel

	var model tea.Model

	switch cfg.mode {
	case ModeEstimate:
		model = t.sizedEstimateModel()
	case ModeTest:
		model = t.sizedTestExecutionModel()
	}

	return t.startWithModel(model)
}

// Close asks the program to quit and waits for the screen to be released.
func (t *TUI) Close(ctx context.Context) {
	if t.program == nil || !t.started {
		return
	}

	t.program.Quit()
	t.Wait(ctx)
}

// Wait blocks until the user closes the program.
func (t *TUI) Wait(ctx context.Context) {
	if t.done == nil {
		return
	}

	select {
	case <-t.done:
	case <-ctx.Done():
	}
}

// DisplayEstimation feeds the manifest into the estimate view.
func (t *TUI) DisplayEstimation(ctx context.Context, manifest m.Manifest, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		_, _ = fmt.Fprintf(t.output, "estimation error: %v\n", err)
		return err
	}

	if !t.started {
		if startErr := t.startWithModel(t.sizedEstimateModel()); startErr != nil {
			return startErr
		}
	}

	fileStats := make(map[string]int)
	for _, mutation := range manifest.Mutations {
		fileStats[string(mutation.File)]++
	}

	t.send(estimationMsg{
		total:     manifest.TotalMutations,
		fileStats: fileStats,
		skipped:   len(manifest.SkippedFiles),
	})

	return nil
}

// DisplayShardInfo shows which shard of the manifest this run covers.
func (t *TUI) DisplayShardInfo(ctx context.Context, shardIndex int, shardCount int) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.ensureStarted()
	t.send(shardMsg{index: shardIndex, total: shardCount})
}

// DisplayUpcomingTestsInfo shows the number of upcoming mutations to be tested.
func (t *TUI) DisplayUpcomingTestsInfo(ctx context.Context, total int, resumed int) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.ensureStarted()
	t.send(upcomingMsg{total: total, resumed: resumed})
}

// DisplayStartingBaselineInfo announces the baseline suite run.
func (t *TUI) DisplayStartingBaselineInfo(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.ensureStarted()
	t.send(baselineStartMsg{})
}

// DisplayBaselineResultInfo shows the baseline outcome.
func (t *TUI) DisplayBaselineResultInfo(ctx context.Context, passed bool, duration time.Duration) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.send(baselineResultMsg{passed: passed, duration: duration})
}

// DisplayStartingTestInfo shows info about the mutation test starting.
func (t *TUI) DisplayStartingTestInfo(ctx context.Context, mutation m.Mutation, index int, total int) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.send(startMutationMsg{
		id:       mutation.ID,
		category: string(mutation.Category),
		file:     string(mutation.File),
		index:    index,
		total:    total,
	})
}

// DisplayCompletedTestInfo shows info about the completed mutation test.
func (t *TUI) DisplayCompletedTestInfo(ctx context.Context, mutation m.Mutation, result m.MutantResult) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.send(completedMutationMsg{
		id:       mutation.ID,
		category: string(mutation.Category),
		file:     string(mutation.File),
		status:   string(result.Status),
		diff:     mutation.Diff,
	})
}

// DisplayMutationScore switches the program to the results view.
func (t *TUI) DisplayMutationScore(ctx context.Context, report m.ScoreReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.ensureStarted()
	t.send(scoreMsg{report: report})

	return nil
}

// startWithModel launches the Bubble Tea program with the given model.
// The program runs on its own goroutine; done is closed when it exits.
func (t *TUI) startWithModel(model tea.Model) error {
	if t.started {
		return nil
	}

	t.program = tea.NewProgram(model, tea.WithOutput(t.output), tea.WithMouseCellMotion())
	t.done = make(chan struct{})
	t.started = true

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)

		if _, err := program.Run(); err != nil {
			_, _ = fmt.Fprintf(t.output, "ui error: %v\n", err)
		}
	}(t.program, t.done)

	return nil
}

// send forwards a message to the running program. It is a no-op before
// Start and after the program has exited.
func (t *TUI) send(msg tea.Msg) {
	if !t.started || t.program == nil {
		return
	}

	t.program.Send(msg)
}

// ensureStarted launches the default test execution view for callers that
// send events without an explicit Start.
func (t *TUI) ensureStarted() {
	if t.started {
		return
	}

	_ = t.startWithModel(t.sizedTestExecutionModel())
}

func (t *TUI) sizedEstimateModel() estimateModel {
	model := newEstimateModel()
	model.width, model.height = t.initialSize()

	return model
}

func (t *TUI) sizedTestExecutionModel() testExecutionModel {
	model := newTestExecutionModel(t.cancel)
	if width, height := t.initialSize(); width > 0 {
		model = model.handleWindowSize(tea.WindowSizeMsg{Width: width, Height: height})
	}

	return model
}

// initialSize reads the terminal size once before the program starts, so
// the first frame is laid out correctly instead of waiting for the first
// WindowSizeMsg.
func (t *TUI) initialSize() (int, int) {
	file, ok := t.output.(*os.File)
	if !ok {
		return 0, 0
	}

	width, height, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0, 0
	}

	return width, height
}
