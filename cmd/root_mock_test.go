package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/openshift-eng/mutest/internal/controller"
	"github.com/openshift-eng/mutest/internal/domain"
	m "github.com/openshift-eng/mutest/internal/model"
)

// cobraCmdHarness bundles a command under test with its captured output.
type cobraCmdHarness struct {
	cmd    *cobra.Command
	output *bytes.Buffer
}

// stubUI quiets the display layer during command tests and records the
// calls the commands make.
type stubUI struct {
	started     bool
	estimations []m.Manifest
	scores      []m.ScoreReport
	waited      int
	closed      int
}

func (u *stubUI) Start(context.Context, ...controller.StartOption) error {
	u.started = true

	return nil
}

func (u *stubUI) Close(context.Context) { u.closed++ }

func (u *stubUI) Wait(context.Context) { u.waited++ }

func (u *stubUI) DisplayEstimation(_ context.Context, manifest m.Manifest, err error) error {
	u.estimations = append(u.estimations, manifest)

	return err
}

func (u *stubUI) DisplayShardInfo(context.Context, int, int) {}

func (u *stubUI) DisplayUpcomingTestsInfo(context.Context, int, int) {}

func (u *stubUI) DisplayStartingBaselineInfo(context.Context) {}

func (u *stubUI) DisplayBaselineResultInfo(context.Context, bool, time.Duration) {}

func (u *stubUI) DisplayStartingTestInfo(context.Context, m.Mutation, int, int) {}

func (u *stubUI) DisplayCompletedTestInfo(context.Context, m.Mutation, m.MutantResult) {}

func (u *stubUI) DisplayMutationScore(_ context.Context, report m.ScoreReport) error {
	u.scores = append(u.scores, report)

	return nil
}

// swapUI installs a stub UI for the duration of a test.
func swapUI(t *testing.T) *stubUI {
	t.Helper()

	stub := &stubUI{}
	original := ui
	ui = stub

	t.Cleanup(func() { ui = original })

	return stub
}

// swapWorkflow installs a replacement workflow for the duration of a test.
func swapWorkflow(t *testing.T, replacement domain.Workflow) {
	t.Helper()

	original := workflow
	workflow = replacement

	t.Cleanup(func() { workflow = original })
}
