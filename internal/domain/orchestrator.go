package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openshift-eng/mutest/internal/adapter"
	"github.com/openshift-eng/mutest/internal/controller"
	m "github.com/openshift-eng/mutest/internal/model"
	"github.com/openshift-eng/mutest/pkg/spool"
)

// RunPhase tracks where the orchestrator is in its lifecycle. Transitions
// only ever move forward; a failed baseline is terminal.
type RunPhase int

// Orchestrator lifecycle phases.
const (
	PhaseIdle RunPhase = iota
	PhaseBaselineVerifying
	PhaseBaselinePassed
	PhaseBaselineFailed
	PhaseIteratingMutants
	PhaseCompleted
)

func (p RunPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBaselineVerifying:
		return "baseline-verifying"
	case PhaseBaselinePassed:
		return "baseline-passed"
	case PhaseBaselineFailed:
		return "baseline-failed"
	case PhaseIteratingMutants:
		return "iterating-mutants"
	case PhaseCompleted:
		return "completed"
	}

	return "unknown"
}

// ExecuteArgs parameterizes one orchestrated run over an already generated
// manifest slice.
type ExecuteArgs struct {
	// ProjectRoot is where the test command runs, usually the directory
	// holding go.mod.
	ProjectRoot m.Path

	// Mutations is the (possibly shard-filtered) list to test, in manifest
	// order.
	Mutations []m.Mutation

	// ManifestKey identifies the run for resume matching. Shard runs carry
	// a shard suffix so different shards never resume each other.
	ManifestKey string

	MutationTimeout time.Duration
	BaselineTimeout time.Duration

	// Fresh discards any resumable run and re-tests every mutant.
	Fresh bool
}

// Orchestrator drives the test-mutate-revert loop: baseline verification
// first, then one mutant at a time, reverting after each, recording every
// outcome as it happens.
type Orchestrator interface {
	Execute(ctx context.Context, args ExecuteArgs) ([]m.MutantResult, error)
	Phase() RunPhase
}

type orchestrator struct {
	applicator Applicator
	runner     adapter.TestRunnerAdapter
	results    adapter.ResultStore
	reports    adapter.ReportStore
	logs       spool.Spool
	ui         controller.UI

	phase RunPhase
}

// NewOrchestrator constructs an Orchestrator over the given collaborators.
func NewOrchestrator(
	applicator Applicator,
	runner adapter.TestRunnerAdapter,
	results adapter.ResultStore,
	reports adapter.ReportStore,
	logs spool.Spool,
	ui controller.UI,
) Orchestrator {
	return &orchestrator{
		applicator: applicator,
		runner:     runner,
		results:    results,
		reports:    reports,
		logs:       logs,
		ui:         ui,
	}
}

// Phase reports the current lifecycle phase.
func (o *orchestrator) Phase() RunPhase {
	return o.phase
}

func (o *orchestrator) transition(next RunPhase) {
	slog.Debug("Orchestrator phase transition", "from", o.phase, "to", next)
	o.phase = next
}

// Execute verifies the baseline and then tests every mutant sequentially.
// Results returned are the outcomes established so far; on context
// cancellation they are partial and the error is the context's.
func (o *orchestrator) Execute(ctx context.Context, args ExecuteArgs) ([]m.MutantResult, error) {
	if err := o.verifyBaseline(ctx, args); err != nil {
		return nil, err
	}

	run, prior, err := o.results.OpenRun(ctx, args.ProjectRoot, args.ManifestKey, len(args.Mutations), args.Fresh)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}

	resumed := reusableResults(prior, args.Mutations)

	if len(prior) == 0 {
		if err := o.reports.ResetResults(); err != nil {
			return nil, err
		}
	}

	o.ui.DisplayUpcomingTestsInfo(ctx, len(args.Mutations), len(resumed))

	o.transition(PhaseIteratingMutants)

	results := make([]m.MutantResult, 0, len(args.Mutations))

	for i, mutation := range args.Mutations {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if res, ok := resumed[mutation.ID]; ok {
			results = append(results, res)
			continue
		}

		o.ui.DisplayStartingTestInfo(ctx, mutation, i+1, len(args.Mutations))

		res, fatal := o.testMutant(ctx, mutation, args)
		if fatal != nil {
			return results, fatal
		}

		if res == nil {
			// Cancelled mid-suite. The mutant has been reverted and its
			// outcome is void.
			return results, ctx.Err()
		}

		if err := o.persist(ctx, run.ID, *res); err != nil {
			return results, err
		}

		results = append(results, *res)
		o.ui.DisplayCompletedTestInfo(ctx, mutation, *res)
	}

	if err := o.results.CompleteRun(ctx, run.ID); err != nil {
		return results, fmt.Errorf("failed to complete run: %w", err)
	}

	o.transition(PhaseCompleted)

	return results, nil
}

// verifyBaseline runs the suite on the unmutated tree. Mutation results are
// meaningless unless this passes.
func (o *orchestrator) verifyBaseline(ctx context.Context, args ExecuteArgs) error {
	o.transition(PhaseBaselineVerifying)
	o.ui.DisplayStartingBaselineInfo(ctx)

	suite, err := o.runner.RunSuite(ctx, args.ProjectRoot, args.BaselineTimeout)
	if err != nil {
		o.transition(PhaseBaselineFailed)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("%w: %v", m.ErrBaselineFailure, err)
	}

	passed := !suite.TimedOut && suite.ExitCode == 0
	o.ui.DisplayBaselineResultInfo(ctx, passed, suite.Duration)

	if passed {
		o.transition(PhaseBaselinePassed)
		return nil
	}

	o.transition(PhaseBaselineFailed)

	if ref, putErr := o.logs.Put("baseline", suite.Output); putErr == nil {
		slog.Error("Baseline suite failed", "output", ref)
	}

	if suite.TimedOut {
		return fmt.Errorf("%w: suite exceeded %s on the unmutated tree",
			m.ErrBaselineFailure, args.BaselineTimeout)
	}

	return fmt.Errorf("%w: suite exited %d on the unmutated tree",
		m.ErrBaselineFailure, suite.ExitCode)
}

// testMutant applies one mutation, runs the suite and classifies the
// outcome. The mutation is reverted on every path; a revert failure
// overrides any other return since the tree can no longer be trusted.
// A nil result with a nil fatal error means the run was cancelled while
// the suite was in flight.
func (o *orchestrator) testMutant(ctx context.Context, mutation m.Mutation, args ExecuteArgs) (result *m.MutantResult, fatal error) {
	if err := o.applicator.Apply(mutation); err != nil {
		if errors.Is(err, m.ErrInvariantViolation) || errors.Is(err, m.ErrRevertFailure) {
			return nil, err
		}

		// Anchor mismatches and IO failures condemn only this mutant. The
		// file was not modified.
		slog.Warn("Could not apply mutation", "id", mutation.ID, "error", err)

		res := o.errorResult(mutation, err)

		return &res, nil
	}

	defer func() {
		if err := o.applicator.Revert(mutation); err != nil {
			slog.Error("Failed to revert mutation", "id", mutation.ID, "error", err)

			result = nil
			fatal = err
		}
	}()

	suite, err := o.runner.RunSuite(ctx, args.ProjectRoot, args.MutationTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}

		res := o.errorResult(mutation, err)

		return &res, nil
	}

	res := m.MutantResult{
		MutationID: mutation.ID,
		Category:   mutation.Category,
		File:       mutation.File,
		Line:       mutation.Line,
		Status:     Classify(suite),
		ExitCode:   suite.ExitCode,
		DurationMs: suite.Duration.Milliseconds(),
	}

	if ref, putErr := o.logs.Put(mutation.ID, suite.Output); putErr == nil {
		res.OutputRef = ref
	} else {
		slog.Warn("Failed to spool suite output", "id", mutation.ID, "error", putErr)
	}

	return &res, nil
}

func (o *orchestrator) errorResult(mutation m.Mutation, cause error) m.MutantResult {
	res := m.MutantResult{
		MutationID: mutation.ID,
		Category:   mutation.Category,
		File:       mutation.File,
		Line:       mutation.Line,
		Status:     m.StatusError,
		ExitCode:   -1,
	}

	if ref, err := o.logs.Put(mutation.ID, []byte(cause.Error())); err == nil {
		res.OutputRef = ref
	}

	return res
}

// persist records the outcome durably before the loop moves on, so a crash
// or interrupt never loses finished work. The database row drives resume;
// the JSONL line keeps the artifact directory self-contained.
func (o *orchestrator) persist(ctx context.Context, runID string, res m.MutantResult) error {
	if err := o.results.RecordResult(ctx, runID, res); err != nil {
		return fmt.Errorf("failed to record result for %s: %w", res.MutationID, err)
	}

	if err := o.reports.AppendResult(res); err != nil {
		return fmt.Errorf("failed to log result for %s: %w", res.MutationID, err)
	}

	return nil
}

// reusableResults filters stored outcomes down to mutations present in this
// run, dropping stale IDs left over from older manifests.
func reusableResults(prior map[string]m.MutantResult, mutations []m.Mutation) map[string]m.MutantResult {
	if len(prior) == 0 {
		return nil
	}

	reusable := make(map[string]m.MutantResult, len(prior))

	for _, mu := range mutations {
		if res, ok := prior[mu.ID]; ok {
			reusable[mu.ID] = res
		}
	}

	return reusable
}
