package domain

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-eng/mutest/internal/adapter"
	"github.com/openshift-eng/mutest/internal/controller"
	m "github.com/openshift-eng/mutest/internal/model"
	"github.com/openshift-eng/mutest/pkg/spool"
)

// scriptedRunner replays a fixed sequence of suite outcomes. Call zero is
// always the baseline run.
type scriptedRunner struct {
	outcomes []suiteOutcome
	calls    int
	onRun    func(call int)
}

type suiteOutcome struct {
	result adapter.TestResult
	err    error
}

func suitePasses() suiteOutcome {
	return suiteOutcome{result: adapter.TestResult{ExitCode: 0, Duration: 10 * time.Millisecond, Output: []byte("ok\n")}}
}

func suiteFails(code int) suiteOutcome {
	return suiteOutcome{result: adapter.TestResult{ExitCode: code, Duration: 10 * time.Millisecond, Output: []byte("FAIL\n")}}
}

func suiteTimesOut() suiteOutcome {
	return suiteOutcome{result: adapter.TestResult{ExitCode: -1, Duration: time.Second, TimedOut: true}}
}

func (r *scriptedRunner) RunSuite(_ context.Context, _ m.Path, _ time.Duration) (adapter.TestResult, error) {
	call := r.calls
	r.calls++

	if r.onRun != nil {
		r.onRun(call)
	}

	if call >= len(r.outcomes) {
		return adapter.TestResult{}, errors.New("unexpected suite run")
	}

	out := r.outcomes[call]
	if out.err != nil {
		return adapter.TestResult{}, out.err
	}

	return out.result, nil
}

// memResultStore is an in-memory ResultStore double.
type memResultStore struct {
	prior     map[string]m.MutantResult
	recorded  []m.MutantResult
	completed bool
	opened    bool
}

func (s *memResultStore) OpenRun(_ context.Context, root m.Path, manifestDigest string, total int, fresh bool) (m.Run, map[string]m.MutantResult, error) {
	s.opened = true

	prior := s.prior
	if fresh {
		prior = nil
	}

	return m.Run{ID: "run-1", Root: root, ManifestDigest: manifestDigest, Total: total, StartedAt: time.Now()}, prior, nil
}

func (s *memResultStore) RecordResult(_ context.Context, _ string, res m.MutantResult) error {
	s.recorded = append(s.recorded, res)

	return nil
}

func (s *memResultStore) CompleteRun(context.Context, string) error {
	s.completed = true

	return nil
}

func (s *memResultStore) Close() error { return nil }

// recordingUI captures display calls so tests can assert the event flow.
type recordingUI struct {
	upcomingTotal   int
	upcomingResumed int
	baselineResults []bool
	started         []string
	completed       []m.MutantResult
}

func (u *recordingUI) Start(context.Context, ...controller.StartOption) error { return nil }

func (u *recordingUI) Close(context.Context) {}

func (u *recordingUI) Wait(context.Context) {}

func (u *recordingUI) DisplayEstimation(context.Context, m.Manifest, error) error { return nil }

func (u *recordingUI) DisplayShardInfo(context.Context, int, int) {}

func (u *recordingUI) DisplayUpcomingTestsInfo(_ context.Context, total, resumed int) {
	u.upcomingTotal = total
	u.upcomingResumed = resumed
}

func (u *recordingUI) DisplayStartingBaselineInfo(context.Context) {}

func (u *recordingUI) DisplayBaselineResultInfo(_ context.Context, passed bool, _ time.Duration) {
	u.baselineResults = append(u.baselineResults, passed)
}

func (u *recordingUI) DisplayStartingTestInfo(_ context.Context, mutation m.Mutation, _, _ int) {
	u.started = append(u.started, mutation.ID)
}

func (u *recordingUI) DisplayCompletedTestInfo(_ context.Context, _ m.Mutation, result m.MutantResult) {
	u.completed = append(u.completed, result)
}

func (u *recordingUI) DisplayMutationScore(context.Context, m.ScoreReport) error { return nil }

// flakyFS delegates to a real adapter but fails every write after the first
// failAfter calls.
type flakyFS struct {
	adapter.SourceFSAdapter
	failAfter int
	writes    int
}

func (f *flakyFS) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	f.writes++
	if f.writes > f.failAfter {
		return errors.New("disk full")
	}

	return f.SourceFSAdapter.WriteFile(path, content, perm)
}

type orchestratorHarness struct {
	orchestrator Orchestrator
	root         string
	runner       *scriptedRunner
	store        *memResultStore
	reports      *adapter.FileReportStore
	logs         spool.Spool
	ui           *recordingUI
}

func newOrchestratorHarness(t *testing.T, runner *scriptedRunner, store *memResultStore) *orchestratorHarness {
	t.Helper()

	root := t.TempDir()
	writeSource(t, root, "controllers/ready_controller.go", applicatorFixture)

	return harnessAt(t, root, adapter.NewLocalSourceFSAdapter(), runner, store)
}

func harnessAt(t *testing.T, root string, fs adapter.SourceFSAdapter, runner *scriptedRunner, store *memResultStore) *orchestratorHarness {
	t.Helper()

	reports, err := adapter.NewFileReportStore(m.Path(t.TempDir()))
	require.NoError(t, err)

	logs, err := spool.New(string(reports.Dir()))
	require.NoError(t, err)

	ui := &recordingUI{}

	return &orchestratorHarness{
		orchestrator: NewOrchestrator(NewApplicator(fs, m.Path(root)), runner, store, reports, logs, ui),
		root:         root,
		runner:       runner,
		store:        store,
		reports:      reports,
		logs:         logs,
		ui:           ui,
	}
}

func (h *orchestratorHarness) execute(t *testing.T, ctx context.Context, mutations []m.Mutation) ([]m.MutantResult, error) {
	t.Helper()

	return h.orchestrator.Execute(ctx, ExecuteArgs{
		ProjectRoot:     m.Path(h.root),
		Mutations:       mutations,
		ManifestKey:     "digest-1",
		MutationTimeout: time.Minute,
		BaselineTimeout: time.Minute,
	})
}

func mutationNamed(id string) m.Mutation {
	mu := fixtureMutation()
	mu.ID = id

	return mu
}

func TestOrchestrator_ClassifiesOutcomes(t *testing.T) {
	runner := &scriptedRunner{outcomes: []suiteOutcome{
		suitePasses(),   // baseline
		suiteFails(1),   // killed
		suitePasses(),   // survived
		suiteTimesOut(), // killed by timeout
	}}

	h := newOrchestratorHarness(t, runner, &memResultStore{})

	mutations := []m.Mutation{mutationNamed("m1"), mutationNamed("m2"), mutationNamed("m3")}

	results, err := h.execute(t, context.Background(), mutations)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, m.StatusKilled, results[0].Status)
	assert.Equal(t, 1, results[0].ExitCode)
	assert.Equal(t, m.StatusSurvived, results[1].Status)
	assert.Equal(t, m.StatusKilledTimeout, results[2].Status)

	assert.Equal(t, PhaseCompleted, h.orchestrator.Phase())
	assert.True(t, h.store.completed)
	assert.Len(t, h.store.recorded, 3)

	assert.Equal(t, []bool{true}, h.ui.baselineResults)
	assert.Equal(t, 3, h.ui.upcomingTotal)
	assert.Equal(t, 0, h.ui.upcomingResumed)
	assert.Equal(t, []string{"m1", "m2", "m3"}, h.ui.started)
	assert.Len(t, h.ui.completed, 3)

	// Suite output lands in the spool and the reference resolves.
	assert.Equal(t, "output/m1.log", results[0].OutputRef)
	output, err := h.logs.Get(results[0].OutputRef)
	require.NoError(t, err)
	assert.Equal(t, "FAIL\n", string(output))

	// The JSONL log mirrors what the loop produced.
	logged, err := h.reports.LoadResults()
	require.NoError(t, err)
	assert.Equal(t, results, logged)
}

func TestOrchestrator_RevertsBetweenSuiteRuns(t *testing.T) {
	var seen []string

	runner := &scriptedRunner{outcomes: []suiteOutcome{suitePasses(), suitePasses(), suitePasses()}}

	h := newOrchestratorHarness(t, runner, &memResultStore{})

	runner.onRun = func(int) {
		seen = append(seen, readFixture(t, h.root))
	}

	_, err := h.execute(t, context.Background(), []m.Mutation{mutationNamed("m1"), mutationNamed("m2")})
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, applicatorFixture, seen[0], "baseline must run on the clean tree")
	assert.Contains(t, seen[1], "return false")
	assert.Contains(t, seen[2], "return false")

	assert.Equal(t, applicatorFixture, readFixture(t, h.root), "tree must be clean after the run")
}

func TestOrchestrator_BaselineExitFailure(t *testing.T) {
	runner := &scriptedRunner{outcomes: []suiteOutcome{suiteFails(2)}}

	h := newOrchestratorHarness(t, runner, &memResultStore{})

	results, err := h.execute(t, context.Background(), []m.Mutation{mutationNamed("m1")})
	require.ErrorIs(t, err, m.ErrBaselineFailure)
	assert.ErrorContains(t, err, "exited 2")

	assert.Empty(t, results)
	assert.Equal(t, PhaseBaselineFailed, h.orchestrator.Phase())
	assert.False(t, h.store.opened, "failed baseline must not open a run")
	assert.Equal(t, []bool{false}, h.ui.baselineResults)

	// The baseline output is spooled for diagnosis.
	output, getErr := h.logs.Get("output/baseline.log")
	require.NoError(t, getErr)
	assert.Equal(t, "FAIL\n", string(output))
}

func TestOrchestrator_BaselineTimeout(t *testing.T) {
	runner := &scriptedRunner{outcomes: []suiteOutcome{suiteTimesOut()}}

	h := newOrchestratorHarness(t, runner, &memResultStore{})

	_, err := h.execute(t, context.Background(), []m.Mutation{mutationNamed("m1")})
	require.ErrorIs(t, err, m.ErrBaselineFailure)
	assert.ErrorContains(t, err, "exceeded")
	assert.Equal(t, PhaseBaselineFailed, h.orchestrator.Phase())
}

func TestOrchestrator_BaselineRunnerError(t *testing.T) {
	runner := &scriptedRunner{outcomes: []suiteOutcome{{err: errors.New("exec: \"go\": not found")}}}

	h := newOrchestratorHarness(t, runner, &memResultStore{})

	_, err := h.execute(t, context.Background(), []m.Mutation{mutationNamed("m1")})
	require.ErrorIs(t, err, m.ErrBaselineFailure)
	assert.ErrorContains(t, err, "not found")
}

func TestOrchestrator_AnchorMismatchCondemnsOnlyThatMutant(t *testing.T) {
	runner := &scriptedRunner{outcomes: []suiteOutcome{suitePasses(), suiteFails(1)}}

	h := newOrchestratorHarness(t, runner, &memResultStore{})

	stale := mutationNamed("m1")
	stale.Anchor = "maybe" // no longer matches the file

	results, err := h.execute(t, context.Background(), []m.Mutation{stale, mutationNamed("m2")})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, m.StatusError, results[0].Status)
	assert.Equal(t, -1, results[0].ExitCode)
	assert.Equal(t, m.StatusKilled, results[1].Status)

	assert.True(t, h.store.completed)
	assert.Equal(t, applicatorFixture, readFixture(t, h.root))

	// Only the healthy mutant reached the suite.
	assert.Equal(t, 2, h.runner.calls)
}

func TestOrchestrator_ResumeSkipsPriorResults(t *testing.T) {
	stored := m.MutantResult{
		MutationID: "m1",
		Category:   m.CategoryReturnValueChange,
		File:       "controllers/ready_controller.go",
		Line:       4,
		Status:     m.StatusKilled,
		ExitCode:   1,
	}

	runner := &scriptedRunner{outcomes: []suiteOutcome{suitePasses(), suitePasses()}}
	store := &memResultStore{prior: map[string]m.MutantResult{"m1": stored}}

	h := newOrchestratorHarness(t, runner, store)

	// The earlier interrupted run already logged m1.
	require.NoError(t, h.reports.AppendResult(stored))

	results, err := h.execute(t, context.Background(), []m.Mutation{mutationNamed("m1"), mutationNamed("m2")})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, stored, results[0])
	assert.Equal(t, m.StatusSurvived, results[1].Status)

	assert.Equal(t, 1, h.ui.upcomingResumed)
	assert.Equal(t, []string{"m2"}, h.ui.started, "resumed mutants are not re-tested")
	assert.Len(t, h.store.recorded, 1)

	logged, err := h.reports.LoadResults()
	require.NoError(t, err)
	assert.Len(t, logged, 2, "resume must append, not truncate")
}

func TestOrchestrator_FreshRunTruncatesResultsLog(t *testing.T) {
	runner := &scriptedRunner{outcomes: []suiteOutcome{suitePasses(), suiteFails(1)}}

	h := newOrchestratorHarness(t, runner, &memResultStore{})

	// A stale line from an older manifest must not leak into this run.
	require.NoError(t, h.reports.AppendResult(m.MutantResult{MutationID: "stale", Status: m.StatusSurvived}))

	results, err := h.execute(t, context.Background(), []m.Mutation{mutationNamed("m1")})
	require.NoError(t, err)

	logged, err := h.reports.LoadResults()
	require.NoError(t, err)
	assert.Equal(t, results, logged)
}

func TestOrchestrator_CancelMidSuiteReturnsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &scriptedRunner{outcomes: []suiteOutcome{
		suitePasses(),
		suiteFails(1),
		{err: context.Canceled},
	}}
	runner.onRun = func(call int) {
		if call == 2 {
			cancel()
		}
	}

	h := newOrchestratorHarness(t, runner, &memResultStore{})

	results, err := h.execute(t, ctx, []m.Mutation{mutationNamed("m1"), mutationNamed("m2"), mutationNamed("m3")})
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, results, 1)
	assert.Equal(t, m.StatusKilled, results[0].Status)

	assert.False(t, h.store.completed)
	assert.Equal(t, applicatorFixture, readFixture(t, h.root), "cancelled mutant must still be reverted")
}

func TestOrchestrator_RevertFailureHalts(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "controllers/ready_controller.go", applicatorFixture)

	fs := &flakyFS{SourceFSAdapter: adapter.NewLocalSourceFSAdapter(), failAfter: 1}
	runner := &scriptedRunner{outcomes: []suiteOutcome{suitePasses(), suitePasses()}}

	h := harnessAt(t, root, fs, runner, &memResultStore{})

	results, err := h.execute(t, context.Background(), []m.Mutation{mutationNamed("m1")})
	require.ErrorIs(t, err, m.ErrRevertFailure)

	assert.Empty(t, results)
	assert.False(t, h.store.completed)
}

func TestOrchestrator_PhaseStartsIdle(t *testing.T) {
	h := newOrchestratorHarness(t, &scriptedRunner{}, &memResultStore{})

	assert.Equal(t, PhaseIdle, h.orchestrator.Phase())
	assert.Equal(t, "idle", h.orchestrator.Phase().String())
}
