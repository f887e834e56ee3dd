package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openshift-eng/mutest/internal/adapter"
	"github.com/openshift-eng/mutest/internal/controller"
	m "github.com/openshift-eng/mutest/internal/model"
	"github.com/openshift-eng/mutest/pkg/spool"
)

const (
	// genCacheDirName is where the generation cache lives inside the
	// reports directory.
	genCacheDirName = "gencache"

	// resultsDBName is the sqlite database file holding run state.
	resultsDBName = "results.db"

	// shardDirPrefix names per-shard report directories for merge.
	shardDirPrefix = "shard_"

	// testOutputLimit bounds how much suite output is kept per mutant.
	testOutputLimit = 64 << 10
)

// RunArgs parameterizes a full mutation-testing run.
type RunArgs struct {
	// Root is the source tree to mutate.
	Root m.Path

	// Reports is the artifact directory (manifest, results, score, logs).
	Reports m.Path

	// Controller narrows the scan to paths containing this substring.
	Controller string

	// Exclude holds path regexes to skip during scanning.
	Exclude []string

	// Categories restricts which operators run. Empty means all.
	Categories []m.Category

	// TestCommand is the suite invocation, split on whitespace.
	TestCommand string

	MutationTimeout time.Duration
	BaselineTimeout time.Duration

	// Workers bounds concurrent file analysis during generation.
	Workers int

	// ShardIndex/ShardTotal select every ShardTotal-th mutant for this
	// invocation. ShardTotal <= 1 disables sharding.
	ShardIndex int
	ShardTotal int

	// Fresh disables the generation cache and resume.
	Fresh bool
}

// EstimateArgs parameterizes scan+generate without testing anything.
type EstimateArgs struct {
	Root       m.Path
	Reports    m.Path
	Controller string
	Exclude    []string
	Categories []m.Category
	Workers    int
	Fresh      bool
}

// ViewArgs locates a previously written score report.
type ViewArgs struct {
	Reports m.Path
}

// MergeArgs points at a directory holding shard_* report directories.
type MergeArgs struct {
	Reports m.Path
}

// Workflow wires scanner, generator, applicator, runner and orchestrator
// into the operations the commands expose.
type Workflow interface {
	// Run executes the full pipeline and returns the final score report.
	Run(ctx context.Context, args RunArgs) (m.ScoreReport, error)

	// Estimate scans and generates the manifest without running tests.
	Estimate(ctx context.Context, args EstimateArgs) (m.Manifest, error)

	// View loads the score report a previous run persisted.
	View(ctx context.Context, args ViewArgs) (m.ScoreReport, error)

	// Merge combines shard report directories into one score report.
	Merge(ctx context.Context, args MergeArgs) (m.ScoreReport, error)
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.GoFileAdapter

	ui controller.UI
}

// NewWorkflow creates a Workflow over the given adapters and UI.
func NewWorkflow(fsAdapter adapter.SourceFSAdapter, goAdapter adapter.GoFileAdapter, ui controller.UI) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		GoFileAdapter:   goAdapter,
		ui:              ui,
	}
}

// Run drives scan → generate → baseline → mutate/test/revert → score.
func (w *workflow) Run(ctx context.Context, args RunArgs) (m.ScoreReport, error) {
	reportsDir := args.Reports
	if args.ShardTotal > 1 {
		// Each shard gets its own artifact directory under the configured
		// output, which is exactly the layout merge expects.
		reportsDir = m.Path(filepath.Join(string(args.Reports),
			fmt.Sprintf("%s%d", shardDirPrefix, args.ShardIndex)))
	}

	reports, err := adapter.NewFileReportStore(reportsDir)
	if err != nil {
		return m.ScoreReport{}, err
	}

	manifest, err := w.generateManifest(ctx, generateRequest{
		root:       args.Root,
		reports:    reports,
		controller: args.Controller,
		exclude:    args.Exclude,
		categories: args.Categories,
		workers:    args.Workers,
		fresh:      args.Fresh,
	})
	if err != nil {
		return m.ScoreReport{}, err
	}

	mutations := manifest.Mutations
	manifestKey := manifest.Digest()

	if args.ShardTotal > 1 {
		mutations = shardMutations(mutations, args.ShardIndex, args.ShardTotal)
		manifestKey = fmt.Sprintf("%s:%d/%d", manifestKey, args.ShardIndex, args.ShardTotal)

		w.ui.DisplayShardInfo(ctx, args.ShardIndex, args.ShardTotal)

		slog.Info("Sharded manifest",
			"shard", args.ShardIndex,
			"of", args.ShardTotal,
			"mutations", len(mutations))
	}

	results, err := adapter.NewSQLiteResultStore(filepath.Join(string(reports.Dir()), resultsDBName))
	if err != nil {
		return m.ScoreReport{}, err
	}

	defer func() {
		if closeErr := results.Close(); closeErr != nil {
			slog.Warn("Failed to close result store", "error", closeErr)
		}
	}()

	logs, err := spool.New(string(reports.Dir()))
	if err != nil {
		return m.ScoreReport{}, err
	}

	orchestrator := NewOrchestrator(
		NewApplicator(w.SourceFSAdapter, args.Root),
		adapter.NewLocalTestRunnerAdapter(strings.Fields(args.TestCommand), testOutputLimit),
		results,
		reports,
		logs,
		w.ui,
	)

	outcomes, err := orchestrator.Execute(ctx, ExecuteArgs{
		ProjectRoot:     w.projectRoot(args.Root),
		Mutations:       mutations,
		ManifestKey:     manifestKey,
		MutationTimeout: args.MutationTimeout,
		BaselineTimeout: args.BaselineTimeout,
		Fresh:           args.Fresh,
	})
	if err != nil {
		return m.ScoreReport{}, err
	}

	report := Aggregate(manifest, outcomes)

	if err := reports.WriteScore(report); err != nil {
		return m.ScoreReport{}, err
	}

	return report, nil
}

// Estimate scans and generates, persisting the manifest for inspection.
func (w *workflow) Estimate(ctx context.Context, args EstimateArgs) (m.Manifest, error) {
	reports, err := adapter.NewFileReportStore(args.Reports)
	if err != nil {
		return m.Manifest{}, err
	}

	return w.generateManifest(ctx, generateRequest{
		root:       args.Root,
		reports:    reports,
		controller: args.Controller,
		exclude:    args.Exclude,
		categories: args.Categories,
		workers:    args.Workers,
		fresh:      args.Fresh,
	})
}

// View re-reads the persisted score report.
func (w *workflow) View(_ context.Context, args ViewArgs) (m.ScoreReport, error) {
	reports, err := adapter.NewFileReportStore(args.Reports)
	if err != nil {
		return m.ScoreReport{}, err
	}

	report, err := reports.LoadScore()
	if err != nil {
		return m.ScoreReport{}, fmt.Errorf("no score report in %s (run `mutest run` first): %w", args.Reports, err)
	}

	return report, nil
}

// Merge folds every shard_* directory under args.Reports into a single
// manifest and result set, scores it, and persists the merged artifacts
// beside the shards.
func (w *workflow) Merge(_ context.Context, args MergeArgs) (m.ScoreReport, error) {
	shards, err := w.shardDirs(args.Reports)
	if err != nil {
		return m.ScoreReport{}, err
	}

	if len(shards) == 0 {
		return m.ScoreReport{}, fmt.Errorf("no %s* directories under %s", shardDirPrefix, args.Reports)
	}

	var (
		manifest m.Manifest
		outcomes []m.MutantResult
	)

	seenMutations := make(map[string]struct{})
	seenResults := make(map[string]struct{})
	seenSkips := make(map[m.Path]struct{})

	for _, shard := range shards {
		store, err := adapter.NewFileReportStore(shard)
		if err != nil {
			return m.ScoreReport{}, err
		}

		shardManifest, err := store.LoadManifest()
		if err != nil {
			return m.ScoreReport{}, fmt.Errorf("shard %s has no manifest: %w", shard, err)
		}

		for _, mu := range shardManifest.Mutations {
			if _, ok := seenMutations[mu.ID]; ok {
				continue
			}

			seenMutations[mu.ID] = struct{}{}
			manifest.Mutations = append(manifest.Mutations, mu)
		}

		for _, skip := range shardManifest.SkippedFiles {
			if _, ok := seenSkips[skip.File]; ok {
				continue
			}

			seenSkips[skip.File] = struct{}{}
			manifest.SkippedFiles = append(manifest.SkippedFiles, skip)
		}

		shardResults, err := store.LoadResults()
		if err != nil {
			return m.ScoreReport{}, fmt.Errorf("shard %s has no results: %w", shard, err)
		}

		for _, res := range shardResults {
			if _, ok := seenResults[res.MutationID]; ok {
				continue
			}

			seenResults[res.MutationID] = struct{}{}
			outcomes = append(outcomes, res)
		}
	}

	sortManifest(manifest.Mutations)
	manifest.TotalMutations = len(manifest.Mutations)

	report := Aggregate(manifest, outcomes)

	merged, err := adapter.NewFileReportStore(args.Reports)
	if err != nil {
		return m.ScoreReport{}, err
	}

	if err := merged.WriteManifest(manifest); err != nil {
		return m.ScoreReport{}, err
	}

	if err := merged.ResetResults(); err != nil {
		return m.ScoreReport{}, err
	}

	for _, res := range outcomes {
		if err := merged.AppendResult(res); err != nil {
			return m.ScoreReport{}, err
		}
	}

	if err := merged.WriteScore(report); err != nil {
		return m.ScoreReport{}, err
	}

	slog.Info("Merged shard reports", "shards", len(shards), "mutations", manifest.TotalMutations, "results", len(outcomes))

	return report, nil
}

// generateRequest bundles the shared scan+generate inputs of Run and
// Estimate.
type generateRequest struct {
	root       m.Path
	reports    adapter.ReportStore
	controller string
	exclude    []string
	categories []m.Category
	workers    int
	fresh      bool
}

func (w *workflow) generateManifest(ctx context.Context, req generateRequest) (m.Manifest, error) {
	scanner := NewScanner(w.SourceFSAdapter)

	files, err := scanner.Scan(req.root, ScanFilter{Controller: req.controller, Exclude: req.exclude})
	if err != nil {
		return m.Manifest{}, err
	}

	if len(files) == 0 {
		return m.Manifest{}, fmt.Errorf("%w under %s", m.ErrNoEligibleSources, req.root)
	}

	generator := NewGenerator(w.SourceFSAdapter, w.GoFileAdapter, w.genCache(req))

	manifest, err := generator.Generate(ctx, GenerateArgs{
		Root:       req.root,
		Files:      files,
		Categories: req.categories,
		Workers:    req.workers,
	})
	if err != nil {
		return m.Manifest{}, err
	}

	if err := req.reports.WriteManifest(manifest); err != nil {
		return m.Manifest{}, err
	}

	return manifest, nil
}

// genCache opens the on-disk generation cache. Cache trouble is never fatal:
// generation just runs uncached.
func (w *workflow) genCache(req generateRequest) *adapter.GenCache {
	if req.fresh {
		return nil
	}

	cache, err := adapter.NewGenCache(filepath.Join(string(req.reports.Dir()), genCacheDirName))
	if err != nil {
		slog.Warn("Generation cache unavailable", "error", err)

		return nil
	}

	return cache
}

// projectRoot locates the go.mod directory the suite must run from. A tree
// without go.mod is still usable when the test command does not need one.
func (w *workflow) projectRoot(root m.Path) m.Path {
	projectRoot, err := w.FindProjectRoot(root)
	if err != nil {
		slog.Warn("No go.mod found, running suite from scan root", "root", root)

		return root
	}

	return projectRoot
}

// shardMutations keeps every mutation whose manifest position falls on this
// shard. Position-based assignment keeps shards disjoint and exhaustive.
func shardMutations(mutations []m.Mutation, index, total int) []m.Mutation {
	var shard []m.Mutation

	for i, mu := range mutations {
		if i%total == index {
			shard = append(shard, mu)
		}
	}

	return shard
}

// shardDirs lists the immediate shard_* subdirectories of parent.
func (w *workflow) shardDirs(parent m.Path) ([]m.Path, error) {
	var dirs []m.Path

	err := w.Walk(parent, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() || path == string(parent) {
			return nil
		}

		if strings.HasPrefix(info.Name(), shardDirPrefix) {
			dirs = append(dirs, m.Path(path))
		}

		return filepath.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s for shards: %w", parent, err)
	}

	return dirs, nil
}
