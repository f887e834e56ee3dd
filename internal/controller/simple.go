package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	m "github.com/openshift-eng/mutest/internal/model"
	"github.com/spf13/cobra"
)

// SimpleUI implements UI using cobra Command's output stream. It prints
// one line per event, which is the right shape for CI logs and pipes.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplayEstimation prints the planned mutations as a per-file table.
func (s *SimpleUI) DisplayEstimation(ctx context.Context, manifest m.Manifest, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		s.printf("estimation error: %v\n", err)
		return err
	}

	statsList := buildFileStats(manifest.Mutations)
	tableStr := renderEstimationTable(statsList, manifest.TotalMutations)
	s.printf("\n%s", tableStr)

	for _, skipped := range manifest.SkippedFiles {
		s.printf("skipped %s: %s\n", skipped.File, skipped.Reason)
	}

	return nil
}

func buildFileStats(mutations []m.Mutation) []fileItem {
	info := make(map[string]int)

	for _, mutation := range mutations {
		info[string(mutation.File)]++
	}

	statsList := make([]fileItem, 0, len(info))
	for path, count := range info {
		statsList = append(statsList, fileItem{path: path, count: count})
	}

	sort.Slice(statsList, func(i, j int) bool {
		return statsList[i].path < statsList[j].path
	})

	return statsList
}

func renderEstimationTable(statsList []fileItem, totalMutations int) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Mutations"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	pathsCount := 0

	for _, stat := range statsList {
		table.Append([]string{stat.path, fmt.Sprintf("%d", stat.count)})

		pathsCount++
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", pathsCount),
		fmt.Sprintf("%d", totalMutations),
	})

	table.Render()

	return tableBuffer.String()
}

// DisplayShardInfo shows which shard of the manifest this run covers.
func (s *SimpleUI) DisplayShardInfo(ctx context.Context, shardIndex int, shardCount int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Shard %d/%d\n", shardIndex, shardCount)
}

// DisplayUpcomingTestsInfo shows the number of upcoming mutations to be tested.
func (s *SimpleUI) DisplayUpcomingTestsInfo(ctx context.Context, total int, resumed int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Upcoming mutations: %d\n", total)

	if resumed > 0 {
		s.printf("Resuming: %d prior result(s) kept\n", resumed)
	}
}

// DisplayStartingBaselineInfo announces the baseline suite run.
func (s *SimpleUI) DisplayStartingBaselineInfo(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Running baseline suite on the unmutated tree\n")
}

// DisplayBaselineResultInfo shows the baseline outcome.
func (s *SimpleUI) DisplayBaselineResultInfo(ctx context.Context, passed bool, duration time.Duration) {
	if err := ctx.Err(); err != nil {
		return
	}

	if passed {
		s.printf("Baseline %s in %s\n", color.GreenString("passed"), duration.Round(time.Millisecond))
		return
	}

	s.printf("Baseline %s after %s\n", color.RedString("failed"), duration.Round(time.Millisecond))
}

// DisplayStartingTestInfo shows info about the mutation test starting.
func (s *SimpleUI) DisplayStartingTestInfo(ctx context.Context, mutation m.Mutation, index int, total int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("[%d/%d] Starting mutation %s (%s) %s:%d\n",
		index, total, shortID(mutation.ID), mutation.Category, mutation.File, mutation.Line)
}

// DisplayCompletedTestInfo shows info about the mutation test completion.
// Surviving mutants also get their diff printed, so the undetected change
// is visible right where it scrolled past.
func (s *SimpleUI) DisplayCompletedTestInfo(ctx context.Context, mutation m.Mutation, result m.MutantResult) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Completed mutation %s (%s) -> %s\n",
		shortID(mutation.ID), mutation.Category, colorStatus(result.Status))

	if result.Status == m.StatusSurvived && mutation.Diff != "" {
		s.printf("%s\n", mutation.Diff)
	}
}

// DisplayMutationScore prints the final score, the per-category breakdown
// and the surviving mutations.
func (s *SimpleUI) DisplayMutationScore(ctx context.Context, report m.ScoreReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\nMutation score: %.2f%%\n", report.Summary.MutationScore)
	s.printf("%s", renderScoreTable(report))

	if len(report.Survived) > 0 {
		s.printf("\nSurviving mutations:\n")

		for _, survived := range report.Survived {
			s.printf("  %s (%s) %s:%d:%d %s\n",
				shortID(survived.ID), survived.Category,
				survived.File, survived.Line, survived.Column, survived.Description)
		}
	}

	return nil
}

func renderScoreTable(report m.ScoreReport) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Category", "Score"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, category := range m.AllCategories() {
		score, ok := report.ByCategory[category]
		if !ok {
			continue
		}

		table.Append([]string{string(category), fmt.Sprintf("%.2f%%", score)})
	}

	summary := report.Summary
	table.SetFooter([]string{
		fmt.Sprintf("Killed %d+%d / Survived %d / Errors %d", summary.Killed, summary.KilledTimeout, summary.Survived, summary.Errors),
		fmt.Sprintf("%.2f%%", summary.MutationScore),
	})

	table.Render()

	return tableBuffer.String()
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

// colorStatus renders a result status in its conventional color: green for
// kills, red for survivors, yellow for timeouts, magenta for errors.
func colorStatus(status m.Status) string {
	switch status {
	case m.StatusKilled:
		return color.GreenString(string(status))
	case m.StatusSurvived:
		return color.RedString(string(status))
	case m.StatusKilledTimeout:
		return color.YellowString(string(status))
	case m.StatusError:
		return color.MagentaString(string(status))
	default:
		return string(status)
	}
}

// shortID trims a mutation ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
