package domain

import (
	"math"
	"sort"

	m "github.com/openshift-eng/mutest/internal/model"
)

// Aggregate folds per-mutant outcomes into the final score report. Errored
// mutants are excluded from the denominator: a mutant that never ran says
// nothing about the suite.
func Aggregate(manifest m.Manifest, results []m.MutantResult) m.ScoreReport {
	byID := make(map[string]m.Mutation, len(manifest.Mutations))
	for _, mu := range manifest.Mutations {
		byID[mu.ID] = mu
	}

	var summary m.Summary

	detectedByCategory := make(map[m.Category]int)
	countedByCategory := make(map[m.Category]int)

	var survived []m.SurvivedMutation

	for _, res := range results {
		summary.Total++

		switch res.Status {
		case m.StatusKilled:
			summary.Killed++
		case m.StatusKilledTimeout:
			summary.KilledTimeout++
		case m.StatusSurvived:
			summary.Survived++
			survived = append(survived, survivedEntry(res, byID))
		case m.StatusError:
			summary.Errors++
		}

		if res.Status == m.StatusError {
			continue
		}

		countedByCategory[res.Category]++

		if res.Status.Detected() {
			detectedByCategory[res.Category]++
		}
	}

	summary.MutationScore = score(summary.Killed+summary.KilledTimeout, summary.Total-summary.Errors)

	byCategory := make(map[m.Category]float64, len(countedByCategory))
	for category, counted := range countedByCategory {
		byCategory[category] = score(detectedByCategory[category], counted)
	}

	sort.Slice(survived, func(i, j int) bool {
		a, b := survived[i], survived[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}

		return a.ID < b.ID
	})

	return m.ScoreReport{
		Summary:    summary,
		ByCategory: byCategory,
		Survived:   survived,
	}
}

// score computes detected/denominator as a percentage rounded to two
// decimals. An empty denominator scores 100: no testable mutants means
// nothing went undetected.
func score(detected, denominator int) float64 {
	if denominator == 0 {
		return 100.0
	}

	return math.Round(float64(detected)/float64(denominator)*10000) / 100
}

func survivedEntry(res m.MutantResult, byID map[string]m.Mutation) m.SurvivedMutation {
	entry := m.SurvivedMutation{
		ID:       res.MutationID,
		Category: res.Category,
		File:     res.File,
		Line:     res.Line,
	}

	if mu, ok := byID[res.MutationID]; ok {
		entry.Column = mu.Column
		entry.Description = mu.Description
		entry.Diff = mu.Diff
	}

	return entry
}
