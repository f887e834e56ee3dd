package model

// Summary aggregates the outcome counts of a run.
type Summary struct {
	Total         int     `json:"total" yaml:"total"`
	Killed        int     `json:"killed" yaml:"killed"`
	Survived      int     `json:"survived" yaml:"survived"`
	KilledTimeout int     `json:"killed_timeout" yaml:"killed_timeout"`
	Errors        int     `json:"errors" yaml:"errors"`
	MutationScore float64 `json:"mutation_score" yaml:"mutation_score"`
}

// SurvivedMutation joins a surviving result back to the mutation that
// produced it, so reports can say exactly what went undetected.
type SurvivedMutation struct {
	ID          string   `json:"id" yaml:"id"`
	Category    Category `json:"type" yaml:"type"`
	File        Path     `json:"file" yaml:"file"`
	Line        int      `json:"line" yaml:"line"`
	Column      int      `json:"column" yaml:"column"`
	Description string   `json:"description" yaml:"description"`
	Diff        string   `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// ScoreReport is the final aggregated view of a run. It is computed once
// from the full result set and never mutated afterwards.
type ScoreReport struct {
	Summary    Summary              `json:"summary" yaml:"summary"`
	ByCategory map[Category]float64 `json:"by_category" yaml:"by_category"`
	Survived   []SurvivedMutation   `json:"survived" yaml:"survived"`
}
