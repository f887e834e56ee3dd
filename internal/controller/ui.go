// Package controller provides output adapters for displaying mutation
// testing progress and results.
package controller

import (
	"context"
	"time"

	m "github.com/openshift-eng/mutest/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeEstimate StartMode = iota
	ModeTest
)

// StartOption is a functional option for the Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode   StartMode
	cancel context.CancelFunc
}

// WithEstimateMode sets the UI to estimation mode.
func WithEstimateMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeEstimate
	}
}

// WithTestMode sets the UI to test execution mode.
func WithTestMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeTest
	}
}

// WithCancel hands the UI a cancel function so an interactive quit can stop
// the run after the current mutant is reverted.
func WithCancel(cancel context.CancelFunc) StartOption {
	return func(c *StartConfig) {
		c.cancel = cancel
	}
}

// UI defines the interface for displaying mutation testing progress.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)

	DisplayEstimation(ctx context.Context, manifest m.Manifest, err error) error
	DisplayShardInfo(ctx context.Context, shardIndex int, shardCount int)
	DisplayUpcomingTestsInfo(ctx context.Context, total int, resumed int)
	DisplayStartingBaselineInfo(ctx context.Context)
	DisplayBaselineResultInfo(ctx context.Context, passed bool, duration time.Duration)
	DisplayStartingTestInfo(ctx context.Context, mutation m.Mutation, index int, total int)
	DisplayCompletedTestInfo(ctx context.Context, mutation m.Mutation, result m.MutantResult)
	DisplayMutationScore(ctx context.Context, report m.ScoreReport) error
}
