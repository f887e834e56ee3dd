// Package mocks provides testify doubles for the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/openshift-eng/mutest/internal/domain"
	m "github.com/openshift-eng/mutest/internal/model"
)

// MockWorkflow is a mock implementation of domain.Workflow for testing.
type MockWorkflow struct {
	mock.Mock
}

var _ domain.Workflow = &MockWorkflow{} // Compile-time check

// NewMockWorkflow creates a MockWorkflow wired to the test, so unexpected
// calls fail it.
func NewMockWorkflow(t mock.TestingT) *MockWorkflow {
	mk := &MockWorkflow{}
	mk.Test(t)

	return mk
}

// Run implements the Workflow interface.
func (w *MockWorkflow) Run(ctx context.Context, args domain.RunArgs) (m.ScoreReport, error) {
	ret := w.Called(ctx, args)
	report, _ := ret.Get(0).(m.ScoreReport)

	return report, ret.Error(1)
}

// Estimate implements the Workflow interface.
func (w *MockWorkflow) Estimate(ctx context.Context, args domain.EstimateArgs) (m.Manifest, error) {
	ret := w.Called(ctx, args)
	manifest, _ := ret.Get(0).(m.Manifest)

	return manifest, ret.Error(1)
}

// View implements the Workflow interface.
func (w *MockWorkflow) View(ctx context.Context, args domain.ViewArgs) (m.ScoreReport, error) {
	ret := w.Called(ctx, args)
	report, _ := ret.Get(0).(m.ScoreReport)

	return report, ret.Error(1)
}

// Merge implements the Workflow interface.
func (w *MockWorkflow) Merge(ctx context.Context, args domain.MergeArgs) (m.ScoreReport, error) {
	ret := w.Called(ctx, args)
	report, _ := ret.Get(0).(m.ScoreReport)

	return report, ret.Error(1)
}
