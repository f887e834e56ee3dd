package domain

import (
	"github.com/openshift-eng/mutest/internal/adapter"
	m "github.com/openshift-eng/mutest/internal/model"
)

// Classify maps one completed suite execution onto a mutant outcome.
//
// A timeout counts as a kill: requeue and conditional mutations routinely
// put a reconcile loop into a state the suite never escapes, and hanging is
// as much a detection as failing. Executions that never produced an exit
// code are classified by the orchestrator as errors, not here.
func Classify(result adapter.TestResult) m.Status {
	if result.TimedOut {
		return m.StatusKilledTimeout
	}

	if result.ExitCode == 0 {
		return m.StatusSurvived
	}

	return m.StatusKilled
}
