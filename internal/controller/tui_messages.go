package controller

import (
	"time"

	m "github.com/openshift-eng/mutest/internal/model"
)

// Messages carried from workflow callbacks into the Bubble Tea loop.

type estimationMsg struct {
	total     int
	fileStats map[string]int
	skipped   int
}

type upcomingMsg struct {
	total   int
	resumed int
}

type shardMsg struct {
	index int
	total int
}

type baselineStartMsg struct{}

type baselineResultMsg struct {
	passed   bool
	duration time.Duration
}

type startMutationMsg struct {
	id       string
	category string
	file     string
	index    int
	total    int
}

type completedMutationMsg struct {
	id       string
	category string
	file     string
	status   string
	diff     string
}

type scoreMsg struct {
	report m.ScoreReport
}

// fileItem is one row of the estimate view.
type fileItem struct {
	path  string
	count int
}

func (f fileItem) FilterValue() string {
	return f.path
}
