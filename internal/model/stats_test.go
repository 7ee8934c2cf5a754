package model

import (
	"testing"
	"time"
)

func TestRunStatsFailed(t *testing.T) {
	s := NewRunStats()
	if s.Failed() {
		t.Error("fresh stats should not report failure")
	}

	s.SyncErrors = 1
	if !s.Failed() {
		t.Error("expected failure with a sync error counted")
	}

	s = NewRunStats()
	s.LinksFailed = 2
	if !s.Failed() {
		t.Error("expected failure with failed links counted")
	}
}

func TestRunStatsFinish(t *testing.T) {
	s := NewRunStats()
	s.Finish()
	if s.Elapsed < 0 {
		t.Errorf("Elapsed = %v, want non-negative", s.Elapsed)
	}
}

func TestRunStatsAverageRate(t *testing.T) {
	s := &RunStats{FilesTransferred: 10, Elapsed: 2 * time.Second}
	if got := s.AverageRate(); got != 5 {
		t.Errorf("AverageRate() = %v, want 5", got)
	}

	// Sub-second runs are clamped to one second.
	s = &RunStats{FilesTransferred: 10, Elapsed: 100 * time.Millisecond}
	if got := s.AverageRate(); got != 10 {
		t.Errorf("AverageRate() = %v, want 10", got)
	}

	s = &RunStats{}
	if got := s.AverageRate(); got != 0 {
		t.Errorf("AverageRate() = %v, want 0", got)
	}
}
