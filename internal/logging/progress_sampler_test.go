package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "extract") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_PhaseChange(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(0, "extract") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, "extract") {
		t.Error("same phase and percent should not log again")
	}
	if !s.ShouldLog(0, " insert ") {
		t.Error("different phase should log")
	}
	if s.lastPhase != "insert" {
		t.Errorf("lastPhase = %q, want insert", s.lastPhase)
	}
}

func TestProgressSampler_PercentBuckets(t *testing.T) {
	s := NewProgressSampler(10)

	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{4, false},
		{10, true},
		{19, false},
		{55, true},
		{100, true},
		{120, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent, "extract"); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSampler_NegativePercent(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(-1, "enumerate") {
		t.Error("first call should log even with negative percent")
	}
	if s.ShouldLog(-1, "enumerate") {
		t.Error("negative percent should not trigger bucket logging")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(5, 20); got != 25 {
		t.Fatalf("Percent(5, 20) = %v", got)
	}
	if got := Percent(1, 0); got != -1 {
		t.Fatalf("Percent with zero total = %v", got)
	}
}
