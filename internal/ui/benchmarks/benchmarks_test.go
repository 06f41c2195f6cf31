package benchmarks

import (
	"testing"
	"time"
)

func TestEstimateRemaining(t *testing.T) {
	tests := []struct {
		name    string
		wait    string
		elapsed time.Duration
		want    time.Duration
	}{
		{"unknown wait", "Nothing", time.Minute, 0},
		{"fresh", "InstanceRunning", 0, 45 * time.Second},
		{"halfway", "ImageAvailable", 2 * time.Minute, 2 * time.Minute},
		{"at benchmark", "InstanceRunning", 45 * time.Second, 11250 * time.Millisecond},
		{"overrun", "ImageAvailable", 8 * time.Minute, 2 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateRemaining(tt.wait, tt.elapsed); got != tt.want {
				t.Errorf("EstimateRemaining(%q, %v) = %v, want %v", tt.wait, tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestPerformanceScale(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    float64
	}{
		{30 * time.Second, 1.0},
		{90 * time.Second, 1.5},
		{10 * time.Minute, 3.0},
	}
	for _, tt := range tests {
		if got := PerformanceScale("InstanceTerminated", tt.elapsed); got != tt.want {
			t.Errorf("PerformanceScale(%v) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}
}

func TestProgress(t *testing.T) {
	if got := Progress("InstanceRunning", 0, 0, 40); got != 0 {
		t.Errorf("fresh progress = %v, want 0", got)
	}
	if got := Progress("Unknown", 0, 20, 40); got != 0.5 {
		t.Errorf("poll based progress = %v, want 0.5", got)
	}
	if got := Progress("InstanceRunning", time.Hour, 40, 40); got != 0.95 {
		t.Errorf("progress is capped, got %v", got)
	}
}
