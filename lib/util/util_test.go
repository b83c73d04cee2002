package util

import "testing"

// TestHashStringStable tests that replica names hash deterministically
func TestHashStringStable(t *testing.T) {
	a := HashString("node-1", 0)
	b := HashString("node-1", 0)
	if a != b {
		t.Errorf("HashString is not deterministic: %d != %d", a, b)
	}

	if HashString("node-1", 0) == HashString("node-2", 0) {
		t.Error("different names should produce different hashes")
	}

	if HashString("node-1", 0) == HashString("node-1", 42) {
		t.Error("the seed should change the hash")
	}

	// FNV-1a offset basis for the empty string
	if got := HashString("", 0); got != 14695981039346656037 {
		t.Errorf("HashString(\"\") = %d, want FNV-1a offset basis", got)
	}
}

// TestSizeHistogram tests bucketing and the derived estimates
func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()

	if h.GetCount() != 0 || h.AverageSize() != 0 || h.MedianEstimate() != 0 {
		t.Fatal("a new histogram should be empty")
	}

	for _, size := range []int{10, 20, 100, 300, 2000} {
		h.AddSample(size)
	}

	if h.GetCount() != 5 {
		t.Errorf("GetCount() = %d, want 5", h.GetCount())
	}
	if h.AverageSize() != 486 {
		t.Errorf("AverageSize() = %d, want 486", h.AverageSize())
	}

	// third sample (100) lives in the (64,128] bucket
	if got := h.MedianEstimate(); got != 96 {
		t.Errorf("MedianEstimate() = %d, want 96", got)
	}

	summary := h.Summary()
	if summary.Max != 2000 {
		t.Errorf("Summary().Max = %d, want 2000", summary.Max)
	}
	if len(summary.Percent) != len(summary.Boundaries)+1 {
		t.Errorf("expected one overflow bucket, got %d percentages for %d boundaries", len(summary.Percent), len(summary.Boundaries))
	}
	if summary.Percent[0] != 40 {
		t.Errorf("first bucket should hold 40%%, got %v", summary.Percent[0])
	}

	h.AddSample(5000)
	if got := h.GetPercentileEstimate(100); got != 5000 {
		t.Errorf("overflow percentile = %d, want the max sample 5000", got)
	}

	h.Reset()
	if h.GetCount() != 0 || h.Summary().Max != 0 {
		t.Error("Reset() should clear all samples")
	}
}
