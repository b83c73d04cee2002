package util

import (
	"math"
	"sync"
)

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// SizeHistogram tracks the distribution of encoded record sizes.
// The buckets are tuned for records bounded at 2048 bytes, anything above the
// last boundary is counted in an overflow bucket.
type SizeHistogram struct {
	mutex      sync.RWMutex
	boundaries []int
	buckets    []int64 // len(boundaries)+1, the last one is the overflow bucket
	count      int64
	sum        int64
	max        int
}

// HistogramSummary is the serializable view of a SizeHistogram.
type HistogramSummary struct {
	Count      int64     `json:"count" yaml:"count"`
	Average    int       `json:"average" yaml:"average"`
	Median     int       `json:"median" yaml:"median"`
	P95        int       `json:"p95" yaml:"p95"`
	Max        int       `json:"max" yaml:"max"`
	Boundaries []int     `json:"boundaries" yaml:"boundaries"`
	Percent    []float64 `json:"percent" yaml:"percent"`
}

// NewSizeHistogram creates a histogram with buckets from 64 bytes up to 2 KiB
func NewSizeHistogram() *SizeHistogram {
	boundaries := []int{64, 128, 256, 512, 1024, 1536, 2048}
	return &SizeHistogram{
		boundaries: boundaries,
		buckets:    make([]int64, len(boundaries)+1),
	}
}

// AddSample adds a size sample to the histogram
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) AddSample(size int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.buckets[h.bucketFor(size)]++
	h.count++
	h.sum += int64(size)
	if size > h.max {
		h.max = size
	}
}

func (h *SizeHistogram) bucketFor(size int) int {
	for i, boundary := range h.boundaries {
		if size <= boundary {
			return i
		}
	}
	return len(h.boundaries)
}

// GetCount returns the total number of samples
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) GetCount() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.count
}

// AverageSize returns the average size across all samples
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) AverageSize() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.average()
}

func (h *SizeHistogram) average() int {
	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// GetPercentileEstimate returns an estimate for the given percentile (0-100).
// The estimate is the midpoint of the bucket holding the percentile.
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) GetPercentileEstimate(percentile int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.percentile(percentile)
}

func (h *SizeHistogram) percentile(percentile int) int {
	if h.count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	targetCount := int64(math.Ceil(float64(h.count) * float64(percentile) / 100.0))
	if targetCount == 0 {
		targetCount = 1
	}

	var cumulativeCount int64
	for i, count := range h.buckets {
		cumulativeCount += count
		if cumulativeCount < targetCount {
			continue
		}
		switch {
		case i == 0:
			return h.boundaries[0] / 2
		case i < len(h.boundaries):
			return (h.boundaries[i-1] + h.boundaries[i]) / 2
		default:
			// overflow bucket, the largest sample is the only honest answer
			return h.max
		}
	}

	return h.average()
}

// MedianEstimate estimates the median size based on the histogram
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) MedianEstimate() int {
	return h.GetPercentileEstimate(50)
}

// Summary returns a snapshot of the histogram state
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) Summary() HistogramSummary {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	percent := make([]float64, len(h.buckets))
	if h.count > 0 {
		for i, count := range h.buckets {
			percent[i] = float64(count) * 100.0 / float64(h.count)
		}
	}

	boundaries := make([]int, len(h.boundaries))
	copy(boundaries, h.boundaries)

	return HistogramSummary{
		Count:      h.count,
		Average:    h.average(),
		Median:     h.percentile(50),
		P95:        h.percentile(95),
		Max:        h.max,
		Boundaries: boundaries,
		Percent:    percent,
	}
}

// Reset clears all histogram data
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) Reset() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.count = 0
	h.sum = 0
	h.max = 0
	for i := range h.buckets {
		h.buckets[i] = 0
	}
}
