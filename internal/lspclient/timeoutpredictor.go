package lspclient

import (
	"fmt"
	"sync"
	"time"
)

// ProcessingRecord is one observed (size, lines, wall_time) sample, the
// same shape original_source/crates/lsp/src/timeout_predictor.rs keeps
// in its ring buffer.
type ProcessingRecord struct {
	FileSize  int64
	LineCount int
	Duration  time.Duration
}

// TimeoutPredictor maintains a ring buffer of recent request samples and
// predicts a per-request timeout scaled to file size and line count, per
// spec §4.5: timeout = clamp(1.5 * (0.3*msPerByte*bytes + 0.7*msPerLine*lines), min, max).
// State is process-local and never persisted, matching the original.
type TimeoutPredictor struct {
	mu sync.Mutex

	capacity  int
	samples   []ProcessingRecord
	head      int
	size      int
	msPerByte float64
	msPerLine float64

	min time.Duration
	max time.Duration
}

const (
	defaultCapacity  = 50
	sizeWeight       = 0.3
	lineWeight       = 0.7
	safetyMultiplier = 1.5
	movingAvgAlpha   = 0.3 // weight on the new sample vs accumulated average
)

// NewTimeoutPredictor creates a predictor bounded to [min, max]. Before
// any sample is recorded, Predict falls back to a size-scaled default
// seeded from min.
func NewTimeoutPredictor(min, max time.Duration) *TimeoutPredictor {
	return &TimeoutPredictor{
		capacity: defaultCapacity,
		samples:  make([]ProcessingRecord, defaultCapacity),
		min:      min,
		max:      max,
	}
}

// RecordProcessing appends a new sample and updates the weighted moving
// average rates used by subsequent predictions.
func (p *TimeoutPredictor) RecordProcessing(fileSize int64, lineCount int, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.samples[p.head] = ProcessingRecord{FileSize: fileSize, LineCount: lineCount, Duration: duration}
	p.head = (p.head + 1) % p.capacity
	if p.size < p.capacity {
		p.size++
	}

	p.updateStatistics(fileSize, lineCount, duration)
}

func (p *TimeoutPredictor) updateStatistics(fileSize int64, lineCount int, duration time.Duration) {
	ms := float64(duration.Microseconds()) / 1000.0

	var observedMsPerByte, observedMsPerLine float64
	if fileSize > 0 {
		observedMsPerByte = ms / float64(fileSize)
	}
	if lineCount > 0 {
		observedMsPerLine = ms / float64(lineCount)
	}

	if p.msPerByte == 0 {
		p.msPerByte = observedMsPerByte
	} else if observedMsPerByte > 0 {
		p.msPerByte = movingAvgAlpha*observedMsPerByte + (1-movingAvgAlpha)*p.msPerByte
	}

	if p.msPerLine == 0 {
		p.msPerLine = observedMsPerLine
	} else if observedMsPerLine > 0 {
		p.msPerLine = movingAvgAlpha*observedMsPerLine + (1-movingAvgAlpha)*p.msPerLine
	}
}

// Predict returns the adaptive timeout for a request against a file of
// the given size and line count.
func (p *TimeoutPredictor) Predict(fileSize int64, lineCount int) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.size == 0 {
		return p.sizeScaledDefault(fileSize)
	}

	estimateMs := safetyMultiplier * (sizeWeight*p.msPerByte*float64(fileSize) + lineWeight*p.msPerLine*float64(lineCount))
	return p.clamp(time.Duration(estimateMs * float64(time.Millisecond)))
}

// sizeScaledDefault is used before the first sample is recorded: a
// simple linear ramp between min and max keyed on file size, capped at
// 1MB.
func (p *TimeoutPredictor) sizeScaledDefault(fileSize int64) time.Duration {
	const rampCeilingBytes = 1024 * 1024
	if fileSize <= 0 {
		return p.min
	}
	fraction := float64(fileSize) / float64(rampCeilingBytes)
	if fraction > 1 {
		fraction = 1
	}
	span := float64(p.max - p.min)
	return p.min + time.Duration(fraction*span)
}

func (p *TimeoutPredictor) clamp(d time.Duration) time.Duration {
	if d < p.min {
		return p.min
	}
	if d > p.max {
		return p.max
	}
	return d
}

// PredictBatchTimeout sums the per-file prediction across a batch, giving
// an overall budget for the whole batch.
func (p *TimeoutPredictor) PredictBatchTimeout(fileSizes []int64, lineCounts []int) time.Duration {
	var total time.Duration
	for i := range fileSizes {
		lines := 0
		if i < len(lineCounts) {
			lines = lineCounts[i]
		}
		total += p.Predict(fileSizes[i], lines)
	}
	return total
}

// FormatETA renders a duration as a short human-readable estimate for
// progress output, e.g. "2.3s" or "1m05s".
func FormatETA(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%02ds", minutes, seconds)
}
