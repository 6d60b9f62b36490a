package lspclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutPredictor_DefaultBeforeFirstSample(t *testing.T) {
	p := NewTimeoutPredictor(500*time.Millisecond, 30*time.Second)

	small := p.Predict(100, 5)
	big := p.Predict(2*1024*1024, 50000)

	assert.GreaterOrEqual(t, small, 500*time.Millisecond)
	assert.Equal(t, 30*time.Second, big)
	assert.True(t, small <= big)
}

func TestTimeoutPredictor_AdaptsToSamples(t *testing.T) {
	p := NewTimeoutPredictor(500*time.Millisecond, 30*time.Second)

	for i := 0; i < 5; i++ {
		p.RecordProcessing(1000, 100, 50*time.Millisecond)
	}

	got := p.Predict(1000, 100)
	assert.GreaterOrEqual(t, got, 500*time.Millisecond)
}

func TestTimeoutPredictor_ClampsToMax(t *testing.T) {
	p := NewTimeoutPredictor(500*time.Millisecond, 2*time.Second)

	for i := 0; i < 10; i++ {
		p.RecordProcessing(1000, 100, 10*time.Second)
	}

	got := p.Predict(1000, 100)
	assert.Equal(t, 2*time.Second, got)
}

func TestTimeoutPredictor_RingBufferWraps(t *testing.T) {
	p := NewTimeoutPredictor(100*time.Millisecond, 10*time.Second)
	for i := 0; i < defaultCapacity+10; i++ {
		p.RecordProcessing(int64(100+i), 10, 20*time.Millisecond)
	}
	assert.Equal(t, defaultCapacity, p.size)
}

func TestPredictBatchTimeout_SumsPerFile(t *testing.T) {
	p := NewTimeoutPredictor(100*time.Millisecond, 10*time.Second)
	single := p.Predict(1000, 50)
	batch := p.PredictBatchTimeout([]int64{1000, 1000}, []int{50, 50})
	assert.Equal(t, single*2, batch)
}

func TestFormatETA(t *testing.T) {
	assert.Equal(t, "500ms", FormatETA(500*time.Millisecond))
	assert.Equal(t, "2.3s", FormatETA(2300*time.Millisecond))
	assert.Equal(t, "1m05s", FormatETA(65*time.Second))
}
