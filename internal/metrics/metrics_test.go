package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshRegistry() {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
}

func TestNewCollector(t *testing.T) {
	freshRegistry()
	c := NewCollector()

	assert.NotNil(t, c.jobsScheduled)
	assert.NotNil(t, c.jobsPromoted)
	assert.NotNil(t, c.jobsFinished)
	assert.NotNil(t, c.jobsSoftReset)
	assert.NotNil(t, c.jobsRetryExhaust)
	assert.NotNil(t, c.stepLatency)
	assert.NotNil(t, c.activeSize)
	assert.NotNil(t, c.waitingSize)
}

func TestRecordersDoNotPanic(t *testing.T) {
	freshRegistry()
	c := NewCollector()

	assert.NotPanics(t, func() {
		c.RecordScheduled()
		c.RecordPromoted()
		c.RecordFinished()
		c.RecordSoftReset()
		c.RecordRetryExhausted()
		c.ObserveStepLatency(0.01)
		c.UpdatePoolSizes(5, 2)
	})
}

func TestUpdatePoolSizesBoundaryValues(t *testing.T) {
	freshRegistry()
	c := NewCollector()

	assert.NotPanics(t, func() {
		c.UpdatePoolSizes(0, 0)
		c.UpdatePoolSizes(10, 0)
		c.UpdatePoolSizes(0, 100)
	})
}

func TestConcurrentMetricUpdates(t *testing.T) {
	freshRegistry()
	c := NewCollector()

	done := make(chan struct{}, 50)
	for i := 0; i < 50; i++ {
		go func() {
			c.RecordScheduled()
			c.RecordPromoted()
			c.ObserveStepLatency(0.05)
			c.UpdatePoolSizes(3, 1)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
}

func TestCollectorDuplicateRegistrationPanics(t *testing.T) {
	freshRegistry()
	c1 := NewCollector()
	require.NotNil(t, c1)

	assert.Panics(t, func() {
		NewCollector()
	}, "a process should only ever construct one Collector")
}
