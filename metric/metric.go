// Package metric publishes engine counters through expvar. Counters are
// bound once, when the engine starts, so the audio goroutine only does
// atomic adds.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const enginesLabel = "patch.engines"

const (
	// BlockCounter measures number of processed blocks.
	BlockCounter = "Blocks"
	// SampleCounter measures number of processed samples.
	SampleCounter = "Samples"
	// FaultCounter measures number of contained node faults.
	FaultCounter = "Faults"
	// DroppedCounter measures number of dropped diagnostic events.
	DroppedCounter = "Dropped"
	// LatencyCounter measures time between processed blocks.
	LatencyCounter = "Latency"
)

var (
	engines = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		BlockCounter,
		SampleCounter,
		FaultCounter,
		DroppedCounter,
		LatencyCounter,
	}
)

// Get returns metric values for the provided engine id.
func Get(engineID string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(engineID, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// MeasureFunc captures counters after a block is processed.
type MeasureFunc func(samples int64, faults, dropped int64)

// Meter binds counters for an engine id and returns a closure that
// captures them per block. The closure is free of locks and maps.
func Meter(engineID string) MeasureFunc {
	metric := engines.get(engineID)
	calledAt := time.Now()
	return func(samples int64, faults, dropped int64) {
		metric.latency.set(time.Since(calledAt))
		metric.blocks.Add(1)
		metric.samples.Add(samples)
		if faults != 0 {
			metric.faults.Add(faults)
		}
		if dropped != 0 {
			metric.dropped.Add(dropped)
		}
		calledAt = time.Now()
	}
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(engineID string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[engineID]; ok {
		return metric
	}
	metric := newMetric(engineID)
	m.m[engineID] = metric
	return metric
}

type metric struct {
	key     string
	blocks  *expvar.Int
	samples *expvar.Int
	faults  *expvar.Int
	dropped *expvar.Int
	latency *duration
}

func newMetric(engineID string) metric {
	m := metric{
		key:     engineID,
		blocks:  expvar.NewInt(key(engineID, BlockCounter)),
		samples: expvar.NewInt(key(engineID, SampleCounter)),
		faults:  expvar.NewInt(key(engineID, FaultCounter)),
		dropped: expvar.NewInt(key(engineID, DroppedCounter)),
		latency: &duration{},
	}
	expvar.Publish(key(engineID, LatencyCounter), m.latency)
	return m
}

func key(engineID, counter string) string {
	return fmt.Sprintf("%s.%s.%s", enginesLabel, engineID, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%v", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
