package metrics

import (
	"sync"

	"github.com/opensource-finance/harrier/internal/domain"
)

// PromSink adapts the engine's MetricsSink contract onto the
// registered Prometheus collectors. Unknown metric names are dropped;
// Record never panics into the caller.
type PromSink struct{}

func NewPromSink() *PromSink {
	return &PromSink{}
}

func (s *PromSink) Record(name string, value float64, tags map[string]string) {
	defer func() {
		// A label mismatch must not take an assessment down with it.
		_ = recover()
	}()

	switch name {
	case domain.MetricAssessments:
		AssessmentsTotal.WithLabelValues(tags["risk_level"], tags["action"], tags["signals"]).Add(value)
	case domain.MetricAssessmentScore:
		AssessmentScore.Observe(value)
	case domain.MetricDetectorDuration:
		DetectorDuration.WithLabelValues(tags["detector"]).Observe(value)
	case domain.MetricDetectorFailures:
		DetectorFailures.WithLabelValues(tags["detector"], tags["cause"]).Add(value)
	case domain.MetricSignals:
		SignalsTotal.WithLabelValues(tags["rule"]).Add(value)
	case domain.MetricBlocklistHits:
		BlocklistHits.WithLabelValues(tags["kind"]).Add(value)
	case domain.MetricFailSafe:
		FailSafeTotal.Add(value)
	}
}

// NopSink discards all measurements. Used in tests and when metrics
// are disabled.
type NopSink struct{}

func (NopSink) Record(name string, value float64, tags map[string]string) {}

// CaptureSink records measurements in memory for assertions. Safe for
// concurrent use; detectors report durations from the fan-out
// goroutines.
type CaptureSink struct {
	mu           sync.Mutex
	measurements []Measurement
}

// Measurement is one captured Record call.
type Measurement struct {
	Name  string
	Value float64
	Tags  map[string]string
}

func (s *CaptureSink) Record(name string, value float64, tags map[string]string) {
	copied := make(map[string]string, len(tags))
	for k, v := range tags {
		copied[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measurements = append(s.measurements, Measurement{Name: name, Value: value, Tags: copied})
}

// Measurements returns a snapshot of everything recorded so far.
func (s *CaptureSink) Measurements() []Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Measurement, len(s.measurements))
	copy(out, s.measurements)
	return out
}

// Count returns how many measurements were recorded under name.
func (s *CaptureSink) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.measurements {
		if m.Name == name {
			n++
		}
	}
	return n
}
