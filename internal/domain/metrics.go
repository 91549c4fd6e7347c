package domain

// MetricsSink receives named measurements with tags. Implementations
// are fire-and-forget: Record never returns an error and never panics
// into the caller, so emitting metrics can never break an assessment.
type MetricsSink interface {
	Record(name string, value float64, tags map[string]string)
}

// Metric names emitted by the engine.
const (
	MetricAssessments      = "fraud_assessments_total"
	MetricAssessmentScore  = "fraud_assessment_score"
	MetricDetectorDuration = "fraud_detector_duration_ms"
	MetricDetectorFailures = "fraud_detector_failures_total"
	MetricSignals          = "fraud_signals_total"
	MetricBlocklistHits    = "fraud_blocklist_hits_total"
	MetricFailSafe         = "fraud_failsafe_total"
)
