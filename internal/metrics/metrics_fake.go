package metrics

// metricsFake is a no-op implementation of Metrics
type metricsFake struct{}

// Ensure metricsFake implements Metrics
var _ Metrics = (*metricsFake)(nil)

// NewMetricsFake creates a Metrics that drops everything
func NewMetricsFake() Metrics {
	return &metricsFake{}
}

// LogEvent is a no-op method for metricsFake
func (metrics *metricsFake) LogEvent(_ string, _ map[string]string, _ map[string]interface{}) {
	// No operation, this is a fake logger
}

// LogBanEvent is a no-op method for metricsFake
func (metrics *metricsFake) LogBanEvent(_ string, _ uint64, _ map[string]interface{}) {
	// No operation, this is a fake logger
}

// Close is a no-op method for metricsFake
func (metrics *metricsFake) Close() {
	// No operation, this is a fake logger
}
