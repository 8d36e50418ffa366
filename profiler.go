package doublet

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProfileHandle identifies one timed operation.
type ProfileHandle struct {
	Label   string
	Started time.Time
}

// Profiler times expensive operations.
type Profiler interface {
	Start(label string) ProfileHandle
	Stop(h ProfileHandle)
}

type nopProfiler struct{}

func (nopProfiler) Start(label string) ProfileHandle { return ProfileHandle{Label: label} }
func (nopProfiler) Stop(ProfileHandle)               {}

// PrometheusProfiler records operation durations in a histogram labelled by
// operation.
type PrometheusProfiler struct {
	durations *prometheus.HistogramVec
	now       NowFunc
}

// NewPrometheusProfiler creates a profiler and registers its histogram with
// reg. Registering twice with the same registerer reuses the existing
// collector.
func NewPrometheusProfiler(reg prometheus.Registerer) (*PrometheusProfiler, error) {
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "doublet",
		Name:      "operation_duration_seconds",
		Help:      "Duration of search path scans and comparisons.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"operation"})

	if err := reg.Register(durations); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		durations = existing
	}
	return &PrometheusProfiler{durations: durations, now: time.Now}, nil
}

// Start implements Profiler.
func (p *PrometheusProfiler) Start(label string) ProfileHandle {
	return ProfileHandle{Label: label, Started: p.now()}
}

// Stop implements Profiler.
func (p *PrometheusProfiler) Stop(h ProfileHandle) {
	if h.Started.IsZero() {
		return
	}
	p.durations.WithLabelValues(h.Label).Observe(p.now().Sub(h.Started).Seconds())
}

// Collector returns the underlying histogram.
func (p *PrometheusProfiler) Collector() prometheus.Collector {
	return p.durations
}
