package detfusion

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Prometheus metrics recorded by the Engine.  A nil
// *Metrics records nothing.
type Metrics struct {
	ImagesTotal    prometheus.Counter
	PassTotal      *prometheus.CounterVec
	PassDuration   *prometheus.HistogramVec
	ProposalTotal  *prometheus.CounterVec
	MalformedTotal prometheus.Counter
	DetectionTotal *prometheus.CounterVec
	FusionDuration prometheus.Histogram
}

// NewMetrics creates the fusion metrics and registers them with the given
// registerer
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {

	m := &Metrics{
		ImagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detfusion_images_total",
			Help: "Total number of images processed.",
		}),
		PassTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detfusion_passes_total",
			Help: "Total number of detection passes partitioned by technique and status.",
		}, []string{"technique", "status"}),
		PassDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "detfusion_pass_duration_seconds",
			Help:    "Time taken by a single detection pass.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"technique"}),
		ProposalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detfusion_proposals_total",
			Help: "Total number of proposals gathered partitioned by technique.",
		}, []string{"technique"}),
		MalformedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detfusion_malformed_proposals_total",
			Help: "Total number of proposals dropped for having no area or an invalid confidence.",
		}),
		DetectionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detfusion_detections_total",
			Help: "Total number of fused detections partitioned by class name.",
		}, []string{"class"}),
		FusionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "detfusion_fusion_duration_seconds",
			Help:    "Time taken to process an image from enumeration to detection records.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}),
	}

	collectors := []prometheus.Collector{
		m.ImagesTotal, m.PassTotal, m.PassDuration, m.ProposalTotal,
		m.MalformedTotal, m.DetectionTotal, m.FusionDuration,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register fusion metrics: %w", err)
		}
	}

	return m, nil
}

// observePass records the outcome of a detection pass
func (m *Metrics) observePass(t Technique, failed bool, proposals, malformed int, d time.Duration) {
	if m == nil {
		return
	}

	status := "success"

	if failed {
		status = "failed"
	}

	m.PassTotal.WithLabelValues(string(t), status).Inc()
	m.PassDuration.WithLabelValues(string(t)).Observe(d.Seconds())
	m.ProposalTotal.WithLabelValues(string(t)).Add(float64(proposals))
	m.MalformedTotal.Add(float64(malformed))
}

// observeImage records the fused detections of an image
func (m *Metrics) observeImage(classes []string, d time.Duration) {
	if m == nil {
		return
	}

	m.ImagesTotal.Inc()
	m.FusionDuration.Observe(d.Seconds())

	for _, c := range classes {
		m.DetectionTotal.WithLabelValues(c).Inc()
	}
}
