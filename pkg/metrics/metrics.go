package metrics

import (
	"net/http"
	"time"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/analyzer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//Metrics holds the Prometheus collectors of the analyzer and the video pipeline.
//It implements analyzer.Recorder.
type Metrics struct {
	FramesAnalyzed   prometheus.Counter
	Vehicles         prometheus.Counter
	Pedestrians      prometheus.Counter
	VehicleColors    *prometheus.CounterVec
	ColorFailures    prometheus.Counter
	AnalyzeSeconds   prometheus.Histogram
	DetectorErrors   *prometheus.CounterVec
	VideosTagged     prometheus.Counter
	VideosInProgress prometheus.Gauge

	registry *prometheus.Registry
}

//New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		FramesAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traffic_frames_analyzed_total",
			Help: "Total frames analyzed",
		}),
		Vehicles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traffic_vehicles_total",
			Help: "Total vehicles above the confidence threshold",
		}),
		Pedestrians: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traffic_pedestrians_total",
			Help: "Total pedestrians above the confidence threshold",
		}),
		VehicleColors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "traffic_vehicle_colors_total",
			Help: "Vehicles per classified body color",
		}, []string{"color"}),
		ColorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traffic_color_failures_total",
			Help: "Vehicles counted without a color because extraction failed",
		}),
		AnalyzeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "traffic_analyze_duration_seconds",
			Help:    "Time spent analyzing one frame",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		DetectorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "traffic_detector_errors_total",
			Help: "Detector invocations that failed",
		}, []string{"source"}),
		VideosTagged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traffic_videos_tagged_total",
			Help: "Videos fully tagged",
		}),
		VideosInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "traffic_videos_in_progress",
			Help: "Videos currently being tagged",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.FramesAnalyzed,
		m.Vehicles,
		m.Pedestrians,
		m.VehicleColors,
		m.ColorFailures,
		m.AnalyzeSeconds,
		m.DetectorErrors,
		m.VideosTagged,
		m.VideosInProgress,
	)

	return m
}

//ObserveFrame implements analyzer.Recorder
func (m *Metrics) ObserveFrame(result *analyzer.FrameAnalysisResult, elapsed time.Duration) {
	m.FramesAnalyzed.Inc()
	m.Vehicles.Add(float64(result.TotalVehicles))
	m.Pedestrians.Add(float64(result.TotalPedestrians))
	m.ColorFailures.Add(float64(result.UnclassifiedVehicles))
	for category, n := range result.ColorHistogram {
		m.VehicleColors.WithLabelValues(string(category)).Add(float64(n))
	}
	m.AnalyzeSeconds.Observe(elapsed.Seconds())
}

//Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
