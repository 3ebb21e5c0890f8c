package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kdduha/detection-api/internal/models"
)

const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusRejected = "rejected"

	ArtifactImage  = "image"
	ArtifactBundle = "bundle"
)

var (
	namespace = "detection"

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	uploadBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_batches_total",
			Help:      "Number of upload batches by validation outcome",
		},
		[]string{"endpoint", "status"},
	)

	inferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Model inference duration per image",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model", "status"},
	)

	detectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Number of detected objects",
		},
		[]string{"model", "label"},
	)

	artifactsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Number of stored artifacts",
		},
		[]string{"kind", "status"},
	)

	modelSwitchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_switch_total",
			Help:      "Number of model switch requests",
		},
		[]string{"status"},
	)

	currentModel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_model",
			Help:      "1 for the model currently serving requests",
		},
		[]string{"model"},
	)
)

func HttpRequestsTotal(method, path, code string) {
	httpRequestsTotal.With(prometheus.Labels{
		"method": method,
		"path":   path,
		"code":   code,
	}).Inc()
}

func HttpRequestDuration(method, path string, duration time.Duration) {
	httpRequestDuration.With(prometheus.Labels{
		"method": method,
		"path":   path,
	}).Observe(duration.Seconds())
}

func UploadBatches(endpoint, status string) {
	uploadBatchesTotal.With(prometheus.Labels{
		"endpoint": endpoint,
		"status":   status,
	}).Inc()
}

func InferenceDuration(model, status string, duration time.Duration) {
	inferenceDuration.With(prometheus.Labels{
		"model":  model,
		"status": status,
	}).Observe(duration.Seconds())
}

func Detections(model string, detections []models.Detection) {
	for _, d := range detections {
		detectionsTotal.With(prometheus.Labels{
			"model": model,
			"label": d.Label,
		}).Inc()
	}
}

func ArtifactsWritten(kind, status string) {
	artifactsWrittenTotal.With(prometheus.Labels{
		"kind":   kind,
		"status": status,
	}).Inc()
}

func ModelSwitch(status string) {
	modelSwitchTotal.With(prometheus.Labels{"status": status}).Inc()
}

// SetCurrentModel marks model as the only active one.
func SetCurrentModel(model string, supported []string) {
	for _, m := range supported {
		currentModel.WithLabelValues(m).Set(0)
	}
	currentModel.WithLabelValues(model).Set(1)
}

// Middleware records request count and latency labelled by route pattern,
// so path parameters such as download names do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HttpRequestsTotal(r.Method, path, strconv.Itoa(status))
		HttpRequestDuration(r.Method, path, time.Since(start))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
