package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets     = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	upstreamDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	bodySizeBuckets         = []float64{100, 1024, 10240, 102400, 1048576}
)

// Metrics holds all Prometheus metric instruments for the console gateway.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Listing metrics
	ListQueriesTotal *prometheus.CounterVec
	ListDuration     *prometheus.HistogramVec
	ExportsTotal     *prometheus.CounterVec

	// Mutation metrics
	MutationsTotal             *prometheus.CounterVec
	MutationValidationFailures *prometheus.CounterVec
	WriteDeniedTotal           *prometheus.CounterVec

	// Metadata resolver metrics
	MetaCacheHitsTotal   prometheus.Counter
	MetaCacheMissesTotal prometheus.Counter
	MetaFetchesTotal     *prometheus.CounterVec

	// Foreign-key lookup metrics
	LookupBatchesTotal    *prometheus.CounterVec
	LabelCacheHitsTotal   *prometheus.CounterVec
	LabelCacheMissesTotal *prometheus.CounterVec

	// Upstream invocation metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	UpstreamRetriesTotal    *prometheus.CounterVec

	// System metrics
	DefinitionReloadTotal *prometheus.CounterVec
	DefinitionsLoaded     prometheus.Gauge
	DraftsStartedTotal    prometheus.Counter
	DraftsSubmittedTotal  prometheus.Counter
	UploadsTotal          *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curator_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curator_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curator_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Listing
		ListQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_list_queries_total",
			Help: "Total number of list queries.",
		}, []string{"resource", "status"}),
		ListDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curator_list_duration_seconds",
			Help:    "List query duration in seconds, including label enrichment.",
			Buckets: upstreamDurationBuckets,
		}, []string{"resource"}),
		ExportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_exports_total",
			Help: "Total number of export requests.",
		}, []string{"resource", "status"}),

		// Mutations
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_mutations_total",
			Help: "Total number of mutation operations.",
		}, []string{"resource", "operation", "status"}),
		MutationValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_mutation_validation_failures_total",
			Help: "Total number of mutations rejected by descriptor validation.",
		}, []string{"resource"}),
		WriteDeniedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_write_denied_total",
			Help: "Total number of mutations blocked by the capability gate.",
		}, []string{"resource"}),

		// Metadata
		MetaCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "curator_meta_cache_hits_total",
			Help: "Total metadata cache hits.",
		}),
		MetaCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "curator_meta_cache_misses_total",
			Help: "Total metadata cache misses.",
		}),
		MetaFetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_meta_fetches_total",
			Help: "Total upstream metadata fetches.",
		}, []string{"resource", "status"}),

		// Lookups
		LookupBatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_lookup_batches_total",
			Help: "Total batched foreign-key label lookups.",
		}, []string{"model", "status"}),
		LabelCacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_label_cache_hits_total",
			Help: "Total label cache hits.",
		}, []string{"model"}),
		LabelCacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_label_cache_misses_total",
			Help: "Total label cache misses.",
		}, []string{"model"}),

		// Upstream
		UpstreamRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_upstream_requests_total",
			Help: "Total number of upstream service requests.",
		}, []string{"endpoint", "status"}),
		UpstreamRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curator_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds.",
			Buckets: upstreamDurationBuckets,
		}, []string{"endpoint"}),
		UpstreamRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_upstream_retries_total",
			Help: "Total number of upstream request retries.",
		}, []string{"endpoint"}),

		// System
		DefinitionReloadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_definition_reload_total",
			Help: "Total console definition reloads.",
		}, []string{"status"}),
		DefinitionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "curator_definitions_loaded",
			Help: "Number of loaded console definition files.",
		}),
		DraftsStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "curator_setup_drafts_started_total",
			Help: "Total setup drafts started.",
		}),
		DraftsSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "curator_setup_drafts_submitted_total",
			Help: "Total setup drafts submitted.",
		}),
		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_uploads_total",
			Help: "Total file uploads proxied to the storage backend.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		// HTTP
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		// Listing
		m.ListQueriesTotal,
		m.ListDuration,
		m.ExportsTotal,
		// Mutations
		m.MutationsTotal,
		m.MutationValidationFailures,
		m.WriteDeniedTotal,
		// Metadata
		m.MetaCacheHitsTotal,
		m.MetaCacheMissesTotal,
		m.MetaFetchesTotal,
		// Lookups
		m.LookupBatchesTotal,
		m.LabelCacheHitsTotal,
		m.LabelCacheMissesTotal,
		// Upstream
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDuration,
		m.UpstreamRetriesTotal,
		// System
		m.DefinitionReloadTotal,
		m.DefinitionsLoaded,
		m.DraftsStartedTotal,
		m.DraftsSubmittedTotal,
		m.UploadsTotal,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// RecordListQuery records a list query outcome.
func (m *Metrics) RecordListQuery(resource, status string, duration time.Duration) {
	m.ListQueriesTotal.WithLabelValues(resource, status).Inc()
	m.ListDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordExport records an export request outcome.
func (m *Metrics) RecordExport(resource, status string) {
	m.ExportsTotal.WithLabelValues(resource, status).Inc()
}

// RecordMutation records a mutation outcome.
func (m *Metrics) RecordMutation(resource, operation, status string) {
	m.MutationsTotal.WithLabelValues(resource, operation, status).Inc()
}

// RecordMutationValidationFailure records a mutation blocked by validation.
func (m *Metrics) RecordMutationValidationFailure(resource string) {
	m.MutationValidationFailures.WithLabelValues(resource).Inc()
}

// RecordWriteDenied records a mutation blocked by the capability gate.
func (m *Metrics) RecordWriteDenied(resource string) {
	m.WriteDeniedTotal.WithLabelValues(resource).Inc()
}

// RecordMetaCacheHit records a metadata cache hit.
func (m *Metrics) RecordMetaCacheHit() {
	m.MetaCacheHitsTotal.Inc()
}

// RecordMetaCacheMiss records a metadata cache miss.
func (m *Metrics) RecordMetaCacheMiss() {
	m.MetaCacheMissesTotal.Inc()
}

// RecordMetaFetch records an upstream metadata fetch.
func (m *Metrics) RecordMetaFetch(resource, status string) {
	m.MetaFetchesTotal.WithLabelValues(resource, status).Inc()
}

// RecordLookupBatch records a batched foreign-key label lookup.
func (m *Metrics) RecordLookupBatch(model, status string) {
	m.LookupBatchesTotal.WithLabelValues(model, status).Inc()
}

// RecordLabelCacheHit records a label cache hit.
func (m *Metrics) RecordLabelCacheHit(model string) {
	m.LabelCacheHitsTotal.WithLabelValues(model).Inc()
}

// RecordLabelCacheMiss records a label cache miss.
func (m *Metrics) RecordLabelCacheMiss(model string) {
	m.LabelCacheMissesTotal.WithLabelValues(model).Inc()
}

// RecordUpstreamRequest records an upstream service request.
func (m *Metrics) RecordUpstreamRequest(endpoint string, status int, duration time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordUpstreamRetry records an upstream request retry.
func (m *Metrics) RecordUpstreamRetry(endpoint string) {
	m.UpstreamRetriesTotal.WithLabelValues(endpoint).Inc()
}

// RecordDefinitionReload records a console definition reload.
func (m *Metrics) RecordDefinitionReload(status string) {
	m.DefinitionReloadTotal.WithLabelValues(status).Inc()
}

// SetDefinitionsLoaded sets the number of loaded definition files.
func (m *Metrics) SetDefinitionsLoaded(count float64) {
	m.DefinitionsLoaded.Set(count)
}

// RecordDraftStarted records a setup draft start.
func (m *Metrics) RecordDraftStarted() {
	m.DraftsStartedTotal.Inc()
}

// RecordDraftSubmitted records a setup draft submission.
func (m *Metrics) RecordDraftSubmitted() {
	m.DraftsSubmittedTotal.Inc()
}

// RecordUpload records a proxied file upload.
func (m *Metrics) RecordUpload(status string) {
	m.UploadsTotal.WithLabelValues(status).Inc()
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		pathPattern := routePattern(r)
		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}

		m.RecordHTTPRequest(r.Method, pathPattern, sw.status, duration, reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
