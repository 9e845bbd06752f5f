package observability

import (
	"io"
	"net/http"
	"time"
)

// Metrics is the process-wide registry. All methods are safe on a nil
// receiver so callers never need to check whether metrics are enabled.
type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	syncPasses    *CounterVec
	syncDuration  *HistogramVec
	syncRecords   *CounterVec
	crawlInserted *CounterVec
	indexFallback *CounterVec
	indexWriteErr *CounterVec
	poolQueue     *GaugeVec
	poolRejected  *CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("uf_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("uf_api_request_duration_seconds", "API request latency in seconds.",
			[]string{"method", "route"}, []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}),
		syncPasses: NewCounterVec("uf_sync_passes_total", "Sync passes by source and outcome.", []string{"source", "outcome"}),
		syncDuration: NewHistogramVec("uf_sync_pass_duration_seconds", "Sync pass duration in seconds.",
			[]string{"source"}, []float64{0.5, 1, 5, 15, 60, 300, 900}),
		syncRecords:   NewCounterVec("uf_sync_records_total", "Records upserted by provider syncs.", []string{"source"}),
		crawlInserted: NewCounterVec("uf_crawl_records_inserted_total", "New records inserted by the local crawler.", nil),
		indexFallback: NewCounterVec("uf_search_index_fallbacks_total", "Searches answered by the store alone.", nil),
		indexWriteErr: NewCounterVec("uf_search_index_write_errors_total", "Failed index mirror writes by origin.", []string{"origin"}),
		poolQueue:     NewGaugeVec("uf_worker_queue_depth", "Tasks waiting in the worker pool queue.", nil),
		poolRejected:  NewCounterVec("uf_worker_rejected_total", "Submissions rejected by the worker pool.", []string{"reason"}),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ObserveSync(source, outcome string, records int, dur time.Duration) {
	if m == nil {
		return
	}
	m.syncPasses.Inc(source, outcome)
	m.syncDuration.Observe(dur.Seconds(), source)
	m.syncRecords.Add(float64(records), source)
}

func (m *Metrics) AddCrawlInserted(n int64) {
	if m == nil {
		return
	}
	m.crawlInserted.Add(float64(n))
}

func (m *Metrics) IncIndexFallback() {
	if m == nil {
		return
	}
	m.indexFallback.Inc()
}

func (m *Metrics) IncIndexWriteError(origin string) {
	if m == nil {
		return
	}
	m.indexWriteErr.Inc(origin)
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.poolQueue.Set(float64(n))
}

func (m *Metrics) IncPoolRejected(reason string) {
	if m == nil {
		return
	}
	m.poolRejected.Inc(reason)
}

// SyncPasses reads back one counter series; used by tests and health output.
func (m *Metrics) SyncPasses(source, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.syncPasses.Value(source, outcome)
}

func (m *Metrics) IndexFallbacks() float64 {
	if m == nil {
		return 0
	}
	return m.indexFallback.Value()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency,
		m.syncPasses, m.syncDuration, m.syncRecords,
		m.crawlInserted, m.indexFallback, m.indexWriteErr,
		m.poolQueue, m.poolRejected,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}
