package metrics

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    requestsTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "ocrapi",
            Name:      "requests_total",
            Help:      "Total OCR requests by endpoint, source mode and result",
        },
        []string{"endpoint", "source", "result"},
    )

    requestDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "ocrapi",
            Name:      "request_duration_seconds",
            Help:      "End-to-end OCR request duration by endpoint",
            Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
        },
        []string{"endpoint"},
    )

    pagesOCR = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "ocrapi",
            Name:      "pages_ocr_total",
            Help:      "Total PDF pages rasterized and recognized",
        },
    )

    fetchesTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "ocrapi",
            Name:      "remote_fetches_total",
            Help:      "Remote URL fetches by result (ok, http_error, not_pdf, network_error)",
        },
        []string{"result"},
    )

    fetchBytes = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "ocrapi",
            Name:      "remote_fetch_bytes",
            Help:      "Size of fetched remote documents in bytes",
            Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
        },
    )

    tempFilesSwept = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "ocrapi",
            Name:      "temp_files_swept_total",
            Help:      "Stale temporary files removed by the background sweeper",
        },
    )
)

// Init registers collectors.
func Init() {
    prometheus.MustRegister(requestsTotal, requestDuration, pagesOCR, fetchesTotal, fetchBytes, tempFilesSwept)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveRequest(endpoint, source, result string, dur time.Duration) {
    requestsTotal.WithLabelValues(endpoint, source, result).Inc()
    requestDuration.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func AddPagesOCR(n int) { pagesOCR.Add(float64(n)) }

func IncFetch(result string) { fetchesTotal.WithLabelValues(result).Inc() }

func ObserveFetchBytes(n int64) { fetchBytes.Observe(float64(n)) }

func AddTempSwept(n int) { tempFilesSwept.Add(float64(n)) }
