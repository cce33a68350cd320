package slideshow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Advance triggers.
const (
	triggerTimer  = "timer"
	triggerManual = "manual"
)

// Upload results.
const (
	uploadAdded        = "added"
	uploadRejected     = "rejected"
	uploadReadError    = "read_error"
	uploadStorageError = "storage_error"
)

// Prometheus metrics.
var (
	slideshowAdvancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slideshow_advances_total",
			Help: "Total number of slide transitions",
		},
		[]string{"slideshow", "trigger"},
	)

	slideshowItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slideshow_items",
			Help: "Number of slides currently in a slideshow",
		},
		[]string{"slideshow"},
	)

	slideshowUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slideshow_uploads_total",
			Help: "Total number of slide uploads by result",
		},
		[]string{"slideshow", "result"},
	)

	slideshowStorageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slideshow_storage_failures_total",
			Help: "Total number of failed slideshow writes",
		},
		[]string{"slideshow"},
	)
)
