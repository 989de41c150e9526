package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SentencesParsed   prometheus.Counter
	SentencesRejected prometheus.Counter
	WeedsMarked       *prometheus.CounterVec
	MarksWithoutFix   prometheus.Counter
	Detections        prometheus.Counter
	PersistFailures   prometheus.Counter
	LedgerEntries     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		SentencesParsed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "weeder_nmea_sentences_parsed_total",
			Help: "Total number of NMEA sentences that produced a fix.",
		}),
		SentencesRejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "weeder_nmea_sentences_rejected_total",
			Help: "Total number of NMEA sentences that carried no usable fix.",
		}),
		WeedsMarked: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "weeder_weeds_marked_total",
			Help: "Total number of weed locations recorded in the ledger.",
		}, []string{"weed_type"}),
		MarksWithoutFix: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "weeder_marks_without_fix_total",
			Help: "Total number of mark requests dropped because no GPS fix was available.",
		}),
		Detections: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "weeder_detections_total",
			Help: "Total number of weeds reported by the detector.",
		}),
		PersistFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "weeder_weed_map_persist_failures_total",
			Help: "Total number of failed weed map writes.",
		}),
		LedgerEntries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "weeder_ledger_entries",
			Help: "Current number of entries in the weed ledger.",
		}),
	}
}
