package obs

import "github.com/prometheus/client_golang/prometheus"

// SaleFinalizations counts closed sales by document type and result
// (ok, offline, error).
var SaleFinalizations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "pos_sale_finalizations_total",
	Help: "Finalized sales by document type and result.",
}, []string{"type", "result"})

// OfflinePendingDocuments tracks documents waiting to be replayed to the
// gateway.
var OfflinePendingDocuments = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "pos_offline_pending_documents",
	Help: "Offline documents not yet synced to the gateway.",
})

func init() {
	prometheus.MustRegister(SaleFinalizations, OfflinePendingDocuments)
}
