package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// ingestRecords counts records seen by IngestService by outcome:
	// received, duplicate (collapsed by the dedup pass), rejected, processed.
	ingestRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_total",
			Help: "Records handled by the batch ingestion endpoint, by outcome.",
		},
		[]string{"outcome"},
	)

	// ingestRows counts rows actually inserted, by table.
	ingestRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_created_total",
			Help: "Rows inserted by batch ingestion, by table.",
		},
		[]string{"table"},
	)

	// reportCache counts report cache lookups by result (hit, miss, error).
	reportCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_cache_lookups_total",
			Help: "Top-orders report cache lookups, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(ingestRecords, ingestRows, reportCache)
}
