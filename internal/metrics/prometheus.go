package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	TradesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_trades_processed_total",
			Help: "Total number of trades run through the pipeline",
		},
		[]string{"source", "status"}, // status: processed|duplicate|rejected|error
	)

	TradeRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_trade_rejects_total",
			Help: "Trades rejected during normalization, by reason",
		},
		[]string{"reason"},
	)

	PipelineLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argus_pipeline_latency_seconds",
			Help:    "End-to-end latency of processing a single trade",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"source"},
	)

	// Alert metrics
	AlertDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_alert_decisions_total",
			Help: "Alert decisions by outcome reason",
		},
		[]string{"reason"},
	)

	AlertsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_alerts_published_total",
			Help: "Alerts published to Kafka by type",
		},
		[]string{"alert_type"},
	)

	AlertsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_alerts_delivered_total",
			Help: "Alert notifications delivered to Telegram",
		},
		[]string{"alert_type", "status"}, // status: success|error
	)

	// Ingest metrics
	IngestBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_ingest_batches_total",
			Help: "Data API fetch batches by status",
		},
		[]string{"status"}, // status: success|error|empty
	)

	IngestAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argus_ingest_api_latency_seconds",
			Help:    "Data API request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	FeedReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_feed_reconnects_total",
			Help: "WebSocket feed reconnect attempts",
		},
		[]string{"status"}, // status: success|failed
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argus_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "argus_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_kafka_messages_total",
			Help: "Total Kafka messages produced/consumed",
		},
		[]string{"topic", "direction", "status"}, // direction: produced|consumed
	)

	ReportsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_reports_generated_total",
			Help: "Activity reports generated",
		},
		[]string{"status"}, // status: success|error
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(TradesProcessed)
	prometheus.MustRegister(TradeRejects)
	prometheus.MustRegister(PipelineLatency)

	prometheus.MustRegister(AlertDecisions)
	prometheus.MustRegister(AlertsPublished)
	prometheus.MustRegister(AlertsDelivered)

	prometheus.MustRegister(IngestBatches)
	prometheus.MustRegister(IngestAPILatency)
	prometheus.MustRegister(FeedReconnects)

	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(KafkaMessages)
	prometheus.MustRegister(ReportsGenerated)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordTrade records one pipeline pass for a trade
func RecordTrade(source, status string, duration time.Duration) {
	TradesProcessed.WithLabelValues(source, status).Inc()
	PipelineLatency.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordKafkaMessage records a produced or consumed Kafka message
func RecordKafkaMessage(topic, direction string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	KafkaMessages.WithLabelValues(topic, direction, status).Inc()
}
