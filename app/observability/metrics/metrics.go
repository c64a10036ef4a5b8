package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ImportRowsTotal          metric.Int64Counter
	ImportBatchesTotal       metric.Int64Counter
	PasswordVerifyTotal      metric.Int64Counter
	DbQueryDurationSeconds   metric.Float64Histogram
	DbQueryErrorsTotal       metric.Int64Counter
	ExportedRecordsTotal     metric.Int64Counter
	RequestValidationErrsTot metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, using the
// globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("UserRegistry")
		var err error
		m := &AppMetrics{}

		m.ImportRowsTotal, err = meter.Int64Counter(
			"import_rows_total",
			metric.WithDescription("Total import rows processed, by outcome"),
			metric.WithUnit("{row}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create import_rows_total: %v", err)
		}

		m.ImportBatchesTotal, err = meter.Int64Counter(
			"import_batches_total",
			metric.WithDescription("Total import batches processed"),
			metric.WithUnit("{batch}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create import_batches_total: %v", err)
		}

		m.PasswordVerifyTotal, err = meter.Int64Counter(
			"password_verify_total",
			metric.WithDescription("Total password verification attempts, by outcome"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create password_verify_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.ExportedRecordsTotal, err = meter.Int64Counter(
			"exported_records_total",
			metric.WithDescription("Total user records written by CSV exports"),
			metric.WithUnit("{record}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create exported_records_total: %v", err)
		}

		m.RequestValidationErrsTot, err = meter.Int64Counter(
			"request_validation_errors_total",
			metric.WithDescription("Total requests rejected by record validation"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create request_validation_errors_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the global AppMetrics instance, initializing it against the
// current global MeterProvider on first use. Before InitTracingAndMetrics
// runs that provider is a no-op, which is what tests want.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
