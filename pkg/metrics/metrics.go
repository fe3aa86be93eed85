package metrics

import (
	"context"
	"sync"
	"time"

	log "github.com/Azure/aks-orchestrators/pkg/logger"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// This const block defines the metric names.
const (
	tokenExchangeDurationName = "token_exchange_duration_seconds"
	tokenExchangeErrorsName   = "token_exchange_errors_count"
	armCallDurationName       = "arm_call_duration_seconds"
	armCallErrorsName         = "arm_call_errors_count"
	cycleCountName            = "cycle_count"

	// TokenExchangeOperationName ...
	TokenExchangeOperationName = "token_exchange"
	// ListOrchestratorsOperationName ...
	ListOrchestratorsOperationName = "list_orchestrators"
)

// The following variables are measures
var (
	// TokenExchangeDurationM is a measure that tracks the duration in seconds of federated token exchanges.
	TokenExchangeDurationM = stats.Float64(
		tokenExchangeDurationName,
		"Duration in seconds of federated token exchange operations",
		stats.UnitMilliseconds)

	// TokenExchangeErrorsCountM is a measure that tracks the cumulative number of failed token exchanges.
	TokenExchangeErrorsCountM = stats.Int64(
		tokenExchangeErrorsName,
		"Total number of failed federated token exchange operations",
		stats.UnitDimensionless)

	// ARMCallDurationM is a measure that tracks the duration in seconds of ARM orchestrator calls.
	ARMCallDurationM = stats.Float64(
		armCallDurationName,
		"Duration in seconds of ARM orchestrators calls",
		stats.UnitMilliseconds)

	// ARMCallErrorsCountM is a measure that tracks the cumulative number of failed ARM calls.
	ARMCallErrorsCountM = stats.Int64(
		armCallErrorsName,
		"Total number of failed ARM orchestrators calls",
		stats.UnitDimensionless)

	// CycleCountM is a measure that tracks the cumulative number of completed cycles.
	CycleCountM = stats.Int64(
		cycleCountName,
		"Total number of completed token-exchange-and-call cycles",
		stats.UnitDimensionless)
)

var (
	operationTypeKey = tag.MustNewKey("operation_type")
)

const componentNamespace = "aksorchestrators"

// SinceInSeconds gets the time since the specified start in seconds.
func SinceInSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// registerViews register views to be collected by exporter
func registerViews() error {
	views := []*view.View{
		{
			Description: TokenExchangeDurationM.Description(),
			Measure:     TokenExchangeDurationM,
			Aggregation: view.Distribution(0.01, 0.02, 0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1, 2, 3, 4, 5, 10),
			TagKeys:     []tag.Key{operationTypeKey},
		},
		{
			Description: TokenExchangeErrorsCountM.Description(),
			Measure:     TokenExchangeErrorsCountM,
			Aggregation: view.Count(),
			TagKeys:     []tag.Key{operationTypeKey},
		},
		{
			Description: ARMCallDurationM.Description(),
			Measure:     ARMCallDurationM,
			Aggregation: view.Distribution(0.01, 0.02, 0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1, 2, 3, 4, 5, 10),
			TagKeys:     []tag.Key{operationTypeKey},
		},
		{
			Description: ARMCallErrorsCountM.Description(),
			Measure:     ARMCallErrorsCountM,
			Aggregation: view.Count(),
			TagKeys:     []tag.Key{operationTypeKey},
		},
		{
			Description: CycleCountM.Description(),
			Measure:     CycleCountM,
			Aggregation: view.Count(),
		},
	}
	err := view.Register(views...)
	return err
}

// record records the given measure
func record(ctx context.Context, ms ...stats.Measurement) {
	stats.Record(ctx, ms...)
}

// Reporter is stats reporter in the context
type Reporter struct {
	mu  sync.Mutex
	ctx context.Context
}

// NewReporter creates a reporter with new context
func NewReporter() (*Reporter, error) {
	ctx, err := tag.New(
		context.Background(),
	)
	if err != nil {
		return nil, err
	}
	return &Reporter{ctx: ctx, mu: sync.Mutex{}}, nil
}

// Report records the given measure
func (r *Reporter) Report(ms ...stats.Measurement) {
	r.mu.Lock()
	record(r.ctx, ms...)
	r.mu.Unlock()
}

// ReportOperation records given measurement by operation type.
func (r *Reporter) ReportOperation(operationType string, measurement stats.Measurement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, err := tag.New(
		r.ctx,
		tag.Insert(operationTypeKey, operationType),
	)
	if err != nil {
		return err
	}
	record(ctx, measurement)
	return nil
}

// RegisterAndExport register the views for the measures and expose via prometheus exporter
func RegisterAndExport(port string, log log.Logger) error {
	err := registerViews()
	if err != nil {
		log.Errorf("failed to register views for metrics. error: %v", err)
		return err
	}
	log.Infof("registered views for metrics")
	exporter, err := newPrometheusExporter(componentNamespace, port)
	if err != nil {
		log.Errorf("prometheus exporter error: %+v", err)
		return err
	}
	view.RegisterExporter(exporter)
	log.Infof("registered and exported metrics on port %s", port)
	return nil
}
