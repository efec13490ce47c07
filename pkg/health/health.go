// Package health answers plugin status queries and builds status reports.
package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/srediag/plugin-status/api"
	internalhealth "github.com/srediag/plugin-status/internal/health"
	"github.com/srediag/plugin-status/pkg/audit"
	"github.com/srediag/plugin-status/pkg/lifecycle"
	"github.com/srediag/plugin-status/pkg/status"
)

const defaultWorkers = 8

// Options configures a Reporter. Zero values select no timeout, a small
// worker pool, a private Prometheus registry and no-op telemetry.
type Options struct {
	Timeout    time.Duration
	Workers    int
	Registerer prometheus.Registerer
	Tracer     trace.Tracer
	Meter      metric.Meter
	Logger     *zap.Logger
}

// Summary is the result of StatusAll.
type Summary struct {
	Healthy bool                       `json:"healthy"`
	Host    internalhealth.ProcessInfo `json:"host"`
	Plugins []*api.Report              `json:"plugins"`
}

// Reporter implements api.Health on top of the lifecycle table.
type Reporter struct {
	mgr      *lifecycle.Manager
	stream   *audit.Stream
	timeout  time.Duration
	pool     *ants.Pool
	metrics  *Metrics
	tracer   trace.Tracer
	failures metric.Int64Counter
	logger   *zap.Logger
	last     cmap.ConcurrentMap[string, stamped]
}

type stamped struct {
	report *api.Report
	at     time.Time
}

var _ api.Health = (*Reporter)(nil)

func NewReporter(mgr *lifecycle.Manager, stream *audit.Stream, opts Options) (*Reporter, error) {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}
	if opts.Tracer == nil {
		opts.Tracer = tracenoop.NewTracerProvider().Tracer("plugin-status")
	}
	if opts.Meter == nil {
		opts.Meter = metricnoop.NewMeterProvider().Meter("plugin-status")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	failures, err := opts.Meter.Int64Counter("plugin.status.failures",
		metric.WithDescription("Failed plugin status queries."))
	if err != nil {
		return nil, fmt.Errorf("create otel counter: %w", err)
	}
	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Reporter{
		mgr:      mgr,
		stream:   stream,
		timeout:  opts.Timeout,
		pool:     pool,
		metrics:  m,
		tracer:   opts.Tracer,
		failures: failures,
		logger:   opts.Logger,
		last:     cmap.New[stamped](),
	}, nil
}

// Status invokes the plugin's status handler once and reports the outcome.
// A failing handler yields an unhealthy report, not an error; the error is
// reserved for plugins the host does not know.
func (r *Reporter) Status(ctx context.Context, pluginID string) (*api.Report, error) {
	inst, ok := r.mgr.Lookup(pluginID)
	if !ok {
		return nil, fmt.Errorf("status %s: %w", pluginID, lifecycle.ErrPluginNotFound)
	}

	ctx, span := r.tracer.Start(ctx, "plugin.status",
		trace.WithAttributes(attribute.String("plugin", pluginID)))
	defer span.End()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	mark := r.stream.LastSeq(pluginID)
	start := time.Now()
	result, err := status.Invoke(ctx, inst.Slot().Get())
	elapsed := time.Since(start)

	report := &api.Report{
		Plugin:   pluginID,
		Healthy:  err == nil,
		Result:   result,
		Duration: elapsed,
	}
	for _, e := range r.stream.Since(pluginID, mark) {
		report.Logs = append(report.Logs, e.Message)
	}

	r.metrics.queries.WithLabelValues(pluginID).Inc()
	r.metrics.duration.WithLabelValues(pluginID).Observe(elapsed.Seconds())

	if err != nil {
		report.Error = reportError(err)
		r.metrics.failures.WithLabelValues(pluginID, report.Error.Code).Inc()
		r.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("plugin", pluginID),
			attribute.String("code", report.Error.Code)))
		span.RecordError(err)
		span.SetStatus(codes.Error, report.Error.Message)
		r.logger.Warn("plugin status failed",
			zap.String("plugin", pluginID),
			zap.String("code", report.Error.Code),
			zap.String("message", report.Error.Message))
	}
	r.last.Set(pluginID, stamped{report: report, at: start})
	return report, nil
}

// LastStatus returns the most recent report for pluginID and when its query
// started. Reports of plugins no longer loaded are discarded.
func (r *Reporter) LastStatus(pluginID string) (*api.Report, time.Time, bool) {
	if _, ok := r.mgr.Lookup(pluginID); !ok {
		r.last.Remove(pluginID)
		return nil, time.Time{}, false
	}
	s, ok := r.last.Get(pluginID)
	if !ok {
		return nil, time.Time{}, false
	}
	return s.report, s.at, true
}

func reportError(err error) *api.ReportError {
	if se, ok := status.AsError(err); ok {
		return &api.ReportError{Code: string(se.Code), Message: se.Message}
	}
	return &api.ReportError{Code: string(status.CodeHandlerFailure), Message: err.Error()}
}

// StatusAll queries every loaded plugin on the worker pool. Reports are
// sorted by plugin name.
func (r *Reporter) StatusAll(ctx context.Context) (*Summary, error) {
	names := r.mgr.Plugins()
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		reports = make([]*api.Report, 0, len(names))
		errs    []error
	)
	for _, name := range names {
		name := name
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			rep, err := r.Status(ctx, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// stopped between Plugins() and Status()
				if !errors.Is(err, lifecycle.ErrPluginNotFound) {
					errs = append(errs, err)
				}
				return
			}
			reports = append(reports, rep)
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, fmt.Errorf("submit %s: %w", name, err))
			mu.Unlock()
		}
	}
	wg.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Plugin < reports[j].Plugin })
	sum := &Summary{
		Healthy: true,
		Host:    internalhealth.Snapshot(),
		Plugins: reports,
	}
	for _, rep := range reports {
		if !rep.Healthy {
			sum.Healthy = false
		}
	}
	return sum, errors.Join(errs...)
}

// LivenessCheck reports whether pluginID is loaded.
func (r *Reporter) LivenessCheck(pluginID string) (bool, error) {
	state, err := r.mgr.GetState(pluginID)
	if err != nil {
		return false, err
	}
	return state == api.StateLoaded, nil
}

// Close releases the worker pool.
func (r *Reporter) Close() {
	r.pool.Release()
}
