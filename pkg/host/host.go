// Package host assembles the plugin host: log stream, plugin table and
// status reporter behind one value.
package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/srediag/plugin-status/api"
	"github.com/srediag/plugin-status/internal/logging"
	"github.com/srediag/plugin-status/pkg/audit"
	"github.com/srediag/plugin-status/pkg/health"
	"github.com/srediag/plugin-status/pkg/lifecycle"
)

// Option customises New.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	tracer   trace.Tracer
	meter    metric.Meter
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithRegistry sets the Prometheus registry the host's metrics go to.
func WithRegistry(r *prometheus.Registry) Option { return func(o *options) { o.registry = r } }

// WithTracer sets the tracer used for status spans.
func WithTracer(t trace.Tracer) Option { return func(o *options) { o.tracer = t } }

// WithMeter sets the OpenTelemetry meter.
func WithMeter(m metric.Meter) Option { return func(o *options) { o.meter = m } }

// Host loads plugins and answers status queries about them.
type Host struct {
	config   *Config
	logger   *zap.Logger
	registry *prometheus.Registry
	stream   *audit.Stream
	manager  *lifecycle.Manager
	reporter *health.Reporter
}

// New builds a host. A nil config selects DefaultConfig.
func New(config *Config, opts ...Option) (*Host, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := VerifyConfig(config); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.New(logging.Options{Level: config.LogLevel, File: config.LogFile})
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	stream := audit.NewStream(o.logger, config.LogQueueCap, config.LogHistory)
	manager := lifecycle.NewManager(stream, o.logger, lifecycle.Options{
		LoadRetries:   config.LoadRetries,
		RetryInterval: config.LoadRetryInterval,
	})
	reporter, err := health.NewReporter(manager, stream, health.Options{
		Timeout:    config.StatusTimeout,
		Workers:    config.Workers,
		Registerer: o.registry,
		Tracer:     o.tracer,
		Meter:      o.meter,
		Logger:     o.logger,
	})
	if err != nil {
		stream.Close()
		return nil, err
	}
	return &Host{
		config:   config,
		logger:   o.logger,
		registry: o.registry,
		stream:   stream,
		manager:  manager,
		reporter: reporter,
	}, nil
}

// Load starts each plugin in order, continuing past failures. The returned
// error joins every load failure.
func (h *Host) Load(plugins ...api.Plugin) error {
	var errs []error
	for _, p := range plugins {
		if err := h.manager.StartPlugin(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Status queries a single plugin.
func (h *Host) Status(ctx context.Context, pluginID string) (*api.Report, error) {
	return h.reporter.Status(ctx, pluginID)
}

// StatusAll queries every loaded plugin.
func (h *Host) StatusAll(ctx context.Context) (*health.Summary, error) {
	return h.reporter.StatusAll(ctx)
}

// LivenessCheck reports whether pluginID is loaded.
func (h *Host) LivenessCheck(pluginID string) (bool, error) {
	return h.reporter.LivenessCheck(pluginID)
}

func (h *Host) Plugins() []string { return h.manager.Plugins() }

func (h *Host) ReloadPlugin(pluginID string) error { return h.manager.ReloadPlugin(pluginID) }

func (h *Host) StopPlugin(pluginID string) error { return h.manager.StopPlugin(pluginID) }

// LastStatus returns the most recent report for pluginID without invoking
// its handler.
func (h *Host) LastStatus(pluginID string) (*api.Report, time.Time, bool) {
	return h.reporter.LastStatus(pluginID)
}

// DrainLogs removes and returns the log lines not yet drained, across all
// plugins, oldest first.
func (h *Host) DrainLogs() []api.LogEntry { return h.stream.Drain() }

// Logs returns the retained log lines of pluginID.
func (h *Host) Logs(pluginID string) []api.LogEntry { return h.stream.Entries(pluginID) }

func (h *Host) Config() *Config { return h.config }

func (h *Host) Logger() *zap.Logger { return h.logger }

// Registry is the Prometheus registry holding the host's metrics.
func (h *Host) Registry() *prometheus.Registry { return h.registry }

// Close stops every plugin and releases the host's resources.
func (h *Host) Close() error {
	err := h.manager.StopAll()
	h.reporter.Close()
	h.stream.Close()
	if syncErr := h.logger.Sync(); syncErr != nil {
		h.logger.Debug("logger sync", zap.Error(syncErr))
	}
	if err != nil {
		return fmt.Errorf("close host: %w", err)
	}
	return nil
}
