// Package adapter exposes the plugin host to external systems over HTTP and
// OpenTelemetry.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/srediag/plugin-status/api"
	"github.com/srediag/plugin-status/pkg/health"
	"github.com/srediag/plugin-status/pkg/lifecycle"
	"github.com/srediag/plugin-status/pkg/status"
)

const (
	// maxGoroutines fails the liveness probe when the host leaks handler goroutines.
	maxGoroutines = 10000
	// readinessMaxAge is how long a plugin's last report answers readiness
	// before its status handler is invoked again.
	readinessMaxAge = 30 * time.Second
)

// Source is the part of the host the HTTP adapter serves.
type Source interface {
	api.Health
	Plugins() []string
	StatusAll(ctx context.Context) (*health.Summary, error)
	ReloadPlugin(pluginID string) error
	Logs(pluginID string) []api.LogEntry
	LastStatus(pluginID string) (*api.Report, time.Time, bool)
	DrainLogs() []api.LogEntry
}

type handler struct {
	src    Source
	logger *zap.Logger
	now    func() time.Time
}

// NewHTTPHandler returns the host's HTTP surface. Readiness checks are
// registered for the plugins loaded at the time of the call.
func NewHTTPHandler(src Source, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{src: src, logger: logger, now: time.Now}

	hc := healthcheck.NewHandler()
	hc.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))
	for _, name := range src.Plugins() {
		hc.AddReadinessCheck("plugin-"+name, h.readinessCheck(name))
	}

	r := chi.NewRouter()
	r.Use(chimd.RequestID)
	r.Use(chimd.Recoverer)
	r.Use(h.accessLog)

	r.Get("/live", hc.LiveEndpoint)
	r.Get("/ready", hc.ReadyEndpoint)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", h.statusAll)
		r.Get("/plugins", h.plugins)
		r.Get("/logs/pending", h.pendingLogs)
		r.Get("/plugins/{name}/status", h.status)
		r.Get("/plugins/{name}/logs", h.logs)
		r.Post("/plugins/{name}/reload", h.reload)
	})
	return r
}

// readinessCheck answers from the plugin's last report while it is fresh, so
// polling /ready does not run status handlers on every request.
func (h *handler) readinessCheck(name string) healthcheck.Check {
	return func() error {
		rep, at, ok := h.src.LastStatus(name)
		if !ok || h.now().Sub(at) > readinessMaxAge {
			var err error
			if rep, err = h.src.Status(context.Background(), name); err != nil {
				return err
			}
		}
		if !rep.Healthy && rep.Error != nil {
			return errors.New(rep.Error.Message)
		}
		return nil
	}
}

func (h *handler) plugins(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.src.Plugins())
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rep, err := h.src.Status(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, reportStatusCode(rep), rep)
}

func reportStatusCode(rep *api.Report) int {
	switch {
	case rep.Healthy:
		return http.StatusOK
	case rep.Error != nil && rep.Error.Code == string(status.CodeHandlerTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) statusAll(w http.ResponseWriter, r *http.Request) {
	sum, err := h.src.StatusAll(r.Context())
	if err != nil {
		h.logger.Warn("status all", zap.Error(err))
	}
	code := http.StatusOK
	if !sum.Healthy {
		code = http.StatusInternalServerError
	}
	h.respondJSON(w, code, sum)
}

func (h *handler) logs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := h.src.LivenessCheck(name); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, h.src.Logs(name))
}

// pendingLogs drains the plugin log lines queued since the previous call.
func (h *handler) pendingLogs(w http.ResponseWriter, r *http.Request) {
	entries := h.src.DrainLogs()
	if entries == nil {
		entries = []api.LogEntry{}
	}
	h.respondJSON(w, http.StatusOK, entries)
}

func (h *handler) respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, lifecycle.ErrPluginNotFound) {
		code = http.StatusNotFound
	}
	h.respondJSON(w, code, map[string]string{"error": err.Error()})
}

func (h *handler) respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

func (h *handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			h.logger.Debug("http request",
				zap.String("requestId", chimd.GetReqID(r.Context())),
				zap.String("httpMethod", r.Method),
				zap.String("uri", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("lat", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}
