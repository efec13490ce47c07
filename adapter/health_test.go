package adapter

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/srediag/plugin-status/api"
	"github.com/srediag/plugin-status/pkg/health"
	"github.com/srediag/plugin-status/pkg/host"
	"github.com/srediag/plugin-status/plugins/statusexc"
)

type okPlugin struct{ api.Base }

func (okPlugin) Name() string { return "ok" }

func (okPlugin) Load(h api.Host) error {
	h.SetStatusHandler(func() (any, error) { return "fine", nil })
	return nil
}

type slowPlugin struct{ api.Base }

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) Load(h api.Host) error {
	h.SetStatusHandler(func() (any, error) {
		time.Sleep(time.Second)
		return nil, nil
	})
	return nil
}

type HTTPTestSuite struct {
	suite.Suite
	host   *host.Host
	server *httptest.Server
}

func (s *HTTPTestSuite) SetupTest() {
	cfg := host.DefaultConfig()
	cfg.StatusTimeout = 50 * time.Millisecond
	h, err := host.New(cfg, append(NewOTel(nil, nil).HostOptions(), host.WithLogger(zap.NewNop()))...)
	s.Require().NoError(err)
	s.Require().NoError(h.Load(statusexc.New(), okPlugin{}, slowPlugin{}))
	s.host = h
	s.server = httptest.NewServer(NewHTTPHandler(h, h.Registry(), nil))
}

func (s *HTTPTestSuite) TearDownTest() {
	s.server.Close()
	s.Require().NoError(s.host.Close())
}

func (s *HTTPTestSuite) get(path string, v any) int {
	resp, err := http.Get(s.server.URL + path)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if v != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func (s *HTTPTestSuite) TestPluginStatusFailure() {
	var rep api.Report
	code := s.get("/v1/plugins/statusexc/status", &rep)
	s.Equal(http.StatusInternalServerError, code)
	s.False(rep.Healthy)
	s.Require().NotNil(rep.Error)
	s.Equal("exception in status", rep.Error.Message)
	s.Equal([]string{"handling status"}, rep.Logs)
}

func (s *HTTPTestSuite) TestPluginStatusHealthy() {
	var rep api.Report
	code := s.get("/v1/plugins/ok/status", &rep)
	s.Equal(http.StatusOK, code)
	s.True(rep.Healthy)
	s.Equal("fine", rep.Result)
}

func (s *HTTPTestSuite) TestPluginStatusTimeout() {
	var rep api.Report
	code := s.get("/v1/plugins/slow/status", &rep)
	s.Equal(http.StatusGatewayTimeout, code)
	s.Equal("status_handler_timeout", rep.Error.Code)
}

func (s *HTTPTestSuite) TestUnknownPlugin() {
	var body map[string]string
	s.Equal(http.StatusNotFound, s.get("/v1/plugins/nope/status", &body))
	s.Contains(body["error"], "plugin not found")
	s.Equal(http.StatusNotFound, s.get("/v1/plugins/nope/logs", nil))
}

func (s *HTTPTestSuite) TestStatusAll() {
	var sum health.Summary
	code := s.get("/v1/status", &sum)
	s.Equal(http.StatusInternalServerError, code)
	s.False(sum.Healthy)
	s.Len(sum.Plugins, 3)
}

func (s *HTTPTestSuite) TestPluginsAndLogs() {
	var names []string
	s.Equal(http.StatusOK, s.get("/v1/plugins", &names))
	s.Equal([]string{"ok", "slow", "statusexc"}, names)

	s.get("/v1/plugins/statusexc/status", nil)
	var entries []api.LogEntry
	s.Equal(http.StatusOK, s.get("/v1/plugins/statusexc/logs", &entries))
	s.Require().Len(entries, 1)
	s.Equal("handling status", entries[0].Message)
}

func (s *HTTPTestSuite) TestLiveAndReady() {
	s.Equal(http.StatusOK, s.get("/live", nil))

	resp, err := http.Get(s.server.URL + "/ready?full=1")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	var checks map[string]string
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&checks))
	s.Equal("exception in status", checks["plugin-statusexc"])
	s.Equal("OK", checks["plugin-ok"])
}

func (s *HTTPTestSuite) TestReadyPollingReusesLastReport() {
	for i := 0; i < 3; i++ {
		s.Equal(http.StatusServiceUnavailable, s.get("/ready", nil))
	}
	s.Len(s.host.Logs("statusexc"), 1)

	s.get("/v1/plugins/statusexc/status", nil)
	s.get("/ready", nil)
	s.Len(s.host.Logs("statusexc"), 2)
}

func (s *HTTPTestSuite) TestReadinessRefreshesStaleReport() {
	now := time.Now()
	h := &handler{src: s.host, logger: zap.NewNop(), now: func() time.Time { return now }}
	check := h.readinessCheck("statusexc")

	s.EqualError(check(), "exception in status")
	s.EqualError(check(), "exception in status")
	s.Len(s.host.Logs("statusexc"), 1)

	now = now.Add(readinessMaxAge + time.Second)
	s.EqualError(check(), "exception in status")
	s.Len(s.host.Logs("statusexc"), 2)

	s.Require().NoError(s.host.StopPlugin("statusexc"))
	s.ErrorContains(check(), "plugin not found")
}

func (s *HTTPTestSuite) TestPendingLogs() {
	s.get("/v1/plugins/statusexc/status", nil)
	s.get("/v1/plugins/statusexc/status", nil)

	var entries []api.LogEntry
	s.Equal(http.StatusOK, s.get("/v1/logs/pending", &entries))
	s.Require().Len(entries, 2)
	s.Equal("statusexc", entries[0].Plugin)
	s.Equal("handling status", entries[1].Message)

	entries = nil
	s.Equal(http.StatusOK, s.get("/v1/logs/pending", &entries))
	s.NotNil(entries)
	s.Empty(entries)
	s.Len(s.host.Logs("statusexc"), 2)
}

func (s *HTTPTestSuite) TestReload() {
	resp, err := http.Post(s.server.URL+"/v1/plugins/statusexc/reload", "application/json", nil)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, err = http.Post(s.server.URL+"/v1/plugins/nope/reload", "application/json", nil)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *HTTPTestSuite) TestMetrics() {
	s.get("/v1/plugins/statusexc/status", nil)
	resp, err := http.Get(s.server.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(body), `plugin_status_failures_total{code="status_handler_failure",plugin="statusexc"} 1`)
}

func TestHTTPTestSuite(t *testing.T) {
	suite.Run(t, new(HTTPTestSuite))
}
