package main

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/omeq-api/catalog"
	"github.com/giygas/omeq-api/config"
	"github.com/giygas/omeq-api/data"
	"github.com/giygas/omeq-api/logging"
	"github.com/giygas/omeq-api/scheduler"
	"github.com/giygas/omeq-api/server"
	"github.com/giygas/omeq-api/validation"
)

func startTestServer(t *testing.T) *server.Server {
	t.Helper()
	logging.ResetForTest(t, "", config.EnvTest, "", 1, 0)

	dc := data.NewDataContainer()
	dc.SetServerStartTime(time.Now())

	sched := scheduler.NewScheduler(dc, catalog.NewLoader("", ""), validation.NewCatalogValidator(), 0)
	if err := sched.Start(); err != nil {
		t.Fatalf("Failed to load embedded catalog: %v", err)
	}
	t.Cleanup(sched.Stop)

	cfg := &config.Config{
		Port:           "8000",
		Address:        "127.0.0.1",
		Env:            config.EnvTest,
		MaxRequestBody: 1048576,
		MaxHeaderSize:  1048576,
		SearchMode:     config.SearchModeToken,
		MaxSuggestions: 50,
		CORSOrigins:    []string{"*"},
	}
	return server.NewServer(cfg, dc)
}

func doRequest(srv *server.Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:40000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	return rr
}

// TestApplicationStartupSmoke loads the embedded catalog and serves every endpoint
func TestApplicationStartupSmoke(t *testing.T) {
	srv := startTestServer(t)

	endpoints := []struct {
		method string
		target string
		body   string
	}{
		{"GET", "/health", ""},
		{"GET", "/v1/products/587473", ""},
		{"GET", "/v1/search?q=oxynorm", ""},
		{"GET", "/v1/resolve?q=587473", ""},
		{"POST", "/v1/omeq", `{"medication":"587473"}`},
		{"POST", "/v1/omeq/batch", `{"rows":[{"medication":"587473"}]}`},
		{"GET", "/v1/opioids", ""},
		{"GET", "/v1/catalog/report", ""},
		{"GET", "/metrics", ""},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.target, func(t *testing.T) {
			rr := doRequest(srv, ep.method, ep.target, ep.body)
			if rr.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

// TestPatchCalculationEndToEnd resolves a patch code and applies the transdermal factor
func TestPatchCalculationEndToEnd(t *testing.T) {
	srv := startTestServer(t)

	rr := doRequest(srv, "POST", "/v1/omeq", `{"medication":"587473","dailyDose":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var response struct {
		Resolution struct {
			Outcome   string `json:"outcome"`
			Canonical string `json:"canonical"`
		} `json:"resolution"`
		Result struct {
			OMEQ   *float64 `json:"omeq"`
			Reason string   `json:"reason"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.Resolution.Outcome != "resolved" {
		t.Errorf("Expected resolved outcome, got %s", response.Resolution.Outcome)
	}
	if !strings.HasSuffix(response.Resolution.Canonical, "(587473)") {
		t.Errorf("Expected canonical label ending in the code, got %q", response.Resolution.Canonical)
	}
	if response.Result.OMEQ == nil || math.Abs(*response.Result.OMEQ-11) > 1e-9 {
		t.Errorf("Expected OMEQ 11, got %v", response.Result.OMEQ)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Setenv("PORT", "80")
	t.Setenv("ENV", "test")

	if err := run(); err == nil {
		t.Error("Expected run to fail on a privileged port")
	}
}
