package server

import (
	"net/http"
	"strings"
	"testing"
)

func containsText(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

func TestListAnalyzers(t *testing.T) {
	rec := performRequest(t, newTestRouter(t), http.MethodGet, "/api/v1/analytics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	items, ok := decodeJSONMap(t, rec)["analyzers"].([]any)
	if !ok || len(items) != 13 {
		t.Fatalf("expected 13 analyzers, got %v", decodeJSONMap(t, rec)["analyzers"])
	}
	first, _ := items[0].(map[string]any)
	if first["name"] != "feed_volume" || first["domain"] != "feed" {
		t.Fatalf("unexpected first analyzer: %v", first)
	}
}

func TestRunAnalyzerReturnsReport(t *testing.T) {
	rec := performRequest(t, newTestRouter(t), http.MethodGet, "/api/v1/analytics/feed_volume?days=7", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", body["status"])
	}
	if body["subject_id"] != "10" {
		t.Fatalf("expected default subject 10, got %v", body["subject_id"])
	}
	if body["days"] != float64(7) {
		t.Fatalf("expected days 7, got %v", body["days"])
	}
	metrics, _ := body["metrics"].(map[string]any)
	if metrics["average_volume_ml"] != 86.7 {
		t.Fatalf("expected average 86.7, got %v", metrics["average_volume_ml"])
	}
	if metrics["volume_band"] != "Low" {
		t.Fatalf("expected Low band, got %v", metrics["volume_band"])
	}
}

func TestRunAnalyzerInsufficientDataIsStillOK(t *testing.T) {
	rec := performRequest(t, newTestRouter(t), http.MethodGet, "/api/v1/analytics/sleep_sessions", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeJSONMap(t, rec)
	if body["status"] != "insufficient_data" {
		t.Fatalf("expected insufficient_data, got %v", body["status"])
	}
	if body["metrics"] != nil {
		t.Fatalf("expected null metrics, got %v", body["metrics"])
	}
}

func TestRunAnalyzerUnknownName(t *testing.T) {
	rec := performRequest(t, newTestRouter(t), http.MethodGet, "/api/v1/analytics/growth_percentile", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRunAnalyzerRejectsMalformedParameters(t *testing.T) {
	router := newTestRouter(t)
	cases := map[string]string{
		"days":              "/api/v1/analytics/feed_volume?days=seven",
		"by_subject":        "/api/v1/analytics/diaper_frequency?by_subject=maybe",
		"bins":              "/api/v1/analytics/diaper_timing?bins=0",
		"max_interval":      "/api/v1/analytics/diaper_alert?max_interval_hours=-2",
		"big_poo_threshold": "/api/v1/analytics/diaper_alert?big_poo_threshold=x",
	}
	for name, target := range cases {
		rec := performRequest(t, router, http.MethodGet, target, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
		if responseDetail(t, rec) == "" {
			t.Fatalf("%s: expected error detail", name)
		}
	}
}

func TestRunAnalyzerNegativeDaysYieldsErrorReport(t *testing.T) {
	rec := performRequest(t, newTestRouter(t), http.MethodGet, "/api/v1/analytics/feed_volume?days=-3", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if status := decodeJSONMap(t, rec)["status"]; status != "error" {
		t.Fatalf("expected error status, got %v", status)
	}
}

func TestDiaperAlertIsPublished(t *testing.T) {
	publisher := &recordingPublisher{}
	router := newTestApp(t, newTestConfig(), publisher).Router()

	rec := performRequest(t, router, http.MethodGet, "/api/v1/analytics/diaper_alert?big_poo_threshold=2", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	metrics, _ := decodeJSONMap(t, rec)["metrics"].(map[string]any)
	if metrics["alert_count"] != float64(1) {
		t.Fatalf("expected one alert, got %v", metrics["alert_count"])
	}
	if len(publisher.reports) != 1 || publisher.reports[0].Analyzer != "diaper_alert" {
		t.Fatalf("expected the alert report to be handed to the publisher, got %d", len(publisher.reports))
	}
}

func TestDomainReport(t *testing.T) {
	rec := performRequest(t, newTestRouter(t), http.MethodGet, "/api/v1/reports/feed?days=7", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["domain"] != "feed" {
		t.Fatalf("expected feed domain, got %v", body["domain"])
	}
	reports, _ := body["reports"].([]any)
	if len(reports) != 5 {
		t.Fatalf("expected 5 reports, got %d", len(reports))
	}
	text, _ := body["text"].(string)
	if !strings.HasPrefix(text, "Feeding Report for the Last 7 Days") {
		t.Fatalf("unexpected report text: %q", text)
	}
}

func TestDomainReportUnknownDomain(t *testing.T) {
	rec := performRequest(t, newTestRouter(t), http.MethodGet, "/api/v1/reports/growth", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
