package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/analytics"
	"beebi/backend/internal/config"
	"beebi/backend/internal/store"
)

var testDay = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestConfig() config.Config {
	return config.Config{
		AppEnv:       "test",
		AppName:      "Beebi Analytics API Test",
		APIPrefix:    "/api/v1",
		AppPort:      "0",
		DataSource:   config.SourceSQLite,
		JWTAlgorithm: "HS256",
		CORSAllowOrigins: []string{
			"http://localhost:5173",
		},
	}
}

func newAuthTestConfig() config.Config {
	cfg := newTestConfig()
	cfg.JWTSecret = "test-secret-1234567890"
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecords() []activity.Record {
	var records []activity.Record
	add := func(kind activity.Type, offset time.Duration, start, end string) {
		records = append(records, activity.Record{
			ID:             string(rune('a' + len(records))),
			SubjectID:      "10",
			Type:           kind,
			StartTime:      testDay.Add(offset),
			StartCondition: start,
			EndCondition:   end,
		})
	}
	add(activity.Feed, 8*time.Hour, "breast", "80ml")
	add(activity.Feed, 11*time.Hour, "formula", "85ml")
	add(activity.Feed, 14*time.Hour, "breast", "95ml")
	add(activity.Diaper, 1*time.Hour, "", "poo:big")
	add(activity.Diaper, 2*time.Hour, "", "poo:big")
	add(activity.Diaper, 3*time.Hour, "pee:small", "")
	return records
}

type recordingPublisher struct {
	reports []analytics.Report
}

func (p *recordingPublisher) Publish(_ context.Context, r analytics.Report) (bool, error) {
	p.reports = append(p.reports, r)
	return true, nil
}

func newTestApp(t *testing.T, cfg config.Config, alerts AlertPublisher) *App {
	t.Helper()
	loader := store.NewLoader(store.NewMemorySource(sampleRecords()...), store.LoaderConfig{DefaultSubjectID: "10"})
	engine := analytics.NewEngine(loader, analytics.WithLogger(quietLogger()))
	return New(cfg, engine, alerts, quietLogger())
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestApp(t, newTestConfig(), nil).Router()
}

func signToken(t *testing.T, cfg config.Config, sub string, overrides map[string]any) string {
	t.Helper()

	claims := jwt.MapClaims{
		"exp": time.Now().UTC().Add(1 * time.Hour).Unix(),
		"iat": time.Now().UTC().Add(-1 * time.Minute).Unix(),
	}
	if strings.TrimSpace(sub) != "" {
		claims["sub"] = sub
	}
	if strings.TrimSpace(cfg.JWTAudience) != "" {
		claims["aud"] = cfg.JWTAudience
	}
	if strings.TrimSpace(cfg.JWTIssuer) != "" {
		claims["iss"] = cfg.JWTIssuer
	}
	for key, value := range overrides {
		if value == nil {
			delete(claims, key)
			continue
		}
		claims[key] = value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func performRequest(t *testing.T, router http.Handler, method, targetPath, token string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, targetPath, nil)
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSONMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response JSON: %v; body=%s", err, rec.Body.String())
	}
	return payload
}

func responseDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeJSONMap(t, rec)
	detail, _ := body["detail"].(string)
	return detail
}
