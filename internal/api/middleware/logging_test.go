package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/inboundpanel/internal/api/requestctx"
)

func TestStructuredLoggerCollectsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(StructuredLogger(LoggingConfig{Logger: logger, SkipPaths: []string{"/healthz"}}))
	r.Post("/api/v1/admin/packs/{name}", func(w http.ResponseWriter, req *http.Request) {
		requestctx.AddLogAttrs(req.Context(), slog.String("plan_id", "plan-1"))
		w.WriteHeader(http.StatusCreated)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/packs/reality?strict=1", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "/api/v1/admin/packs/{name}", entry["route"])
	assert.Equal(t, "reality", entry["pack"])
	assert.Equal(t, "plan-1", entry["plan_id"])
	assert.Equal(t, "1", entry["strict"])
	assert.EqualValues(t, 201, entry["status"])

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, buf.String())
}

func TestAddLogAttrsWithoutBag(t *testing.T) {
	assert.NotPanics(t, func() {
		requestctx.AddLogAttrs(httptest.NewRequest(http.MethodGet, "/", nil).Context(), slog.String("k", "v"))
	})
}
