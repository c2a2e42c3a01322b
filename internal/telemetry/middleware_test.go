package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newContactsRouter(mw func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(mw)
	r.Get("/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/contacts", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Patch("/api/update_contact/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	t.Parallel()

	t.Run("passes through when metrics is nil", func(t *testing.T) {
		t.Parallel()

		var metrics *HTTPMetrics
		wrapped := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTeapot, rr.Code)
	})

	t.Run("records route pattern and status code", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		mw, err := MetricsMiddleware(mp)
		require.NoError(t, err)
		router := newContactsRouter(mw)

		for _, path := range []string{"/api/update_contact/1", "/api/update_contact/2"} {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, path, nil))
			assert.Equal(t, http.StatusNotFound, rr.Code)
		}

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))

		m := findMetric(rm, "contacts_http_requests_total")
		require.NotNil(t, m)
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)

		dp := sum.DataPoints[0]
		assert.Equal(t, int64(2), dp.Value)
		route, _ := dp.Attributes.Value(attribute.Key("route"))
		assert.Equal(t, "/api/update_contact/{id}", route.AsString())
		status, _ := dp.Attributes.Value(attribute.Key("status_code"))
		assert.Equal(t, "404", status.AsString())

		ops := findMetric(rm, "contacts_operations_total")
		require.NotNil(t, ops)
		opSum, ok := ops.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, opSum.DataPoints, 1)
		assert.Equal(t, int64(2), opSum.DataPoints[0].Value)
		operation, _ := opSum.DataPoints[0].Attributes.Value(attribute.Key("operation"))
		assert.Equal(t, OperationUpdate, operation.AsString())
		outcome, _ := opSum.DataPoints[0].Attributes.Value(attribute.Key("outcome"))
		assert.Equal(t, OutcomeNotFound, outcome.AsString())
	})

	t.Run("counts only contact operations", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		mw, err := MetricsMiddleware(mp)
		require.NoError(t, err)
		router := newContactsRouter(mw)

		for _, path := range []string{"/boom", "/nowhere"} {
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		}

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		assert.NotNil(t, findMetric(rm, "contacts_http_requests_total"))
		assert.Nil(t, findMetric(rm, "contacts_operations_total"))
	})

	t.Run("skips liveness and readiness endpoints", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		mw, err := MetricsMiddleware(mp)
		require.NoError(t, err)
		router := newContactsRouter(mw)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/liveness", nil))
		assert.Equal(t, http.StatusOK, rr.Code)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		assert.Nil(t, findMetric(rm, "contacts_http_requests_total"))
	})

	t.Run("nil provider yields pass-through middleware", func(t *testing.T) {
		t.Parallel()

		mw, err := MetricsMiddleware(nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		newContactsRouter(mw).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/contacts", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("nil provider passes through", func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		newContactsRouter(TracingMiddleware(nil)).
			ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/contacts", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	tests := []struct {
		name          string
		method        string
		path          string
		wantName      string
		wantStatus    codes.Code
		wantOperation string
		wantOutcome   string
	}{
		{
			name:          "successful request",
			method:        http.MethodGet,
			path:          "/api/contacts",
			wantName:      "GET /api/contacts",
			wantStatus:    codes.Unset,
			wantOperation: OperationList,
			wantOutcome:   OutcomeSuccess,
		},
		{
			name:          "client error leaves status unset",
			method:        http.MethodPatch,
			path:          "/api/update_contact/42",
			wantName:      "PATCH /api/update_contact/{id}",
			wantStatus:    codes.Unset,
			wantOperation: OperationUpdate,
			wantOutcome:   OutcomeNotFound,
		},
		{
			name:          "server error marks span",
			method:        http.MethodGet,
			path:          "/boom",
			wantName:      "GET /boom",
			wantStatus:    codes.Error,
			wantOperation: OperationUnknown,
			wantOutcome:   OutcomeServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			defer func() { _ = tp.Shutdown(context.Background()) }()

			rr := httptest.NewRecorder()
			newContactsRouter(TracingMiddleware(tp)).ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantName, spans[0].Name())
			assert.Equal(t, tt.wantStatus, spans[0].Status().Code)
			assert.Contains(t, spans[0].Attributes(), AttrOperation.String(tt.wantOperation))
			assert.Contains(t, spans[0].Attributes(), AttrOutcome.String(tt.wantOutcome))
		})
	}

	t.Run("skips liveness and readiness endpoints", func(t *testing.T) {
		t.Parallel()

		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		defer func() { _ = tp.Shutdown(context.Background()) }()

		rr := httptest.NewRecorder()
		newContactsRouter(TracingMiddleware(tp)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/liveness", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, recorder.Ended())
	})
}
