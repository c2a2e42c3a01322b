package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/contacts-server/database"
	"github.com/stacklok/contacts-server/internal/app/storage/mocks"
	"github.com/stacklok/contacts-server/internal/config"
	"github.com/stacklok/contacts-server/internal/readiness"
	"github.com/stacklok/contacts-server/internal/service/inmemory"
	"github.com/stacklok/contacts-server/internal/status"
)

func intPtr(i int) *int { return &i }

// createTestAppConfig creates a minimal config with a fast readiness gate
func createTestAppConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Address: "127.0.0.1:0"},
		Storage:   config.StorageConfig{Type: config.StorageTypeMemory},
		Readiness: config.ReadinessConfig{MaxAttempts: intPtr(3), Delay: "10ms"},
	}
}

// newMockFactory returns a storage factory whose prober answers with probe
func newMockFactory(ctrl *gomock.Controller, probe readiness.ProbeFunc) *mocks.MockFactory {
	f := mocks.NewMockFactory(ctrl)
	f.EXPECT().CreateProber(gomock.Any()).Return(probe, nil)
	f.EXPECT().CreateContactService(gomock.Any()).Return(inmemory.New(), nil)
	f.EXPECT().Cleanup().AnyTimes()
	return f
}

func TestContactsApp_Initialize(t *testing.T) {
	t.Parallel()

	schemaErr := &database.SchemaError{Err: errors.New("permission denied for schema public")}

	tests := []struct {
		name        string
		probe       readiness.ProbeFunc
		schemaErr   error
		wantSchema  bool
		wantReady   bool
		wantPhase   status.Phase
		wantErrPart string
	}{
		{
			name:       "database ready and schema created",
			probe:      func(context.Context) error { return nil },
			wantSchema: true,
			wantReady:  true,
			wantPhase:  status.PhaseReady,
		},
		{
			name:        "gate exhausted skips schema",
			probe:       func(context.Context) error { return readiness.NewConnectionError(errors.New("refused")) },
			wantPhase:   status.PhaseDegraded,
			wantErrPart: "database not ready after 3 attempts",
		},
		{
			name:        "schema failure degrades",
			probe:       func(context.Context) error { return nil },
			schemaErr:   schemaErr,
			wantSchema:  true,
			wantPhase:   status.PhaseDegraded,
			wantErrPart: "failed to initialize schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			factory := newMockFactory(ctrl, tt.probe)
			if tt.wantSchema {
				factory.EXPECT().InitializeSchema(gomock.Any()).Return(tt.schemaErr).Times(1)
			}

			app, err := NewContactsApp(context.Background(),
				WithConfig(createTestAppConfig()),
				WithStorageFactory(factory),
			)
			require.NoError(t, err)

			assert.Equal(t, tt.wantReady, app.Initialize(context.Background()))

			snap := app.Startup().Snapshot()
			assert.Equal(t, tt.wantPhase, snap.Phase)
			assert.Contains(t, snap.Error, tt.wantErrPart)
		})
	}
}

func TestContactsApp_InitializeCancelled(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	var probes atomic.Int32
	factory := newMockFactory(ctrl, func(context.Context) error {
		probes.Add(1)
		return errors.New("refused")
	})

	cfg := createTestAppConfig()
	cfg.Readiness = config.ReadinessConfig{MaxAttempts: intPtr(100), Delay: "1h"}
	app, err := NewContactsApp(context.Background(), WithConfig(cfg), WithStorageFactory(factory))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	assert.False(t, app.Initialize(ctx))
	assert.Equal(t, int32(1), probes.Load())
	assert.Contains(t, app.Startup().Snapshot().Error, "interrupted")
}

func TestContactsApp_StartAndStop(t *testing.T) {
	t.Parallel()

	app, err := NewContactsApp(context.Background(), WithConfig(createTestAppConfig()))
	require.NoError(t, err)

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	require.Eventually(t, func() bool { return app.Addr() != "" }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + app.Addr() + "/readiness")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ready"`)

	resp, err = http.Get("http://" + app.Addr() + "/api/contacts")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.Stop(5*time.Second))
	require.NoError(t, app.Stop(5*time.Second), "Stop must be idempotent")

	select {
	case startErr := <-errChan:
		require.NoError(t, startErr)
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestContactsApp_DegradedStillServes(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	factory := newMockFactory(ctrl, func(context.Context) error { return errors.New("refused") })
	app, err := NewContactsApp(context.Background(), WithConfig(createTestAppConfig()), WithStorageFactory(factory))
	require.NoError(t, err)

	go func() { _ = app.Start() }()
	t.Cleanup(func() { _ = app.Stop(5 * time.Second) })

	require.Eventually(t, func() bool { return app.Addr() != "" }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + app.Addr() + "/liveness")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + app.Addr() + "/readiness")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestContactsApp_StopBeforeStart(t *testing.T) {
	t.Parallel()

	app, err := NewContactsApp(context.Background(), WithConfig(createTestAppConfig()))
	require.NoError(t, err)

	require.NoError(t, app.Stop(time.Second))
	assert.NoError(t, app.Start())
}

func TestContactsApp_StartError_InvalidAddress(t *testing.T) {
	t.Parallel()

	app, err := NewContactsApp(context.Background(), WithConfig(createTestAppConfig()))
	require.NoError(t, err)
	app.httpServer.Addr = "127.0.0.1:99999"

	err = app.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP server failed")
}

func TestContactsApp_Getters(t *testing.T) {
	t.Parallel()

	cfg := createTestAppConfig()
	app, err := NewContactsApp(context.Background(), WithConfig(cfg))
	require.NoError(t, err)

	assert.Same(t, cfg, app.GetConfig())
	assert.Equal(t, "127.0.0.1:0", app.GetHTTPServer().Addr)
	assert.Empty(t, app.Addr())
	assert.Equal(t, status.PhaseStarting, app.Startup().Snapshot().Phase)
}
