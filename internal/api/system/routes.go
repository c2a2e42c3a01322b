// Package system provides the root, liveness, readiness and version endpoints.
package system

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/contacts-server/internal/api/common"
	"github.com/stacklok/contacts-server/internal/service"
	"github.com/stacklok/contacts-server/internal/status"
	"github.com/stacklok/contacts-server/internal/versions"
)

// RootResponse is the body of GET /
type RootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ReadinessResponse reports the startup state combined with a live store check
type ReadinessResponse struct {
	Status        status.Phase `json:"status"`
	DatabaseReady bool         `json:"database_ready"`
	SchemaReady   bool         `json:"schema_ready"`
	Error         string       `json:"error,omitempty"`
	CheckedAt     *time.Time   `json:"checked_at,omitempty"`
}

// Router creates a router for the system endpoints. It is mounted at the root.
func Router(svc service.ContactService, startup *status.Startup) http.Handler {
	r := chi.NewRouter()

	r.Get("/", rootHandler)
	r.Get("/liveness", livenessHandler)
	r.Get("/readiness", readinessHandler(svc, startup))
	r.Get("/version", versionHandler)

	return r
}

func rootHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, RootResponse{Message: "Backend API is running", Status: "ok"}, http.StatusOK)
}

func livenessHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, map[string]string{"status": "alive"}, http.StatusOK)
}

// readinessHandler answers 200 only when startup reached the ready phase and
// the store still answers.
func readinessHandler(svc service.ContactService, startup *status.Startup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := startup.Snapshot()
		resp := ReadinessResponse{
			Status:        snap.Phase,
			DatabaseReady: snap.DatabaseReady,
			SchemaReady:   snap.SchemaReady,
			Error:         snap.Reason,
		}
		if !snap.CheckedAt.IsZero() {
			checkedAt := snap.CheckedAt.UTC()
			resp.CheckedAt = &checkedAt
		}

		if snap.Phase != status.PhaseReady {
			if snap.Error != "" {
				slog.DebugContext(r.Context(), "Startup not ready", "phase", snap.Phase, "error", snap.Error)
			}
			common.WriteJSONResponse(w, resp, http.StatusServiceUnavailable)
			return
		}

		if err := svc.CheckReadiness(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			resp.Status = status.PhaseDegraded
			resp.DatabaseReady = false
			resp.Error = "database unreachable"
			common.WriteJSONResponse(w, resp, http.StatusServiceUnavailable)
			return
		}

		common.WriteJSONResponse(w, resp, http.StatusOK)
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
