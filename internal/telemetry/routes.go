package telemetry

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Contact operations as reported in metric labels and span attributes
const (
	OperationList    = "list"
	OperationCreate  = "create"
	OperationUpdate  = "update"
	OperationDelete  = "delete"
	OperationHealth  = "health"
	OperationSystem  = "system"
	OperationUnknown = "unknown"
)

// Request outcomes as reported in metric labels and span attributes
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeNotFound    = "not_found"
	OutcomeClientError = "client_error"
	OutcomeServerError = "server_error"
)

// unknownRoute keeps unmatched URLs out of label values
const unknownRoute = "unknown_route"

// contactOperations maps "METHOD pattern" of the mounted API to its operation
var contactOperations = map[string]string{
	"GET /api/contacts":               OperationList,
	"POST /api/create_contact":        OperationCreate,
	"PATCH /api/update_contact/{id}":  OperationUpdate,
	"DELETE /api/delete_contact/{id}": OperationDelete,
	"GET /api/health":                 OperationHealth,
	"GET /":                           OperationSystem,
	"GET /version":                    OperationSystem,
}

// routedRequest describes a request after chi has routed it
type routedRequest struct {
	route     string
	operation string
}

// classifyRoute reads the matched pattern, e.g. "/api/update_contact/{id}"
// rather than the concrete URL. Call it after the router ran.
func classifyRoute(r *http.Request) routedRequest {
	route := unknownRoute
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		route = rctx.RoutePattern()
	}

	operation, ok := contactOperations[r.Method+" "+route]
	if !ok {
		operation = OperationUnknown
	}
	return routedRequest{route: route, operation: operation}
}

// outcomeForStatus buckets a status code the way the contact handlers use them
func outcomeForStatus(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return OutcomeServerError
	case status == http.StatusNotFound:
		return OutcomeNotFound
	case status == http.StatusBadRequest:
		return OutcomeInvalid
	case status >= http.StatusBadRequest:
		return OutcomeClientError
	default:
		return OutcomeSuccess
	}
}

// skipInstrumentation reports whether path is a probe or scrape endpoint
func skipInstrumentation(path string) bool {
	switch path {
	case "/liveness", "/readiness", "/metrics":
		return true
	default:
		return false
	}
}
