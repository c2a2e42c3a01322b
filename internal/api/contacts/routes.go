// Package contacts provides the REST handlers for the contact CRUD API.
package contacts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/contacts-server/internal/api/common"
	"github.com/stacklok/contacts-server/internal/otel"
	"github.com/stacklok/contacts-server/internal/service"
)

// Response messages
const (
	MessageCreated = "Contact created!"
	MessageUpdated = "Contact updated successfully"
	MessageDeleted = "Contact deleted successfully"
)

// Fallback messages for store failures
const (
	failedList   = "Failed to retrieve contacts"
	failedCreate = "Failed to create contact"
	failedUpdate = "Failed to update contact"
	failedDelete = "Failed to delete contact"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Error    string `json:"error,omitempty"`
	Service  string `json:"service"`
}

// ListResponse is the body of GET /contacts
type ListResponse struct {
	Contacts []service.Contact `json:"contacts"`
}

// ContactResponse is the body of a successful create or update
type ContactResponse struct {
	Message string           `json:"message"`
	Contact *service.Contact `json:"contact"`
}

// Routes handles HTTP requests for the contact endpoints.
type Routes struct {
	service service.ContactService
}

// NewRoutes creates a new Routes instance with the given service.
func NewRoutes(svc service.ContactService) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates the router for the contact endpoints. It is mounted at /api.
func Router(svc service.ContactService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Get("/health", routes.health)
	r.Get("/contacts", routes.listContacts)
	r.Post("/create_contact", routes.createContact)
	r.Delete("/delete_contact/{id}", routes.deleteContact)
	r.Patch("/update_contact/{id}", routes.updateContact)

	return r
}

// health handles GET /api/health
func (routes *Routes) health(w http.ResponseWriter, r *http.Request) {
	if err := routes.service.CheckReadiness(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Database health check failed", "error", err)
		otel.RecordError(trace.SpanFromContext(r.Context()), err)
		common.WriteJSONResponse(w, HealthResponse{
			Status:  "unhealthy",
			Error:   "database unreachable",
			Service: "backend",
		}, http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, HealthResponse{
		Status:   "healthy",
		Database: "connected",
		Service:  "backend",
	}, http.StatusOK)
}

// listContacts handles GET /api/contacts
func (routes *Routes) listContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contacts, err := routes.service.ListContacts(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list contacts", "error", err)
		otel.RecordError(trace.SpanFromContext(ctx), err)
		common.WriteErrorResponse(w, failedList, http.StatusInternalServerError)
		return
	}
	if contacts == nil {
		contacts = []service.Contact{}
	}

	trace.SpanFromContext(ctx).SetAttributes(otel.AttrResultCount.Int(len(contacts)))
	common.WriteJSONResponse(w, ListResponse{Contacts: contacts}, http.StatusOK)
}

// createContact handles POST /api/create_contact
func (routes *Routes) createContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.CreateContactRequest
	if err := common.DecodeJSONBody(w, r, &req); err != nil {
		slog.DebugContext(ctx, "Rejected create request body", "error", err)
		common.WriteMessageResponse(w, common.MessageMissingFields, http.StatusBadRequest)
		return
	}

	contact, err := routes.service.CreateContact(ctx, req)
	if err != nil {
		routes.writeServiceError(w, r, "create", err, failedCreate, 0)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(otel.AttrContactID.Int64(contact.ID))
	common.WriteJSONResponse(w, ContactResponse{Message: MessageCreated, Contact: contact}, http.StatusCreated)
}

// updateContact handles PATCH /api/update_contact/{id}
func (routes *Routes) updateContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := common.ParseIDParam(r, "id")
	if err != nil {
		common.WriteMessageResponse(w, common.MessageNotFound, http.StatusNotFound)
		return
	}

	var req service.UpdateContactRequest
	if err := common.DecodeJSONBody(w, r, &req); err != nil {
		slog.DebugContext(ctx, "Rejected update request body", "id", id, "error", err)
		common.WriteMessageResponse(w, common.MessageInvalidRequest, http.StatusBadRequest)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(
		otel.AttrContactID.Int64(id),
		otel.AttrUpdatedFields.StringSlice(req.UpdatedFields()),
	)

	contact, err := routes.service.UpdateContact(ctx, id, req)
	if err != nil {
		routes.writeServiceError(w, r, "update", err, failedUpdate, id)
		return
	}

	common.WriteJSONResponse(w, ContactResponse{Message: MessageUpdated, Contact: contact}, http.StatusOK)
}

// deleteContact handles DELETE /api/delete_contact/{id}
func (routes *Routes) deleteContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := common.ParseIDParam(r, "id")
	if err != nil {
		common.WriteMessageResponse(w, common.MessageNotFound, http.StatusNotFound)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(otel.AttrContactID.Int64(id))

	if err := routes.service.DeleteContact(ctx, id); err != nil {
		routes.writeServiceError(w, r, "delete", err, failedDelete, id)
		return
	}

	common.WriteMessageResponse(w, MessageDeleted, http.StatusOK)
}

// writeServiceError maps a service error onto the response. Store failures
// are logged and recorded on the span; the client only sees fallback.
func (*Routes) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error, fallback string, id int64) {
	ctx := r.Context()

	// 0 is never a valid status, so it marks errors outside the service taxonomy
	if common.StatusForError(err, 0) == 0 {
		slog.ErrorContext(ctx, "Contact store operation failed", "operation", op, "id", id, "error", err)
		otel.RecordError(trace.SpanFromContext(ctx), err)
	}

	common.WriteMessageResponse(w, common.MessageForError(err, fallback), common.StatusForError(err, http.StatusBadRequest))
}
