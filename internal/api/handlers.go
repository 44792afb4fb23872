// Package api exposes HTTP handlers for the activity signup service.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"example.com/signup/internal/domain"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /activities", h.listActivities)
	mux.HandleFunc("POST /activities/{name}/signup", h.signup)
	mux.HandleFunc("DELETE /activities/{name}/participants", h.removeParticipant)
	mux.HandleFunc("GET /healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCatalog(activities))
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	email, ok := emailParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Signup(r.Context(), name, email); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Signed up %s for %s", email, name),
	})
}

func (h *Handler) removeParticipant(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	email, ok := emailParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Unenroll(r.Context(), name, email); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Removed %s from %s", email, name),
	})
}

// emailParam reads the required email query parameter. Only an absent key is
// rejected; an empty value is passed through as is.
func emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	query := r.URL.Query()
	if !query.Has("email") {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "email query parameter is required")
		return "", false
	}
	return query.Get("email"), true
}

// MessageResponse is the body returned by successful roster mutations.
type MessageResponse struct {
	Message string `json:"message"`
}

// ActivityView exposes an activity's details keyed by its name in ActivityCatalog.
type ActivityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// ActivityCatalog serialises as a JSON object whose keys keep catalogue order.
type ActivityCatalog struct {
	names []string
	views map[string]ActivityView
}

// MarshalJSON implements json.Marshaler.
func (c ActivityCatalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(c.views[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func toCatalog(activities []domain.Activity) ActivityCatalog {
	catalog := ActivityCatalog{
		names: make([]string, 0, len(activities)),
		views: make(map[string]ActivityView, len(activities)),
	}
	for _, activity := range activities {
		participants := activity.Participants
		if participants == nil {
			participants = []string{}
		}
		catalog.names = append(catalog.names, activity.Name)
		catalog.views[activity.Name] = ActivityView{
			Description:     activity.Description,
			Schedule:        activity.Schedule,
			MaxParticipants: activity.MaxParticipants,
			Participants:    participants,
		}
	}
	return catalog
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Activity not found")
	case errors.Is(err, domain.ErrAlreadyRegistered):
		writeError(w, http.StatusBadRequest, "already_registered", "Student is already signed up")
	case errors.Is(err, domain.ErrNotRegistered):
		writeError(w, http.StatusNotFound, "not_registered", "Student is not signed up for this activity")
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
