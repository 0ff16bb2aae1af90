package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-fleet/internal/audit"
	"github.com/nerrad567/gray-logic-fleet/internal/entity"
	"github.com/nerrad567/gray-logic-fleet/internal/fleet"
)

// handleListEntities returns every entity of the collection's kind.
//
// Query parameters:
//   - site_id: filter by site
//   - include_disabled: include disabled entities (default false)
//   - server_state: return the operator's desired view instead of the
//     consolidated view (default false)
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	kind := kindFromContext(r.Context())
	q := r.URL.Query()

	serverState, err := boolParam(q, "server_state")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	includeDisabled, err := boolParam(q, "include_disabled")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	regs, err := s.registry.List(r.Context(), kind, fleet.ListOptions{
		SiteID:          q.Get("site_id"),
		IncludeDisabled: includeDisabled,
		ServerState:     serverState,
	})
	if err != nil {
		s.writeRegistryError(w, r, err, "list entities")
		return
	}

	models := make([]any, 0, len(regs))
	for _, reg := range regs {
		models = append(models, entity.ToServiceModel(reg))
	}
	writeJSON(w, http.StatusOK, map[string]any{kind.Resource(): models, "count": len(models)})
}

// handleGetEntity returns a single entity by ID.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	serverState, err := boolParam(r.URL.Query(), "server_state")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	reg, err := s.registry.Get(r.Context(), kindFromContext(r.Context()), chi.URLParam(r, "id"), serverState)
	if err != nil {
		s.writeRegistryError(w, r, err, "get entity")
		return
	}
	writeEntity(w, http.StatusOK, reg)
}

// handleRegisterEntity registers a new entity from its service model.
func (s *Server) handleRegisterEntity(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.decodeRegistration(w, r)
	if !ok {
		return
	}

	created, err := s.registry.Register(r.Context(), reg, subject(r))
	if err != nil {
		s.writeRegistryError(w, r, err, "register entity")
		return
	}

	s.recordAudit(r, audit.ActionRegister, string(created.Kind()), created.Base().ID(), nil)
	w.Header().Set("Location", entityPath(created))
	writeEntity(w, http.StatusCreated, created)
}

// handleUpdateEntity partially updates an entity. Fields absent from the
// body are left unchanged. The etag, from the body or If-Match, makes the
// update conditional.
func (s *Server) handleUpdateEntity(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.decodeRegistration(w, r)
	if !ok {
		return
	}
	if c := reg.Base(); c.ConcurrencyToken == "" {
		c.ConcurrencyToken = ifMatch(r)
	}

	id := chi.URLParam(r, "id")
	updated, err := s.registry.Update(r.Context(), kindFromContext(r.Context()), id, reg, subject(r))
	if err != nil {
		s.writeRegistryError(w, r, err, "update entity")
		return
	}

	var details map[string]any
	if newID := updated.Base().ID(); newID != id {
		// The identity changed and the entity now lives elsewhere.
		details = map[string]any{"previous_id": id}
		w.Header().Set("Location", entityPath(updated))
	}
	s.recordAudit(r, audit.ActionUpdate, string(updated.Kind()), updated.Base().ID(), details)
	writeEntity(w, http.StatusOK, updated)
}

// handleDeleteEntity removes an entity. If-Match makes the delete
// conditional.
func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	kind, id := kindFromContext(r.Context()), chi.URLParam(r, "id")
	if err := s.registry.Delete(r.Context(), kind, id, ifMatch(r)); err != nil {
		s.writeRegistryError(w, r, err, "delete entity")
		return
	}
	s.recordAudit(r, audit.ActionDelete, string(kind), id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleDisableEntity marks an entity disabled.
func (s *Server) handleDisableEntity(w http.ResponseWriter, r *http.Request) {
	reg, err := s.registry.Disable(r.Context(), kindFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRegistryError(w, r, err, "disable entity")
		return
	}
	s.recordAudit(r, audit.ActionDisable, string(reg.Kind()), reg.Base().ID(), nil)
	writeEntity(w, http.StatusOK, reg)
}

// handleEnableEntity re-enables a disabled entity.
func (s *Server) handleEnableEntity(w http.ResponseWriter, r *http.Request) {
	reg, err := s.registry.Enable(r.Context(), kindFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRegistryError(w, r, err, "enable entity")
		return
	}
	s.recordAudit(r, audit.ActionEnable, string(reg.Kind()), reg.Base().ID(), nil)
	writeEntity(w, http.StatusOK, reg)
}

// decodeRegistration reads the request body as the collection's service
// model. It writes the error response itself and reports false on failure.
func (s *Server) decodeRegistration(w http.ResponseWriter, r *http.Request) (entity.Registration, bool) {
	model, err := entity.NewServiceModel(kindFromContext(r.Context()))
	if err != nil {
		writeNotFound(w, "unknown entity collection")
		return nil, false
	}
	if err := json.NewDecoder(r.Body).Decode(model); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return nil, false
	}
	reg, err := entity.FromServiceModel(model)
	if err != nil {
		s.writeRegistryError(w, r, err, "decode entity")
		return nil, false
	}
	return reg, true
}

// writeEntity writes reg's service model with its etag.
func writeEntity(w http.ResponseWriter, status int, reg entity.Registration) {
	if token := reg.Base().ConcurrencyToken; token != "" {
		w.Header().Set("ETag", strconv.Quote(token))
	}
	writeJSON(w, status, entity.ToServiceModel(reg))
}

func entityPath(reg entity.Registration) string {
	return "/api/v1/" + reg.Kind().Resource() + "/" + url.PathEscape(reg.Base().ID())
}

// ifMatch returns the concurrency token from If-Match, or "" when absent
// or "*".
func ifMatch(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	v = strings.TrimPrefix(v, "W/")
	if v == "*" {
		return ""
	}
	return strings.Trim(v, `"`)
}

func boolParam(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", name, v)
	}
	return b, nil
}
