package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-fleet/internal/audit"
)

// recordAudit appends an audit entry for a successful write. Failures are
// logged and never fail the request.
func (s *Server) recordAudit(r *http.Request, action, kind, entityID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	e := &audit.Entry{
		Action:   action,
		Kind:     kind,
		EntityID: entityID,
		Subject:  subject(r),
		Source:   audit.SourceAPI,
		Details:  details,
	}
	if err := s.audit.Create(r.Context(), e); err != nil {
		s.logger.Warn("failed to record audit entry",
			"action", action,
			"kind", kind,
			"id", entityID,
			"error", err,
		)
	}
}

// handleListAudit returns audit entries, most recent first.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeJSON(w, http.StatusOK, audit.ListResult{Entries: []audit.Entry{}})
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:   q.Get("action"),
		Kind:     q.Get("kind"),
		EntityID: q.Get("entity_id"),
		Subject:  q.Get("subject"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "invalid "+name+" parameter")
			return
		}
		*dst = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
