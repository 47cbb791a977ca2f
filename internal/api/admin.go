package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/QVF/internal/events"
	"github.com/MikeSquared-Agency/QVF/internal/store"
)

type AdminHandler struct {
	store  store.Store
	events events.Client
}

func NewAdminHandler(s store.Store, e events.Client) *AdminHandler {
	return &AdminHandler{store: s, events: e}
}

// Stats handles GET /api/v1/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Rescore handles POST /api/v1/runs/{id}/rescore: flags a run stale so the
// rescorer picks it up on its next pass. Returns 202, the fresh run
// appears asynchronously.
func (h *AdminHandler) Rescore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return
	}

	run, err := h.store.GetScoreRun(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}

	if err := h.store.MarkRunStale(r.Context(), id, true); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectRunStale(id.String()), map[string]string{"run_id": id.String()})
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rescore queued", "run_id": id.String()})
}
