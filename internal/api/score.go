package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/QVF/internal/events"
	"github.com/MikeSquared-Agency/QVF/internal/scoring"
	"github.com/MikeSquared-Agency/QVF/internal/store"
	"github.com/MikeSquared-Agency/QVF/internal/tracker"
)

type ScoreHandler struct {
	store   store.Store
	events  events.Client
	tracker tracker.Client
	scorer  *scoring.Scorer
}

func NewScoreHandler(s store.Store, e events.Client, t tracker.Client, sc *scoring.Scorer) *ScoreHandler {
	return &ScoreHandler{store: s, events: e, tracker: t, scorer: sc}
}

type WorkItemPayload struct {
	ID     string             `json:"id"`
	Title  string             `json:"title,omitempty"`
	Type   string             `json:"type,omitempty"`
	Values map[string]float64 `json:"values"`
}

type ScoreRequest struct {
	SessionID string            `json:"session_id"`
	Items     []WorkItemPayload `json:"items,omitempty"`
	// ItemIDs are fetched from the work-tracking system and merged with any
	// inline items.
	ItemIDs []string `json:"item_ids,omitempty"`
	Source  string   `json:"source,omitempty"`
}

type ScoreResponse struct {
	RunID     string                `json:"run_id"`
	SessionID string                `json:"session_id"`
	Records   []scoring.ScoreRecord `json:"records"`
	Skipped   []scoring.SkippedItem `json:"skipped,omitempty"`
	Summary   scoring.Summary       `json:"summary"`
}

// Score handles POST /api/v1/score: scores a work-item batch against a
// session's accepted weights and persists the run.
func (h *ScoreHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session_id"})
		return
	}
	sess, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	if sess.Status != store.StatusAccepted {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session weights not accepted"})
		return
	}

	items := make([]scoring.WorkItem, 0, len(req.Items)+len(req.ItemIDs))
	for _, p := range req.Items {
		if p.ID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "work item id required"})
			return
		}
		items = append(items, scoring.WorkItem{
			ID:     p.ID,
			Title:  p.Title,
			Type:   scoring.WorkItemType(p.Type),
			Values: p.Values,
		})
	}
	if len(req.ItemIDs) > 0 {
		if h.tracker == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_ids given but no tracker configured"})
			return
		}
		fetched, err := h.tracker.GetWorkItems(r.Context(), req.ItemIDs)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "tracker fetch failed: " + err.Error()})
			return
		}
		items = append(items, fetched...)
	}
	if len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no work items to score"})
		return
	}

	records, skipped, err := h.scorer.ScoreWorkItems(items, sess.WeightsByCriterion(), sess.Criteria)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	source := req.Source
	if source == "" {
		source = "api"
	}
	run := &store.ScoreRun{
		SessionID: sess.ID,
		Source:    source,
		Records:   records,
		Skipped:   skipped,
		Summary:   scoring.Summarize(records),
	}
	if err := h.store.CreateScoreRun(r.Context(), run); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	scoreRuns.Inc()
	itemsScored.Add(float64(len(records)))
	itemsSkipped.Add(float64(len(skipped)))

	if h.events != nil {
		_ = h.events.Publish(events.SubjectRunScored(run.ID.String()), events.RunScoredEvent{
			RunID:     run.ID.String(),
			SessionID: sess.ID.String(),
			Items:     len(records),
			Skipped:   len(skipped),
			Timestamp: time.Now().UTC(),
		})
	}

	writeJSON(w, http.StatusCreated, ScoreResponse{
		RunID:     run.ID.String(),
		SessionID: sess.ID.String(),
		Records:   records,
		Skipped:   skipped,
		Summary:   run.Summary,
	})
}

// ListRuns handles GET /api/v1/runs
func (h *ScoreHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{}
	if s := r.URL.Query().Get("session_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session_id"})
			return
		}
		filter.SessionID = &id
	}
	if s := r.URL.Query().Get("stale"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			filter.Stale = &b
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Limit = n
		}
	}

	runs, err := h.store.ListScoreRuns(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []*store.ScoreRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/v1/runs/{id}
func (h *ScoreHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Explain handles GET /api/v1/runs/{id}/explain/{item_id}: the
// per-criterion contribution breakdown for one scored item, so a
// stakeholder can see why it ranked where it did.
func (h *ScoreHandler) Explain(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "item_id")
	for _, rec := range run.Records {
		if rec.ItemID == itemID {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"run_id":        run.ID,
				"item_id":       rec.ItemID,
				"score":         rec.Score,
				"tier":          rec.Tier,
				"contributions": rec.Contributions,
			})
			return
		}
	}
	for _, sk := range run.Skipped {
		if sk.ItemID == itemID {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"run_id":  run.ID,
				"item_id": sk.ItemID,
				"skipped": true,
				"reason":  sk.Reason,
			})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not in run"})
}

func (h *ScoreHandler) loadRun(w http.ResponseWriter, r *http.Request) (*store.ScoreRun, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return nil, false
	}
	run, err := h.store.GetScoreRun(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return nil, false
	}
	return run, true
}
