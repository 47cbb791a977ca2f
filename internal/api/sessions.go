package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/QVF/internal/ahp"
	"github.com/MikeSquared-Agency/QVF/internal/events"
	"github.com/MikeSquared-Agency/QVF/internal/scoring"
	"github.com/MikeSquared-Agency/QVF/internal/store"
)

type SessionsHandler struct {
	store  store.Store
	events events.Client
	engine *ahp.Engine
}

func NewSessionsHandler(s store.Store, e events.Client, engine *ahp.Engine) *SessionsHandler {
	return &SessionsHandler{store: s, events: e, engine: engine}
}

type CriterionPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Direction string `json:"direction,omitempty"`
}

type CreateSessionRequest struct {
	Name     string             `json:"name"`
	Criteria []CriterionPayload `json:"criteria"`
}

// Create handles POST /api/v1/sessions. The criteria set is fixed for the
// session's lifetime; judgments and scored items both reference it.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	if len(req.Criteria) < 2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least 2 criteria required"})
		return
	}

	seen := make(map[string]bool, len(req.Criteria))
	criteria := make([]scoring.Criterion, 0, len(req.Criteria))
	for _, c := range req.Criteria {
		if c.ID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "criterion id required"})
			return
		}
		if seen[c.ID] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "duplicate criterion id: " + c.ID})
			return
		}
		seen[c.ID] = true

		direction := scoring.Direction(c.Direction)
		if c.Direction == "" {
			direction = scoring.DirectionHigherBetter
		}
		if !direction.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid direction for criterion " + c.ID})
			return
		}
		criteria = append(criteria, scoring.Criterion{ID: c.ID, Name: c.Name, Direction: direction})
	}

	sess := &store.ComparisonSession{
		Name:        req.Name,
		Stakeholder: r.Header.Get("X-Stakeholder-ID"),
		Criteria:    criteria,
		Status:      store.StatusDraft,
	}
	if err := h.store.CreateSession(r.Context(), sess); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		ids := make([]string, len(criteria))
		for i, c := range criteria {
			ids[i] = c.ID
		}
		_ = h.events.Publish(events.SubjectSessionCreated(sess.ID.String()), events.SessionCreatedEvent{
			SessionID:   sess.ID.String(),
			Name:        sess.Name,
			Stakeholder: sess.Stakeholder,
			CriteriaIDs: ids,
		})
	}

	writeJSON(w, http.StatusCreated, sess)
}

// List handles GET /api/v1/sessions
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.SessionFilter{
		Stakeholder: r.URL.Query().Get("stakeholder"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.SessionStatus(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Limit = n
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Offset = n
		}
	}

	sessions, err := h.store.ListSessions(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []*store.ComparisonSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type JudgmentPayload struct {
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	Value float64 `json:"value"`
}

type PutJudgmentsRequest struct {
	Judgments []JudgmentPayload `json:"judgments"`
}

// PutJudgments handles PUT /api/v1/sessions/{id}/judgments. The payload
// replaces the session's judgment set wholesale; any previously derived
// weights are discarded and the session drops back to draft.
func (h *SessionsHandler) PutJudgments(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if sess.Status == store.StatusAccepted {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session is accepted; judgments are frozen"})
		return
	}

	var req PutJudgmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Run every judgment through the matrix so scale and position errors
	// are caught at the boundary, not at derivation time.
	n := len(sess.Criteria)
	matrix, err := ahp.NewMatrix(n)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	judgments := make([]store.Judgment, 0, len(req.Judgments))
	for _, j := range req.Judgments {
		if err := matrix.SetJudgment(j.Row, j.Col, j.Value); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		judgments = append(judgments, store.Judgment{Row: j.Row, Col: j.Col, Value: j.Value})
	}

	sess.Judgments = judgments
	sess.Status = store.StatusDraft
	sess.Weights = nil
	sess.ConsistencyRatio = nil
	sess.LambdaMax = nil

	if err := h.store.UpdateSession(r.Context(), sess); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectJudgmentsUpdated(sess.ID.String()), events.JudgmentsUpdatedEvent{
			SessionID: sess.ID.String(),
			Judgments: len(judgments),
			Complete:  len(judgments) == requiredJudgments(n),
		})
	}

	writeJSON(w, http.StatusOK, sess)
}

type DeriveResponse struct {
	SessionID            string    `json:"session_id"`
	Weights              []float64 `json:"weights"`
	ConsistencyRatio     float64   `json:"consistency_ratio"`
	LambdaMax            float64   `json:"lambda_max"`
	ConsistencyAccepted  bool      `json:"consistency_accepted"`
	ConsistencyThreshold float64   `json:"consistency_threshold"`
}

// Derive handles POST /api/v1/sessions/{id}/derive. Requires the full
// N(N-1)/2 judgment set. Weights and CR are always returned, even when the
// CR is over threshold; blocking acceptance is a separate, explicit step.
func (h *SessionsHandler) Derive(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if sess.Status == store.StatusAccepted {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session is accepted; revise requires a new session"})
		return
	}

	n := len(sess.Criteria)
	if len(sess.Judgments) != requiredJudgments(n) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("incomplete judgments: have %d, need %d", len(sess.Judgments), requiredJudgments(n)),
		})
		return
	}

	matrix, err := ahp.NewMatrix(n)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	for _, j := range sess.Judgments {
		if err := matrix.SetJudgment(j.Row, j.Col, j.Value); err != nil {
			invalidMatrices.Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	result, err := h.engine.DeriveWeights(matrix)
	if err != nil {
		var ime *ahp.InvalidMatrixError
		var use *ahp.UnsupportedMatrixSizeError
		switch {
		case errors.As(err, &ime):
			invalidMatrices.Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.As(err, &use):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}

	accepted := h.engine.IsAcceptable(result.ConsistencyRatio)
	weightDerivations.WithLabelValues(strconv.FormatBool(accepted)).Inc()

	cr := result.ConsistencyRatio
	lm := result.LambdaMax
	sess.Weights = result.Weights
	sess.ConsistencyRatio = &cr
	sess.LambdaMax = &lm
	sess.Status = store.StatusDerived

	if err := h.store.UpdateSession(r.Context(), sess); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectWeightsDerived(sess.ID.String()), events.WeightsDerivedEvent{
			SessionID:        sess.ID.String(),
			Weights:          result.Weights,
			ConsistencyRatio: result.ConsistencyRatio,
			Accepted:         accepted,
		})
	}

	writeJSON(w, http.StatusOK, DeriveResponse{
		SessionID:            sess.ID.String(),
		Weights:              result.Weights,
		ConsistencyRatio:     result.ConsistencyRatio,
		LambdaMax:            result.LambdaMax,
		ConsistencyAccepted:  accepted,
		ConsistencyThreshold: h.engine.Threshold(),
	})
}

type AcceptRequest struct {
	// Force accepts the weights even with an over-threshold CR. The engine
	// never hides an unreliable CR; overriding it is an explicit caller
	// decision that is recorded in the accepted event.
	Force bool `json:"force"`
}

// Accept handles POST /api/v1/sessions/{id}/accept.
func (h *SessionsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if sess.Status != store.StatusDerived {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "weights must be derived before acceptance"})
		return
	}

	var req AcceptRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // empty body means no force
	}

	cr := *sess.ConsistencyRatio
	if !h.engine.IsAcceptable(cr) && !req.Force {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":             "consistency ratio over threshold; revise judgments or force",
			"consistency_ratio": cr,
			"threshold":         h.engine.Threshold(),
		})
		return
	}

	sess.Status = store.StatusAccepted
	if err := h.store.UpdateSession(r.Context(), sess); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectWeightsAccepted(sess.ID.String()), events.WeightsAcceptedEvent{
			SessionID:        sess.ID.String(),
			ConsistencyRatio: cr,
			Forced:           req.Force,
		})
	}

	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionsHandler) loadSession(w http.ResponseWriter, r *http.Request) (*store.ComparisonSession, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return nil, false
	}
	sess, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if sess == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return nil, false
	}
	return sess, true
}

func requiredJudgments(n int) int {
	return n * (n - 1) / 2
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
