package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MikeSquared-Agency/QVF/internal/ahp"
	"github.com/MikeSquared-Agency/QVF/internal/scoring"
	"github.com/MikeSquared-Agency/QVF/internal/store"
)

func testRouter(ms *mockStore, mt *mockTracker) http.Handler {
	engine := ahp.NewEngine(nil, 0)
	scorer := scoring.NewScorer(scoring.DefaultTierThresholds(), discardLogger())
	if mt == nil {
		return NewRouter(ms, nil, nil, engine, scorer, "", discardLogger())
	}
	return NewRouter(ms, nil, mt, engine, scorer, "", discardLogger())
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Stakeholder-ID", "pm-1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func threeCriteriaPayload() []CriterionPayload {
	return []CriterionPayload{
		{ID: "business_value", Name: "Business Value", Direction: "higher_better"},
		{ID: "complexity", Name: "Technical Complexity", Direction: "lower_better"},
		{ID: "risk", Name: "Risk", Direction: "lower_better"},
	}
}

func createTestSession(t *testing.T, h http.Handler) store.ComparisonSession {
	t.Helper()
	rec := doRequest(t, h, "POST", "/api/v1/sessions", CreateSessionRequest{
		Name:     "quarterly planning",
		Criteria: threeCriteriaPayload(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", rec.Code, rec.Body.String())
	}
	var sess store.ComparisonSession
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	return sess
}

func TestCreateSession(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := createTestSession(t, h)

	if sess.Status != store.StatusDraft {
		t.Errorf("expected draft status, got %s", sess.Status)
	}
	if sess.Stakeholder != "pm-1" {
		t.Errorf("expected stakeholder pm-1, got %s", sess.Stakeholder)
	}
	if len(sess.Criteria) != 3 {
		t.Errorf("expected 3 criteria, got %d", len(sess.Criteria))
	}
}

func TestCreateSessionValidation(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	tests := []struct {
		name string
		req  CreateSessionRequest
	}{
		{"no name", CreateSessionRequest{Criteria: threeCriteriaPayload()}},
		{"one criterion", CreateSessionRequest{Name: "x", Criteria: []CriterionPayload{{ID: "a"}}}},
		{"duplicate ids", CreateSessionRequest{Name: "x", Criteria: []CriterionPayload{{ID: "a"}, {ID: "a"}}}},
		{"bad direction", CreateSessionRequest{Name: "x", Criteria: []CriterionPayload{{ID: "a"}, {ID: "b", Direction: "sideways"}}}},
		{"empty id", CreateSessionRequest{Name: "x", Criteria: []CriterionPayload{{ID: ""}, {ID: "b"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, "POST", "/api/v1/sessions", tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMissingStakeholderHeader(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	req := httptest.NewRequest("GET", "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without X-Stakeholder-ID, got %d", rec.Code)
	}
}

func consistentJudgments() PutJudgmentsRequest {
	return PutJudgmentsRequest{Judgments: []JudgmentPayload{
		{Row: 0, Col: 1, Value: 3},
		{Row: 0, Col: 2, Value: 5},
		{Row: 1, Col: 2, Value: 2},
	}}
}

func TestJudgmentsDeriveAcceptFlow(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := createTestSession(t, h)
	base := "/api/v1/sessions/" + sess.ID.String()

	rec := doRequest(t, h, "PUT", base+"/judgments", consistentJudgments())
	if rec.Code != http.StatusOK {
		t.Fatalf("put judgments: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, "POST", base+"/derive", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("derive: status %d, body %s", rec.Code, rec.Body.String())
	}
	var derived DeriveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &derived); err != nil {
		t.Fatal(err)
	}
	if !derived.ConsistencyAccepted {
		t.Errorf("expected acceptable CR, got %f", derived.ConsistencyRatio)
	}
	if len(derived.Weights) != 3 {
		t.Fatalf("expected 3 weights, got %d", len(derived.Weights))
	}
	if derived.Weights[0] < derived.Weights[1] || derived.Weights[1] < derived.Weights[2] {
		t.Errorf("expected descending weights for this judgment set: %v", derived.Weights)
	}

	rec = doRequest(t, h, "POST", base+"/accept", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: status %d, body %s", rec.Code, rec.Body.String())
	}
	var accepted store.ComparisonSession
	_ = json.Unmarshal(rec.Body.Bytes(), &accepted)
	if accepted.Status != store.StatusAccepted {
		t.Errorf("expected accepted status, got %s", accepted.Status)
	}

	// Judgments are frozen once accepted.
	rec = doRequest(t, h, "PUT", base+"/judgments", consistentJudgments())
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 editing accepted session, got %d", rec.Code)
	}
}

func TestDeriveRequiresCompleteJudgments(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := createTestSession(t, h)
	base := "/api/v1/sessions/" + sess.ID.String()

	rec := doRequest(t, h, "PUT", base+"/judgments", PutJudgmentsRequest{
		Judgments: []JudgmentPayload{{Row: 0, Col: 1, Value: 3}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put judgments: %d", rec.Code)
	}

	rec = doRequest(t, h, "POST", base+"/derive", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for incomplete judgments, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestJudgmentValidationAtBoundary(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := createTestSession(t, h)
	base := "/api/v1/sessions/" + sess.ID.String()

	tests := []struct {
		name string
		j    JudgmentPayload
	}{
		{"diagonal", JudgmentPayload{Row: 1, Col: 1, Value: 3}},
		{"off scale high", JudgmentPayload{Row: 0, Col: 1, Value: 12}},
		{"off scale low", JudgmentPayload{Row: 0, Col: 1, Value: 0.01}},
		{"out of range", JudgmentPayload{Row: 0, Col: 9, Value: 3}},
		{"negative", JudgmentPayload{Row: 0, Col: 1, Value: -3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, "PUT", base+"/judgments", PutJudgmentsRequest{Judgments: []JudgmentPayload{tt.j}})
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestInconsistentJudgmentsBlockAcceptanceUnlessForced(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := createTestSession(t, h)
	base := "/api/v1/sessions/" + sess.ID.String()

	// 9-9-9 cycle: wildly inconsistent.
	rec := doRequest(t, h, "PUT", base+"/judgments", PutJudgmentsRequest{Judgments: []JudgmentPayload{
		{Row: 0, Col: 1, Value: 9},
		{Row: 1, Col: 2, Value: 9},
		{Row: 2, Col: 0, Value: 9},
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("put judgments: %d", rec.Code)
	}

	// Derivation still succeeds; the CR is surfaced, not hidden.
	rec = doRequest(t, h, "POST", base+"/derive", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("derive must succeed for inconsistent judgments: %d %s", rec.Code, rec.Body.String())
	}
	var derived DeriveResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &derived)
	if derived.ConsistencyAccepted {
		t.Error("9-9-9 cycle must not be consistency-accepted")
	}
	if derived.ConsistencyRatio < 0.1 {
		t.Errorf("expected CR >= 0.1, got %f", derived.ConsistencyRatio)
	}

	// Plain accept is blocked.
	rec = doRequest(t, h, "POST", base+"/accept", AcceptRequest{})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 accepting inconsistent weights, got %d", rec.Code)
	}

	// Force is an explicit caller decision.
	rec = doRequest(t, h, "POST", base+"/accept", AcceptRequest{Force: true})
	if rec.Code != http.StatusOK {
		t.Errorf("expected forced accept to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetSessionNotFound(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	rec := doRequest(t, h, "GET", "/api/v1/sessions/1b671a64-40d5-491e-99b0-da01ff1f3341", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = doRequest(t, h, "GET", "/api/v1/sessions/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed id, got %d", rec.Code)
	}
}
