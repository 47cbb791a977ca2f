package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/QVF/internal/scoring"
	"github.com/MikeSquared-Agency/QVF/internal/store"
)

func acceptedTestSession(t *testing.T, h http.Handler) store.ComparisonSession {
	t.Helper()
	sess := createTestSession(t, h)
	base := "/api/v1/sessions/" + sess.ID.String()
	rec := doRequest(t, h, "PUT", base+"/judgments", consistentJudgments())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doRequest(t, h, "POST", base+"/derive", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doRequest(t, h, "POST", base+"/accept", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var accepted store.ComparisonSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	return accepted
}

func scoreItems() []WorkItemPayload {
	return []WorkItemPayload{
		{ID: "EPIC-1", Title: "Checkout revamp", Type: "epic", Values: map[string]float64{
			"business_value": 90, "complexity": 20, "risk": 10,
		}},
		{ID: "EPIC-2", Title: "Internal tooling", Type: "epic", Values: map[string]float64{
			"business_value": 30, "complexity": 70, "risk": 60,
		}},
		{ID: "STORY-3", Title: "Copy tweaks", Type: "story", Values: map[string]float64{
			"business_value": 10, "complexity": 90, "risk": 80,
		}},
	}
}

func TestScoreBatch(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := acceptedTestSession(t, h)

	rec := doRequest(t, h, "POST", "/api/v1/score", ScoreRequest{
		SessionID: sess.ID.String(),
		Items:     scoreItems(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 3)
	assert.Empty(t, resp.Skipped)

	scores := map[string]float64{}
	for _, r := range resp.Records {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
		assert.Len(t, r.Contributions, 3)
		scores[r.ItemID] = r.Score
	}
	// EPIC-1 dominates on every criterion, STORY-3 loses on every one.
	assert.Greater(t, scores["EPIC-1"], scores["EPIC-2"])
	assert.Greater(t, scores["EPIC-2"], scores["STORY-3"])
	assert.InDelta(t, 1.0, scores["EPIC-1"], 1e-9)
	assert.InDelta(t, 0.0, scores["STORY-3"], 1e-9)

	assert.Equal(t, 3, resp.Summary.Total)
	assert.Equal(t, "EPIC-1", resp.Summary.HighestItem)
	assert.Equal(t, "STORY-3", resp.Summary.LowestItem)
}

func TestScoreSkipsIncompleteItems(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := acceptedTestSession(t, h)

	items := scoreItems()
	items = append(items, WorkItemPayload{
		ID:     "TASK-9",
		Title:  "No risk estimate yet",
		Type:   "task",
		Values: map[string]float64{"business_value": 50, "complexity": 50},
	})

	rec := doRequest(t, h, "POST", "/api/v1/score", ScoreRequest{
		SessionID: sess.ID.String(),
		Items:     items,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 3)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "TASK-9", resp.Skipped[0].ItemID)
	assert.Contains(t, resp.Skipped[0].Reason, "risk")
}

func TestScoreRequiresAcceptedSession(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := createTestSession(t, h)

	rec := doRequest(t, h, "POST", "/api/v1/score", ScoreRequest{
		SessionID: sess.ID.String(),
		Items:     scoreItems(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestScoreWithTrackerItemIDs(t *testing.T) {
	mt := &mockTracker{items: map[string]scoring.WorkItem{
		"FEAT-1": {ID: "FEAT-1", Type: scoring.ItemTypeFeature, Values: map[string]float64{
			"business_value": 80, "complexity": 30, "risk": 20,
		}},
		"FEAT-2": {ID: "FEAT-2", Type: scoring.ItemTypeFeature, Values: map[string]float64{
			"business_value": 40, "complexity": 60, "risk": 50,
		}},
	}}
	h := testRouter(newMockStore(), mt)
	sess := acceptedTestSession(t, h)

	rec := doRequest(t, h, "POST", "/api/v1/score", ScoreRequest{
		SessionID: sess.ID.String(),
		ItemIDs:   []string{"FEAT-1", "FEAT-2"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 2)
}

func TestScoreWithoutTracker(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := acceptedTestSession(t, h)

	rec := doRequest(t, h, "POST", "/api/v1/score", ScoreRequest{
		SessionID: sess.ID.String(),
		ItemIDs:   []string{"FEAT-1"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRunsAndGetRun(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := acceptedTestSession(t, h)

	rec := doRequest(t, h, "POST", "/api/v1/score", ScoreRequest{
		SessionID: sess.ID.String(),
		Items:     scoreItems(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, h, "GET", "/api/v1/runs?session_id="+sess.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.ScoreRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, sess.ID, runs[0].SessionID)

	rec = doRequest(t, h, "GET", "/api/v1/runs/"+created.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var run store.ScoreRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Len(t, run.Records, 3)
}

func TestExplain(t *testing.T) {
	h := testRouter(newMockStore(), nil)
	sess := acceptedTestSession(t, h)

	items := scoreItems()
	items = append(items, WorkItemPayload{
		ID:     "TASK-9",
		Values: map[string]float64{"business_value": 50},
	})
	rec := doRequest(t, h, "POST", "/api/v1/score", ScoreRequest{
		SessionID: sess.ID.String(),
		Items:     items,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, h, "GET", "/api/v1/runs/"+created.RunID+"/explain/EPIC-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var explained struct {
		ItemID        string                 `json:"item_id"`
		Score         float64                `json:"score"`
		Tier          string                 `json:"tier"`
		Contributions []scoring.Contribution `json:"contributions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &explained))
	assert.Equal(t, "EPIC-1", explained.ItemID)
	assert.Len(t, explained.Contributions, 3)

	// Contributions sum to the composite score.
	var sum float64
	for _, c := range explained.Contributions {
		sum += c.Weighted
	}
	assert.InDelta(t, explained.Score, sum, 1e-9)

	rec = doRequest(t, h, "GET", "/api/v1/runs/"+created.RunID+"/explain/TASK-9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var skippedResp struct {
		Skipped bool   `json:"skipped"`
		Reason  string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &skippedResp))
	assert.True(t, skippedResp.Skipped)
	assert.NotEmpty(t, skippedResp.Reason)

	rec = doRequest(t, h, "GET", "/api/v1/runs/"+created.RunID+"/explain/NOPE-0", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRescoreMarksRunStale(t *testing.T) {
	ms := newMockStore()
	h := testRouter(ms, nil)
	sess := acceptedTestSession(t, h)

	rec := doRequest(t, h, "POST", "/api/v1/score", ScoreRequest{
		SessionID: sess.ID.String(),
		Items:     scoreItems(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, h, "POST", "/api/v1/runs/"+created.RunID+"/rescore", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = doRequest(t, h, "GET", "/api/v1/runs/"+created.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var run store.ScoreRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.True(t, run.Stale)
}
