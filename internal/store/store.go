package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/QVF/internal/scoring"
)

type SessionStatus string

const (
	// StatusDraft: criteria fixed, judgments still being collected/revised.
	StatusDraft SessionStatus = "draft"
	// StatusDerived: weights and CR computed; not yet policy-accepted.
	StatusDerived SessionStatus = "derived"
	// StatusAccepted: weights accepted for scoring; judgments are frozen.
	StatusAccepted SessionStatus = "accepted"
)

// Judgment is one pairwise comparison in a session's upper triangle:
// criterion Row judged against criterion Col with a Saaty-scale value.
type Judgment struct {
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	Value float64 `json:"value"`
}

// ComparisonSession holds one stakeholder's criteria set, pairwise
// judgments, and (once derived) the resulting weight vector and
// consistency ratio.
type ComparisonSession struct {
	ID          uuid.UUID           `json:"session_id"`
	Name        string              `json:"name"`
	Stakeholder string              `json:"stakeholder"`
	Criteria    []scoring.Criterion `json:"criteria"`
	Judgments   []Judgment          `json:"judgments,omitempty"`

	Status           SessionStatus `json:"status"`
	Weights          []float64     `json:"weights,omitempty"`
	ConsistencyRatio *float64      `json:"consistency_ratio,omitempty"`
	LambdaMax        *float64      `json:"lambda_max,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WeightsByCriterion maps the stored weight vector back onto criterion ids.
// Returns nil until weights are derived.
func (s *ComparisonSession) WeightsByCriterion() map[string]float64 {
	if len(s.Weights) != len(s.Criteria) {
		return nil
	}
	out := make(map[string]float64, len(s.Criteria))
	for i, c := range s.Criteria {
		out[c.ID] = s.Weights[i]
	}
	return out
}

type SessionFilter struct {
	Status      *SessionStatus
	Stakeholder string
	Limit       int
	Offset      int
}

// ScoreRun is one persisted scoring invocation: the records, skipped items,
// and summary for a work-item batch scored against a session's weights.
// Runs are append-only; re-scoring creates a new run.
type ScoreRun struct {
	ID        uuid.UUID             `json:"run_id"`
	SessionID uuid.UUID             `json:"session_id"`
	Source    string                `json:"source"`
	Records   []scoring.ScoreRecord `json:"records"`
	Skipped   []scoring.SkippedItem `json:"skipped,omitempty"`
	Summary   scoring.Summary       `json:"summary"`
	Stale     bool                  `json:"stale"`
	CreatedAt time.Time             `json:"created_at"`
}

// ItemIDs returns the ids of all successfully scored items in the run.
func (r *ScoreRun) ItemIDs() []string {
	ids := make([]string, 0, len(r.Records))
	for _, rec := range r.Records {
		ids = append(ids, rec.ItemID)
	}
	return ids
}

type RunFilter struct {
	SessionID *uuid.UUID
	Stale     *bool
	Limit     int
	Offset    int
}

type Stats struct {
	Sessions            int     `json:"sessions"`
	AcceptedSessions    int     `json:"accepted_sessions"`
	Runs                int     `json:"runs"`
	StaleRuns           int     `json:"stale_runs"`
	AvgConsistencyRatio float64 `json:"avg_consistency_ratio"`
}

type Store interface {
	CreateSession(ctx context.Context, session *ComparisonSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*ComparisonSession, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]*ComparisonSession, error)
	UpdateSession(ctx context.Context, session *ComparisonSession) error

	CreateScoreRun(ctx context.Context, run *ScoreRun) error
	GetScoreRun(ctx context.Context, id uuid.UUID) (*ScoreRun, error)
	ListScoreRuns(ctx context.Context, filter RunFilter) ([]*ScoreRun, error)
	MarkRunStale(ctx context.Context, id uuid.UUID, stale bool) error
	MarkRunsStaleByItem(ctx context.Context, itemID string) (int, error)

	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}
