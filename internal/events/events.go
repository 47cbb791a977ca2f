package events

import "time"

type SessionCreatedEvent struct {
	SessionID   string   `json:"session_id"`
	Name        string   `json:"name"`
	Stakeholder string   `json:"stakeholder"`
	CriteriaIDs []string `json:"criteria_ids"`
}

type JudgmentsUpdatedEvent struct {
	SessionID string `json:"session_id"`
	Judgments int    `json:"judgments"`
	Complete  bool   `json:"complete"`
}

type WeightsDerivedEvent struct {
	SessionID        string    `json:"session_id"`
	Weights          []float64 `json:"weights"`
	ConsistencyRatio float64   `json:"consistency_ratio"`
	Accepted         bool      `json:"consistency_accepted"`
}

type WeightsAcceptedEvent struct {
	SessionID        string  `json:"session_id"`
	ConsistencyRatio float64 `json:"consistency_ratio"`
	Forced           bool    `json:"forced"`
}

type RunScoredEvent struct {
	RunID     string    `json:"run_id"`
	SessionID string    `json:"session_id"`
	Items     int       `json:"items"`
	Skipped   int       `json:"skipped"`
	Timestamp time.Time `json:"timestamp"`
}

type WorkItemUpdatedEvent struct {
	ItemID string `json:"item_id"`
	Source string `json:"source,omitempty"`
}
