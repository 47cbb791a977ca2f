package api

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/QVF/internal/scoring"
	"github.com/MikeSquared-Agency/QVF/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStore is an in-memory Store for handler tests.
type mockStore struct {
	sessions map[uuid.UUID]*store.ComparisonSession
	runs     map[uuid.UUID]*store.ScoreRun
}

func newMockStore() *mockStore {
	return &mockStore{
		sessions: make(map[uuid.UUID]*store.ComparisonSession),
		runs:     make(map[uuid.UUID]*store.ScoreRun),
	}
}

func (m *mockStore) CreateSession(_ context.Context, s *store.ComparisonSession) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
	m.sessions[s.ID] = s
	return nil
}

func (m *mockStore) GetSession(_ context.Context, id uuid.UUID) (*store.ComparisonSession, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return sess, nil
}

func (m *mockStore) ListSessions(_ context.Context, filter store.SessionFilter) ([]*store.ComparisonSession, error) {
	var out []*store.ComparisonSession
	for _, s := range m.sessions {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.Stakeholder != "" && s.Stakeholder != filter.Stakeholder {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockStore) UpdateSession(_ context.Context, s *store.ComparisonSession) error {
	s.UpdatedAt = time.Now()
	m.sessions[s.ID] = s
	return nil
}

func (m *mockStore) CreateScoreRun(_ context.Context, r *store.ScoreRun) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.runs[r.ID] = r
	return nil
}

func (m *mockStore) GetScoreRun(_ context.Context, id uuid.UUID) (*store.ScoreRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return run, nil
}

func (m *mockStore) ListScoreRuns(_ context.Context, filter store.RunFilter) ([]*store.ScoreRun, error) {
	var out []*store.ScoreRun
	for _, r := range m.runs {
		if filter.SessionID != nil && r.SessionID != *filter.SessionID {
			continue
		}
		if filter.Stale != nil && r.Stale != *filter.Stale {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockStore) MarkRunStale(_ context.Context, id uuid.UUID, stale bool) error {
	if r, ok := m.runs[id]; ok {
		r.Stale = stale
	}
	return nil
}

func (m *mockStore) MarkRunsStaleByItem(_ context.Context, itemID string) (int, error) {
	n := 0
	for _, r := range m.runs {
		for _, rec := range r.Records {
			if rec.ItemID == itemID && !r.Stale {
				r.Stale = true
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *mockStore) GetStats(_ context.Context) (*store.Stats, error) {
	return &store.Stats{
		Sessions: len(m.sessions),
		Runs:     len(m.runs),
	}, nil
}

func (m *mockStore) Close() error { return nil }

// mockTracker serves canned work items.
type mockTracker struct {
	items map[string]scoring.WorkItem
}

func (m *mockTracker) GetWorkItems(_ context.Context, ids []string) ([]scoring.WorkItem, error) {
	var out []scoring.WorkItem
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockTracker) ListOpenWorkItems(_ context.Context) ([]scoring.WorkItem, error) {
	var out []scoring.WorkItem
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, nil
}
