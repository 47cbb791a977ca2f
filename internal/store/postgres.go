package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/QVF/internal/scoring"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const sessionColumns = `session_id, name, stakeholder, criteria, judgments,
	status, weights, consistency_ratio, lambda_max,
	created_at, updated_at`

func (s *PostgresStore) CreateSession(ctx context.Context, session *ComparisonSession) error {
	criteriaJSON, _ := json.Marshal(session.Criteria)
	judgmentsJSON, _ := json.Marshal(session.Judgments)
	weightsJSON, _ := json.Marshal(session.Weights)

	return s.pool.QueryRow(ctx, `
		INSERT INTO qvf_sessions (name, stakeholder, criteria, judgments, status, weights)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING session_id, created_at, updated_at`,
		session.Name, session.Stakeholder, criteriaJSON, judgmentsJSON,
		session.Status, weightsJSON,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
}

func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*ComparisonSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM qvf_sessions WHERE session_id = $1`, id)
	sess, err := scanSession(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]*ComparisonSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM qvf_sessions WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.Stakeholder != "" {
		n++
		query += fmt.Sprintf(" AND stakeholder = $%d", n)
		args = append(args, filter.Stakeholder)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*ComparisonSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) UpdateSession(ctx context.Context, session *ComparisonSession) error {
	criteriaJSON, _ := json.Marshal(session.Criteria)
	judgmentsJSON, _ := json.Marshal(session.Judgments)
	weightsJSON, _ := json.Marshal(session.Weights)

	tag, err := s.pool.Exec(ctx, `
		UPDATE qvf_sessions
		SET name = $2, stakeholder = $3, criteria = $4, judgments = $5,
			status = $6, weights = $7, consistency_ratio = $8, lambda_max = $9,
			updated_at = now()
		WHERE session_id = $1`,
		session.ID, session.Name, session.Stakeholder, criteriaJSON, judgmentsJSON,
		session.Status, weightsJSON, session.ConsistencyRatio, session.LambdaMax,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s not found", session.ID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*ComparisonSession, error) {
	sess := &ComparisonSession{}
	var criteriaJSON, judgmentsJSON, weightsJSON []byte
	err := row.Scan(
		&sess.ID, &sess.Name, &sess.Stakeholder, &criteriaJSON, &judgmentsJSON,
		&sess.Status, &weightsJSON, &sess.ConsistencyRatio, &sess.LambdaMax,
		&sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if criteriaJSON != nil {
		_ = json.Unmarshal(criteriaJSON, &sess.Criteria)
	}
	if judgmentsJSON != nil {
		_ = json.Unmarshal(judgmentsJSON, &sess.Judgments)
	}
	if weightsJSON != nil {
		_ = json.Unmarshal(weightsJSON, &sess.Weights)
	}
	return sess, nil
}

const runColumns = `run_id, session_id, source, records, skipped, summary, stale, created_at`

func (s *PostgresStore) CreateScoreRun(ctx context.Context, run *ScoreRun) error {
	recordsJSON, _ := json.Marshal(run.Records)
	skippedJSON, _ := json.Marshal(run.Skipped)
	summaryJSON, _ := json.Marshal(run.Summary)

	return s.pool.QueryRow(ctx, `
		INSERT INTO qvf_score_runs (session_id, source, records, skipped, summary, stale)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING run_id, created_at`,
		run.SessionID, run.Source, recordsJSON, skippedJSON, summaryJSON, run.Stale,
	).Scan(&run.ID, &run.CreatedAt)
}

func (s *PostgresStore) GetScoreRun(ctx context.Context, id uuid.UUID) (*ScoreRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM qvf_score_runs WHERE run_id = $1`, id)
	run, err := scanRun(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *PostgresStore) ListScoreRuns(ctx context.Context, filter RunFilter) ([]*ScoreRun, error) {
	query := `SELECT ` + runColumns + ` FROM qvf_score_runs WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.SessionID != nil {
		n++
		query += fmt.Sprintf(" AND session_id = $%d", n)
		args = append(args, *filter.SessionID)
	}
	if filter.Stale != nil {
		n++
		query += fmt.Sprintf(" AND stale = $%d", n)
		args = append(args, *filter.Stale)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*ScoreRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) MarkRunStale(ctx context.Context, id uuid.UUID, stale bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE qvf_score_runs SET stale = $2 WHERE run_id = $1`, id, stale)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("score run %s not found", id)
	}
	return nil
}

// MarkRunsStaleByItem flags every run whose records include the given work
// item, returning the number of runs flagged.
func (s *PostgresStore) MarkRunsStaleByItem(ctx context.Context, itemID string) (int, error) {
	itemJSON, _ := json.Marshal([]map[string]string{{"item_id": itemID}})
	tag, err := s.pool.Exec(ctx, `
		UPDATE qvf_score_runs SET stale = true
		WHERE stale = false AND records @> $1`, itemJSON)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanRun(row rowScanner) (*ScoreRun, error) {
	run := &ScoreRun{}
	var recordsJSON, skippedJSON, summaryJSON []byte
	err := row.Scan(
		&run.ID, &run.SessionID, &run.Source, &recordsJSON, &skippedJSON,
		&summaryJSON, &run.Stale, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if recordsJSON != nil {
		_ = json.Unmarshal(recordsJSON, &run.Records)
	}
	if skippedJSON != nil {
		_ = json.Unmarshal(skippedJSON, &run.Skipped)
	}
	if summaryJSON != nil {
		_ = json.Unmarshal(summaryJSON, &run.Summary)
	}
	if run.Records == nil {
		run.Records = []scoring.ScoreRecord{}
	}
	return run, nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM qvf_sessions),
			(SELECT COUNT(*) FROM qvf_sessions WHERE status = 'accepted'),
			(SELECT COUNT(*) FROM qvf_score_runs),
			(SELECT COUNT(*) FROM qvf_score_runs WHERE stale = true),
			(SELECT COALESCE(AVG(consistency_ratio), 0) FROM qvf_sessions WHERE consistency_ratio IS NOT NULL)
	`).Scan(&stats.Sessions, &stats.AcceptedSessions, &stats.Runs, &stats.StaleRuns, &stats.AvgConsistencyRatio)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
