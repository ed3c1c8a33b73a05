package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the narrow query surface the scheduler needs from the
// relational store (component G). Defined as an interface so
// scheduler_test.go can substitute an in-memory fake.
type Store interface {
	ListSubmissions(ctx context.Context, preciseAvail, quickAvail int) (precise, quick []Submission, err error)
	ListTestcase(ctx context.Context, problemID int64) ([]TestCase, error)
	MarkSubmissionQueued(ctx context.Context, ids []int64) error
	InsertTestcaseJudge(ctx context.Context, submissionID int64, result TestCaseJudgeResult) error
	UpdateSubmissionEnd(ctx context.Context, sub Submission, pass bool, extra string, memoryKb, runtimeMs uint64) error
}

// PgStore implements Store against PostgreSQL via pgx, with every query
// parameter-bound — the originating implementation built SQL by string
// interpolation (see DESIGN.md), which this store deliberately does not
// repeat.
type PgStore struct {
	db *pgxpool.Pool

	mu          sync.Mutex
	testcaseTTL time.Duration
	cache       map[int64]testcaseCacheEntry
}

type testcaseCacheEntry struct {
	tcs       []TestCase
	fetchedAt time.Time
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db, testcaseTTL: 5 * time.Second, cache: make(map[int64]testcaseCacheEntry)}
}

func (s *PgStore) ListSubmissions(ctx context.Context, preciseAvail, quickAvail int) ([]Submission, []Submission, error) {
	precise, err := s.listSubmissionsByType(ctx, Precise, preciseAvail)
	if err != nil {
		return nil, nil, fmt.Errorf("list precise submissions: %w", err)
	}
	quick, err := s.listSubmissionsByType(ctx, Quick, quickAvail)
	if err != nil {
		return nil, nil, fmt.Errorf("list quick submissions: %w", err)
	}
	return precise, quick, nil
}

func (s *PgStore) listSubmissionsByType(ctx context.Context, class RunClass, limit int) ([]Submission, error) {
	if limit <= 0 {
		return nil, nil
	}
	const q = `SELECT id, stud_id, problem_no, type, lang, code, submit_at
		FROM submit WHERE queued = 0 AND type = $1 ORDER BY id LIMIT $2`
	rows, err := s.db.Query(ctx, q, int(class), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		var class int
		if err := rows.Scan(&sub.ID, &sub.StudentID, &sub.ProblemNo, &class, &sub.Lang, &sub.Code, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		sub.Class = RunClass(class)
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ListTestcase returns every testcase for problemID, serving from a 5s
// cache to avoid re-querying on every refill within the same tick burst.
func (s *PgStore) ListTestcase(ctx context.Context, problemID int64) ([]TestCase, error) {
	s.mu.Lock()
	if entry, ok := s.cache[problemID]; ok && time.Since(entry.fetchedAt) < s.testcaseTTL {
		tcs := entry.tcs
		s.mu.Unlock()
		return tcs, nil
	}
	s.mu.Unlock()

	const q = `SELECT id, problem_id, input, output, is_public, runtime, memory_limit
		FROM testcase WHERE problem_id = $1`
	rows, err := s.db.Query(ctx, q, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TestCase
	for rows.Next() {
		var tc TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.Output, &tc.IsPublic, &tc.TimeLimitMs, &tc.MemoryLimitKb); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[problemID] = testcaseCacheEntry{tcs: out, fetchedAt: time.Now()}
	s.mu.Unlock()
	return out, nil
}

func (s *PgStore) MarkSubmissionQueued(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE submit SET queued = 1 WHERE id = ANY($1)`
	_, err := s.db.Exec(ctx, q, ids)
	return err
}

func (s *PgStore) InsertTestcaseJudge(ctx context.Context, submissionID int64, result TestCaseJudgeResult) error {
	const q = `INSERT INTO testcase_judge
		(submit_id, testcase_id, output, runtime, result, compile_log, memory, judge_server_id, result_extra)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	sqlResult := 1
	if result.Verdict == Accepted {
		sqlResult = 0
	}
	_, err := s.db.Exec(ctx, q,
		submissionID, result.TestCaseID, result.RunOutput, result.TimeUsedMs, sqlResult,
		result.CompileOutput, result.MemoryUsedKb, result.WorkerID, result.Verdict.String(),
	)
	return err
}

// UpdateSubmissionEnd finalizes a submission: scores it (Precise passes
// only), writes the result row, and updates the per-problem stat.
func (s *PgStore) UpdateSubmissionEnd(ctx context.Context, sub Submission, pass bool, extra string, memoryKb, runtimeMs uint64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	score, err := computeScore(ctx, tx, sub, pass)
	if err != nil {
		return fmt.Errorf("compute score: %w", err)
	}

	sqlResult := 1
	if pass {
		sqlResult = 0
	}
	const upd = `UPDATE submit SET score = $1, result = $2, extra = $3, memory = $4, runtime = $5, state = $6 WHERE id = $7`
	if _, err := tx.Exec(ctx, upd, score, sqlResult, extra, memoryKb, runtimeMs, SubmissionFinished, sub.ID); err != nil {
		return err
	}

	const stat = `UPDATE user_problem_stat SET score = $1 WHERE stud_id = $2 AND problem_no = $3`
	if _, err := tx.Exec(ctx, stat, score, sub.StudentID, sub.ProblemNo); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// computeScore reproduces the original scoring formula: retries*20 plus
// minutes elapsed since config.START_AT, for a passing Precise
// submission. Quick submissions and failures always score 0. retries is
// the count of prior failed Precise submissions by the same student on
// the same problem, before their first success.
func computeScore(ctx context.Context, tx pgx.Tx, sub Submission, pass bool) (int64, error) {
	if !pass || sub.Class != Precise {
		return 0, nil
	}

	const q = `SELECT
		COUNT(*) FILTER (WHERE result = 1) AS tries,
		COALESCE(EXTRACT(EPOCH FROM ($1::timestamp - (SELECT val::timestamp FROM config WHERE key = 'START_AT'))), 0) AS sec_diff
		FROM submit
		WHERE stud_id = $2 AND type = $3 AND problem_no = $4 AND result = 1
		AND id < COALESCE((SELECT MIN(id) FROM submit WHERE stud_id = $2 AND type = $3 AND problem_no = $4 AND result = 0), $5)`

	var tries int64
	var secDiff float64
	err := tx.QueryRow(ctx, q, sub.SubmittedAt, sub.StudentID, int(Precise), sub.ProblemNo, sub.ID).Scan(&tries, &secDiff)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return scoreFromStats(tries, secDiff), nil
}

// scoreFromStats applies the formula in isolation from the query above so
// it can be unit tested without a database.
func scoreFromStats(tries int64, secDiff float64) int64 {
	if secDiff < 0 {
		secDiff = 0
	}
	return tries*20 + int64(secDiff)/60
}
