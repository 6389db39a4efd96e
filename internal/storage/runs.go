package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaveRun records a run with its transactions, decisions and proposals.
// An empty ID is replaced by a new UUID, which is returned.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.Run) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateRun(run); err != nil {
		return "", err
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, account, source, total, pattern_count, llm_count, new_patterns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Account, run.Source,
		run.Stats.Total, run.Stats.PatternCount, run.Stats.LLMCount, run.Stats.NewPatterns)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertTransactions(ctx, tx, run.ID, run.Transactions); err != nil {
		return "", err
	}
	if err := insertDecisions(ctx, tx, run.ID, run.Decisions); err != nil {
		return "", err
	}
	if err := insertProposed(ctx, tx, run.ID, run.Proposed, run.Approved); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

func insertTransactions(ctx context.Context, tx *sql.Tx, runID string, txns []model.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (run_id, idx, date, details, amount, direction, account_type, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, txn := range txns {
		var category sql.NullString
		if txn.IsCategorized() {
			category = sql.NullString{String: txn.Category, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, runID, i,
			txn.Date.Format(model.DateLayout), txn.Details, txn.Amount.String(),
			string(txn.Direction), txn.AccountType, category); err != nil {
			return fmt.Errorf("failed to insert transaction %d: %w", i, err)
		}
	}
	return nil
}

func insertDecisions(ctx context.Context, tx *sql.Tx, runID string, decisions []model.Decision) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions (run_id, seq, idx, pass, rule, category, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for seq, d := range decisions {
		if _, err := stmt.ExecContext(ctx, runID, seq, d.Index, string(d.Pass), d.Rule, d.Category, d.Details); err != nil {
			return fmt.Errorf("failed to insert decision %d: %w", seq, err)
		}
	}
	return nil
}

func insertProposed(ctx context.Context, tx *sql.Tx, runID string, proposed, approved []model.ProposedPattern) error {
	isApproved := make(map[model.ProposedPattern]bool, len(approved))
	for _, p := range approved {
		isApproved[p] = true
	}

	for seq, p := range proposed {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO proposed_patterns (run_id, seq, merchant, category, approved)
			VALUES (?, ?, ?, ?, ?)`,
			runID, seq, p.Merchant, p.Category, isApproved[p]); err != nil {
			return fmt.Errorf("failed to insert proposed pattern %d: %w", seq, err)
		}
	}
	return nil
}

// MarkApproved flags proposals of a saved run as approved.
func (s *SQLiteStorage) MarkApproved(ctx context.Context, runID string, approved []model.ProposedPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range approved {
		if _, err := tx.ExecContext(ctx, `
			UPDATE proposed_patterns SET approved = 1
			WHERE run_id = ? AND merchant = ? AND category = ?`,
			runID, p.Merchant, p.Category); err != nil {
			return fmt.Errorf("failed to mark %q approved: %w", p.Merchant, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns run headers, newest first. Transactions and decisions are not loaded.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, account, source, total, llm_count, new_patterns
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var (
		run                       model.Run
		total, llmCount, proposed int
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &run.Account, &run.Source, &total, &llmCount, &proposed); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Stats = model.NewStats(total, llmCount, proposed)
	return &run, nil
}

// GetRun loads a run in full. id may be a unique prefix of the run ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, account, source, total, llm_count, new_patterns
		FROM runs
		WHERE id = ? OR id LIKE ? ESCAPE '\'
		ORDER BY id = ? DESC
		LIMIT 2`, id, escapeLike(id)+"%", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	var matches []*model.Run
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			_ = rows.Close()
			return nil, scanErr
		}
		matches = append(matches, run)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous", id)
	}
	run := matches[0]

	if run.Transactions, err = s.loadTransactions(ctx, run.ID); err != nil {
		return nil, err
	}
	if run.Decisions, err = s.loadDecisions(ctx, run.ID); err != nil {
		return nil, err
	}
	if run.Proposed, run.Approved, err = s.loadProposed(ctx, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *SQLiteStorage) loadTransactions(ctx context.Context, runID string) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, details, amount, direction, account_type, category
		FROM transactions WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	txns := []model.Transaction{}
	for rows.Next() {
		var (
			txn               model.Transaction
			date, amount, dir string
			category          sql.NullString
		)
		if err := rows.Scan(&date, &txn.Details, &amount, &dir, &txn.AccountType, &category); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if txn.Date, err = time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
		}
		if txn.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		txn.Direction = model.Direction(dir)
		txn.Category = category.String
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (s *SQLiteStorage) loadDecisions(ctx context.Context, runID string) ([]model.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, pass, rule, category, details
		FROM decisions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	decisions := []model.Decision{}
	for rows.Next() {
		var (
			d    model.Decision
			pass string
		)
		if err := rows.Scan(&d.Index, &pass, &d.Rule, &d.Category, &d.Details); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Pass = model.Pass(pass)
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

func (s *SQLiteStorage) loadProposed(ctx context.Context, runID string) (proposed, approved []model.ProposedPattern, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT merchant, category, approved
		FROM proposed_patterns WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query proposed patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	proposed = []model.ProposedPattern{}
	approved = []model.ProposedPattern{}
	for rows.Next() {
		var (
			p  model.ProposedPattern
			ok bool
		)
		if err := rows.Scan(&p.Merchant, &p.Category, &ok); err != nil {
			return nil, nil, fmt.Errorf("failed to scan proposed pattern: %w", err)
		}
		proposed = append(proposed, p)
		if ok {
			approved = append(approved, p)
		}
	}
	return proposed, approved, rows.Err()
}

// DeleteRun removes a run and everything recorded with it.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
