package ledger

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func newQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type approvalRow struct {
	ID         string
	SessionID  string
	ApprovalID string
	Prompt     string
	Decision   string
	Source     string
	Error      sql.NullString
	ResolvedAt int64
}

const insertApproval = `INSERT INTO approvals
    (id, session_id, approval_id, prompt, decision, source, error, resolved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertApproval(ctx context.Context, r approvalRow) error {
	_, err := q.db.ExecContext(ctx, insertApproval,
		r.ID, r.SessionID, r.ApprovalID, r.Prompt, r.Decision, r.Source, r.Error, r.ResolvedAt)
	return err
}

const listApprovals = `SELECT id, session_id, approval_id, prompt, decision, source, error, resolved_at
FROM approvals
WHERE (?1 = '' OR session_id = ?1)
ORDER BY resolved_at DESC, rowid DESC
LIMIT ?2`

func (q *Queries) ListApprovals(ctx context.Context, sessionID string, limit int) ([]approvalRow, error) {
	rows, err := q.db.QueryContext(ctx, listApprovals, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []approvalRow
	for rows.Next() {
		var r approvalRow
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ApprovalID, &r.Prompt,
			&r.Decision, &r.Source, &r.Error, &r.ResolvedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const countApprovals = `SELECT COUNT(*) FROM approvals`

func (q *Queries) CountApprovals(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countApprovals).Scan(&n)
	return n, err
}
