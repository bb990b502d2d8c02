// Package ledger keeps a local SQLite record of every approval
// resolution, for the approvals command.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ampsession/internal/approval"

	"github.com/google/uuid"
)

const DefaultLimit = 20

type Record struct {
	ID         string
	SessionID  string
	ApprovalID string
	Prompt     string
	Decision   string
	Source     approval.Source
	Error      string
	ResolvedAt time.Time
}

type Ledger struct {
	conn *sql.DB
	q    *Queries
}

// Open opens (creating if needed) the ledger database at path. A
// leading ~/ is expanded.
func Open(path string) (*Ledger, error) {
	conn, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return &Ledger{conn: conn, q: newQueries(conn)}, nil
}

func (l *Ledger) Close() error {
	return l.conn.Close()
}

// RecordApproval implements approval.Recorder.
func (l *Ledger) RecordApproval(ctx context.Context, res approval.Resolution) error {
	at := res.At
	if at.IsZero() {
		at = time.Now()
	}
	row := approvalRow{
		ID:         uuid.NewString(),
		SessionID:  res.Request.SessionID,
		ApprovalID: res.Request.ApprovalID,
		Prompt:     res.Request.Prompt,
		Decision:   res.Decision,
		Source:     string(res.Source),
		ResolvedAt: at.UnixMilli(),
	}
	if res.Err != nil {
		row.Error = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	if err := l.q.InsertApproval(ctx, row); err != nil {
		return fmt.Errorf("record approval %s: %w", res.Request.ApprovalID, err)
	}
	return nil
}

// List returns the most recent records first. An empty sessionID lists
// every session; limit <= 0 uses DefaultLimit.
func (l *Ledger) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := l.q.ListApprovals(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			ID:         r.ID,
			SessionID:  r.SessionID,
			ApprovalID: r.ApprovalID,
			Prompt:     r.Prompt,
			Decision:   r.Decision,
			Source:     approval.Source(r.Source),
			Error:      r.Error.String,
			ResolvedAt: time.UnixMilli(r.ResolvedAt),
		})
	}
	return out, nil
}

func (l *Ledger) Count(ctx context.Context) (int64, error) {
	return l.q.CountApprovals(ctx)
}
