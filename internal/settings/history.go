package settings

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ScanRecord is one row of scan history.
type ScanRecord struct {
	SessionID      string     `json:"session_id"`
	Directory      string     `json:"directory"`
	MinSize        int64      `json:"min_size"`
	FollowSymlinks bool       `json:"follow_symlinks"`
	State          string     `json:"state"`
	Format         string     `json:"format,omitempty"`
	Groups         int        `json:"groups"`
	Duplicates     int        `json:"duplicates"`
	TotalFiles     *int64     `json:"total_files,omitempty"`
	ErrorKind      string     `json:"error_kind,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// BeginScan inserts the history row for a new session.
func (s *Store) BeginScan(ctx context.Context, rec ScanRecord) error {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	err := s.exec(ctx,
		`INSERT INTO scan_history (session_id, directory, min_size, follow_symlinks, state, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Directory, rec.MinSize, boolToInt(rec.FollowSymlinks), rec.State, formatTime(rec.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert scan history: %w", err)
	}
	return nil
}

// FinishScan records the terminal state of a session.
func (s *Store) FinishScan(ctx context.Context, rec ScanRecord) error {
	finished := time.Now()
	if rec.FinishedAt != nil {
		finished = *rec.FinishedAt
	}
	var totalFiles sql.NullInt64
	if rec.TotalFiles != nil {
		totalFiles = sql.NullInt64{Int64: *rec.TotalFiles, Valid: true}
	}
	err := s.exec(ctx,
		`UPDATE scan_history
		 SET state = ?, format = ?, group_count = ?, duplicate_count = ?, total_files = ?,
		     error_kind = ?, error_message = ?, finished_at = ?
		 WHERE session_id = ?`,
		rec.State, rec.Format, rec.Groups, rec.Duplicates, totalFiles,
		rec.ErrorKind, rec.ErrorMessage, formatTime(finished), rec.SessionID,
	)
	if err != nil {
		return fmt.Errorf("update scan history: %w", err)
	}
	return nil
}

// ListScans returns the most recent sessions first. limit <= 0 returns all.
func (s *Store) ListScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	ctx = ensureContext(ctx)
	query := `SELECT session_id, directory, min_size, follow_symlinks, state, format, group_count,
	                 duplicate_count, total_files, error_kind, error_message, started_at, finished_at
	          FROM scan_history ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scan history: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var (
			rec        ScanRecord
			follow     int
			totalFiles sql.NullInt64
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&rec.SessionID, &rec.Directory, &rec.MinSize, &follow, &rec.State, &rec.Format,
			&rec.Groups, &rec.Duplicates, &totalFiles, &rec.ErrorKind, &rec.ErrorMessage, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.FollowSymlinks = follow != 0
		if totalFiles.Valid {
			v := totalFiles.Int64
			rec.TotalFiles = &v
		}
		rec.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			t := parseTime(finishedAt.String)
			rec.FinishedAt = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan history: %w", err)
	}
	return records, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
