package database

import (
	"context"
	"database/sql"
	"fmt"
)

// saveRecordingBatch writes the recording row and all its samples in one transaction
func saveRecordingBatch(ctx context.Context, db *sql.DB, rec Recording) (id int64, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %v", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO recordings (session_id, duration, sample_rate, total_points, avg_velocity, max_velocity) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Duration, rec.SampleRate, rec.TotalPoints, rec.AvgVelocity, rec.MaxVelocity)
	if err != nil {
		return 0, fmt.Errorf("insert recording: %v", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recording id: %v", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO recording_samples (recording_id, seq, x, y, t) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare sample insert: %v", err)
	}
	defer stmt.Close()

	for _, s := range rec.Samples {
		if _, err = stmt.ExecContext(ctx, id, s.Seq, s.X, s.Y, s.T); err != nil {
			return 0, fmt.Errorf("insert sample %d: %v", s.Seq, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %v", err)
	}
	return id, nil
}
