package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"webomatic/internal/logger"
)

// DatabaseManager persists match audits and recordings in MySQL
type DatabaseManager struct {
	db      *sql.DB
	logger  *logger.LoggerManager
	enabled bool
	wg      sync.WaitGroup
}

// NewDatabaseManager wraps db. When enabled is false every save is a no-op.
func NewDatabaseManager(db *sql.DB, enabled bool, loggerManager *logger.LoggerManager) *DatabaseManager {
	return &DatabaseManager{
		db:      db,
		logger:  loggerManager,
		enabled: enabled && db != nil,
	}
}

// NormalizeDSN makes sure timestamps scan into time.Time
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Open connects to MySQL and checks the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	normalized, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", normalized)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// Enabled reports whether saves reach the database
func (h *DatabaseManager) Enabled() bool {
	return h.enabled
}

// DB returns the underlying handle
func (h *DatabaseManager) DB() *sql.DB {
	return h.db
}

// EnsureSchema creates missing tables
func (h *DatabaseManager) EnsureSchema(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %v", err)
		}
	}
	return nil
}

// SaveMatchAudit inserts one audit row and returns its id
func (h *DatabaseManager) SaveMatchAudit(ctx context.Context, a MatchAudit) (int64, error) {
	if !h.enabled {
		h.logger.Debug("database saves disabled, skipping audit for %s", a.Target)
		return 0, nil
	}

	res, err := h.db.ExecContext(ctx,
		`INSERT INTO match_audits (target, zone, center_x, center_y, confidence, found, clicked, error, zone_image) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Target, a.Zone, a.CenterX, a.CenterY, a.Confidence, a.Found, a.Clicked, nullString(a.Error), a.ZoneImage)
	if err != nil {
		return 0, fmt.Errorf("insert match audit: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("match audit id: %v", err)
	}
	h.logger.Info("match audit saved with id %d", id)
	return id, nil
}

// SaveMatchAuditAsync saves in the background. WaitForAsyncOperations
// blocks until every pending save finished.
func (h *DatabaseManager) SaveMatchAuditAsync(a MatchAudit) {
	if !h.enabled {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := h.SaveMatchAudit(ctx, a); err != nil {
			h.logger.LogError(err, "async match audit save failed")
		}
	}()
}

// SaveRecording stores a recording and its samples
func (h *DatabaseManager) SaveRecording(ctx context.Context, rec Recording) (int64, error) {
	if !h.enabled {
		h.logger.Debug("database saves disabled, skipping recording %s", rec.SessionID)
		return 0, nil
	}
	id, err := saveRecordingBatch(ctx, h.db, rec)
	if err != nil {
		return 0, err
	}
	h.logger.Info("recording %s saved with id %d (%d samples)", rec.SessionID, id, len(rec.Samples))
	return id, nil
}

// CountMatchAudits returns the number of audit rows
func (h *DatabaseManager) CountMatchAudits(ctx context.Context) (int, error) {
	var n int
	if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_audits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count match audits: %v", err)
	}
	return n, nil
}

// ListMatchAudits returns a page of audits, newest first, without images
func (h *DatabaseManager) ListMatchAudits(ctx context.Context, limit, offset int) ([]MatchAudit, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, target, zone, COALESCE(center_x, 0), COALESCE(center_y, 0), confidence, found, clicked, COALESCE(error, ''), created_at
		 FROM match_audits ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list match audits: %v", err)
	}
	defer rows.Close()

	var out []MatchAudit
	for rows.Next() {
		var a MatchAudit
		if err := rows.Scan(&a.ID, &a.Target, &a.Zone, &a.CenterX, &a.CenterY, &a.Confidence, &a.Found, &a.Clicked, &a.Error, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match audit: %v", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MatchAuditImage returns the stored zone crop of one audit
func (h *DatabaseManager) MatchAuditImage(ctx context.Context, id int64) ([]byte, error) {
	var data []byte
	err := h.db.QueryRowContext(ctx, `SELECT zone_image FROM match_audits WHERE id = ?`, id).Scan(&data)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WaitForAsyncOperations waits for background saves to finish
func (h *DatabaseManager) WaitForAsyncOperations() {
	h.logger.Info("waiting for pending database saves...")
	h.wg.Wait()
	h.logger.Info("all pending database saves finished")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
