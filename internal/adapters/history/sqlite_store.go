package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/core"
)

// SQLiteStore is a SQLite implementation of the HistoryRepository interface.
// The UNIQUE message_id gives best-effort de-duplication across restarts.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite history store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS message_history (
			message_id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			hour INTEGER NOT NULL,
			sender TEXT NOT NULL,
			subject TEXT NOT NULL,
			classification TEXT NOT NULL,
			classification_source TEXT NOT NULL,
			sender_group TEXT NOT NULL,
			matched_domain TEXT,
			matched_keyword TEXT,
			recorded_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_history_date ON message_history(date)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Record persists a processed message; a duplicate message_id is ignored
func (s *SQLiteStore) Record(ctx context.Context, rec *core.MessageRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_history
		(message_id, date, hour, sender, subject, classification,
		 classification_source, sender_group, matched_domain, matched_keyword, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Timestamp.Format(core.DateLayout),
		rec.Timestamp.Hour(),
		rec.Sender,
		rec.Subject,
		string(rec.Classification),
		string(rec.ClassificationSource),
		rec.SenderGroup,
		rec.MatchedDomain,
		rec.MatchedKeyword,
		rec.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history row: %w", err)
	}
	return nil
}

// CountForDate returns how many messages were recorded for a calendar date
func (s *SQLiteStore) CountForDate(ctx context.Context, date string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM message_history WHERE date = ?
	`, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history rows: %w", err)
	}
	return count, nil
}

// Purge removes rows for dates strictly before the given date
func (s *SQLiteStore) Purge(ctx context.Context, before string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM message_history WHERE date < ?
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge history rows: %w", err)
	}
	return result.RowsAffected()
}

// Close releases the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
