package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/core"
)

// MySQLStore is a MySQL implementation of the HistoryRepository interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL history store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS message_history (
			message_id VARCHAR(255) PRIMARY KEY,
			date CHAR(10) NOT NULL,
			hour TINYINT NOT NULL,
			sender VARCHAR(320) NOT NULL,
			subject TEXT NOT NULL,
			classification VARCHAR(32) NOT NULL,
			classification_source VARCHAR(16) NOT NULL,
			sender_group VARCHAR(128) NOT NULL,
			matched_domain VARCHAR(255),
			matched_keyword VARCHAR(255),
			recorded_at TIMESTAMP NOT NULL,
			INDEX idx_history_date (date)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Record persists a processed message; a duplicate message_id is ignored
func (s *MySQLStore) Record(ctx context.Context, rec *core.MessageRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO message_history
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
		rec.Timestamp.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history row: %w", err)
	}
	return nil
}

// CountForDate returns how many messages were recorded for a calendar date
func (s *MySQLStore) CountForDate(ctx context.Context, date string) (int, error) {
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
func (s *MySQLStore) Purge(ctx context.Context, before string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM message_history WHERE date < ?
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge history rows: %w", err)
	}
	return result.RowsAffected()
}

// Close releases the database
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
