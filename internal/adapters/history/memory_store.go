package history

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/core"
)

// MemoryStore is an in-memory implementation of the HistoryRepository
// interface. History is lost on restart, which the scheduler tolerates.
type MemoryStore struct {
	mu     sync.RWMutex
	byDate map[string][]core.MessageRecord
	ids    map[string]struct{}
	logger *zap.Logger
}

// NewMemoryStore creates a new in-memory history store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		byDate: make(map[string][]core.MessageRecord),
		ids:    make(map[string]struct{}),
		logger: logger,
	}
}

// Record persists a processed message; duplicates are ignored
func (s *MemoryStore) Record(ctx context.Context, rec *core.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID != "" {
		if _, dup := s.ids[rec.ID]; dup {
			return nil
		}
		s.ids[rec.ID] = struct{}{}
	}

	date := rec.Timestamp.Format(core.DateLayout)
	s.byDate[date] = append(s.byDate[date], *rec)
	return nil
}

// CountForDate returns how many messages were recorded for a calendar date
func (s *MemoryStore) CountForDate(ctx context.Context, date string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byDate[date]), nil
}

// Purge removes records for dates strictly before the given date
func (s *MemoryStore) Purge(ctx context.Context, before string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for date, records := range s.byDate {
		if date < before {
			for _, rec := range records {
				delete(s.ids, rec.ID)
			}
			removed += int64(len(records))
			delete(s.byDate, date)
		}
	}
	return removed, nil
}

// Close releases the store
func (s *MemoryStore) Close() error {
	return nil
}
