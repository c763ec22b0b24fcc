package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/adapters/history"
	"github.com/mikey/mail-sentinel/internal/config"
	"github.com/mikey/mail-sentinel/internal/core"
)

// HistoryFactory creates history repositories
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// IsHistoryEnabled returns whether a persistent history backend should
// be attached to the aggregator
func (f *HistoryFactory) IsHistoryEnabled() bool {
	return f.cfg.GetBool("history.enabled")
}

// CreateHistoryRepository creates a new history repository based on the configuration
func (f *HistoryFactory) CreateHistoryRepository() (core.HistoryRepository, error) {
	if !f.IsHistoryEnabled() {
		return nil, nil
	}

	backend := f.cfg.GetString("history.type")

	switch backend {
	case "memory":
		return history.NewMemoryStore(f.logger), nil
	case "sqlite":
		return history.NewSQLiteStore(f.cfg.GetString("history.sqlite_path"), f.logger)
	case "mysql":
		return history.NewMySQLStore(f.cfg.GetString("history.mysql_dsn"), f.logger)
	default:
		return nil, fmt.Errorf("unknown history backend: %s", backend)
	}
}
