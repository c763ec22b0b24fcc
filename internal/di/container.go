package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/adapters/imapmail"
	"github.com/mikey/mail-sentinel/internal/adapters/telegram"
	"github.com/mikey/mail-sentinel/internal/config"
	"github.com/mikey/mail-sentinel/internal/core"
	"github.com/mikey/mail-sentinel/internal/factory"
	"github.com/mikey/mail-sentinel/internal/groups"
	"github.com/mikey/mail-sentinel/internal/logging"
	"github.com/mikey/mail-sentinel/internal/parser"
	"github.com/mikey/mail-sentinel/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processing
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}
	if err := container.Provide(parser.NewHTMLParser); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewHistoryFactory); err != nil {
		return nil, err
	}

	// Register sender group directory
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *groups.Directory {
		return groups.NewDirectory(cfg.GetStringMapStringSlice("groups"), logger)
	}); err != nil {
		return nil, err
	}

	// Register classification engine
	if err := container.Provide(func(cfg *config.Config) *core.FallbackClassifier {
		return core.NewFallbackClassifier(
			cfg.GetStringSlice("classify.urgent_keywords"),
			cfg.GetStringSlice("classify.important_keywords"),
		)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		llmFactory *factory.LLMFactory,
		fallback *core.FallbackClassifier,
		logger *zap.Logger,
	) *core.ClassificationEngine {
		llmCfg := cfg.GetLLM()
		return core.NewClassificationEngine(
			llmFactory.ClassifierLoader(),
			fallback,
			llmCfg.Threshold,
			llmCfg.Timeout,
			logger,
		)
	}); err != nil {
		return nil, err
	}

	// Register notification filter
	if err := container.Provide(func(cfg *config.Config, directory *groups.Directory, logger *zap.Logger) *core.NotificationFilter {
		return core.NewNotificationFilter(
			cfg.GetStringSlice("notify.domains"),
			directory,
			cfg.GetStringSlice("notify.keywords"),
			cfg.GetStringSlice("notify.precedence"),
			logger,
		)
	}); err != nil {
		return nil, err
	}

	// Register message decoder
	if err := container.Provide(func(
		cfg *config.Config,
		textProcessor *utils.TextProcessor,
		htmlParser *parser.HTMLParser,
		logger *zap.Logger,
	) *core.MessageDecoder {
		return core.NewMessageDecoder(textProcessor, htmlParser, cfg.GetInt("message.snippet_max_length"), logger)
	}); err != nil {
		return nil, err
	}

	// Register history repository
	if err := container.Provide(func(f *factory.HistoryFactory) (core.HistoryRepository, error) {
		return f.CreateHistoryRepository()
	}); err != nil {
		return nil, err
	}

	// Register daily aggregator
	if err := container.Provide(func(cfg *config.Config, history core.HistoryRepository, logger *zap.Logger) *core.DailyAggregator {
		return core.NewDailyAggregator(history, nil, cfg.GetScheduler().TopSenders, logger)
	}); err != nil {
		return nil, err
	}

	// Register mailbox
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.Mailbox {
		return imapmail.NewClient(cfg.GetMailbox(), logger)
	}); err != nil {
		return nil, err
	}

	// Register notifier
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*telegram.Notifier, error) {
		return telegram.NewNotifier(cfg.GetTelegram(), logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(n *telegram.Notifier) core.Notifier {
		return n
	}); err != nil {
		return nil, err
	}

	// Register ingestion scheduler
	if err := container.Provide(func(
		cfg *config.Config,
		mailbox core.Mailbox,
		decoder *core.MessageDecoder,
		engine *core.ClassificationEngine,
		filter *core.NotificationFilter,
		aggregator *core.DailyAggregator,
		notifier core.Notifier,
		logger *zap.Logger,
	) (*core.IngestionScheduler, error) {
		schedCfg := cfg.GetScheduler()
		minInterval, err := cfg.GetDuration("notify.min_dispatch_interval")
		if err != nil {
			minInterval = time.Second
		}
		return core.NewIngestionScheduler(mailbox, decoder, engine, filter, aggregator, notifier, core.SchedulerOptions{
			PollInterval:        schedCfg.PollInterval,
			FlushCheckInterval:  schedCfg.FlushCheckInterval,
			SummaryTime:         schedCfg.SummaryTime,
			RetentionDays:       schedCfg.RetentionDays,
			MinDispatchInterval: minInterval,
		}, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
