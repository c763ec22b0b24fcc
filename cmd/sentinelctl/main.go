package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

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

var (
	// LLM provider flags
	provider = flag.String("provider", "", "Override the configured LLM provider (openai, gemini, bedrock, disabled)")

	// Classify flags
	subject = flag.String("subject", "", "Subject line for the classify command")
	snippet = flag.String("snippet", "", "Body snippet for the classify command")

	// Logging flags
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog = flag.Bool("json-log", false, "Output logs in JSON format")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <command>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  poll           Run a single mailbox poll cycle\n")
	fmt.Fprintf(os.Stderr, "  summary        Poll once, then send today's digest\n")
	fmt.Fprintf(os.Stderr, "  classify       Classify a subject/snippet pair and print the result\n")
	fmt.Fprintf(os.Stderr, "  test-telegram  Verify the chat channel credentials\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.New()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *provider != "" {
		cfg.GetViper().Set("llm.provider", *provider)
	}

	ctx := context.Background()

	switch command {
	case "poll":
		err = runPoll(ctx, cfg, logger, false)
	case "summary":
		err = runPoll(ctx, cfg, logger, true)
	case "classify":
		err = runClassify(ctx, cfg, logger)
	case "test-telegram":
		err = runTelegramTest(ctx, cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal("Command failed", zap.String("command", command), zap.Error(err))
	}
}

// runPoll runs one full poll cycle, optionally followed by a digest flush
func runPoll(ctx context.Context, cfg *config.Config, logger *zap.Logger, withSummary bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	scheduler, history, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	if err := scheduler.PollOnce(ctx); err != nil {
		return err
	}

	if !withSummary {
		return nil
	}

	if err := scheduler.FlushToday(ctx); err != nil {
		if errors.Is(err, core.ErrNoData) {
			fmt.Println("No messages recorded today; nothing to send")
			return nil
		}
		return err
	}
	fmt.Println("Daily summary sent")

	if history != nil {
		date := time.Now().Format(core.DateLayout)
		if count, err := history.CountForDate(ctx, date); err == nil {
			fmt.Printf("Messages persisted for %s: %d\n", date, count)
		}
	}
	return nil
}

// runClassify classifies a single subject/snippet pair and prints the outcome
func runClassify(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if *subject == "" && *snippet == "" {
		return fmt.Errorf("classify requires -subject and/or -snippet")
	}

	engine := buildEngine(cfg, logger)

	startTime := time.Now()
	label, source := engine.Classify(ctx, *subject, *snippet)
	duration := time.Since(startTime)

	fmt.Printf("\n=== Classification ===\n")
	fmt.Printf("Label: %s\n", label)
	fmt.Printf("Source: %s\n", source)
	fmt.Printf("Notify-worthy: %t\n", label.NotifyWorthy())
	fmt.Printf("Engine state: %s\n", engine.State())
	fmt.Printf("Processing time: %v\n", duration)
	return nil
}

// runTelegramTest verifies the bot token and sends a probe message
func runTelegramTest(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	notifier, err := telegram.NewNotifier(cfg.GetTelegram(), logger)
	if err != nil {
		return err
	}
	if err := notifier.SelfTest(ctx); err != nil {
		return err
	}
	fmt.Println("Telegram channel OK")
	return nil
}

// buildEngine wires the tiered classification engine from configuration
func buildEngine(cfg *config.Config, logger *zap.Logger) *core.ClassificationEngine {
	textProcessor := utils.NewTextProcessor(logger)
	fallback := core.NewFallbackClassifier(
		cfg.GetStringSlice("classify.urgent_keywords"),
		cfg.GetStringSlice("classify.important_keywords"),
	)
	llmCfg := cfg.GetLLM()
	llmFactory := factory.NewLLMFactory(cfg, logger, textProcessor)
	return core.NewClassificationEngine(llmFactory.ClassifierLoader(), fallback, llmCfg.Threshold, llmCfg.Timeout, logger)
}

// buildPipeline wires the full ingestion pipeline without the periodic loops
func buildPipeline(cfg *config.Config, logger *zap.Logger) (*core.IngestionScheduler, core.HistoryRepository, error) {
	textProcessor := utils.NewTextProcessor(logger)
	htmlParser := parser.NewHTMLParser()
	decoder := core.NewMessageDecoder(textProcessor, htmlParser, cfg.GetInt("message.snippet_max_length"), logger)

	engine := buildEngine(cfg, logger)

	directory := groups.NewDirectory(cfg.GetStringMapStringSlice("groups"), logger)
	filter := core.NewNotificationFilter(
		cfg.GetStringSlice("notify.domains"),
		directory,
		cfg.GetStringSlice("notify.keywords"),
		cfg.GetStringSlice("notify.precedence"),
		logger,
	)

	history, err := factory.NewHistoryFactory(cfg, logger).CreateHistoryRepository()
	if err != nil {
		return nil, nil, err
	}

	schedCfg := cfg.GetScheduler()
	aggregator := core.NewDailyAggregator(history, nil, schedCfg.TopSenders, logger)

	mailbox := imapmail.NewClient(cfg.GetMailbox(), logger)
	notifier, err := telegram.NewNotifier(cfg.GetTelegram(), logger)
	if err != nil {
		return nil, history, err
	}

	minInterval, err := cfg.GetDuration("notify.min_dispatch_interval")
	if err != nil {
		minInterval = time.Second
	}

	scheduler, err := core.NewIngestionScheduler(mailbox, decoder, engine, filter, aggregator, notifier, core.SchedulerOptions{
		PollInterval:        schedCfg.PollInterval,
		FlushCheckInterval:  schedCfg.FlushCheckInterval,
		SummaryTime:         schedCfg.SummaryTime,
		RetentionDays:       schedCfg.RetentionDays,
		MinDispatchInterval: minInterval,
	}, logger)
	if err != nil {
		return nil, history, err
	}
	return scheduler, history, nil
}
