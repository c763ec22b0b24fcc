package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SchedulerState is the process-wide scheduling state. It lives only in
// memory; after a restart the flush-date guard rebuilds from the first
// successful flush (a duplicate digest after a mid-day restart is accepted
// degraded behavior, not a correctness violation).
type SchedulerState struct {
	LastPoll            time.Time
	LastFlushDate       string
	ConsecutiveFailures int
}

// SchedulerOptions configures the ingestion scheduler cadences
type SchedulerOptions struct {
	PollInterval        time.Duration
	FlushCheckInterval  time.Duration
	SummaryTime         string
	RetentionDays       int
	MinDispatchInterval time.Duration
}

// IngestionScheduler drives the two periodic activities of the process: the
// mailbox poll cycle and the once-daily summary flush. The activities run on
// independent cadences so neither blocks the other; they share only the
// aggregator.
type IngestionScheduler struct {
	mailbox    Mailbox
	decoder    *MessageDecoder
	engine     *ClassificationEngine
	filter     *NotificationFilter
	aggregator *DailyAggregator
	notifier   Notifier
	limiter    *rate.Limiter
	logger     *zap.Logger

	pollInterval       time.Duration
	flushCheckInterval time.Duration
	summaryHour        int
	summaryMinute      int
	retentionDays      int

	clock func() time.Time

	mu    sync.Mutex
	state SchedulerState
}

// NewIngestionScheduler creates a scheduler from its collaborators
func NewIngestionScheduler(
	mailbox Mailbox,
	decoder *MessageDecoder,
	engine *ClassificationEngine,
	filter *NotificationFilter,
	aggregator *DailyAggregator,
	notifier Notifier,
	opts SchedulerOptions,
	logger *zap.Logger,
) (*IngestionScheduler, error) {
	hour, minute, err := parseSummaryTime(opts.SummaryTime)
	if err != nil {
		return nil, err
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Minute
	}
	if opts.FlushCheckInterval <= 0 {
		opts.FlushCheckInterval = time.Minute
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}
	if opts.MinDispatchInterval <= 0 {
		opts.MinDispatchInterval = time.Second
	}

	return &IngestionScheduler{
		mailbox:            mailbox,
		decoder:            decoder,
		engine:             engine,
		filter:             filter,
		aggregator:         aggregator,
		notifier:           notifier,
		limiter:            rate.NewLimiter(rate.Every(opts.MinDispatchInterval), 1),
		logger:             logger,
		pollInterval:       opts.PollInterval,
		flushCheckInterval: opts.FlushCheckInterval,
		summaryHour:        hour,
		summaryMinute:      minute,
		retentionDays:      opts.RetentionDays,
		clock:              time.Now,
	}, nil
}

// parseSummaryTime parses a local wall-clock "HH:MM" string
func parseSummaryTime(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid summary time %q: %w", value, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Run drives both periodic loops until the context is cancelled. An
// in-flight poll cycle is finished before returning so a daily bucket is
// never left half-updated.
func (s *IngestionScheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler started",
		zap.Duration("poll_interval", s.pollInterval),
		zap.String("summary_time", fmt.Sprintf("%02d:%02d", s.summaryHour, s.summaryMinute)),
		zap.Int("retention_days", s.retentionDays))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.pollLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()
	wg.Wait()

	s.logger.Info("Scheduler stopped")
}

func (s *IngestionScheduler) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if err := s.PollOnce(ctx); err != nil {
			s.logger.Error("Poll cycle failed",
				zap.Error(err),
				zap.Int("consecutive_failures", s.Failures()))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *IngestionScheduler) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.flushCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkFlush(ctx, s.clock())
		}
	}
}

// PollOnce runs one complete poll cycle: open the mailbox, process every
// unseen message through the pipeline, and release the connection on every
// exit path. A per-message failure is logged without unwinding the cycle.
func (s *IngestionScheduler) PollOnce(ctx context.Context) error {
	if err := s.mailbox.Open(ctx); err != nil {
		s.recordFailure()
		return fmt.Errorf("failed to open mailbox: %w", err)
	}
	defer func() {
		if err := s.mailbox.Close(); err != nil {
			s.logger.Warn("Failed to close mailbox", zap.Error(err))
		}
	}()

	uids, err := s.mailbox.ListUnseen(ctx)
	if err != nil {
		s.recordFailure()
		return fmt.Errorf("failed to list unseen messages: %w", err)
	}

	s.recordSuccess()

	if len(uids) == 0 {
		s.logger.Debug("No new messages")
		return nil
	}

	s.logger.Info("Processing new messages", zap.Int("count", len(uids)))
	for _, uid := range uids {
		s.processMessage(ctx, uid)
	}
	return nil
}

// processMessage runs one message through decode → classify → evaluate →
// record → dispatch. The message is marked seen unless its notification
// dispatch failed, in which case it stays unseen for the next cycle.
func (s *IngestionScheduler) processMessage(ctx context.Context, uid uint32) {
	raw, err := s.mailbox.Fetch(ctx, uid)
	if err != nil {
		s.logger.Error("Failed to fetch message",
			zap.Uint32("uid", uid),
			zap.Error(err))
		return
	}

	rec := s.decoder.Decode(strconv.FormatUint(uint64(uid), 10), raw, s.clock())

	label, source := s.engine.Classify(ctx, rec.Subject, rec.Snippet)
	decision := s.filter.Evaluate(rec.Sender, rec.Subject, rec.Snippet, label)

	rec.Classification = label
	rec.ClassificationSource = source
	rec.SenderGroup = decision.SenderGroup
	rec.MatchedDomain = decision.MatchedDomain
	rec.MatchedKeyword = decision.MatchedKeyword

	if err := s.aggregator.Record(ctx, rec); err != nil {
		s.logger.Error("Failed to record message",
			zap.String("id", rec.ID),
			zap.Error(err))
	}

	s.logger.Info("Message processed",
		zap.String("sender", rec.Sender),
		zap.String("label", string(rec.Classification)),
		zap.String("source", string(rec.ClassificationSource)),
		zap.String("group", rec.SenderGroup),
		zap.Bool("notify", decision.Notify))

	if decision.Notify {
		if err := s.dispatch(ctx, RenderAlert(rec, decision)); err != nil {
			// Leave the message unseen so the next cycle retries dispatch
			s.logger.Warn("Failed to dispatch notification, message left unseen",
				zap.Uint32("uid", uid),
				zap.Error(err))
			return
		}
	}

	if err := s.mailbox.MarkSeen(ctx, uid); err != nil {
		s.logger.Warn("Failed to mark message seen",
			zap.Uint32("uid", uid),
			zap.Error(err))
	}
}

// dispatch sends one notification, serialized through the rate limiter to
// honor the destination API's throughput ceiling
func (s *IngestionScheduler) dispatch(ctx context.Context, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.notifier.Send(ctx, text)
}

// checkFlush performs the daily flush when the wall clock has passed the
// configured summary time and the date has not flushed during this run. The
// check may run many times past the threshold; the date guard makes the
// flush fire at most once per date.
func (s *IngestionScheduler) checkFlush(ctx context.Context, now time.Time) {
	if !s.pastSummaryTime(now) {
		return
	}

	date := now.Format(DateLayout)
	s.mu.Lock()
	done := s.state.LastFlushDate == date
	s.mu.Unlock()
	if done {
		return
	}

	if err := s.flush(ctx, date, true); err != nil {
		s.logger.Error("Daily flush failed", zap.Error(err))
	}
}

// FlushToday forces a summary flush for the current date. Used by the manual
// trigger; ErrNoData is returned as-is so the caller can report a quiet day.
func (s *IngestionScheduler) FlushToday(ctx context.Context) error {
	return s.flush(ctx, s.aggregator.Today(), false)
}

func (s *IngestionScheduler) flush(ctx context.Context, date string, markEmpty bool) error {
	summary, err := s.aggregator.Snapshot(date)
	if errors.Is(err, ErrNoData) {
		if markEmpty {
			s.logger.Info("No messages recorded, skipping daily summary",
				zap.String("date", date))
			s.markFlushed(date)
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}

	if err := s.dispatch(ctx, RenderSummary(summary)); err != nil {
		return fmt.Errorf("failed to dispatch daily summary: %w", err)
	}

	s.markFlushed(date)
	s.logger.Info("Daily summary dispatched",
		zap.String("date", date),
		zap.Int("total", summary.Total))

	s.aggregator.Purge(ctx, s.retentionDays)
	return nil
}

func (s *IngestionScheduler) pastSummaryTime(now time.Time) bool {
	return now.Hour() > s.summaryHour ||
		(now.Hour() == s.summaryHour && now.Minute() >= s.summaryMinute)
}

func (s *IngestionScheduler) markFlushed(date string) {
	s.mu.Lock()
	s.state.LastFlushDate = date
	s.mu.Unlock()
}

func (s *IngestionScheduler) recordFailure() {
	s.mu.Lock()
	s.state.ConsecutiveFailures++
	s.mu.Unlock()
}

func (s *IngestionScheduler) recordSuccess() {
	s.mu.Lock()
	s.state.ConsecutiveFailures = 0
	s.state.LastPoll = s.clock()
	s.mu.Unlock()
}

// Failures returns the consecutive mailbox failure count for health reporting
func (s *IngestionScheduler) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ConsecutiveFailures
}

// State returns a copy of the scheduler state
func (s *IngestionScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
