package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/groups"
	"github.com/mikey/mail-sentinel/internal/parser"
	"github.com/mikey/mail-sentinel/internal/utils"
)

type fakeMailbox struct {
	messages map[uint32][]byte
	seen     map[uint32]bool
	openErr  error
	listErr  error
	opens    int
	closes   int
}

func (f *fakeMailbox) Open(ctx context.Context) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opens++
	return nil
}

func (f *fakeMailbox) ListUnseen(ctx context.Context) ([]uint32, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	uids := make([]uint32, 0, len(f.messages))
	for uid := range f.messages {
		if !f.seen[uid] {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

func (f *fakeMailbox) Fetch(ctx context.Context, uid uint32) ([]byte, error) {
	raw, ok := f.messages[uid]
	if !ok {
		return nil, fmt.Errorf("no such message: %d", uid)
	}
	return raw, nil
}

func (f *fakeMailbox) MarkSeen(ctx context.Context, uid uint32) error {
	if f.seen == nil {
		f.seen = make(map[uint32]bool)
	}
	f.seen[uid] = true
	return nil
}

func (f *fakeMailbox) Close() error {
	f.closes++
	return nil
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func rawMessage(from, subject, body string) []byte {
	msg := "From: " + from + "\r\n" +
		"To: me@example.com\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body + "\r\n"
	return []byte(msg)
}

// testScheduler wires a scheduler over fakes with a frozen clock. The engine
// is fallback-only so classification is deterministic.
func testScheduler(t *testing.T, mb *fakeMailbox, notifier *fakeNotifier, summaryTime string, now time.Time) *IngestionScheduler {
	t.Helper()
	logger := zap.NewNop()

	decoder := NewMessageDecoder(utils.NewTextProcessor(logger), parser.NewHTMLParser(), 200, logger)
	engine := NewClassificationEngine(nil, testFallback(), 0.5, 0, logger)
	directory := groups.NewDirectory(nil, logger)
	filter := NewNotificationFilter(nil, directory, []string{"urgente"}, nil, logger)
	aggregator := NewDailyAggregator(nil, time.UTC, 5, logger)

	scheduler, err := NewIngestionScheduler(mb, decoder, engine, filter, aggregator, notifier, SchedulerOptions{
		SummaryTime:         summaryTime,
		MinDispatchInterval: time.Millisecond,
	}, logger)
	if err != nil {
		t.Fatalf("NewIngestionScheduler: %v", err)
	}
	scheduler.clock = func() time.Time { return now }
	return scheduler
}

func TestPollOnceNotifiesAndMarksSeen(t *testing.T) {
	mb := &fakeMailbox{messages: map[uint32][]byte{
		1: rawMessage("boss@work.com", "Asunto urgente", "necesito la respuesta hoy"),
	}}
	notifier := &fakeNotifier{}
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	scheduler := testScheduler(t, mb, notifier, "21:00", now)

	if err := scheduler.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(notifier.sent))
	}
	if !strings.Contains(notifier.sent[0], "boss@work.com") {
		t.Fatalf("alert missing sender: %q", notifier.sent[0])
	}
	if !mb.seen[1] {
		t.Fatal("notified message was not marked seen")
	}
	if mb.opens != 1 || mb.closes != 1 {
		t.Fatalf("opens=%d closes=%d, want 1/1", mb.opens, mb.closes)
	}
}

func TestPollOnceSuppressedStillMarkedSeen(t *testing.T) {
	mb := &fakeMailbox{messages: map[uint32][]byte{
		7: rawMessage("news@shop.com", "Ofertas de la semana", "descuentos en todo"),
	}}
	notifier := &fakeNotifier{}
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	scheduler := testScheduler(t, mb, notifier, "21:00", now)

	if err := scheduler.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("sent %d notifications for suppressed message, want 0", len(notifier.sent))
	}
	if !mb.seen[7] {
		t.Fatal("suppressed message should still be marked seen")
	}
}

func TestDispatchFailureLeavesMessageUnseen(t *testing.T) {
	mb := &fakeMailbox{messages: map[uint32][]byte{
		1: rawMessage("boss@work.com", "Asunto urgente", "respuesta hoy"),
		2: rawMessage("news@shop.com", "Ofertas", "descuentos"),
	}}
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	scheduler := testScheduler(t, mb, notifier, "21:00", now)

	if err := scheduler.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}

	if mb.seen[1] {
		t.Fatal("message with failed dispatch must stay unseen for retry")
	}
	// The dispatch failure must not block the rest of the batch
	if !mb.seen[2] {
		t.Fatal("unrelated message should have been processed and marked seen")
	}

	// Both messages were still counted for the day
	summary, err := scheduler.aggregator.Snapshot("2024-03-15")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("Total = %d, want 2", summary.Total)
	}
}

func TestPollFailureCounter(t *testing.T) {
	mb := &fakeMailbox{openErr: errors.New("connection refused")}
	notifier := &fakeNotifier{}
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	scheduler := testScheduler(t, mb, notifier, "21:00", now)
	ctx := context.Background()

	if err := scheduler.PollOnce(ctx); err == nil {
		t.Fatal("expected error from failed open")
	}
	if err := scheduler.PollOnce(ctx); err == nil {
		t.Fatal("expected error from failed open")
	}
	if got := scheduler.Failures(); got != 2 {
		t.Fatalf("Failures = %d, want 2", got)
	}

	mb.openErr = nil
	if err := scheduler.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce after recovery: %v", err)
	}
	if got := scheduler.Failures(); got != 0 {
		t.Fatalf("Failures = %d after success, want 0", got)
	}
	if scheduler.State().LastPoll != now {
		t.Fatalf("LastPoll = %v, want %v", scheduler.State().LastPoll, now)
	}
}

func TestCheckFlushAtMostOncePerDate(t *testing.T) {
	mb := &fakeMailbox{messages: map[uint32][]byte{
		1: rawMessage("news@shop.com", "Ofertas", "descuentos"),
	}}
	notifier := &fakeNotifier{}
	now := time.Date(2024, 3, 15, 21, 30, 0, 0, time.UTC)
	scheduler := testScheduler(t, mb, notifier, "21:00", now)
	ctx := context.Background()

	if err := scheduler.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}

	scheduler.checkFlush(ctx, now)
	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d messages after first flush, want 1 summary", len(notifier.sent))
	}
	if !strings.Contains(notifier.sent[0], "Daily Summary - 2024-03-15") {
		t.Fatalf("unexpected summary payload: %q", notifier.sent[0])
	}

	// Repeat checks on the same date must not flush again
	scheduler.checkFlush(ctx, now.Add(time.Minute))
	scheduler.checkFlush(ctx, now.Add(2*time.Hour))
	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d messages after repeated checks, want 1", len(notifier.sent))
	}
	if scheduler.State().LastFlushDate != "2024-03-15" {
		t.Fatalf("LastFlushDate = %q, want 2024-03-15", scheduler.State().LastFlushDate)
	}
}

func TestCheckFlushBeforeSummaryTime(t *testing.T) {
	notifier := &fakeNotifier{}
	now := time.Date(2024, 3, 15, 20, 59, 0, 0, time.UTC)
	scheduler := testScheduler(t, &fakeMailbox{}, notifier, "21:00", now)

	scheduler.checkFlush(context.Background(), now)
	if len(notifier.sent) != 0 {
		t.Fatalf("flushed before summary time: %d messages sent", len(notifier.sent))
	}
	if scheduler.State().LastFlushDate != "" {
		t.Fatalf("LastFlushDate = %q, want empty", scheduler.State().LastFlushDate)
	}
}

func TestCheckFlushEmptyDayMarksDate(t *testing.T) {
	notifier := &fakeNotifier{}
	now := time.Date(2024, 3, 15, 21, 30, 0, 0, time.UTC)
	scheduler := testScheduler(t, &fakeMailbox{}, notifier, "21:00", now)

	scheduler.checkFlush(context.Background(), now)
	if len(notifier.sent) != 0 {
		t.Fatalf("sent %d messages on an empty day, want 0", len(notifier.sent))
	}
	// The date is still marked so the empty day is not re-checked all evening
	if scheduler.State().LastFlushDate != "2024-03-15" {
		t.Fatalf("LastFlushDate = %q, want 2024-03-15", scheduler.State().LastFlushDate)
	}
}

func TestFlushTodayReportsNoData(t *testing.T) {
	notifier := &fakeNotifier{}
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	scheduler := testScheduler(t, &fakeMailbox{}, notifier, "21:00", now)

	if err := scheduler.FlushToday(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData from manual flush, got %v", err)
	}
	// A manual no-data flush must not mark the date; the scheduled evening
	// flush still owns it
	if scheduler.State().LastFlushDate != "" {
		t.Fatalf("LastFlushDate = %q, want empty", scheduler.State().LastFlushDate)
	}
}

func TestParseSummaryTime(t *testing.T) {
	if _, err := NewIngestionScheduler(&fakeMailbox{}, nil, nil, nil, nil, &fakeNotifier{}, SchedulerOptions{
		SummaryTime: "25:99",
	}, zap.NewNop()); err == nil {
		t.Fatal("expected error for invalid summary time")
	}

	hour, minute, err := parseSummaryTime("21:00")
	if err != nil {
		t.Fatalf("parseSummaryTime: %v", err)
	}
	if hour != 21 || minute != 0 {
		t.Fatalf("parsed %02d:%02d, want 21:00", hour, minute)
	}
}
