package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DateLayout is the calendar date key format of daily buckets
const DateLayout = "2006-01-02"

// ErrNoData is returned by Snapshot for a date with no recorded messages.
// A quiet day and an unknown date are distinguishable from a zero summary.
var ErrNoData = errors.New("no data recorded for date")

// dailyBucket holds the per-date state: the ordered records plus counts
// maintained incrementally so a snapshot never rescans the day
type dailyBucket struct {
	date             string
	records          []MessageRecord
	byClassification map[Classification]int
	byGroup          map[string]int
	bySender         map[string]int
	byHour           [24]int
	seen             map[string]struct{}
}

func newDailyBucket(date string) *dailyBucket {
	return &dailyBucket{
		date:             date,
		byClassification: make(map[Classification]int),
		byGroup:          make(map[string]int),
		bySender:         make(map[string]int),
		seen:             make(map[string]struct{}),
	}
}

// DailyAggregator records every processed message into its calendar-date
// bucket and produces summary snapshots. Buckets are created lazily on the
// first message of a new day and retained until purged. When a history
// repository is configured, records are written through for cross-restart
// de-duplication and operator queries.
type DailyAggregator struct {
	mu      sync.Mutex
	buckets map[string]*dailyBucket
	history HistoryRepository
	loc     *time.Location
	topN    int
	logger  *zap.Logger
}

// NewDailyAggregator creates a new aggregator. history may be nil.
func NewDailyAggregator(history HistoryRepository, loc *time.Location, topN int, logger *zap.Logger) *DailyAggregator {
	if loc == nil {
		loc = time.Local
	}
	if topN <= 0 {
		topN = 5
	}
	return &DailyAggregator{
		buckets: make(map[string]*dailyBucket),
		history: history,
		loc:     loc,
		topN:    topN,
		logger:  logger,
	}
}

// Record appends a message to its day's bucket and updates the running
// counts. A record whose ID was already seen that day is ignored.
func (a *DailyAggregator) Record(ctx context.Context, rec *MessageRecord) error {
	local := rec.Timestamp.In(a.loc)
	date := local.Format(DateLayout)

	a.mu.Lock()
	bucket, ok := a.buckets[date]
	if !ok {
		bucket = newDailyBucket(date)
		a.buckets[date] = bucket
	}

	if rec.ID != "" {
		if _, dup := bucket.seen[rec.ID]; dup {
			a.mu.Unlock()
			a.logger.Debug("Skipping duplicate record", zap.String("id", rec.ID))
			return nil
		}
		bucket.seen[rec.ID] = struct{}{}
	}

	bucket.records = append(bucket.records, *rec)
	bucket.byClassification[rec.Classification]++
	bucket.byGroup[rec.SenderGroup]++
	bucket.bySender[rec.Sender]++
	bucket.byHour[local.Hour()]++
	a.mu.Unlock()

	if a.history != nil {
		if err := a.history.Record(ctx, rec); err != nil {
			a.logger.Error("Failed to persist record to history",
				zap.String("id", rec.ID),
				zap.Error(err))
		}
	}

	return nil
}

// Snapshot computes a read-only summary of the bucket for a date from its
// accumulated state. Returns ErrNoData when no messages were recorded.
func (a *DailyAggregator) Snapshot(date string) (*Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	bucket, ok := a.buckets[date]
	if !ok || len(bucket.records) == 0 {
		return nil, ErrNoData
	}

	summary := &Summary{
		Date:             date,
		Total:            len(bucket.records),
		ByClassification: make(map[Classification]int, len(bucket.byClassification)),
		ByGroup:          make(map[string]int, len(bucket.byGroup)),
		TopSenders:       topSenders(bucket.bySender, a.topN),
		BusiestHour:      busiestHour(bucket.byHour),
		Lines:            make([]SummaryLine, 0, len(bucket.records)),
	}
	for label, count := range bucket.byClassification {
		summary.ByClassification[label] = count
	}
	for group, count := range bucket.byGroup {
		summary.ByGroup[group] = count
	}
	for _, rec := range bucket.records {
		summary.Lines = append(summary.Lines, SummaryLine{
			Sender:         rec.Sender,
			SenderGroup:    rec.SenderGroup,
			Subject:        rec.Subject,
			Classification: rec.Classification,
		})
	}

	return summary, nil
}

// Purge removes buckets strictly older than the retention window and the
// matching history rows. Idempotent; returns the number of buckets removed.
func (a *DailyAggregator) Purge(ctx context.Context, olderThanDays int) int {
	cutoff := time.Now().In(a.loc).AddDate(0, 0, -olderThanDays).Format(DateLayout)

	a.mu.Lock()
	removed := 0
	for date := range a.buckets {
		if date < cutoff {
			delete(a.buckets, date)
			removed++
		}
	}
	a.mu.Unlock()

	if a.history != nil {
		rows, err := a.history.Purge(ctx, cutoff)
		if err != nil {
			a.logger.Error("Failed to purge history", zap.Error(err))
		} else if rows > 0 {
			a.logger.Info("Purged history rows",
				zap.Int64("rows", rows),
				zap.String("cutoff", cutoff))
		}
	}

	if removed > 0 {
		a.logger.Info("Purged daily buckets",
			zap.Int("buckets", removed),
			zap.String("cutoff", cutoff))
	}
	return removed
}

// Today returns the aggregator's current calendar date key
func (a *DailyAggregator) Today() string {
	return time.Now().In(a.loc).Format(DateLayout)
}

func topSenders(bySender map[string]int, n int) []SenderCount {
	ranked := make([]SenderCount, 0, len(bySender))
	for sender, count := range bySender {
		ranked = append(ranked, SenderCount{Sender: sender, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Sender < ranked[j].Sender
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func busiestHour(byHour [24]int) int {
	best := 0
	for hour, count := range byHour {
		if count > byHour[best] {
			best = hour
		}
	}
	return best
}
