package core

import "time"

// Classification is the importance label assigned to a message
type Classification string

const (
	ClassUrgent    Classification = "Urgent"
	ClassImportant Classification = "Important"
	ClassOther     Classification = "Other"
)

// NotifyWorthy reports whether the label alone justifies a notification
func (c Classification) NotifyWorthy() bool {
	return c == ClassUrgent || c == ClassImportant
}

// Source identifies which classifier tier produced a label
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// GroupUnassigned is the sender group for addresses not present in any configured group
const GroupUnassigned = "Unassigned"

// MessageRecord is the immutable per-message fact produced by the pipeline.
// It is created once per ingested message and never mutated afterwards.
type MessageRecord struct {
	ID                   string
	Timestamp            time.Time
	Sender               string
	Subject              string
	Snippet              string
	Classification       Classification
	ClassificationSource Source
	SenderGroup          string
	MatchedDomain        string
	MatchedKeyword       string
}

// LabelResult is the structured response from a model-tier classifier
type LabelResult struct {
	Label      string
	Confidence float64
	ModelUsed  string
}

// Signal names one of the independent notification criteria
type Signal string

const (
	SignalDomain         Signal = "domain"
	SignalGroup          Signal = "group"
	SignalClassification Signal = "classification"
	SignalKeyword        Signal = "keyword"
)

// Decision is the outcome of evaluating all notification signals for a message.
// Every signal is computed even when an earlier one already decided the
// outcome, so the matches can be reported for audit.
type Decision struct {
	Notify         bool
	Reason         Signal
	SenderGroup    string
	MatchedDomain  string
	MatchedKeyword string
}

// SenderCount is one entry of a top-senders ranking
type SenderCount struct {
	Sender string
	Count  int
}

// SummaryLine is one per-message detail line of a daily digest
type SummaryLine struct {
	Sender         string
	SenderGroup    string
	Subject        string
	Classification Classification
}

// Summary is a read-only snapshot of one daily bucket
type Summary struct {
	Date             string
	Total            int
	ByClassification map[Classification]int
	ByGroup          map[string]int
	TopSenders       []SenderCount
	BusiestHour      int
	Lines            []SummaryLine
}
