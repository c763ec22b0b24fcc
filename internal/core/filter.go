package core

import (
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/groups"
)

// DefaultPrecedence orders the notification signals: explicit allow-lists
// (domain, group) outrank the heuristic safety nets (classification, keyword)
var DefaultPrecedence = []Signal{SignalDomain, SignalGroup, SignalClassification, SignalKeyword}

// NotificationFilter combines the classification label with keyword, domain
// and sender-group signals into a single notify/suppress decision. All
// signals are computed for every message; the configured precedence only
// selects which one is reported as the reason.
type NotificationFilter struct {
	domains    map[string]struct{}
	groups     *groups.Directory
	keywords   []string
	precedence []Signal
	logger     *zap.Logger
}

// NewNotificationFilter creates a filter from static configuration
func NewNotificationFilter(
	domains []string,
	directory *groups.Directory,
	keywords []string,
	precedence []string,
	logger *zap.Logger,
) *NotificationFilter {
	domainSet := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			domainSet[domain] = struct{}{}
		}
	}

	return &NotificationFilter{
		domains:    domainSet,
		groups:     directory,
		keywords:   lowerAll(keywords),
		precedence: parsePrecedence(precedence, logger),
		logger:     logger,
	}
}

// parsePrecedence validates a configured signal order, falling back to the
// default when the list is empty or names an unknown signal
func parsePrecedence(names []string, logger *zap.Logger) []Signal {
	if len(names) == 0 {
		return DefaultPrecedence
	}

	known := map[Signal]bool{
		SignalDomain:         true,
		SignalGroup:          true,
		SignalClassification: true,
		SignalKeyword:        true,
	}

	order := make([]Signal, 0, len(names))
	seen := make(map[Signal]bool)
	for _, name := range names {
		signal := Signal(strings.ToLower(strings.TrimSpace(name)))
		if !known[signal] || seen[signal] {
			if logger != nil {
				logger.Warn("Invalid notify precedence, using default",
					zap.Strings("configured", names))
			}
			return DefaultPrecedence
		}
		seen[signal] = true
		order = append(order, signal)
	}

	// Unlisted signals keep their default relative order at the end
	for _, signal := range DefaultPrecedence {
		if !seen[signal] {
			order = append(order, signal)
		}
	}
	return order
}

// Evaluate computes every notification signal for a message and returns the
// combined decision. A message notifies when any signal fires; the reason is
// the first firing signal in precedence order.
func (f *NotificationFilter) Evaluate(sender, subject, snippet string, label Classification) Decision {
	decision := Decision{
		SenderGroup: GroupUnassigned,
	}

	fired := make(map[Signal]bool, 4)

	if domain := senderDomain(sender); domain != "" {
		if _, ok := f.domains[domain]; ok {
			decision.MatchedDomain = domain
			fired[SignalDomain] = true
		}
	}

	if group, ok := f.groups.GroupFor(sender); ok {
		decision.SenderGroup = group
		fired[SignalGroup] = true
	}

	if label.NotifyWorthy() {
		fired[SignalClassification] = true
	}

	if keyword := f.matchKeyword(subject, snippet); keyword != "" {
		decision.MatchedKeyword = keyword
		fired[SignalKeyword] = true
	}

	for _, signal := range f.precedence {
		if fired[signal] {
			decision.Notify = true
			decision.Reason = signal
			break
		}
	}

	return decision
}

// matchKeyword returns the first configured keyword found in the subject or
// snippet, or empty when none matches
func (f *NotificationFilter) matchKeyword(subject, snippet string) string {
	text := strings.ToLower(subject + " " + snippet)
	for _, keyword := range f.keywords {
		if strings.Contains(text, keyword) {
			return keyword
		}
	}
	return ""
}

// senderDomain extracts the lowercase domain of an address
func senderDomain(sender string) string {
	at := strings.LastIndex(sender, "@")
	if at < 0 || at == len(sender)-1 {
		return ""
	}
	return strings.ToLower(sender[at+1:])
}
