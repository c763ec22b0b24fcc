package core

import (
	"fmt"
	"sort"
	"strings"
)

// EscapeHTML escapes user-controlled text for embedding in Telegram HTML markup
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// RenderAlert renders the notification payload for a single message. All
// message-derived fields are escaped before embedding.
func RenderAlert(rec *MessageRecord, decision Decision) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📩 <b>Mail alert - %s</b>\n", EscapeHTML(string(rec.Classification))))

	groupInfo := ""
	if rec.SenderGroup != GroupUnassigned {
		groupInfo = fmt.Sprintf(" (%s)", EscapeHTML(rec.SenderGroup))
	}
	sb.WriteString(fmt.Sprintf("<b>From:</b> <code>%s</code>%s\n", EscapeHTML(rec.Sender), groupInfo))
	sb.WriteString(fmt.Sprintf("<b>Subject:</b> <code>%s</code>\n", EscapeHTML(rec.Subject)))
	sb.WriteString(fmt.Sprintf("<i>reason: %s</i>\n", renderReason(decision)))

	if rec.Snippet != "" {
		sb.WriteString(fmt.Sprintf("\n<code>%s</code>", EscapeHTML(rec.Snippet)))
	}

	return sb.String()
}

func renderReason(decision Decision) string {
	switch decision.Reason {
	case SignalDomain:
		return fmt.Sprintf("domain %s", EscapeHTML(decision.MatchedDomain))
	case SignalGroup:
		return fmt.Sprintf("group %s", EscapeHTML(decision.SenderGroup))
	case SignalKeyword:
		return fmt.Sprintf("keyword %s", EscapeHTML(decision.MatchedKeyword))
	default:
		return string(SignalClassification)
	}
}

// RenderSummary renders the daily digest payload for a summary snapshot
func RenderSummary(summary *Summary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 <b>Daily Summary - %s</b>\n\n", EscapeHTML(summary.Date)))
	sb.WriteString(fmt.Sprintf("📧 <b>Messages processed:</b> %d\n\n", summary.Total))

	sb.WriteString("🏷 <b>By classification:</b>\n")
	for _, label := range CandidateLabels {
		if count := summary.ByClassification[label]; count > 0 {
			sb.WriteString(fmt.Sprintf("  • %s: %d\n", label, count))
		}
	}

	sb.WriteString("\n👥 <b>By sender group:</b>\n")
	for _, group := range sortedKeys(summary.ByGroup) {
		sb.WriteString(fmt.Sprintf("  • %s: %d\n", EscapeHTML(group), summary.ByGroup[group]))
	}

	if len(summary.TopSenders) > 0 {
		sb.WriteString("\n🏆 <b>Top senders:</b>\n")
		for _, sc := range summary.TopSenders {
			sb.WriteString(fmt.Sprintf("  • %s: %d\n", EscapeHTML(sc.Sender), sc.Count))
		}
	}

	sb.WriteString(fmt.Sprintf("\n🕐 <b>Busiest hour:</b> %02d:00\n", summary.BusiestHour))

	if len(summary.Lines) > 0 {
		sb.WriteString(fmt.Sprintf("\n📋 <b>Messages (%d):</b>\n", len(summary.Lines)))
		for i, line := range summary.Lines {
			sb.WriteString(fmt.Sprintf("%d. <b>%s</b> (%s)\n", i+1, EscapeHTML(line.Sender), EscapeHTML(line.SenderGroup)))
			sb.WriteString(fmt.Sprintf("   %s — %s\n", EscapeHTML(line.Subject), line.Classification))
		}
	}

	return sb.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
