package core

import (
	"strings"
	"testing"
)

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"a & b", "a &amp; b"},
		{"&lt;", "&amp;lt;"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := EscapeHTML(tt.in); got != tt.want {
			t.Errorf("EscapeHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderAlertEscapesMessageFields(t *testing.T) {
	rec := &MessageRecord{
		Sender:         "evil@bad.com",
		Subject:        "<b>fake markup</b> & more",
		Snippet:        "click <a href=x>here</a>",
		Classification: ClassUrgent,
		SenderGroup:    GroupUnassigned,
	}
	decision := Decision{Notify: true, Reason: SignalClassification, SenderGroup: GroupUnassigned}

	out := RenderAlert(rec, decision)
	if strings.Contains(out, "<b>fake markup</b>") {
		t.Fatalf("subject markup not escaped: %q", out)
	}
	if !strings.Contains(out, "&lt;b&gt;fake markup&lt;/b&gt; &amp; more") {
		t.Fatalf("escaped subject missing: %q", out)
	}
	if !strings.Contains(out, "evil@bad.com") {
		t.Fatalf("sender missing: %q", out)
	}
	if !strings.Contains(out, "Mail alert - Urgent") {
		t.Fatalf("header missing: %q", out)
	}
}

func TestRenderAlertReason(t *testing.T) {
	rec := &MessageRecord{Sender: "a@b.com", Subject: "s", Classification: ClassOther, SenderGroup: "Family"}

	tests := []struct {
		name     string
		decision Decision
		want     string
	}{
		{"domain", Decision{Reason: SignalDomain, MatchedDomain: "sepe.es", SenderGroup: GroupUnassigned}, "reason: domain sepe.es"},
		{"group", Decision{Reason: SignalGroup, SenderGroup: "Family"}, "reason: group Family"},
		{"keyword", Decision{Reason: SignalKeyword, MatchedKeyword: "factura", SenderGroup: GroupUnassigned}, "reason: keyword factura"},
		{"classification", Decision{Reason: SignalClassification, SenderGroup: GroupUnassigned}, "reason: classification"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderAlert(rec, tt.decision)
			if !strings.Contains(out, tt.want) {
				t.Fatalf("output %q missing %q", out, tt.want)
			}
		})
	}
}

func TestRenderAlertGroupShownNextToSender(t *testing.T) {
	rec := &MessageRecord{Sender: "mom@example.com", Subject: "hola", Classification: ClassOther, SenderGroup: "Family"}
	out := RenderAlert(rec, Decision{Reason: SignalGroup, SenderGroup: "Family"})
	if !strings.Contains(out, "(Family)") {
		t.Fatalf("group annotation missing: %q", out)
	}

	rec.SenderGroup = GroupUnassigned
	out = RenderAlert(rec, Decision{Reason: SignalClassification, SenderGroup: GroupUnassigned})
	if strings.Contains(out, "(Unassigned)") {
		t.Fatalf("unassigned group should not be annotated: %q", out)
	}
}

func TestRenderSummary(t *testing.T) {
	summary := &Summary{
		Date:  "2024-03-15",
		Total: 4,
		ByClassification: map[Classification]int{
			ClassUrgent: 1,
			ClassOther:  3,
		},
		ByGroup: map[string]int{
			"Work":          3,
			GroupUnassigned: 1,
		},
		TopSenders: []SenderCount{
			{Sender: "boss@work.com", Count: 3},
		},
		BusiestHour: 14,
		Lines: []SummaryLine{
			{Sender: "boss@work.com", SenderGroup: "Work", Subject: "status", Classification: ClassUrgent},
		},
	}

	out := RenderSummary(summary)
	for _, want := range []string{
		"Daily Summary - 2024-03-15",
		"Messages processed:</b> 4",
		"Urgent: 1",
		"Other: 3",
		"Work: 3",
		"boss@work.com: 3",
		"14:00",
		"1. <b>boss@work.com</b> (Work)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}

	// Zero-count classifications are omitted
	if strings.Contains(out, "Important:") {
		t.Fatalf("zero-count classification rendered:\n%s", out)
	}
}
