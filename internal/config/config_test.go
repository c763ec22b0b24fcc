package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	if got := cfg.GetString("mailbox.folder"); got != "INBOX" {
		t.Fatalf("mailbox.folder = %q, want INBOX", got)
	}
	if got := cfg.GetString("scheduler.summary_time"); got != "21:00" {
		t.Fatalf("scheduler.summary_time = %q, want 21:00", got)
	}
	if got := cfg.GetInt("scheduler.retention_days"); got != 30 {
		t.Fatalf("scheduler.retention_days = %d, want 30", got)
	}
	if got := cfg.GetFloat64("llm.threshold"); got != 0.5 {
		t.Fatalf("llm.threshold = %v, want 0.5", got)
	}
	if got := cfg.GetString("history.type"); got != "memory" {
		t.Fatalf("history.type = %q, want memory", got)
	}
	if len(cfg.GetStringSlice("classify.urgent_keywords")) == 0 {
		t.Fatal("classify.urgent_keywords default is empty")
	}
	if len(cfg.GetStringSlice("notify.precedence")) != 4 {
		t.Fatalf("notify.precedence = %v, want 4 signals", cfg.GetStringSlice("notify.precedence"))
	}
}

func TestValidate(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for empty required settings")
	}
	if !strings.Contains(err.Error(), "mailbox.server") {
		t.Fatalf("error should name the missing key: %v", err)
	}

	v := cfg.GetViper()
	v.Set("mailbox.server", "imap.example.com:993")
	v.Set("mailbox.username", "me@example.com")
	v.Set("mailbox.password", "secret")
	v.Set("telegram.token", "123:abc")
	v.Set("telegram.chat_id", "42")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with all required settings: %v", err)
	}
}

func TestTypedGetters(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	sched := cfg.GetScheduler()
	if sched.PollInterval != 2*time.Minute {
		t.Fatalf("PollInterval = %v, want 2m", sched.PollInterval)
	}
	if sched.TopSenders != 5 {
		t.Fatalf("TopSenders = %d, want 5", sched.TopSenders)
	}

	llm := cfg.GetLLM()
	if llm.Provider != "openai" || llm.Timeout != 30*time.Second {
		t.Fatalf("LLM config = %+v", llm)
	}

	mailbox := cfg.GetMailbox()
	if mailbox.DialTimeout != 30*time.Second {
		t.Fatalf("DialTimeout = %v, want 30s", mailbox.DialTimeout)
	}
}
