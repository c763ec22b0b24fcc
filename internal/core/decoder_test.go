package core

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/parser"
	"github.com/mikey/mail-sentinel/internal/utils"
)

func testDecoder(t *testing.T, snippetMax int) *MessageDecoder {
	t.Helper()
	logger := zap.NewNop()
	return NewMessageDecoder(utils.NewTextProcessor(logger), parser.NewHTMLParser(), snippetMax, logger)
}

func TestDecodePlainText(t *testing.T) {
	decoder := testDecoder(t, 200)
	received := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	raw := []byte("From: Boss <Boss@Work.com>\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Reunion de equipo\r\n" +
		"Date: Fri, 15 Mar 2024 09:30:00 +0000\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Nos vemos a las 10.\r\n")

	rec := decoder.Decode("42", raw, received)
	if rec.ID != "42" {
		t.Fatalf("ID = %q, want 42", rec.ID)
	}
	if rec.Sender != "boss@work.com" {
		t.Fatalf("Sender = %q, want boss@work.com", rec.Sender)
	}
	if rec.Subject != "Reunion de equipo" {
		t.Fatalf("Subject = %q", rec.Subject)
	}
	if rec.Snippet != "Nos vemos a las 10." {
		t.Fatalf("Snippet = %q", rec.Snippet)
	}
	if rec.Timestamp.Hour() != 9 || rec.Timestamp.Minute() != 30 {
		t.Fatalf("Timestamp = %v, want Date header time", rec.Timestamp)
	}
}

func TestDecodeEncodedSubject(t *testing.T) {
	decoder := testDecoder(t, 200)

	raw := []byte("From: a@b.com\r\n" +
		"Subject: =?utf-8?q?Factura_urgente_=E2=82=AC?=\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"body\r\n")

	rec := decoder.Decode("1", raw, time.Now())
	if rec.Subject != "Factura urgente €" {
		t.Fatalf("Subject = %q, want decoded encoded-word", rec.Subject)
	}
}

func TestDecodeMultipartPrefersPlainText(t *testing.T) {
	decoder := testDecoder(t, 200)

	raw := []byte("From: a@b.com\r\n" +
		"Subject: multipart\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=frontier\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>rich version</p></body></html>\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--frontier--\r\n")

	rec := decoder.Decode("1", raw, time.Now())
	if rec.Snippet != "plain version" {
		t.Fatalf("Snippet = %q, want the text/plain part", rec.Snippet)
	}
}

func TestDecodeHTMLOnlyBody(t *testing.T) {
	decoder := testDecoder(t, 200)

	raw := []byte("From: a@b.com\r\n" +
		"Subject: html\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><head><style>p{color:red}</style></head>" +
		"<body><p>Aviso de <b>pago</b> pendiente</p><script>alert(1)</script></body></html>\r\n")

	rec := decoder.Decode("1", raw, time.Now())
	if !strings.Contains(rec.Snippet, "Aviso de pago pendiente") {
		t.Fatalf("Snippet = %q, want extracted text", rec.Snippet)
	}
	if strings.Contains(rec.Snippet, "alert(1)") || strings.Contains(rec.Snippet, "color:red") {
		t.Fatalf("Snippet leaked markup internals: %q", rec.Snippet)
	}
}

func TestDecodeMalformedYieldsPlaceholder(t *testing.T) {
	decoder := testDecoder(t, 200)
	received := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	rec := decoder.Decode("13", []byte("\x00\x01 not a message"), received)
	if rec.ID != "13" {
		t.Fatalf("ID = %q, want 13", rec.ID)
	}
	if !rec.Timestamp.Equal(received) {
		t.Fatalf("Timestamp = %v, want received time", rec.Timestamp)
	}
	if rec.Sender != "" || rec.Subject != "" {
		t.Fatalf("placeholder record has parsed fields: %+v", rec)
	}
}

func TestDecodeMissingDateUsesReceived(t *testing.T) {
	decoder := testDecoder(t, 200)
	received := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	raw := []byte("From: a@b.com\r\n" +
		"Subject: no date header\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"body\r\n")

	rec := decoder.Decode("1", raw, received)
	if !rec.Timestamp.Equal(received) {
		t.Fatalf("Timestamp = %v, want received time %v", rec.Timestamp, received)
	}
}

func TestDecodeSnippetTruncationIsRuneSafe(t *testing.T) {
	decoder := testDecoder(t, 10)

	body := strings.Repeat("ñ", 50)
	raw := []byte("From: a@b.com\r\n" +
		"Subject: long\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body + "\r\n")

	rec := decoder.Decode("1", raw, time.Now())
	if !utf8.ValidString(rec.Snippet) {
		t.Fatalf("truncation split a multi-byte character: %q", rec.Snippet)
	}
	if got := utf8.RuneCountInString(rec.Snippet); got != 10 {
		t.Fatalf("snippet length = %d runes, want 10", got)
	}
}
