package core

import (
	"bytes"
	"io"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/parser"
	"github.com/mikey/mail-sentinel/internal/utils"
)

// MessageDecoder normalizes raw fetched messages into canonical records:
// decoded headers regardless of source encoding, and a bounded plain-text
// snippet from the first text-bearing body part. A message that cannot be
// decoded yields a placeholder record rather than an error, so one malformed
// message never blocks the rest of a batch.
type MessageDecoder struct {
	textProcessor *utils.TextProcessor
	htmlParser    *parser.HTMLParser
	snippetMax    int
	logger        *zap.Logger
}

// NewMessageDecoder creates a new message decoder
func NewMessageDecoder(
	textProcessor *utils.TextProcessor,
	htmlParser *parser.HTMLParser,
	snippetMax int,
	logger *zap.Logger,
) *MessageDecoder {
	return &MessageDecoder{
		textProcessor: textProcessor,
		htmlParser:    htmlParser,
		snippetMax:    snippetMax,
		logger:        logger,
	}
}

// Decode parses a raw RFC822 message into a partially-populated record
// (sender, subject, snippet, timestamp). Classification fields are filled in
// later by the pipeline. The received time is used when the message carries
// no parseable Date header.
func (d *MessageDecoder) Decode(id string, raw []byte, received time.Time) *MessageRecord {
	rec := &MessageRecord{
		ID:        id,
		Timestamp: received,
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		d.logger.Warn("Failed to parse message, using placeholder record",
			zap.String("id", id),
			zap.Error(err))
		return rec
	}

	if subject, err := mr.Header.Subject(); err == nil {
		rec.Subject = utils.CollapseWhitespace(subject)
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		rec.Sender = strings.ToLower(from[0].Address)
	}
	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		rec.Timestamp = date
	}

	rec.Snippet = d.extractSnippet(mr, id)
	return rec
}

// extractSnippet walks the body parts and returns a bounded snippet from the
// first text part, preferring text/plain over text/html.
func (d *MessageDecoder) extractSnippet(mr *mail.Reader, id string) string {
	var plainText, htmlText string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			d.logger.Warn("Failed to read message part",
				zap.String("id", id),
				zap.Error(err))
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			// Attachments are not text-bearing for snippet purposes
			continue
		}

		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && plainText == "":
			plainText = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlText == "":
			htmlText = string(body)
		}

		if plainText != "" {
			break
		}
	}

	text := plainText
	if text == "" && htmlText != "" {
		parsed, err := d.htmlParser.Parse(htmlText)
		if err != nil {
			d.logger.Warn("Failed to parse HTML body",
				zap.String("id", id),
				zap.Error(err))
		} else {
			text = parsed
		}
	}

	return d.textProcessor.Snippet(d.textProcessor.SanitizeUTF8(text), d.snippetMax)
}
