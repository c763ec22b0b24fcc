package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor provides utilities for processing message text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// Snippet collapses whitespace and truncates text to at most maxLen runes.
// Truncation never splits a multi-byte character and adds no marker.
func (tp *TextProcessor) Snippet(text string, maxLen int) string {
	collapsed := CollapseWhitespace(text)
	if maxLen <= 0 {
		return collapsed
	}
	runes := []rune(collapsed)
	if len(runes) <= maxLen {
		return collapsed
	}

	truncated := string(runes[:maxLen])
	tp.logger.Debug("Snippet truncated",
		zap.Int("original_runes", len(runes)),
		zap.Int("max_runes", maxLen))

	return truncated
}

// TruncateText safely truncates text to the specified maximum byte size
// and ensures the result is valid UTF-8. Used for LLM prompt bodies, which
// carry their own explicit truncation marker.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				// Skip invalid UTF-8 sequences
				continue
			}
		}
		result = append(result, r)
	}

	return string(result)
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(text, maxSize))
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
