package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EngineState is the model tier lifecycle state of a ClassificationEngine
type EngineState int

const (
	// StateUninitialized means the model tier has not been loaded yet
	StateUninitialized EngineState = iota
	// StateReady means the model tier is loaded and serving
	StateReady
	// StateUnavailable means the model tier failed and the engine is
	// fallback-only for the remainder of the process lifetime
	StateUnavailable
)

// String returns a human-readable state name
func (s EngineState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "uninitialized"
	}
}

// CandidateLabels is the fixed label set offered to the model tier
var CandidateLabels = []Classification{ClassUrgent, ClassImportant, ClassOther}

// ClassifierLoader constructs the model tier client on first use. A nil
// loader disables the model tier entirely.
type ClassifierLoader func() (LLMClient, error)

// ClassificationEngine is the tiered classifier: a lazily-initialized
// model-backed tier with a deterministic keyword tier underneath. The model
// is not loaded until the first classification request, so startup never
// blocks on model availability; any model failure downgrades the engine to
// the fallback tier permanently (no retry storms).
type ClassificationEngine struct {
	mu        sync.Mutex
	state     EngineState
	client    LLMClient
	load      ClassifierLoader
	fallback  *FallbackClassifier
	threshold float64
	timeout   time.Duration
	logger    *zap.Logger
}

// NewClassificationEngine creates a new tiered classification engine
func NewClassificationEngine(
	load ClassifierLoader,
	fallback *FallbackClassifier,
	threshold float64,
	timeout time.Duration,
	logger *zap.Logger,
) *ClassificationEngine {
	return &ClassificationEngine{
		state:     StateUninitialized,
		load:      load,
		fallback:  fallback,
		threshold: threshold,
		timeout:   timeout,
		logger:    logger,
	}
}

// State returns the current model tier state
func (e *ClassificationEngine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Classify assigns an importance label to a message. Exactly one of
// SourceModel or SourceFallback is reported for every call.
func (e *ClassificationEngine) Classify(ctx context.Context, subject, snippet string) (Classification, Source) {
	client := e.acquireClient()
	if client == nil {
		return e.fallback.Classify(subject, snippet), SourceFallback
	}

	classifyCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		classifyCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result, err := client.ClassifyText(classifyCtx, subject, snippet, CandidateLabels)
	if err != nil {
		e.markUnavailable("Model inference failed, downgrading to fallback tier", err)
		return e.fallback.Classify(subject, snippet), SourceFallback
	}

	label := parseLabel(result.Label)
	if result.Confidence < e.threshold {
		e.logger.Debug("Model confidence below threshold",
			zap.String("label", string(label)),
			zap.Float64("confidence", result.Confidence),
			zap.Float64("threshold", e.threshold))
		label = ClassOther
	}

	e.logger.Debug("Model classification",
		zap.String("label", string(label)),
		zap.Float64("confidence", result.Confidence),
		zap.String("model", result.ModelUsed))

	return label, SourceModel
}

// acquireClient returns the model client, lazily loading it on first use.
// Returns nil when the engine is fallback-only.
func (e *ClassificationEngine) acquireClient() LLMClient {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateReady:
		return e.client
	case StateUnavailable:
		return nil
	}

	if e.load == nil {
		e.logger.Info("Model tier disabled by configuration, using fallback classification")
		e.state = StateUnavailable
		return nil
	}

	client, err := e.load()
	if err != nil {
		// Warn once; subsequent calls short-circuit on state
		e.logger.Warn("Failed to load classification model, using fallback tier for this process",
			zap.Error(err))
		e.state = StateUnavailable
		return nil
	}

	e.logger.Info("Classification model initialized")
	e.state = StateReady
	e.client = client
	return e.client
}

func (e *ClassificationEngine) markUnavailable(msg string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateUnavailable {
		return
	}
	e.state = StateUnavailable
	e.client = nil
	e.logger.Warn(msg, zap.Error(err))
}

// parseLabel maps a model response label onto the candidate set; anything
// unrecognized is Other
func parseLabel(label string) Classification {
	for _, candidate := range CandidateLabels {
		if strings.EqualFold(strings.TrimSpace(label), string(candidate)) {
			return candidate
		}
	}
	return ClassOther
}

// FallbackClassifier is the deterministic keyword tier. Matching is a
// case-insensitive substring scan over subject+snippet; the first category
// with a match wins, in fixed priority order Urgent > Important > Other.
type FallbackClassifier struct {
	urgentKeywords    []string
	importantKeywords []string
}

// NewFallbackClassifier creates a keyword classifier from per-category lists
func NewFallbackClassifier(urgentKeywords, importantKeywords []string) *FallbackClassifier {
	return &FallbackClassifier{
		urgentKeywords:    lowerAll(urgentKeywords),
		importantKeywords: lowerAll(importantKeywords),
	}
}

// Classify assigns a label from keyword matches alone
func (f *FallbackClassifier) Classify(subject, snippet string) Classification {
	text := strings.ToLower(subject + " " + snippet)

	for _, keyword := range f.urgentKeywords {
		if strings.Contains(text, keyword) {
			return ClassUrgent
		}
	}
	for _, keyword := range f.importantKeywords {
		if strings.Contains(text, keyword) {
			return ClassImportant
		}
	}
	return ClassOther
}

func lowerAll(values []string) []string {
	lowered := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			lowered = append(lowered, v)
		}
	}
	return lowered
}
