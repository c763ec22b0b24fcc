package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/core"
	"github.com/mikey/mail-sentinel/internal/utils"
)

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// labelResponse represents the structured response from the LLM
type labelResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	client := openai.NewClient(apiKey)

	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are an email triage system. Classify the following email into exactly one of these categories: %s.
Respond with a JSON object containing:
- label: string (one of the categories, verbatim)
- confidence: number between 0 and 1 (how confident you are in the label)

Email:
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`,
	}
}

// ClassifyText assigns one of the candidate labels to an email
func (c *OpenAIClient) ClassifyText(ctx context.Context, subject, snippet string, labels []core.Classification) (*core.LabelResult, error) {
	processedBody := c.textProcessor.ProcessText(snippet, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, joinLabels(labels), subject, processedBody)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email triage system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: "json",
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	parsed, err := parseLabelResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return &core.LabelResult{
		Label:      parsed.Label,
		Confidence: parsed.Confidence,
		ModelUsed:  c.modelName,
	}, nil
}

// joinLabels renders the candidate label set for the prompt
func joinLabels(labels []core.Classification) string {
	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, string(label))
	}
	return strings.Join(names, ", ")
}

// parseLabelResponse parses the LLM's JSON response, tolerating surrounding
// prose by extracting the outermost JSON object
func parseLabelResponse(responseText string) (*labelResponse, error) {
	var parsed labelResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err == nil {
		return &parsed, nil
	}

	jsonStart := strings.Index(responseText, "{")
	jsonEnd := strings.LastIndex(responseText, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("failed to extract JSON from LLM response")
	}

	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return &parsed, nil
}
