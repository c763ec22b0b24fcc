package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/mail-sentinel/internal/core"
	"github.com/mikey/mail-sentinel/internal/utils"
)

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
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

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
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
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ClassifyText assigns one of the candidate labels to an email
func (c *GeminiClient) ClassifyText(ctx context.Context, subject, snippet string, labels []core.Classification) (*core.LabelResult, error) {
	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, string(label))
	}

	processedBody := c.textProcessor.ProcessText(snippet, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, strings.Join(names, ", "), subject, processedBody)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var responseText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText += string(text)
		}
	}

	var parsed labelResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := strings.Index(responseText, "{")
		jsonEnd := strings.LastIndex(responseText, "}")
		if jsonStart < 0 || jsonEnd <= jsonStart {
			return nil, fmt.Errorf("failed to extract JSON from Gemini response")
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse Gemini response as JSON: %w", err)
		}
	}

	return &core.LabelResult{
		Label:      parsed.Label,
		Confidence: parsed.Confidence,
		ModelUsed:  c.modelName,
	}, nil
}
