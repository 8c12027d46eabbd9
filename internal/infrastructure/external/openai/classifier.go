package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openteams/taskflow/internal/application/port"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Classifier implements port.TaskClassifier using OpenAI chat
// completions. The model is asked for a strict JSON object; anything
// that does not parse into the response schema is an error so callers
// can fall back to the general category.
type Classifier struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewClassifier creates a new OpenAI classifier
func NewClassifier(apiKey, model string, temperature float32, logger *zap.Logger) *Classifier {
	return &Classifier{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// classifierResponse is the raw wire schema before validation.
type classifierResponse struct {
	TaskType string `json:"task_type"`
	Subtasks []struct {
		Title     string `json:"title"`
		PhaseHint string `json:"phase_hint"`
	} `json:"subtasks"`
}

// Classify guesses a task category and suggested subtasks from the
// task's title and description.
func (c *Classifier) Classify(ctx context.Context, title, description string) (*port.ClassificationResult, error) {
	c.logger.Debug("Classifying task", zap.String("title", title))

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(title, description),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content

	var raw classifierResponse
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		// Some models wrap the object in markdown fences despite the
		// response format hint.
		if jsonStr := extractJSON(content); jsonStr != "" {
			err = json.Unmarshal([]byte(jsonStr), &raw)
		}
		if err != nil {
			c.logger.Error("Failed to parse classifier response",
				zap.Error(err),
				zap.String("content", content))
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	result, err := validate(&raw)
	if err != nil {
		c.logger.Error("Classifier response rejected", zap.Error(err), zap.String("content", content))
		return nil, err
	}

	c.logger.Info("Task classified",
		zap.String("title", title),
		zap.String("task_type", result.TaskType),
		zap.Int("subtasks", len(result.Subtasks)))
	return result, nil
}

// validate enforces the response schema: a non-empty upper-snake task
// type and subtasks with non-empty titles. Suggestions without titles
// are dropped rather than failing the whole classification.
func validate(raw *classifierResponse) (*port.ClassificationResult, error) {
	taskType := strings.TrimSpace(raw.TaskType)
	if taskType == "" {
		return nil, fmt.Errorf("classifier returned empty task type")
	}
	taskType = strings.ToUpper(strings.ReplaceAll(taskType, " ", "_"))

	result := &port.ClassificationResult{TaskType: taskType}
	for _, s := range raw.Subtasks {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			continue
		}
		result.Subtasks = append(result.Subtasks, port.SubtaskSuggestion{
			Title:     title,
			PhaseHint: strings.TrimSpace(s.PhaseHint),
		})
	}
	return result, nil
}

// extractJSON pulls the first balanced JSON object out of a string.
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1]
				}
			}
		}
	}
	return ""
}

// Verify interface compliance
var _ port.TaskClassifier = (*Classifier)(nil)
