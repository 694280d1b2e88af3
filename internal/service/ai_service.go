package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/util"
	"time"
)

const (
	summarizeSystemPrompt = "You are a study assistant. Summarize the material for a student: " +
		"key ideas first, then a short bullet list of terms worth remembering. Answer in Markdown."
	askSystemPrompt = "You are a patient study buddy. Answer the student's question clearly and concisely. " +
		"If the question is outside study topics, politely steer back to learning."
)

// AIService OpenAI 兼容的 chat/completions 客户端
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AIService{config: cfg, client: &http.Client{Timeout: timeout}}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Summarize 生成学习资料摘要
func (s *AIService) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", util.ErrEmptyPrompt
	}
	return s.complete(ctx, []AIChatMessage{
		{Role: "system", Content: summarizeSystemPrompt},
		{Role: "user", Content: text},
	})
}

// Ask 回答学习问题，history 为之前的多轮对话
func (s *AIService) Ask(ctx context.Context, question string, history []AIChatMessage) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", util.ErrEmptyPrompt
	}

	messages := make([]AIChatMessage, 0, len(history)+2)
	messages = append(messages, AIChatMessage{Role: "system", Content: askSystemPrompt})
	for _, h := range history {
		if h.Role == "user" || h.Role == "assistant" {
			messages = append(messages, h)
		}
	}
	messages = append(messages, AIChatMessage{Role: "user", Content: question})

	return s.complete(ctx, messages)
}

func (s *AIService) complete(ctx context.Context, messages []AIChatMessage) (string, error) {
	jsonData, err := json.Marshal(ChatCompletionRequest{
		Model:    s.config.Model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.config.BaseURL, "/")+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read AI response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("AI returned no choices")
}
