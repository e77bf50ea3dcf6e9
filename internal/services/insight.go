package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"github.com/teampulse-io/teampulse/backend/internal/config"
	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/pkg/logger"
	"google.golang.org/genai"
)

// PatternAnalyzer produces a short natural-language read of a member's
// weekly rollup.
type PatternAnalyzer interface {
	AnalyzePattern(ctx context.Context, member *models.TeamMember, pattern *models.EngineerPattern) (string, error)
}

// InsightService is the LLM-backed PatternAnalyzer. The provider field
// of the config selects the SDK; everything else is a single prompt and
// a single completion. Callers treat failures as a missing summary, so
// no retries or fallback chains here.
type InsightService struct {
	config *config.InsightConfig
}

func NewInsightService(cfg *config.InsightConfig) *InsightService {
	return &InsightService{config: cfg}
}

// Enabled reports whether a provider is configured.
func (s *InsightService) Enabled() bool {
	return s.config != nil && s.config.Provider != ""
}

func (s *InsightService) AnalyzePattern(ctx context.Context, member *models.TeamMember, pattern *models.EngineerPattern) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	prompt := buildPatternPrompt(member, pattern)

	logger.Debugf("[Insight] Analyzing pattern for %s via %s", member.Name, s.config.Provider)

	switch s.config.Provider {
	case "anthropic":
		return s.callAnthropic(ctx, prompt)
	case "ollama":
		return s.callOllama(ctx, prompt)
	case "gemini":
		return s.callGemini(ctx, prompt)
	case "azure":
		return s.callAzure(ctx, prompt)
	default:
		// openai and OpenAI-compatible endpoints
		return s.callOpenAI(ctx, prompt)
	}
}

func buildPatternPrompt(member *models.TeamMember, pattern *models.EngineerPattern) string {
	var b strings.Builder
	b.WriteString("You are an engineering manager's assistant. Summarize this engineer's week in 2-3 sentences, ")
	b.WriteString("noting anything a manager should follow up on. Be factual and concise.\n\n")
	fmt.Fprintf(&b, "Engineer: %s (%s)\n", member.Name, member.Role)
	fmt.Fprintf(&b, "Week starting: %s\n", pattern.WeekStart.Format("2006-01-02"))
	fmt.Fprintf(&b, "Tickets completed: %d\n", pattern.TicketsCompleted)
	fmt.Fprintf(&b, "Tickets started: %d\n", pattern.TicketsStarted)
	fmt.Fprintf(&b, "Commits: %d\n", pattern.CommitsCount)
	fmt.Fprintf(&b, "PRs merged: %d\n", pattern.PRsMerged)
	if pattern.AvgCycleTimeHours != nil {
		fmt.Fprintf(&b, "Average cycle time: %.1f working hours\n", *pattern.AvgCycleTimeHours)
	}
	return b.String()
}

func (s *InsightService) callOpenAI(ctx context.Context, prompt string) (string, error) {
	clientConfig := openai.DefaultConfig(s.config.APIKey)
	if s.config.BaseURL != "" {
		clientConfig.BaseURL = s.config.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	temperature := float32(0.3)
	if s.config.Temperature > 0 {
		temperature = float32(s.config.Temperature)
	}

	model := s.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *InsightService) callAzure(ctx context.Context, prompt string) (string, error) {
	// Azure requires BaseURL format: https://{resource-name}.openai.azure.com
	// Model field is used as deployment name
	clientConfig := openai.DefaultAzureConfig(s.config.APIKey, s.config.BaseURL)
	client := openai.NewClientWithConfig(clientConfig)

	temperature := float32(0.3)
	if s.config.Temperature > 0 {
		temperature = float32(s.config.Temperature)
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("Azure OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from Azure OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *InsightService) callAnthropic(ctx context.Context, prompt string) (string, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(s.config.APIKey),
	)

	maxTokens := int64(s.config.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	model := s.config.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return content.String(), nil
}

func (s *InsightService) callOllama(ctx context.Context, prompt string) (string, error) {
	baseURL := s.config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := s.config.Model
	if model == "" {
		model = "llama3"
	}

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Options: map[string]interface{}{
			"temperature": s.config.Temperature,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}
	return content.String(), nil
}

func (s *InsightService) callGemini(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: s.config.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := s.config.Model
	if model == "" {
		model = "gemini-3.0-flash"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return resp.Text(), nil
}
