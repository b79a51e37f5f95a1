package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	googleoption "google.golang.org/api/option"

	"github.com/sweetpotato0/ragguard/message"
)

// Config holds Gemini provider configuration.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Gemini configuration.
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-1.5-flash",
		MaxTokens:   2000,
		Temperature: 0.1,
	}
}

// Provider implements provider.LLM using the Google Generative AI SDK. A new
// genai.Client is created per call so the caller's context governs the
// connection and the client is always closed after use.
type Provider struct {
	config *Config
}

// New creates a new Gemini provider.
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}
	return &Provider{config: config}
}

// Generate implements provider.LLM.
func (p *Provider) Generate(ctx context.Context, messages []*message.Message) (*message.Message, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}

	client, err := genai.NewClient(ctx, googleoption.WithAPIKey(p.config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.config.Model)

	var systemPrompts, userPrompts []string
	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Content)
		default:
			userPrompts = append(userPrompts, msg.Content)
		}
	}
	if len(systemPrompts) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(systemPrompts, "\n"))},
		}
	}
	if p.config.MaxTokens > 0 {
		maxOut := int32(p.config.MaxTokens)
		model.MaxOutputTokens = &maxOut
	}
	if p.config.Temperature > 0 {
		temp := float32(p.config.Temperature)
		model.Temperature = &temp
	}

	resp, err := model.GenerateContent(ctx, genai.Text(strings.Join(userPrompts, "\n\n")))
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	var parts []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				parts = append(parts, string(t))
			}
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("gemini response contained no text content")
	}

	return message.NewMessage(message.RoleAssistant, strings.Join(parts, "")), nil
}

// SetTemperature updates the temperature setting.
func (p *Provider) SetTemperature(temp float64) {
	p.config.Temperature = temp
}

// SetMaxTokens updates the max tokens setting.
func (p *Provider) SetMaxTokens(max int64) {
	p.config.MaxTokens = max
}

// SetModel updates the model.
func (p *Provider) SetModel(model string) {
	p.config.Model = model
}
