// Package llm presents the three LLM providers as one capability:
// given a system and user prompt, return completion text. Provider
// variants are a closed set selected by configuration tag; each adapter
// owns its own wire format and error normalization. None of them retry;
// retry policy belongs to the engines.
package llm

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/protaige/outreach-cli/internal/resilience"
	"github.com/protaige/outreach-cli/pkg/anthropic"
	"github.com/protaige/outreach-cli/pkg/openai"
	"github.com/protaige/outreach-cli/pkg/perplexity"
)

// Provider tags the configured LLM backends.
type Provider string

const (
	ProviderPerplexity Provider = "perplexity"
	ProviderAnthropic  Provider = "anthropic"
	ProviderOpenAI     Provider = "openai"
)

// Request is a single completion call.
type Request struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature *float64
	// JSONOnly asks the provider for a JSON-object response where the
	// wire format supports it (OpenAI); elsewhere it is prompt-only.
	JSONOnly bool
}

// Completer turns a prompt pair into raw completion text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Clients bundles the configured provider clients.
type Clients struct {
	Perplexity perplexity.Client
	Anthropic  anthropic.Client
	OpenAI     openai.Client
}

// For returns the Completer for a provider tag. An unknown tag or an
// unconfigured client is a ConfigurationError.
func (c Clients) For(p Provider) (Completer, error) {
	switch p {
	case ProviderPerplexity:
		if c.Perplexity == nil {
			return nil, &resilience.ConfigurationError{Reason: "perplexity client not configured"}
		}
		return &perplexityCompleter{client: c.Perplexity}, nil
	case ProviderAnthropic:
		if c.Anthropic == nil {
			return nil, &resilience.ConfigurationError{Reason: "anthropic client not configured"}
		}
		return &anthropicCompleter{client: c.Anthropic}, nil
	case ProviderOpenAI:
		if c.OpenAI == nil {
			return nil, &resilience.ConfigurationError{Reason: "openai client not configured"}
		}
		return &openaiCompleter{client: c.OpenAI}, nil
	default:
		return nil, &resilience.ConfigurationError{Reason: "unknown llm provider: " + string(p)}
	}
}

type perplexityCompleter struct {
	client perplexity.Client
}

func (c *perplexityCompleter) Complete(ctx context.Context, req Request) (string, error) {
	preq := perplexity.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    chatMessages(req),
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		preq.MaxTokens = &req.MaxTokens
	}

	resp, err := c.client.ChatCompletion(ctx, preq)
	if err != nil {
		var apiErr *perplexity.APIError
		if errors.As(err, &apiErr) {
			return "", &resilience.APIError{Provider: "perplexity", Status: apiErr.StatusCode, Body: apiErr.Body}
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &resilience.ExtractionError{Reason: "perplexity response has no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

type anthropicCompleter struct {
	client anthropic.Client
}

func (c *anthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.User}},
		Temperature: req.Temperature,
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", &resilience.APIError{Provider: "anthropic", Status: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", err
	}

	resp.Usage.LogCost(resp.Model, "complete")

	text := resp.Text()
	if text == "" {
		return "", &resilience.ExtractionError{Reason: "anthropic response has no text content"}
	}
	return text, nil
}

type openaiCompleter struct {
	client openai.Client
}

func (c *openaiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    openaiMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		JSONMode:    req.JSONOnly,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &resilience.APIError{Provider: "openai", Status: apiErr.StatusCode, Body: apiErr.Body}
		}
		return "", err
	}
	return resp.Content, nil
}

func chatMessages(req Request) []perplexity.Message {
	var msgs []perplexity.Message
	if req.System != "" {
		msgs = append(msgs, perplexity.Message{Role: "system", Content: req.System})
	}
	return append(msgs, perplexity.Message{Role: "user", Content: req.User})
}

func openaiMessages(req Request) []openai.Message {
	var msgs []openai.Message
	if req.System != "" {
		msgs = append(msgs, openai.Message{Role: "system", Content: req.System})
	}
	return append(msgs, openai.Message{Role: "user", Content: req.User})
}
