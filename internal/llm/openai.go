package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	fiber "github.com/gofiber/fiber/v2"
)

// Defaults for the OpenAI client
const (
	// DefaultBaseURL is the default chat completion endpoint base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the default chat model
	DefaultModel = "gpt-4.1"
	// DefaultTimeout is the default timeout for completion requests
	DefaultTimeout = 120 * time.Second
)

// OpenAIOptions contains configuration options for the OpenAI client
type OpenAIOptions struct {
	// APIKey is the bearer token for the endpoint
	APIKey string

	// BaseURL overrides the endpoint base URL (any OpenAI-compatible server)
	BaseURL string

	// Model selects the chat model
	Model string

	// Timeout is the request timeout
	Timeout time.Duration
}

// OpenAIClient implements Client against an OpenAI-compatible chat
// completions endpoint.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI chat client with the given options
func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai api key is not configured")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	return &OpenAIClient{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		model:   opts.Model,
		timeout: opts.Timeout,
	}, nil
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []ToolDef `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the message history plus tool manifest and returns one response
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, tools []ToolDef) (*Response, error) {
	agent := fiber.Post(c.baseURL + "/chat/completions")

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Authorization", "Bearer "+c.apiKey)
	agent.Set("Content-Type", "application/json")
	agent.JSON(chatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})

	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("error reaching chat endpoint: %w", errs[0])
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("error decoding chat response: %w", err)
	}
	if statusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("chat endpoint returned %d: %s", statusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("chat endpoint returned %d: %s", statusCode, string(body))
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat endpoint returned no choices")
	}

	choice := parsed.Choices[0]
	return &Response{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		ToolCalls:    choice.Message.ToolCalls,
	}, nil
}
