package completion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nextlevelbuilder/modebot/internal/config"
)

// OpenAIClient implements Completer for OpenAI-compatible APIs, either the
// legacy text completions endpoint or chat completions.
type OpenAIClient struct {
	client      *openai.Client
	api         string
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewOpenAIClient builds a client from the completion config. APIBase empty
// means the OpenAI default endpoint.
func NewOpenAIClient(cfg config.CompletionConfig) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		oc.BaseURL = strings.TrimRight(cfg.APIBase, "/")
	}

	api := cfg.API
	if api == "" {
		api = config.APICompletions
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(oc),
		api:         api,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		timeout:     cfg.RequestTimeout(),
	}
}

func (c *OpenAIClient) API() string   { return c.api }
func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		text string
		err  error
	)
	if c.api == config.APIChat {
		text, err = c.chat(ctx, prompt)
	} else {
		text, err = c.completions(ctx, prompt)
	}
	if err != nil {
		return "", c.wrapErr(err)
	}
	return strings.TrimSpace(text), nil
}

func (c *OpenAIClient) completions(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       c.model,
		Prompt:      prompt,
		MaxTokens:   c.maxTokens,
		N:           1,
		Temperature: c.sendTemperature(),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrMalformedResponse
	}
	return resp.Choices[0].Text, nil
}

func (c *OpenAIClient) chat(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		N:           1,
		Temperature: c.sendTemperature(),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrMalformedResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// sendTemperature works around omitempty on the request field: a zero would be
// dropped and the API would sample at its default of 1.
func (c *OpenAIClient) sendTemperature() float32 {
	if c.temperature == 0 {
		return math.SmallestNonzeroFloat32
	}
	return c.temperature
}

func (c *OpenAIClient) wrapErr(err error) error {
	ue := &UpstreamError{Op: c.api, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		ue.Status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		ue.Status = reqErr.HTTPStatusCode
	}
	return ue
}

func (c *OpenAIClient) String() string {
	return fmt.Sprintf("openai(%s, %s)", c.api, c.model)
}
