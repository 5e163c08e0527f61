package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
	debug  bool
}

type Config struct {
	Token string
	Model string
	Host  string
	Debug bool

	Client *http.Client
}

func New(cfg *Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("openai: missing token")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	aiCfg := openai.DefaultConfig(cfg.Token)
	if cfg.Host != "" {
		aiCfg.BaseURL = cfg.Host
	}
	if cfg.Client != nil {
		aiCfg.HTTPClient = cfg.Client
	} else {
		aiCfg.HTTPClient = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	return &Client{
		client: openai.NewClientWithConfig(aiCfg),
		model:  model,
		debug:  cfg.Debug,
	}, nil
}

func (c *Client) log(format string, args ...interface{}) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

// ChatCompletion sends a single user message and returns the assistant reply
// flattened to one string.
func (c *Client) ChatCompletion(ctx context.Context, message string) (string, error) {
	c.log("openai: request %s", message)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: message,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: couldn't create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	content := Flatten(resp.Choices[0].Message)
	c.log("openai: response %s", content)
	return content, nil
}

// Flatten joins an assistant message into a single string. Messages carry
// either a plain content string or an ordered list of mixed parts; only the
// text parts contribute to the result.
func Flatten(msg openai.ChatCompletionMessage) string {
	if len(msg.MultiContent) == 0 {
		return msg.Content
	}
	var parts []string
	for _, part := range msg.MultiContent {
		if part.Type != openai.ChatMessagePartTypeText {
			continue
		}
		parts = append(parts, part.Text)
	}
	return strings.Join(parts, "")
}
