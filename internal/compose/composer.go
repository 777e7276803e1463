// Package compose drafts post copy with a chat-completion model.
package compose

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/gopost/gopost/internal/logger"
)

// maxSourceChars caps how much scraped body text is handed to the model.
const maxSourceChars = 2000

// defaultTimeout bounds a completion call so a hung upstream cannot stall
// the monitoring cycle.
const defaultTimeout = 30 * time.Second

const systemPrompt = "You are a social media copywriter. You write short, " +
	"engaging posts. Reply only with the post text, no surrounding quotes " +
	"and no commentary."

// Composer turns source material into post copy.
type Composer struct {
	client *openai.Client
	model  string
	logger logger.Logger
}

// Config holds composer settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // Optional override of the completions endpoint
	Timeout time.Duration
}

// NewComposer creates a composer backed by the OpenAI API.
func NewComposer(cfg Config, log logger.Logger) *Composer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	cc := openai.DefaultConfig(cfg.APIKey)
	cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}

	return &Composer{
		client: openai.NewClientWithConfig(cc),
		model:  cfg.Model,
		logger: log,
	}
}

// Request describes the material a draft is composed from.
type Request struct {
	Topic     string
	Title     string
	Body      string
	SourceURL string

	// IsDirect marks source text that is itself a social post rather than
	// a scraped article.
	IsDirect bool
}

// Compose returns the drafted post text for the request.
func (c *Composer) Compose(ctx context.Context, req Request) (string, error) {
	prompt := buildPrompt(req)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	text = strings.Trim(text, `"`)
	if text == "" {
		return "", fmt.Errorf("chat completion: blank content")
	}

	c.logger.Debug("composed draft",
		logger.String("topic", req.Topic),
		logger.Int("length", len(text)))
	return text, nil
}

func buildPrompt(req Request) string {
	body := req.Body
	if runes := []rune(body); len(runes) > maxSourceChars {
		body = string(runes[:maxSourceChars])
	}

	var b strings.Builder
	if req.IsDirect {
		fmt.Fprintf(&b, "Write an engaging social media post reacting to a post about the topic %q.\n", req.Topic)
	} else {
		fmt.Fprintf(&b, "Write an engaging social media post about the topic %q.\n", req.Topic)
	}
	b.WriteString("Constraints: at most 280 characters, 2-3 relevant hashtags, " +
		"a confident and informative tone.\n")
	if req.Title != "" {
		fmt.Fprintf(&b, "Article title: %s\n", req.Title)
	}
	if body != "" {
		if req.IsDirect {
			fmt.Fprintf(&b, "The post you are reacting to:\n%s\n", body)
		} else {
			fmt.Fprintf(&b, "Article content:\n%s\n", body)
		}
	}
	if req.SourceURL != "" {
		fmt.Fprintf(&b, "Do not include the source link, it is appended separately (%s).\n", req.SourceURL)
	}
	return b.String()
}
