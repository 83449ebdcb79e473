package translate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/antoniostano/traduttore/internal/language"
	"github.com/antoniostano/traduttore/internal/reliability"
)

// ErrEmptyTranslation is returned when the model produced no usable output.
var ErrEmptyTranslation = errors.New("translation result was empty")

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client translates text through an OpenAI-compatible chat completions
// endpoint. Ollama serves this API under /v1, so the same client covers both
// local and hosted backends.
type Client struct {
	api    oai.Client
	model  string
	logger *log.Logger
}

func NewClient(cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		// Translate applies its own retry with backoff.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:    oai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger,
	}
}

// Translate renders text into targetLang. sourceLang may be a display name,
// an ISO code, or "auto" when the language is unknown.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang, model string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranslation
	}
	if model == "" {
		model = c.model
	}

	source := promptSourceLang(sourceLang)
	target := language.Resolve(targetLang)
	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Provide only the translation, without any explanations or extra text.\n\n%s: %s\n%s:",
		source, target, source, text, target,
	)

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
		Temperature: param.NewOpt(0.0),
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil && retryable(err) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(reliability.ExponentialBackoff(0, 500*time.Millisecond, 2*time.Second)):
		}
		resp, err = c.api.Chat.Completions.New(ctx, params)
	}
	if err != nil {
		return "", fmt.Errorf("translate %q -> %s: %w", source, target, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyTranslation
	}

	out := postprocess(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyTranslation
	}
	return out, nil
}

// Ping verifies the backend answers the models endpoint. Used by readiness
// probes.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.Models.List(ctx)
	return err
}

func retryable(err error) bool {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return reliability.IsRetryableHTTPStatus(apiErr.StatusCode)
	}
	return false
}

// promptSourceLang names the source side of the prompt. Unknown languages
// fall back to letting the model detect them.
func promptSourceLang(sourceLang string) string {
	sourceLang = strings.TrimSpace(sourceLang)
	switch strings.ToLower(sourceLang) {
	case "", "auto", "auto-detect":
		return "the detected language"
	}
	return language.Resolve(sourceLang)
}

// postprocess keeps only the first line of the model output and strips
// wrapping quotes. Chatty models often append commentary after the
// translation despite the prompt.
func postprocess(raw string) string {
	out := strings.TrimSpace(raw)
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = strings.TrimSpace(out[:i])
	}
	if len(out) >= 2 && out[0] == '"' && out[len(out)-1] == '"' {
		out = out[1 : len(out)-1]
	}
	return strings.TrimSpace(out)
}
