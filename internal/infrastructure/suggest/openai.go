// Package suggest asks an OpenAI-compatible model for alternative products
// when no marketplace listing clears the confidence threshold.
package suggest

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloudmatch/backend/internal/domain"
)

// Config configures the suggestion client
type Config struct {
	BaseURL        string // OpenAI-compatible endpoint; Ollama's /v1 works
	APIKey         string
	Model          string
	MaxSuggestions int
	// HTTPClient overrides the default client; used by tests
	HTTPClient *http.Client
}

// Client proposes catalog alternatives via a chat-completion model
type Client struct {
	api   *openai.Client
	model string
	max   int
}

// NewClient creates a suggestion client. Non-OpenAI providers are supported
// through Config.BaseURL.
func NewClient(cfg Config) *Client {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused" // local endpoints ignore the key but the SDK requires one
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	max := cfg.MaxSuggestions
	if max <= 0 {
		max = 3
	}

	return &Client{
		api:   openai.NewClientWithConfig(clientCfg),
		model: cfg.Model,
		max:   max,
	}
}

// Suggest asks the model for alternatives to the queried product from the
// given catalog product list
func (c *Client) Suggest(ctx context.Context, vendor, solution string, products []string) ([]domain.Suggestion, error) {
	userQuery := strings.TrimSpace(vendor + " " + solution)
	prompt := fmt.Sprintf(
		"A user searched for %s, which is not in our product list. "+
			"From the following list, suggest %d alternatives that are most similar in function or domain. "+
			"For each alternative, provide a one-sentence reason why it is a good alternative. "+
			"Format your response as: 1. Alternative Name: Reason. 2. ... 3. ... List: %s",
		userQuery, c.max, strings.Join(products, ", "))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSuggestionFailure, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrSuggestionFailure)
	}

	suggestions := parseNumberedList(resp.Choices[0].Message.Content, c.max)
	log.Printf("[SUGGEST] Parsed %d alternatives for %q", len(suggestions), userQuery)
	return suggestions, nil
}

var numberedLineRegex = regexp.MustCompile(`^\d+\.\s*(.+)$`)

// parseNumberedList extracts "N. Name: Rationale" lines from the model's
// response; rationale is optional
func parseNumberedList(text string, max int) []domain.Suggestion {
	var suggestions []domain.Suggestion
	for _, line := range strings.Split(text, "\n") {
		m := numberedLineRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		rest := strings.TrimSpace(m[1])
		name, rationale := rest, ""
		if idx := strings.Index(rest, ":"); idx >= 0 {
			name = strings.TrimSpace(rest[:idx])
			rationale = strings.TrimSpace(rest[idx+1:])
		}
		if name == "" {
			continue
		}
		suggestions = append(suggestions, domain.Suggestion{Name: name, Rationale: rationale})
		if len(suggestions) == max {
			break
		}
	}
	return suggestions
}
