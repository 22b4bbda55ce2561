// Package scriptgen turns source content into a podcast dialogue script
// by calling an OpenAI-compatible chat-completions endpoint.
package scriptgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/castforge/podcast-be/internal/domain"
)

const (
	// DefaultTimeout bounds one generation request end to end.
	DefaultTimeout = 90 * time.Second

	defaultShortTurns    = 6
	defaultStandardTurns = 12
	defaultLongTurns     = 20

	maxErrorBodyBytes = 512
)

const systemPrompt = "You are a podcast script writer. Turn the provided source " +
	"content into a natural conversation between two speakers named HOST and GUEST. " +
	"Cover the key points of the content faithfully. Respond with a JSON array only, " +
	"no prose around it; each element must be an object with \"speaker\" and \"text\" fields."

// TurnCounts maps each episode format to a target dialogue length.
type TurnCounts struct {
	Short    int
	Standard int
	Long     int
}

// Config holds script generation client configuration
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Turns   TurnCounts
}

// Client calls a chat-completions endpoint and parses the assistant reply
// into dialogue turns. It implements the worker's ScriptGenerator contract.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	turns      TurnCounts
	httpClient *http.Client
}

// NewClient creates a script generation client. Zero timeout and turn
// counts fall back to defaults.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	turns := cfg.Turns
	if turns.Short <= 0 {
		turns.Short = defaultShortTurns
	}
	if turns.Standard <= 0 {
		turns.Standard = defaultStandardTurns
	}
	if turns.Long <= 0 {
		turns.Long = defaultLongTurns
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		turns:      turns,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateScript asks the model for a dialogue over the given content and
// returns the parsed turns in speaking order.
func (c *Client) GenerateScript(ctx context.Context, content string, format domain.Format) ([]domain.DialogueTurn, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: c.userPrompt(content, format)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("encode script request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build script request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request script generation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("script service returned %s: %s", resp.Status, readErrorBody(resp.Body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode script response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("script response contains no choices")
	}

	return parseTurns(parsed.Choices[0].Message.Content)
}

func (c *Client) userPrompt(content string, format domain.Format) string {
	return fmt.Sprintf("Write a dialogue of roughly %d turns covering this content:\n\n%s",
		c.turnCount(format), content)
}

func (c *Client) turnCount(format domain.Format) int {
	switch format {
	case domain.FormatShort:
		return c.turns.Short
	case domain.FormatLong:
		return c.turns.Long
	default:
		return c.turns.Standard
	}
}

// parseTurns decodes the assistant reply into dialogue turns. Models often
// wrap JSON in a markdown code fence despite instructions, so fences are
// stripped first. Turns with empty text are dropped.
func parseTurns(reply string) ([]domain.DialogueTurn, error) {
	var turns []domain.DialogueTurn
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &turns); err != nil {
		return nil, fmt.Errorf("parse script JSON: %w", err)
	}

	kept := turns[:0]
	for _, turn := range turns {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		kept = append(kept, turn)
	}
	return kept, nil
}

func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop the language tag that follows the opening fence, if any.
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil {
		return "unreadable response body"
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "empty response body"
	}
	return trimmed
}
