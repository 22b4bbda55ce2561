package scriptgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castforge/podcast-be/internal/domain"
)

func chatReply(content string) string {
	data, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(data)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	})
}

func TestGenerateScriptParsesDialogue(t *testing.T) {
	var captured chatRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		fmt.Fprint(w, chatReply(`[
			{"speaker": "HOST", "text": "Welcome back to the show."},
			{"speaker": "GUEST", "text": "Thanks for having me."}
		]`))
	})

	turns, err := client.GenerateScript(context.Background(), "an article about tidal energy", domain.FormatStandard)
	require.NoError(t, err)

	assert.Equal(t, []domain.DialogueTurn{
		{Speaker: "HOST", Text: "Welcome back to the show."},
		{Speaker: "GUEST", Text: "Thanks for having me."},
	}, turns)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Contains(t, captured.Messages[1].Content, "roughly 12 turns")
	assert.Contains(t, captured.Messages[1].Content, "an article about tidal energy")
}

func TestGenerateScriptToleratesCodeFences(t *testing.T) {
	dialogue := `[{"speaker": "HOST", "text": "Hello."}]`

	tests := []struct {
		name  string
		reply string
	}{
		{name: "bare JSON", reply: dialogue},
		{name: "fenced", reply: "```\n" + dialogue + "\n```"},
		{name: "fenced with language tag", reply: "```json\n" + dialogue + "\n```"},
		{name: "surrounding whitespace", reply: "\n\n  " + dialogue + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, chatReply(tt.reply))
			})

			turns, err := client.GenerateScript(context.Background(), "content", domain.FormatShort)
			require.NoError(t, err)
			assert.Equal(t, []domain.DialogueTurn{{Speaker: "HOST", Text: "Hello."}}, turns)
		})
	}
}

func TestGenerateScriptDropsEmptyTurns(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, chatReply(`[
			{"speaker": "HOST", "text": "First line."},
			{"speaker": "GUEST", "text": "   "},
			{"speaker": "HOST", "text": "Second line."}
		]`))
	})

	turns, err := client.GenerateScript(context.Background(), "content", domain.FormatStandard)
	require.NoError(t, err)

	assert.Equal(t, []domain.DialogueTurn{
		{Speaker: "HOST", Text: "First line."},
		{Speaker: "HOST", Text: "Second line."},
	}, turns)
}

func TestGenerateScriptTurnCountFollowsFormat(t *testing.T) {
	tests := []struct {
		format domain.Format
		want   string
	}{
		{format: domain.FormatShort, want: "roughly 4 turns"},
		{format: domain.FormatStandard, want: "roughly 10 turns"},
		{format: domain.FormatLong, want: "roughly 16 turns"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var captured chatRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
				fmt.Fprint(w, chatReply(`[{"speaker": "HOST", "text": "Hi."}]`))
			}))
			t.Cleanup(server.Close)

			client := NewClient(&Config{
				BaseURL: server.URL,
				Model:   "gpt-4o-mini",
				Turns:   TurnCounts{Short: 4, Standard: 10, Long: 16},
			})

			_, err := client.GenerateScript(context.Background(), "content", tt.format)
			require.NoError(t, err)
			require.Len(t, captured.Messages, 2)
			assert.Contains(t, captured.Messages[1].Content, tt.want)
		})
	}
}

func TestGenerateScriptErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "upstream error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error": "model overloaded"}`, http.StatusServiceUnavailable)
			},
			wantErr: "model overloaded",
		},
		{
			name: "reply is not JSON",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, chatReply("Sure! Here is your script."))
			},
			wantErr: "parse script JSON",
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"choices": []}`)
			},
			wantErr: "no choices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)

			turns, err := client.GenerateScript(context.Background(), "content", domain.FormatStandard)
			require.Error(t, err)
			assert.Nil(t, turns)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewClientAppliesDefaults(t *testing.T) {
	client := NewClient(&Config{BaseURL: "http://llm.internal/", Model: "gpt-4o-mini"})

	assert.Equal(t, "http://llm.internal", client.baseURL)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, defaultShortTurns, client.turnCount(domain.FormatShort))
	assert.Equal(t, defaultStandardTurns, client.turnCount(domain.FormatStandard))
	assert.Equal(t, defaultLongTurns, client.turnCount(domain.FormatLong))
}
