package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revdash/internal/models"
)

func TestBuildClassifyPrompt(t *testing.T) {
	t.Run("with replies", func(t *testing.T) {
		system, user := buildClassifyPrompt("Consider a nil check", []string{"Good catch, fixed", "thanks"})

		assert.Contains(t, system, "JSON object")
		assert.Contains(t, system, `"positive"`)
		assert.Contains(t, system, `"negative"`)
		assert.Contains(t, system, `"neutral"`)

		assert.Contains(t, user, "Consider a nil check")
		assert.Contains(t, user, "Reply 1:\nGood catch, fixed")
		assert.Contains(t, user, "Reply 2:\nthanks")
	})

	t.Run("without replies", func(t *testing.T) {
		_, user := buildClassifyPrompt("comment", nil)
		assert.NotContains(t, user, "Reply")
	})
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    models.Sentiment
		wantErr bool
	}{
		{"plain", `{"sentiment": "positive", "reason": "applied"}`, models.SentimentPositive, false},
		{"fenced", "```json\n{\"sentiment\": \"negative\"}\n```", models.SentimentNegative, false},
		{"case", `{"sentiment": " Neutral "}`, models.SentimentNeutral, false},
		{"unknown", `{"sentiment": "ecstatic"}`, "", true},
		{"garbage", `not json`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassification(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifySentiment_NoReplies(t *testing.T) {
	c := NewClient("key", "model")
	s, err := c.ClassifySentiment(context.Background(), "comment", nil)
	require.NoError(t, err)
	assert.Equal(t, models.Sentiment(""), s)
}

func TestClassifySentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "test-model",
			"content": [{"type": "text", "text": "{\"sentiment\": \"negative\", \"reason\": \"dismissed\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c := NewClient("key", "test-model", option.WithBaseURL(srv.URL))
	s, err := c.ClassifySentiment(context.Background(), "Rename this", []string{"no, this is wrong"})
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, s)
}
