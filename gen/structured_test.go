package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredText(t *testing.T) {
	fields := []OutputField{
		{ID: "title", Description: "a short title"},
		{ID: "summary"},
		{ID: "keywords"},
	}

	t.Run("clean json", func(t *testing.T) {
		raw := `{"title": "Go", "summary": "a language", "keywords": "go,concurrency"}`
		result := ParseStructuredText(raw, fields)
		require.Len(t, result, 3)
		assert.Equal(t, "Go", result["title"])
		assert.Equal(t, "a language", result["summary"])
		assert.Equal(t, "go,concurrency", result["keywords"])
	})

	t.Run("fenced json with prose", func(t *testing.T) {
		raw := "Here you go:\n```json\n{\"title\": \"Go\", \"summary\": \"a language\", \"keywords\": \"x\"}\n```\nEnjoy!"
		result := ParseStructuredText(raw, fields)
		assert.Equal(t, "Go", result["title"])
		assert.Equal(t, "x", result["keywords"])
	})

	t.Run("missing keys get placeholders", func(t *testing.T) {
		raw := `{"title": "Go"}`
		result := ParseStructuredText(raw, fields)
		require.Len(t, result, 3)
		assert.Equal(t, "Go", result["title"])
		assert.Equal(t, MissingFieldPlaceholder, result["summary"])
		assert.Equal(t, MissingFieldPlaceholder, result["keywords"])
	})

	t.Run("unparsable response still yields every key", func(t *testing.T) {
		raw := "I could not produce JSON, sorry."
		result := ParseStructuredText(raw, fields)
		require.Len(t, result, 3)
		assert.Equal(t, raw, result["title"])
		assert.Equal(t, MissingFieldPlaceholder, result["summary"])
		assert.Equal(t, MissingFieldPlaceholder, result["keywords"])
	})

	t.Run("non-string values are stringified", func(t *testing.T) {
		raw := `{"title": 42, "summary": ["a", "b"], "keywords": "k"}`
		result := ParseStructuredText(raw, fields)
		assert.Equal(t, "42", result["title"])
		assert.Equal(t, `["a","b"]`, result["summary"])
	})

	t.Run("nested braces inside strings", func(t *testing.T) {
		raw := `{"title": "curly {brace}", "summary": "s", "keywords": "k"}`
		result := ParseStructuredText(raw, fields)
		assert.Equal(t, "curly {brace}", result["title"])
	})
}

func TestStructuredPrompt(t *testing.T) {
	prompt := StructuredPrompt("Describe Go.", []OutputField{
		{ID: "title", Description: "a short title"},
		{ID: "summary"},
	})
	assert.Contains(t, prompt, "Describe Go.")
	assert.Contains(t, prompt, `"title"`)
	assert.Contains(t, prompt, "a short title")
	assert.Contains(t, prompt, `"summary"`)

	// No fields means the prompt passes through untouched.
	assert.Equal(t, "plain", StructuredPrompt("plain", nil))
}
