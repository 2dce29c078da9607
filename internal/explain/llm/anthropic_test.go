package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicParams(t *testing.T) {
	p := anthropicParams(GenerateRequest{Model: "claude-test", System: "be brief", Prompt: "explain", SKU: "FIL-001"})

	assert.Equal(t, "claude-test", string(p.Model))
	assert.EqualValues(t, defaultMaxTokens, p.MaxTokens)
	require.Len(t, p.System, 1)
	assert.Equal(t, "be brief", p.System[0].Text)
	assert.Len(t, p.Messages, 1)

	p = anthropicParams(GenerateRequest{Model: "claude-test", MaxTokens: 64})
	assert.EqualValues(t, 64, p.MaxTokens)
}

func TestRequestTag(t *testing.T) {
	assert.Equal(t, "restock:FIL-001", requestTag("FIL-001"))
	assert.Empty(t, requestTag(""))
}
