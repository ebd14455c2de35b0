package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessagesShape(t *testing.T) {
	messages := BuildMessages("Section 3: billing terms are net 30.", "what does section 3 say?")

	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, systemInstruction, messages[0].Content)
	assert.Equal(t, "user", messages[1].Role)
	assert.Contains(t, messages[1].Content, "Section 3: billing terms are net 30.")
	assert.Contains(t, messages[1].Content, "Question: what does section 3 say?")
}

func TestBuildMessagesTruncatesLargeDocuments(t *testing.T) {
	huge := strings.Repeat("a", documentCharLimit+1000)
	messages := BuildMessages(huge, "short question")

	require.Len(t, messages, 2)
	assert.Less(t, len(messages[1].Content), documentCharLimit+200,
		"document text must be truncated to the context budget")
	assert.Contains(t, messages[1].Content, "Question: short question")
}
