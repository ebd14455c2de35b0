package chat

import (
	"fmt"
	"time"

	"github.com/ternarybob/pdfchat/internal/interfaces"
)

// systemInstruction is the fixed instruction sent with every LLM request.
// The model answers from the supplied document only; prior turns are not
// fed back.
const systemInstruction = "You are a helpful assistant that answers questions about a PDF document. " +
	"Answer using only the document text provided. " +
	"If the document does not contain the answer, say so instead of guessing."

// documentCharLimit truncates very large documents so the prompt stays
// within provider context windows
const documentCharLimit = 400_000

// BuildMessages assembles the message slice for one LLM request: the fixed
// system instruction plus a single user message carrying the document text
// and the question.
func BuildMessages(documentText, userMessage string) []interfaces.Message {
	if len(documentText) > documentCharLimit {
		documentText = documentText[:documentCharLimit]
	}

	user := fmt.Sprintf("Document text:\n\n%s\n\nQuestion: %s", documentText, userMessage)
	return []interfaces.Message{
		{Role: "system", Content: systemInstruction},
		{Role: "user", Content: user},
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
