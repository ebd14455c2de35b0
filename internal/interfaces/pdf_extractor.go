package interfaces

import (
	"context"
)

// PDFExtractor extracts plain text from PDF content. Extraction failures are
// terminal for the document that produced them - malformed input will not
// become valid on retry.
type PDFExtractor interface {
	// ExtractTextFromBytes extracts all text content from PDF bytes
	ExtractTextFromBytes(ctx context.Context, content []byte) (string, error)
}
