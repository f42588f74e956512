// Package scanning turns photos of price labels into raw text using OCR and
// vision model providers.
package scanning

import "context"

// Recognizer defines the interface for text recognition providers
type Recognizer interface {
	// Recognize returns the text printed in the image. An image without
	// readable text returns ErrNoText.
	Recognize(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close closes the recognizer and releases resources
	Close() error
}

// transcriptionPrompt is the shared prompt used by the vision model providers
const transcriptionPrompt = `You are reading a photo of a price label from a Brazilian supermarket shelf.

Transcribe every piece of text you can see on the label, exactly as printed:
- Keep the original line breaks, one printed line per output line
- Keep Portuguese accents and the original capitalization
- Keep prices exactly as printed, including "R$" and the comma decimal separator (e.g. "R$ 12,49")
- Keep headings such as "VAREJO", "ATACADO", "TOTAL" or "A partir de 3 un"

Do not translate, summarize, correct or explain anything.
Do not use markdown code blocks.
If there is no readable text, return an empty response.`
