package scanning

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the Recognizer interface with a local Tesseract
// install. It needs no network access or API key.
type Tesseract struct {
	// gosseract clients are not safe for concurrent use
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a Tesseract Recognizer for the given language, "por" by default.
func NewTesseract(language string) (*Tesseract, error) {
	if language == "" {
		language = "por"
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting tesseract language: %w", err)
	}

	return &Tesseract{client: client}, nil
}

// Recognize runs Tesseract over the image. Tesseract cannot be interrupted,
// so ctx is only checked before starting.
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pngData, err := toPNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("loading image into tesseract: %w", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return "", &ProviderError{Provider: "tesseract", Message: err.Error()}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Close releases the Tesseract client
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
