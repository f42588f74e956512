package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const defaultOCRSpaceURL = "https://api.ocr.space/parse/image"

// OCRSpace implements the Recognizer interface using the OCR.space API
type OCRSpace struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewOCRSpace creates a new OCR.space Recognizer instance
func NewOCRSpace(apiKey string, endpoint string) (*OCRSpace, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ocr.space api key is required")
	}
	if endpoint == "" {
		endpoint = defaultOCRSpaceURL
	}

	return &OCRSpace{
		apiKey:   apiKey,
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Recognize sends the image to OCR.space with the Portuguese language model
// and the engine that handles printed price tags best.
func (o *OCRSpace) Recognize(ctx context.Context, imageData []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := [][2]string{
		{"base64Image", fmt.Sprintf("data:%s;base64,%s", normalizeMimeType(contentType), base64.StdEncoding.EncodeToString(imageData))},
		{"language", "por"},
		{"isOverlayRequired", "false"},
		{"scale", "true"},
		{"OCREngine", "2"},
		{"detectOrientation", "true"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("writing form field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("apikey", o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ocr.space API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", NewRateLimitError("ocrspace", fmt.Errorf("%s", respBody), parseRetryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode != http.StatusOK:
		return "", &ProviderError{Provider: "ocrspace", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return parseOCRSpaceResponse(respBody)
}

// Close closes the OCR.space client (no-op for HTTP client)
func (o *OCRSpace) Close() error {
	return nil
}
