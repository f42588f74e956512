package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ocrSpaceResponse is the body returned by the OCR.space parse/image endpoint
type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText        string `json:"ParsedText"`
		FileParseExitCode int    `json:"FileParseExitCode"`
		ErrorMessage      string `json:"ErrorMessage"`
	} `json:"ParsedResults"`
	OCRExitCode           int             `json:"OCRExitCode"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// parseOCRSpaceResponse extracts the recognized text of the first page.
func parseOCRSpaceResponse(body []byte) (string, error) {
	var resp ocrSpaceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling json: %w", err)
	}

	if resp.IsErroredOnProcessing {
		return "", &ProviderError{Provider: "ocrspace", Message: errorMessages(resp.ErrorMessage)}
	}

	if len(resp.ParsedResults) == 0 {
		return "", ErrNoText
	}

	text := strings.TrimSpace(resp.ParsedResults[0].ParsedText)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// errorMessages flattens the ErrorMessage field, which OCR.space sends either
// as a string or as an array of strings.
func errorMessages(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single
	}

	return string(raw)
}

// cleanTranscript strips markdown code fences that vision models add despite
// being told not to.
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
