package xai

import (
	"encoding/json"
	"strings"
)

// The /v1/responses payload shape has changed over the API's lifetime, and
// several mutually incompatible variants remain in the wild. apiResponse
// declares a superset of the observed shapes and extractText tries one
// extractor per known variant in fixed priority order; the first non-empty
// result wins. New shapes get a new extractor without touching the existing
// ones.

type apiResponse struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	OutputText string          `json:"output_text"`
	Text       string          `json:"text"`
	Output     []outputItem    `json:"output"`
	Choices    []responseChoice `json:"choices"`
}

type outputItem struct {
	Type string `json:"type"`
	Role string `json:"role"`
	Text string `json:"text"`
	// Content is either a plain string or an array of content blocks,
	// depending on the API vintage.
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// toolCallTypes are output items that never carry final text.
var toolCallTypes = map[string]bool{
	"custom_tool_call": true,
	"tool_call":        true,
	"function_call":    true,
}

// textExtractors, in priority order: the output item array, the flat
// output_text field, the flat text field, and the legacy chat-completions
// choices array.
var textExtractors = []func(*apiResponse) string{
	extractFromOutput,
	extractFromOutputText,
	extractFromTextField,
	extractFromChoices,
}

// extractText returns the final text carried by r, or "" when no known
// variant yields any.
func extractText(r *apiResponse) string {
	for _, extract := range textExtractors {
		if s := strings.TrimSpace(extract(r)); s != "" {
			return s
		}
	}
	return ""
}

// extractFromOutput walks the output array, skipping tool calls, and joins
// the text of plain text items and assistant message blocks.
func extractFromOutput(r *apiResponse) string {
	var parts []string
	for _, item := range r.Output {
		if toolCallTypes[item.Type] {
			continue
		}
		switch item.Type {
		case "text":
			if s := strings.TrimSpace(item.Text); s != "" {
				parts = append(parts, s)
			}
		case "message":
			if item.Role != "assistant" {
				continue
			}
			if s := messageContentText(item.Content); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

// messageContentText handles both content encodings: an array of typed
// blocks and a bare string.
func messageContentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type != "text" {
				continue
			}
			if s := strings.TrimSpace(b.Text); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n\n")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

func extractFromOutputText(r *apiResponse) string { return r.OutputText }

func extractFromTextField(r *apiResponse) string { return r.Text }

func extractFromChoices(r *apiResponse) string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// truncate caps s at max bytes for diagnostics embedded in error messages.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
