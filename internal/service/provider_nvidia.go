package service

import (
	"encoding/json"
	"strings"
)

// NVIDIAStreamChunkParser parses NVIDIA/DeepSeek chunks, which carry reasoning_content next to content
type NVIDIAStreamChunkParser struct{}

func (p *NVIDIAStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var raw struct {
		Choices []struct {
			Delta struct {
				Content          string  `json:"content,omitempty"`
				ReasoningContent *string `json:"reasoning_content,omitempty"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		c := raw.Choices[0]
		chunk.Content = c.Delta.Content
		if c.Delta.ReasoningContent != nil {
			chunk.ThinkingContent = *c.Delta.ReasoningContent
		}
		chunk.Done = c.FinishReason != nil && *c.FinishReason != ""
	}
	return chunk, nil
}

// IsNVIDIAProvider checks if the base URL is the NVIDIA API
func IsNVIDIAProvider(baseURL string) bool {
	return strings.HasPrefix(baseURL, "https://integrate.api.nvidia.com")
}

// providerName labels the provider behind baseURL in logs
func providerName(baseURL string) string {
	switch {
	case IsNVIDIAProvider(baseURL):
		return "nvidia"
	case IsOpenAIProvider(baseURL):
		return "openai"
	default:
		return "openai-compatible"
	}
}

// chunkParserFor picks the chunk parser matching the provider behind baseURL
func chunkParserFor(baseURL string) StreamChunkParser {
	if IsNVIDIAProvider(baseURL) {
		return &NVIDIAStreamChunkParser{}
	}
	// OpenAI and unknown providers share the standard format
	return &OpenAIStreamChunkParser{}
}
