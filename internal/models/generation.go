package models

import "fmt"

type GenerationRequest struct {
	Prompt    string   `json:"prompt"`
	Providers []string `json:"providers"`
}

// ImageBlob is a generated image already encoded for embedding.
type ImageBlob struct {
	Provider    string `json:"provider"`
	ContentType string `json:"content_type"`
	Base64      string `json:"base64"`
}

func (b ImageBlob) DataURI() string {
	ct := b.ContentType
	if ct == "" {
		ct = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", ct, b.Base64)
}

// GenerationResult holds successes in provider order; failed providers appear
// only by id.
type GenerationResult struct {
	Succeeded []ImageBlob `json:"succeeded"`
	Failed    []string    `json:"failed"`
}
