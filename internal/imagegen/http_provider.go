package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nft-marketplace/backend/internal/config"
	"github.com/nft-marketplace/backend/internal/models"
)

// Fixed sampling defaults sent with every request.
const (
	DefaultInferenceSteps = 20
	DefaultGuidanceScale  = 7.5
)

// HTTPProvider calls a hosted inference API where each model id is a path
// under the base URL and the response body is the raw image.
type HTTPProvider struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPProvider(baseURL, token string, httpClient *http.Client) *HTTPProvider {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
}

// ProviderError keeps the response of a failed call for diagnostics.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (p *HTTPProvider) Generate(ctx context.Context, provider, prompt string) (models.ImageBlob, error) {
	if err := config.Require(map[string]string{
		"IMAGE_API_URL":   p.baseURL,
		"IMAGE_API_TOKEN": p.token,
	}); err != nil {
		return models.ImageBlob{}, err
	}

	payload, err := json.Marshal(inferenceRequest{
		Inputs: prompt,
		Parameters: inferenceParameters{
			NumInferenceSteps: DefaultInferenceSteps,
			GuidanceScale:     DefaultGuidanceScale,
		},
	})
	if err != nil {
		return models.ImageBlob{}, fmt.Errorf("marshal inference request: %w", err)
	}

	url := p.baseURL + "/" + strings.TrimLeft(provider, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return models.ImageBlob{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.ImageBlob{}, fmt.Errorf("provider %s unavailable: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.ImageBlob{}, fmt.Errorf("read %s response: %w", provider, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return models.ImageBlob{}, &ProviderError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if len(body) == 0 {
		return models.ImageBlob{}, fmt.Errorf("provider %s returned an empty image", provider)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(body)
	}
	return models.ImageBlob{
		Provider:    provider,
		ContentType: contentType,
		Base64:      base64.StdEncoding.EncodeToString(body),
	}, nil
}
