package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/nft-marketplace/backend/internal/config"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// PinnedContent is the durable reference returned by the pinning service.
type PinnedContent struct {
	CID string `json:"cid"`
	URL string `json:"url"`
}

// Pinner stores image bytes under a display name.
type Pinner interface {
	Pin(ctx context.Context, data []byte, name string) (PinnedContent, error)
}

// PinningClient uploads files to a Pinata-compatible pinning API.
type PinningClient struct {
	baseURL    string
	jwt        string
	gatewayURL string
	httpClient *http.Client
	log        *zap.Logger
}

func NewPinningClient(baseURL, jwt, gatewayURL string, timeout time.Duration, log *zap.Logger) *PinningClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PinningClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		jwt:        jwt,
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (c *PinningClient) Pin(ctx context.Context, data []byte, name string) (PinnedContent, error) {
	if err := config.Require(map[string]string{
		"PINNING_API_URL":     c.baseURL,
		"PINNING_JWT":         c.jwt,
		"CONTENT_GATEWAY_URL": c.gatewayURL,
	}); err != nil {
		return PinnedContent{}, err
	}
	if len(data) == 0 {
		return PinnedContent{}, fmt.Errorf("empty image")
	}

	body, contentType, err := pinForm(data, name)
	if err != nil {
		return PinnedContent{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinFileToIPFS", body)
	if err != nil {
		return PinnedContent{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PinnedContent{}, fmt.Errorf("pinning service unavailable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return PinnedContent{}, err
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(raw, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return PinnedContent{}, fmt.Errorf("pinning service returned %d: %s", resp.StatusCode, msg)
	}

	cid := gjson.GetBytes(raw, "IpfsHash").String()
	if cid == "" {
		return PinnedContent{}, fmt.Errorf("pinning response has no IpfsHash: %s", string(raw))
	}
	c.log.Info("image pinned", zap.String("cid", cid), zap.String("name", name), zap.Int("bytes", len(data)))
	return PinnedContent{CID: cid, URL: c.gatewayURL + "/ipfs/" + cid}, nil
}

func pinForm(data []byte, name string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile("file", name+".png")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	meta, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
