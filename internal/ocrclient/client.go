package ocrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Client talks to the OCR service. Recognition runs per element crop so
// the text map keys line up with detector element ids.
type Client struct {
	http    *http.Client
	url     string
	timeout time.Duration
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{http: &http.Client{}, url: url, timeout: timeout}
}

type ocrReq struct {
	ImageBase64 string `json:"image_base64"`
	ImageMIME   string `json:"image_mime"`
}

type ocrResp struct {
	Text string `json:"text"`
}

// Recognize returns the plain text of one element crop. An empty string is
// a valid result (blank or purely graphical region), not an error.
func (c *Client) Recognize(ctx context.Context, imageB64, imageMIME string) (string, error) {
	body, _ := json.Marshal(ocrReq{ImageBase64: imageB64, ImageMIME: imageMIME})

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr returned HTTP %d", resp.StatusCode)
	}

	var out ocrResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	log.Trace().Int("chars", len(out.Text)).Msg("ocr complete")
	return out.Text, nil
}
