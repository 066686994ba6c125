package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/layout"
)

// Client talks to the layout-detection inference service. The contract is
// narrow: one page image in, a list of (class, confidence, bbox) out. The
// core never validates detector correctness, it just consumes the list.
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

type detectReq struct {
	ImageBase64 string `json:"image_base64"`
	ImageMIME   string `json:"image_mime"`
	PageWidth   int    `json:"page_width"`
	PageHeight  int    `json:"page_height"`
}

type detectedRegion struct {
	Class      string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

type detectResp struct {
	Regions []detectedRegion `json:"regions"`
}

// Detect sends a rendered page image and returns detected layout elements.
// Element ids are assigned here, sequentially in detector output order, and
// stay stable for the rest of the page's lifetime.
func (c *Client) Detect(ctx context.Context, imageB64, imageMIME string, pageW, pageH int) ([]layout.Element, error) {
	body, _ := json.Marshal(detectReq{
		ImageBase64: imageB64,
		ImageMIME:   imageMIME,
		PageWidth:   pageW,
		PageHeight:  pageH,
	})

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned HTTP %d", resp.StatusCode)
	}

	var out detectResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}

	elems := make([]layout.Element, 0, len(out.Regions))
	for i, r := range out.Regions {
		elems = append(elems, layout.NewElement(i, r.Class, r.Confidence,
			layout.NewBBox(r.X, r.Y, r.Width, r.Height)))
	}
	log.Debug().Int("elements", len(elems)).Msg("layout detection complete")
	return elems, nil
}
