package ai

import (
	"context"
	"errors"
	"time"
)

// Request is one vision-description call: describe a single cropped visual
// element (figure, table, flowchart) from a page.
type Request struct {
	JobID     string
	PageID    int
	ElementID int
	Class     string
	Model     string
	Timeout   time.Duration

	ImageBase64  string // base64 encoded element crop
	ImageMIME    string // crop MIME type (image/jpeg)
	SystemPrompt string
	OCRText      string // OCR text of the same region, passed as a hint
}

type Response struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Client is implemented per provider (OpenAI, Anthropic).
type Client interface {
	Name() string
	Do(ctx context.Context, req Request) (Response, error)
}

var (
	ErrRateLimited    = errors.New("rate_limited")
	ErrContentRefused = errors.New("content_refused")
)

func IsRateLimited(err error) bool    { return errors.Is(err, ErrRateLimited) }
func IsContentRefused(err error) bool { return errors.Is(err, ErrContentRefused) }
