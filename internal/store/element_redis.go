package store

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/readorder/internal/layout"
)

// PageInputs is everything the dispatcher collected for one page: the raw
// detections plus the two per-element text maps the core consumes.
type PageInputs struct {
	PageWidth  float64          `json:"page_width"`
	PageHeight float64          `json:"page_height"`
	Elements   []layout.Element `json:"elements"`
	OCRText    map[int]string   `json:"ocr_text"`
	AIText     map[int]string   `json:"ai_text"`
}

// ElementStore persists per-page detection inputs and the sorted ordering
// so pages can be re-rendered or audited later.
type ElementStore struct {
	client *redis.Client
}

func NewElementStore(redisURL string) (*ElementStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &ElementStore{client: c}, nil
}

func (s *ElementStore) Close() error { return s.client.Close() }

func (s *ElementStore) pageKey(jobID string, page int) string {
	return fmt.Sprintf("readorder:job:%s:elements:%d", jobID, page)
}

// SavePageInputs stores the raw inputs for a page.
func (s *ElementStore) SavePageInputs(ctx context.Context, jobID string, page int, in PageInputs) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal page inputs: %w", err)
	}
	return s.client.HSet(ctx, s.pageKey(jobID, page), "inputs", string(b)).Err()
}

// GetPageInputs returns the stored inputs, or ok=false when absent.
func (s *ElementStore) GetPageInputs(ctx context.Context, jobID string, page int) (PageInputs, bool, error) {
	raw, err := s.client.HGet(ctx, s.pageKey(jobID, page), "inputs").Result()
	if err == redis.Nil {
		return PageInputs{}, false, nil
	}
	if err != nil {
		return PageInputs{}, false, err
	}
	var in PageInputs
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return PageInputs{}, false, fmt.Errorf("unmarshal page inputs: %w", err)
	}
	return in, true, nil
}

// SaveSorted stores the sorted, annotated elements alongside the inputs.
func (s *ElementStore) SaveSorted(ctx context.Context, jobID string, page int, elements []layout.Element, groups []layout.Group) error {
	b, err := json.Marshal(map[string]any{"elements": elements, "groups": groups})
	if err != nil {
		return fmt.Errorf("marshal sorted elements: %w", err)
	}
	return s.client.HSet(ctx, s.pageKey(jobID, page), "sorted", string(b)).Err()
}
