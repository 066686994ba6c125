package store

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// PageStore persists per-page formatted text and aggregates it into the
// final document.
type PageStore struct {
	client *redis.Client
}

func NewPageStore(redisURL string) (*PageStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &PageStore{client: c}, nil
}

func (s *PageStore) Close() error { return s.client.Close() }

func (s *PageStore) pageKey(jobID string, page int) string {
	return fmt.Sprintf("readorder:job:%s:page:%d", jobID, page)
}

// SavePageText stores formatted page text. source tells how the text was
// produced ("sorted" via the detector pipeline, "mupdf" fallback) and
// strategy records which ordering strategy ran.
func (s *PageStore) SavePageText(ctx context.Context, jobID string, page int, text, source, strategy string) error {
	m := map[string]interface{}{"text": text, "source": source}
	if strategy != "" {
		m["strategy"] = strategy
	}
	return s.client.HSet(ctx, s.pageKey(jobID, page), m).Err()
}

func (s *PageStore) GetPageText(ctx context.Context, jobID string, page int) (string, error) {
	res, err := s.client.HGet(ctx, s.pageKey(jobID, page), "text").Result()
	if err == redis.Nil {
		return "", nil
	}
	return res, err
}

// GetPageTextWithSource returns both text and source for a page.
func (s *PageStore) GetPageTextWithSource(ctx context.Context, jobID string, page int) (string, string, error) {
	res, err := s.client.HGetAll(ctx, s.pageKey(jobID, page)).Result()
	if err != nil {
		return "", "", err
	}
	return res["text"], res["source"], nil
}

// AggregateText joins non-empty page texts in page order with a blank line.
func (s *PageStore) AggregateText(ctx context.Context, jobID string, total int) (string, error) {
	out := ""
	for i := 1; i <= total; i++ {
		t, err := s.GetPageText(ctx, jobID, i)
		if err != nil {
			return out, err
		}
		if t != "" {
			if out != "" {
				out += "\n\n"
			}
			out += t
		}
	}
	return out, nil
}
