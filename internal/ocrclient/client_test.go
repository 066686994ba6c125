package ocrclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ocrReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ImageMIME != "image/jpeg" {
			t.Errorf("unexpected mime %q", req.ImageMIME)
		}
		json.NewEncoder(w).Encode(ocrResp{Text: "1. What is the capital of France?"})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	text, err := c.Recognize(context.Background(), "abc", "image/jpeg")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "1. What is the capital of France?" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestRecognizeEmptyIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ocrResp{Text: ""})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	text, err := c.Recognize(context.Background(), "abc", "image/jpeg")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}
