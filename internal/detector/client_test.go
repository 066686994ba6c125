package detector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDetectAssignsSequentialIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req detectReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ImageBase64 != "abc" || req.PageWidth != 800 {
			t.Errorf("unexpected request payload: %+v", req)
		}
		json.NewEncoder(w).Encode(detectResp{Regions: []detectedRegion{
			{Class: "title", Confidence: 0.99, X: 10, Y: 10, Width: 200, Height: 30},
			{Class: "plain_text", Confidence: 0.91, X: 10, Y: 60, Width: 300, Height: 120},
		}})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	elems, err := c.Detect(context.Background(), "abc", "image/jpeg", 800, 1000)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(elems) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(elems))
	}
	for i, e := range elems {
		if e.ID != i {
			t.Errorf("element %d has id %d", i, e.ID)
		}
	}
	if elems[0].Class != "title" || elems[1].Class != "plain_text" {
		t.Errorf("classes not preserved: %q %q", elems[0].Class, elems[1].Class)
	}
}

func TestDetectHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	if _, err := c.Detect(context.Background(), "abc", "image/jpeg", 800, 1000); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}
