package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/local/readorder/internal/config"
	"github.com/local/readorder/internal/layout"
	"github.com/local/readorder/internal/store"
)

type fakeQueue struct {
	enqueued  [][]byte
	cancelled map[string]bool
}

func (q *fakeQueue) EnqueuePage(ctx context.Context, payload []byte) error {
	q.enqueued = append(q.enqueued, payload)
	return nil
}
func (q *fakeQueue) CancelJob(ctx context.Context, jobID string) error {
	if q.cancelled == nil {
		q.cancelled = map[string]bool{}
	}
	q.cancelled[jobID] = true
	return nil
}
func (q *fakeQueue) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	return q.cancelled[jobID], nil
}

type fakeStatus struct {
	m map[string]store.Status
}

func (s *fakeStatus) Set(ctx context.Context, jobID string, st store.Status) error {
	if s.m == nil {
		s.m = map[string]store.Status{}
	}
	s.m[jobID] = st
	return nil
}
func (s *fakeStatus) Get(ctx context.Context, jobID string) (store.Status, bool, error) {
	st, ok := s.m[jobID]
	return st, ok, nil
}

type savedPage struct {
	text, source, strategy string
}

type fakePages struct {
	pages map[string]savedPage
}

func (p *fakePages) key(jobID string, page int) string { return fmt.Sprintf("%s:%d", jobID, page) }

func (p *fakePages) SavePageText(ctx context.Context, jobID string, page int, text, source, strategy string) error {
	if p.pages == nil {
		p.pages = map[string]savedPage{}
	}
	p.pages[p.key(jobID, page)] = savedPage{text, source, strategy}
	return nil
}
func (p *fakePages) GetPageText(ctx context.Context, jobID string, page int) (string, error) {
	return p.pages[p.key(jobID, page)].text, nil
}
func (p *fakePages) GetPageTextWithSource(ctx context.Context, jobID string, page int) (string, string, error) {
	sp := p.pages[p.key(jobID, page)]
	return sp.text, sp.source, nil
}

type fakeElements struct {
	inputs int
	sorted int
}

func (e *fakeElements) SavePageInputs(ctx context.Context, jobID string, page int, in store.PageInputs) error {
	e.inputs++
	return nil
}
func (e *fakeElements) SaveSorted(ctx context.Context, jobID string, page int, elements []layout.Element, groups []layout.Group) error {
	e.sorted++
	return nil
}

func newTestOrchestrator() (*Orchestrator, *fakeQueue, *fakeStatus, *fakePages, *fakeElements) {
	q := &fakeQueue{}
	st := &fakeStatus{}
	pg := &fakePages{}
	el := &fakeElements{}
	o := New(config.FromEnv(), Dependencies{Queue: q, Status: st, Pages: pg, Elements: el})
	return o, q, st, pg, el
}

func seedJob(st *fakeStatus, jobID string, totalPages int) {
	_ = st.Set(context.Background(), jobID, store.Status{
		Status: "processing", Progress: 5, Message: "pages enqueued",
		Metadata: map[string]any{
			"total_pages": totalPages, "pages_done": 0, "pages_failed": 0,
			"source": "upload",
		},
	})
}

func postPageDone(t *testing.T, o *Orchestrator, jobID string, page int, body pageDoneBody) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/internal/page_done?job_id=%s&page_id=%d", jobID, page), bytes.NewReader(b))
	rec := httptest.NewRecorder()
	o.handlePageDone(rec, req)
	return rec
}

func TestPageDoneSortsAndFormats(t *testing.T) {
	o, _, st, pg, el := newTestOrchestrator()
	seedJob(st, "job1", 2)

	body := pageDoneBody{
		PageWidth:    800,
		PageHeight:   1000,
		DocumentType: "question_based",
		Elements: []layout.Element{
			layout.NewElement(0, layout.ClassQuestionNumber, 0.99, layout.NewBBox(50, 100, 30, 20)),
			layout.NewElement(1, layout.ClassQuestionText, 0.98, layout.NewBBox(90, 100, 500, 40)),
			layout.NewElement(2, layout.ClassChoices, 0.97, layout.NewBBox(90, 150, 500, 80)),
			layout.NewElement(3, layout.ClassQuestionNumber, 0.99, layout.NewBBox(50, 300, 30, 20)),
			layout.NewElement(4, layout.ClassQuestionText, 0.98, layout.NewBBox(90, 300, 500, 40)),
		},
		OCRText: map[int]string{
			0: "1",
			1: "What is the capital of France?",
			2: "A. Paris\nB. Lyon",
			3: "2",
			4: "Which river crosses it?",
		},
		AIText: map[int]string{},
	}

	rec := postPageDone(t, o, "job1", 1, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("page_done returned %d", rec.Code)
	}

	sp := pg.pages["job1:1"]
	if sp.source != "sorted" {
		t.Fatalf("source = %q, want sorted", sp.source)
	}
	if sp.strategy != "local_first" {
		t.Errorf("strategy = %q, want local_first (question_based, 2 anchors)", sp.strategy)
	}
	if !strings.HasPrefix(sp.text, "1. What is the capital of France?") {
		t.Errorf("anchor join missing:\n%s", sp.text)
	}
	if !strings.Contains(sp.text, "A. Paris") {
		t.Errorf("choices missing:\n%s", sp.text)
	}
	q1 := strings.Index(sp.text, "capital of France")
	q2 := strings.Index(sp.text, "river crosses")
	if q1 < 0 || q2 < 0 || q2 < q1 {
		t.Errorf("question order wrong:\n%s", sp.text)
	}

	if el.inputs != 1 || el.sorted != 1 {
		t.Errorf("element store calls: inputs=%d sorted=%d", el.inputs, el.sorted)
	}

	got, _, _ := st.Get(context.Background(), "job1")
	if intFromMeta(got.Metadata, "pages_done") != 1 {
		t.Errorf("pages_done = %v", got.Metadata["pages_done"])
	}
	if got.Status == "success" {
		t.Error("job finalized before all pages reported")
	}
}

func TestPageDoneEmbeddedTextPath(t *testing.T) {
	o, _, st, pg, _ := newTestOrchestrator()
	seedJob(st, "job2", 1)

	t.Setenv("RESULT_DIR", t.TempDir())

	body := pageDoneBody{
		MuPDFText:    "Plain page text from the embedded layer.",
		DocumentType: "reading_order",
		OCRText:      map[int]string{},
		AIText:       map[int]string{},
	}
	rec := postPageDone(t, o, "job2", 1, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("page_done returned %d", rec.Code)
	}

	sp := pg.pages["job2:1"]
	if sp.source != "mupdf" {
		t.Errorf("source = %q, want mupdf", sp.source)
	}

	// Single-page job: must have finalized.
	got, _, _ := st.Get(context.Background(), "job2")
	if got.Status != "success" {
		t.Errorf("status = %q, want success", got.Status)
	}
	if got.Metadata["result_local_path"] == nil {
		t.Error("result_local_path not recorded")
	}
}

func TestPageFailedCountsAndFinalizes(t *testing.T) {
	o, _, st, pg, _ := newTestOrchestrator()
	seedJob(st, "job3", 1)

	t.Setenv("RESULT_DIR", t.TempDir())

	req := httptest.NewRequest(http.MethodPost,
		"/internal/page_failed?job_id=job3&page_id=1",
		strings.NewReader(`{"error":"render failed"}`))
	rec := httptest.NewRecorder()
	o.handlePageFailed(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("page_failed returned %d", rec.Code)
	}

	got, _, _ := st.Get(context.Background(), "job3")
	if intFromMeta(got.Metadata, "pages_failed") != 1 {
		t.Errorf("pages_failed = %v", got.Metadata["pages_failed"])
	}
	if got.Status != "success" {
		t.Errorf("status = %q, want success (all pages accounted)", got.Status)
	}
	if _, ok := pg.pages["job3:1"]; ok {
		// No local file in metadata, so no fallback text should exist.
		t.Error("unexpected fallback text saved without file_local")
	}
}

func TestCancelJob(t *testing.T) {
	o, q, st, _, _ := newTestOrchestrator()
	seedJob(st, "job4", 3)

	req := httptest.NewRequest(http.MethodPost, "/webhook/cancel_job",
		strings.NewReader(`{"job_id":"job4","reason":"user request"}`))
	rec := httptest.NewRecorder()
	o.handleCancelJob(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel returned %d", rec.Code)
	}
	if !q.cancelled["job4"] {
		t.Error("queue cancel not called")
	}
	got, _, _ := st.Get(context.Background(), "job4")
	if got.Status != "cancelled" {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
}

func TestProgressNotFound(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator()
	req := httptest.NewRequest(http.MethodGet, "/progress/nope", nil)
	rec := httptest.NewRecorder()
	o.handleProgress(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("progress returned %d, want 404", rec.Code)
	}
}

func TestProcessRejectsInvalidStrategy(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator()
	body := `{"file_path":"file:///tmp/x.pdf","user_name":"u","strategy":"bogus"}`
	req := httptest.NewRequest(http.MethodPost, "/process_document", strings.NewReader(body))
	rec := httptest.NewRecorder()
	o.handleProcess(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("process returned %d, want 400", rec.Code)
	}
}
