package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/config"
	"github.com/local/readorder/internal/layout"
	"github.com/local/readorder/internal/sorter"
	"github.com/local/readorder/internal/store"
)

// Queue is the producer-side slice of the page queue.
type Queue interface {
	EnqueuePage(ctx context.Context, payload []byte) error
	CancelJob(ctx context.Context, jobID string) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
}

// StatusStore persists externally visible job state.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.Status) error
	Get(ctx context.Context, jobID string) (store.Status, bool, error)
}

// PageStore persists formatted page text.
type PageStore interface {
	SavePageText(ctx context.Context, jobID string, page int, text, source, strategy string) error
	GetPageText(ctx context.Context, jobID string, page int) (string, error)
	GetPageTextWithSource(ctx context.Context, jobID string, page int) (string, string, error)
}

// ElementStore persists raw detections and the sorted ordering per page.
type ElementStore interface {
	SavePageInputs(ctx context.Context, jobID string, page int, in store.PageInputs) error
	SaveSorted(ctx context.Context, jobID string, page int, elements []layout.Element, groups []layout.Group) error
}

// ResultStore saves aggregated documents; backed by S3 in production.
type ResultStore interface {
	Upload(ctx context.Context, key string, data []byte, password string, meta *FileMeta) error
	ListNextVersion(ctx context.Context, baseKey string) (int, error)
}

// FileMeta mirrors the storage metadata shape without importing the S3
// package here.
type FileMeta struct {
	OriginalName string
	ContentType  string
}

// Converter turns office documents into PDFs before page fan-out.
type Converter interface {
	ConvertToPDF(ctx context.Context, inputPath, outputDir string) (string, error)
}

type Dependencies struct {
	Queue    Queue
	Status   StatusStore
	Pages    PageStore
	Elements ElementStore
	Results  ResultStore // nil disables S3 result upload
	Convert  Converter   // nil rejects non-PDF inputs
}

// Orchestrator owns the HTTP surface: it fans document jobs out to page
// workers and, when pages come back, runs the reading-order sort and the
// rule-driven formatting before persisting the page text.
type Orchestrator struct {
	cfg  config.Config
	deps Dependencies
	srt  *sorter.Sorter
}

func New(cfg config.Config, deps Dependencies) *Orchestrator {
	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		srt: sorter.New(sorter.Config{
			LeftEdgeTolRatio: cfg.Sorter.LeftEdgeTolRatio,
			ColumnGapRatio:   cfg.Sorter.ColumnGapRatio,
			OrphanGapRatio:   cfg.Sorter.OrphanGapRatio,
			AnchorYTol:       cfg.Sorter.AnchorYTol,
			HighConsistency:  cfg.Sorter.HighConsistency,
			LowAdjacency:     cfg.Sorter.LowAdjacency,
			HighAdjacency:    cfg.Sorter.HighAdjacency,
			MinAnchors:       cfg.Sorter.MinAnchors,
		}),
	}
}

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/process_document", o.handleProcess)
	mux.HandleFunc("/process_upload", o.handleProcessUpload)
	mux.HandleFunc("/progress/", o.handleProgress)
	mux.HandleFunc("/download_result/", o.handleDownloadResult)
	mux.HandleFunc("/webhook/cancel_job", o.handleCancelJob)
	mux.HandleFunc("/internal/page_done", o.handlePageDone)
	mux.HandleFunc("/internal/page_failed", o.handlePageFailed)
}

type processReq struct {
	FilePath     string `json:"file_path"`
	FileURL      string `json:"file_url"`
	UserName     string `json:"user_name"`
	UserID       string `json:"user_id"`
	Password     string `json:"password"`
	DocumentType string `json:"document_type"`
	Strategy     string `json:"strategy"`
	Source       string `json:"source"`
}

type processResp struct {
	Status   string         `json:"status"`
	JobID    string         `json:"job_id"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (o *Orchestrator) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	var req processReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	filePath := req.FilePath
	if filePath == "" {
		filePath = req.FileURL
	}
	user := req.UserName
	if user == "" {
		user = req.UserID
	}
	if filePath == "" || user == "" {
		http.Error(w, "missing file_path/file_url or user_name/user_id", http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(filePath, "s3://") && !strings.HasPrefix(filePath, "http://") &&
		!strings.HasPrefix(filePath, "https://") && !strings.HasPrefix(filePath, "file://") {
		filePath = fmt.Sprintf("s3://%s/%s", o.cfg.Storage.Bucket, filePath)
	}

	docType := normalizeDocType(req.DocumentType)
	if req.Strategy != "" {
		if _, err := sorter.ParseStrategy(req.Strategy); err != nil {
			http.Error(w, "invalid strategy: "+req.Strategy, http.StatusBadRequest)
			return
		}
	}

	jobID := uuid.NewString()
	log.Info().
		Str("job_id", jobID).
		Str("file", filePath).
		Str("user", user).
		Str("document_type", docType).
		Str("strategy", req.Strategy).
		Msg("job created")

	start := time.Now()
	_ = o.deps.Status.Set(r.Context(), jobID, store.Status{
		Status: "queued", Progress: 0, Message: "queued", Start: &start,
		Metadata: map[string]any{
			"file_path": filePath, "user": user,
			"document_type": docType, "strategy": req.Strategy,
			"password": req.Password, "source": sourceOrDefault(req.Source),
		},
	})

	// Workers open pages with go-fitz, so remote documents get pulled to
	// local disk exactly once, up front. Office documents are converted to
	// PDF at the same step.
	localPath, err := o.materializePDF(r.Context(), filePath, req.Password)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("cannot materialize document")
		o.failJob(r.Context(), jobID, "cannot fetch document: "+err.Error())
		http.Error(w, "cannot fetch document", http.StatusBadGateway)
		return
	}

	pages, err := DetermineTotalPages(localPath)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("page count failed")
		o.failJob(r.Context(), jobID, "page count failed: "+err.Error())
		http.Error(w, "unreadable document", http.StatusUnprocessableEntity)
		return
	}

	if err := o.enqueueJob(r.Context(), jobID, localPath, docType, req.Strategy, user, sourceOrDefault(req.Source), pages); err != nil {
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}

	_ = o.deps.Status.Set(r.Context(), jobID, store.Status{
		Status: "processing", Progress: 5, Message: "pages enqueued", Start: &start,
		Metadata: map[string]any{
			"file_path": filePath, "file_local": localPath, "user": user,
			"document_type": docType, "strategy": req.Strategy,
			"password": req.Password, "source": sourceOrDefault(req.Source),
			"total_pages": pages, "pages_done": 0, "pages_failed": 0,
		},
	})

	go o.monitorJobCompletion(context.Background(), jobID, pages, start)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(processResp{
		Status: "ok", JobID: jobID, Message: "document job created",
		Metadata: map[string]any{"total_pages": pages, "timestamp": time.Now().Format(time.RFC3339)},
	})
}

// handleProcessUpload accepts multipart uploads from the dashboard; the
// flow mirrors handleProcess but never touches S3.
func (o *Orchestrator) handleProcessUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	user := r.FormValue("user_name")
	if user == "" {
		http.Error(w, "missing user_name", http.StatusBadRequest)
		return
	}
	docType := normalizeDocType(r.FormValue("document_type"))
	strategy := r.FormValue("strategy")
	if strategy != "" {
		if _, err := sorter.ParseStrategy(strategy); err != nil {
			http.Error(w, "invalid strategy: "+strategy, http.StatusBadRequest)
			return
		}
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		http.Error(w, "cannot create upload dir", http.StatusInternalServerError)
		return
	}

	jobID := uuid.NewString()
	name := hdr.Filename
	if name == "" {
		name = "upload.pdf"
	}
	localPath := fmt.Sprintf("%s/%s_%s", strings.TrimRight(uploadDir, "/"), jobID, name)
	out, err := os.Create(localPath)
	if err != nil {
		http.Error(w, "cannot save upload", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		http.Error(w, "write failed", http.StatusInternalServerError)
		return
	}
	_ = out.Close()

	localPath, err = o.convertIfOffice(r.Context(), localPath)
	if err != nil {
		http.Error(w, "unsupported document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	start := time.Now()
	pages, err := DetermineTotalPages(localPath)
	if err != nil {
		http.Error(w, "unreadable document", http.StatusUnprocessableEntity)
		return
	}

	if err := o.enqueueJob(r.Context(), jobID, localPath, docType, strategy, user, "upload", pages); err != nil {
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}

	_ = o.deps.Status.Set(r.Context(), jobID, store.Status{
		Status: "processing", Progress: 5, Message: "pages enqueued", Start: &start,
		Metadata: map[string]any{
			"file_local": localPath, "user": user,
			"document_type": docType, "strategy": strategy, "source": "upload",
			"total_pages": pages, "pages_done": 0, "pages_failed": 0,
		},
	})

	go o.monitorJobCompletion(context.Background(), jobID, pages, start)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(processResp{Status: "ok", JobID: jobID, Message: "upload job created"})
}

func (o *Orchestrator) enqueueJob(ctx context.Context, jobID, localPath, docType, strategy, user, source string, pages int) error {
	for p := 1; p <= pages; p++ {
		payload, _ := json.Marshal(map[string]any{
			"job_id":          jobID,
			"file_path":       localPath,
			"page_id":         p,
			"document_type":   docType,
			"strategy":        strategy,
			"user":            user,
			"source":          source,
			"idempotency_key": fmt.Sprintf("doc:%s:page:%d", jobID, p),
			"attempt":         0,
		})
		if err := o.deps.Queue.EnqueuePage(ctx, payload); err != nil {
			log.Error().Err(err).Str("job_id", jobID).Int("page", p).Msg("enqueue failed")
			return err
		}
	}
	return nil
}

func (o *Orchestrator) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/progress/")
	st, ok, err := o.deps.Status.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":    st.Status == "success",
		"job_id":     id,
		"status":     st.Status,
		"progress":   st.Progress,
		"message":    st.Message,
		"start_time": st.Start,
		"end_time":   st.End,
	})
}

// handleDownloadResult serves the aggregated text of upload-origin jobs.
func (o *Orchestrator) handleDownloadResult(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/download_result/")
	st, ok, err := o.deps.Status.Get(r.Context(), id)
	if err != nil || !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if st.Status != "success" {
		http.Error(w, "not ready", http.StatusAccepted)
		return
	}
	if st.Metadata == nil || st.Metadata["source"] != "upload" {
		http.Error(w, "not an upload job", http.StatusBadRequest)
		return
	}
	p, _ := st.Metadata["result_local_path"].(string)
	if p == "" {
		http.Error(w, "result not available", http.StatusNotFound)
		return
	}
	b, err := os.ReadFile(p)
	if err != nil {
		http.Error(w, "failed to read", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=sorted_text_%s.txt", id))
	_, _ = w.Write(b)
}

type cancelReq struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason,omitempty"`
}

func (o *Orchestrator) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.JobID == "" {
		http.Error(w, "missing job_id", http.StatusBadRequest)
		return
	}
	if err := o.deps.Queue.CancelJob(r.Context(), req.JobID); err != nil {
		http.Error(w, "cancel failed", http.StatusInternalServerError)
		return
	}
	st, ok, _ := o.deps.Status.Get(r.Context(), req.JobID)
	if !ok {
		st = store.Status{}
	}
	st.Status = "cancelled"
	st.Progress = 0
	if req.Reason != "" {
		st.Message = "Cancelled: " + req.Reason
	} else {
		st.Message = "Cancelled"
	}
	now := time.Now()
	st.End = &now
	_ = o.deps.Status.Set(r.Context(), req.JobID, st)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "job_id": req.JobID, "status": "cancelled"})
}

func (o *Orchestrator) failJob(ctx context.Context, jobID, msg string) {
	st, ok, _ := o.deps.Status.Get(ctx, jobID)
	if !ok {
		st = store.Status{}
	}
	now := time.Now()
	st.Status = "failed"
	st.Message = msg
	st.End = &now
	_ = o.deps.Status.Set(ctx, jobID, st)
}

func normalizeDocType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case sorter.DocQuestionBased:
		return sorter.DocQuestionBased
	default:
		return sorter.DocReadingOrder
	}
}

func sourceOrDefault(s string) string {
	if s == "" {
		return "api"
	}
	return s
}
