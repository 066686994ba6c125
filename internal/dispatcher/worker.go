package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/ai"
	"github.com/local/readorder/internal/config"
	"github.com/local/readorder/internal/imagerender"
	"github.com/local/readorder/internal/layout"
	"github.com/local/readorder/internal/limiter"
	"github.com/local/readorder/internal/metrics"
	"github.com/local/readorder/internal/mupdf"
)

const (
	maxAttempts = 3
	retryDelay  = 30 * time.Second

	// Pages with no connected dark region at least this large on both axes
	// skip the vision-description step.
	minGraphicsSizeCM = 2.0

	// Embedded text shorter than this is treated as absent (scanned page
	// with a junk text layer).
	minEmbeddedChars = 200

	idemTTL = 24 * time.Hour
)

// Queue is the slice of the Redis queue the worker consumes.
type Queue interface {
	DequeuePage(ctx context.Context, consumer string, timeout time.Duration) (string, []byte, error)
	Ack(ctx context.Context, msgID string) error
	EnqueueDelayed(ctx context.Context, payload []byte, executeAt time.Time) error
	AddDLQ(ctx context.Context, payload []byte, reason string) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
	IsIdemDone(ctx context.Context, key string) (bool, error)
	MarkIdemDone(ctx context.Context, key string, ttl time.Duration) error
}

// Detector resolves page images into layout elements.
type Detector interface {
	Detect(ctx context.Context, imageB64, imageMIME string, pageW, pageH int) ([]layout.Element, error)
}

// OCR resolves element crops into text.
type OCR interface {
	Recognize(ctx context.Context, imageB64, imageMIME string) (string, error)
}

// PageJob is one unit of work on the queue: a single page of a document.
type PageJob struct {
	JobID          string `json:"job_id"`
	FilePath       string `json:"file_path"`
	PageID         int    `json:"page_id"`
	DocumentType   string `json:"document_type"`
	Strategy       string `json:"strategy,omitempty"`
	User           string `json:"user,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
	Attempt        int    `json:"attempt"`
	Source         string `json:"source,omitempty"`
}

// PageDone is the callback body posted to the orchestrator when all the raw
// materials of a page are ready for sorting and formatting.
type PageDone struct {
	PageWidth    float64          `json:"page_width"`
	PageHeight   float64          `json:"page_height"`
	Elements     []layout.Element `json:"elements"`
	OCRText      map[int]string   `json:"ocr_text"`
	AIText       map[int]string   `json:"ai_text"`
	MuPDFText    string           `json:"mupdf_text,omitempty"`
	DocumentType string           `json:"document_type"`
	Strategy     string           `json:"strategy,omitempty"`
}

// Worker pulls page jobs off the queue, turns each page into elements plus
// per-element text, and reports back to the orchestrator.
type Worker struct {
	cfg       config.Config
	q         Queue
	det       Detector
	ocr       OCR
	openai    ai.Client
	anthropic ai.Client
	breaker   *limiter.Adaptive
	extractor *mupdf.Extractor
	stop      chan struct{}
}

func New(cfg config.Config, q Queue, det Detector, ocr OCR, breaker *limiter.Adaptive) *Worker {
	return &Worker{
		cfg:       cfg,
		q:         q,
		det:       det,
		ocr:       ocr,
		openai:    ai.NewOpenAIClient(),
		anthropic: ai.NewAnthropicClient(),
		breaker:   breaker,
		extractor: mupdf.NewExtractor(),
		stop:      make(chan struct{}),
	}
}

func (w *Worker) Start() {
	n := w.cfg.Worker.Concurrency
	if n <= 0 {
		n = 2
	}
	for i := 0; i < n; i++ {
		go w.loop(i)
	}
}

func (w *Worker) Stop(ctx context.Context) error {
	close(w.stop)
	return nil
}

func (w *Worker) loop(id int) {
	consumer := fmt.Sprintf("worker-%d-%s", id, uuid.NewString()[:8])
	log.Info().Int("worker", id).Str("consumer", consumer).Msg("page worker started")

	for {
		select {
		case <-w.stop:
			log.Info().Int("worker", id).Msg("page worker stopped")
			return
		default:
		}

		msgID, data, err := w.q.DequeuePage(context.Background(), consumer, 2*time.Second)
		if err != nil {
			log.Error().Err(err).Msg("queue dequeue error")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if data == nil {
			continue
		}

		var job PageJob
		if err := json.Unmarshal(data, &job); err != nil {
			log.Error().Err(err).Str("msg_id", msgID).Msg("malformed page job, sending to DLQ")
			_ = w.q.AddDLQ(context.Background(), data, "unmarshal: "+err.Error())
			_ = w.q.Ack(context.Background(), msgID)
			continue
		}

		w.handle(msgID, data, job)
	}
}

func (w *Worker) handle(msgID string, raw []byte, job PageJob) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Worker.PageTotalTimeout)
	defer cancel()

	if cancelled, _ := w.q.IsCancelled(ctx, job.JobID); cancelled {
		log.Warn().Str("job_id", job.JobID).Int("page_id", job.PageID).Msg("job cancelled, skipping page")
		_ = w.q.Ack(ctx, msgID)
		return
	}
	if job.IdempotencyKey != "" {
		if done, _ := w.q.IsIdemDone(ctx, job.IdempotencyKey); done {
			log.Info().Str("job_id", job.JobID).Int("page_id", job.PageID).Msg("page already processed, skipping")
			_ = w.q.Ack(ctx, msgID)
			return
		}
	}

	done, err := w.processPage(ctx, job)
	if err != nil {
		metrics.IncProcessed("error")
		log.Error().
			Err(err).
			Str("job_id", job.JobID).
			Int("page_id", job.PageID).
			Int("attempt", job.Attempt).
			Msg("page processing failed")

		if job.Attempt+1 < maxAttempts {
			job.Attempt++
			payload, _ := json.Marshal(job)
			if qerr := w.q.EnqueueDelayed(ctx, payload, time.Now().Add(retryDelay)); qerr == nil {
				_ = w.q.Ack(ctx, msgID)
				return
			}
		}
		_ = w.q.AddDLQ(ctx, raw, err.Error())
		w.postPageFailed(job, err)
		_ = w.q.Ack(ctx, msgID)
		return
	}

	if err := w.postPageDone(job, done); err != nil {
		// The orchestrator callback failed; leave the message unacked so the
		// stream redelivers it.
		log.Error().Err(err).Str("job_id", job.JobID).Int("page_id", job.PageID).Msg("page_done callback failed")
		return
	}

	if job.IdempotencyKey != "" {
		_ = w.q.MarkIdemDone(context.Background(), job.IdempotencyKey, idemTTL)
	}
	metrics.IncProcessed("success")
	_ = w.q.Ack(context.Background(), msgID)
}

// processPage assembles everything the orchestrator needs to sort and format
// one page: detected elements, OCR text per element, and vision descriptions
// for visual elements when the page actually carries graphics.
func (w *Worker) processPage(ctx context.Context, job PageJob) (*PageDone, error) {
	embedded, err := w.extractor.ExtractTextByPage(job.FilePath, job.PageID)
	if err != nil {
		log.Debug().Err(err).Str("job_id", job.JobID).Int("page_id", job.PageID).Msg("no embedded text layer")
		embedded = ""
	}

	hasGraphics, gerr := imagerender.HasLargeGraphics(job.FilePath, job.PageID, minGraphicsSizeCM)
	if gerr != nil {
		return nil, fmt.Errorf("graphics pre-check: %w", gerr)
	}

	// A clean text layer on a graphics-free page makes the whole detection
	// pipeline unnecessary.
	if len(embedded) >= minEmbeddedChars && !hasGraphics {
		log.Info().
			Str("job_id", job.JobID).
			Int("page_id", job.PageID).
			Int("chars", len(embedded)).
			Msg("using embedded text layer")
		return &PageDone{
			MuPDFText:    embedded,
			OCRText:      map[int]string{},
			AIText:       map[int]string{},
			DocumentType: job.DocumentType,
			Strategy:     job.Strategy,
		}, nil
	}

	pageJPEG, pxW, pxH, err := imagerender.RenderPageToJPEG(
		job.FilePath, job.PageID, w.cfg.Worker.RenderDPI, w.cfg.Worker.JPEGQuality, string(imagerender.ColorRGB))
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	pageB64 := imagerender.EncodeToBase64(pageJPEG)

	elements, err := w.det.Detect(ctx, pageB64, "image/jpeg", pxW, pxH)
	if err != nil {
		metrics.IncDetector("error")
		return nil, fmt.Errorf("detect layout: %w", err)
	}
	metrics.IncDetector("success")

	ocrText := make(map[int]string, len(elements))
	aiText := make(map[int]string)

	for _, e := range elements {
		crop, err := imagerender.CropJPEG(pageJPEG, e.Box, w.cfg.Worker.JPEGQuality)
		if err != nil {
			log.Warn().
				Err(err).
				Str("job_id", job.JobID).
				Int("page_id", job.PageID).
				Int("element_id", e.ID).
				Msg("element crop failed, skipping text")
			continue
		}
		cropB64 := imagerender.EncodeToBase64(crop)

		text, err := w.ocr.Recognize(ctx, cropB64, "image/jpeg")
		if err != nil {
			metrics.IncOCR("error")
			log.Warn().
				Err(err).
				Str("job_id", job.JobID).
				Int("page_id", job.PageID).
				Int("element_id", e.ID).
				Msg("ocr failed for element")
		} else {
			metrics.IncOCR("success")
			ocrText[e.ID] = text
		}

		if layout.IsVisualClass(e.Class) && hasGraphics {
			desc, err := w.describeVisual(ctx, job, e.ID, e.Class, cropB64, ocrText[e.ID])
			if err != nil {
				// OCR text of the region remains as the fallback source.
				log.Warn().
					Err(err).
					Str("job_id", job.JobID).
					Int("page_id", job.PageID).
					Int("element_id", e.ID).
					Str("class", e.Class).
					Msg("vision description unavailable")
			} else {
				aiText[e.ID] = desc
			}
		}
	}

	return &PageDone{
		PageWidth:    float64(pxW),
		PageHeight:   float64(pxH),
		Elements:     elements,
		OCRText:      ocrText,
		AIText:       aiText,
		DocumentType: job.DocumentType,
		Strategy:     job.Strategy,
	}, nil
}

func (w *Worker) postPageDone(job PageJob, body *PageDone) error {
	url := fmt.Sprintf("http://127.0.0.1:%s/internal/page_done?job_id=%s&page_id=%d",
		getenv("PORT", "8080"), job.JobID, job.PageID)
	b, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("page_done returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (w *Worker) postPageFailed(job PageJob, cause error) {
	url := fmt.Sprintf("http://127.0.0.1:%s/internal/page_failed?job_id=%s&page_id=%d",
		getenv("PORT", "8080"), job.JobID, job.PageID)
	body, _ := json.Marshal(map[string]string{"error": cause.Error()})
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Str("job_id", job.JobID).Int("page_id", job.PageID).Msg("page_failed callback failed")
		return
	}
	resp.Body.Close()
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
