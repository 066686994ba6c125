package orchestrator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/formatter"
	"github.com/local/readorder/internal/layout"
	"github.com/local/readorder/internal/metrics"
	"github.com/local/readorder/internal/mupdf"
	"github.com/local/readorder/internal/sorter"
	"github.com/local/readorder/internal/store"
)

// pageDoneBody is the worker callback payload. Element ids key the two
// text maps.
type pageDoneBody struct {
	PageWidth    float64          `json:"page_width"`
	PageHeight   float64          `json:"page_height"`
	Elements     []layout.Element `json:"elements"`
	OCRText      map[int]string   `json:"ocr_text"`
	AIText       map[int]string   `json:"ai_text"`
	MuPDFText    string           `json:"mupdf_text"`
	DocumentType string           `json:"document_type"`
	Strategy     string           `json:"strategy"`
}

func (o *Orchestrator) handlePageDone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	jobID := r.URL.Query().Get("job_id")
	pageIDStr := r.URL.Query().Get("page_id")
	if jobID == "" || pageIDStr == "" {
		http.Error(w, "missing job_id/page_id", http.StatusBadRequest)
		return
	}
	page, err := strconv.Atoi(pageIDStr)
	if err != nil || page < 1 {
		http.Error(w, "invalid page_id", http.StatusBadRequest)
		return
	}

	if cancelled, _ := o.deps.Queue.IsCancelled(r.Context(), jobID); cancelled {
		w.WriteHeader(http.StatusOK)
		return
	}

	var body pageDoneBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if len(body.Elements) == 0 && body.MuPDFText != "" {
		// Embedded text layer path: nothing to sort, the text is already
		// in reading order.
		_ = o.deps.Pages.SavePageText(r.Context(), jobID, page, body.MuPDFText, "mupdf", "")
	} else {
		o.sortAndFormatPage(r, jobID, page, body)
	}

	o.recordPageOutcome(r, jobID, page, false)
	w.WriteHeader(http.StatusOK)
}

// sortAndFormatPage runs the adaptive sort and the rule table over one
// page's detections and persists both the ordering and the rendered text.
func (o *Orchestrator) sortAndFormatPage(r *http.Request, jobID string, page int, body pageDoneBody) {
	ctx := r.Context()

	_ = o.deps.Elements.SavePageInputs(ctx, jobID, page, store.PageInputs{
		PageWidth:  body.PageWidth,
		PageHeight: body.PageHeight,
		Elements:   body.Elements,
		OCRText:    body.OCRText,
		AIText:     body.AIText,
	})

	var forced *sorter.Strategy
	if body.Strategy != "" {
		if s, err := sorter.ParseStrategy(body.Strategy); err == nil {
			forced = &s
		}
	}

	sortStart := time.Now()
	res, err := o.srt.SortAdaptive(body.Elements, body.DocumentType, body.PageWidth, body.PageHeight, forced)
	if err != nil {
		// Ordering contract violated; keep the page usable by joining the
		// OCR text in detector order.
		log.Error().
			Err(err).
			Str("job_id", jobID).
			Int("page", page).
			Msg("sort failed, storing unsorted text")
		_ = o.deps.Pages.SavePageText(ctx, jobID, page, joinDetectorOrder(body.Elements, body.OCRText), "unsorted", "")
		return
	}
	layoutType := "forced"
	if res.Profile != nil {
		layoutType = string(res.Profile.LayoutType)
	}
	metrics.ObserveSort(res.Strategy.String(), layoutType, time.Since(sortStart))

	fmtStart := time.Now()
	text := formatter.FormatPage(res, body.OCRText, body.AIText, body.DocumentType)
	metrics.ObserveFormat(time.Since(fmtStart))

	_ = o.deps.Elements.SaveSorted(ctx, jobID, page, res.Elements, res.Groups)
	_ = o.deps.Pages.SavePageText(ctx, jobID, page, text, "sorted", res.Strategy.String())

	log.Info().
		Str("job_id", jobID).
		Int("page", page).
		Str("strategy", res.Strategy.String()).
		Str("layout", layoutType).
		Int("elements", len(res.Elements)).
		Int("groups", len(res.Groups)).
		Msg("page sorted and formatted")
}

func (o *Orchestrator) handlePageFailed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	jobID := r.URL.Query().Get("job_id")
	pageIDStr := r.URL.Query().Get("page_id")
	if jobID == "" || pageIDStr == "" {
		http.Error(w, "missing job_id/page_id", http.StatusBadRequest)
		return
	}
	page, err := strconv.Atoi(pageIDStr)
	if err != nil || page < 1 {
		http.Error(w, "invalid page_id", http.StatusBadRequest)
		return
	}

	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	log.Warn().
		Str("job_id", jobID).
		Int("page", page).
		Str("error", body.Error).
		Msg("page failed, trying embedded text fallback")

	// Best effort: the page may still have a usable text layer.
	if st, ok, _ := o.deps.Status.Get(r.Context(), jobID); ok {
		if localPath, _ := st.Metadata["file_local"].(string); localPath != "" {
			if txt, err := mupdf.NewExtractor().ExtractTextByPage(localPath, page); err == nil && txt != "" {
				_ = o.deps.Pages.SavePageText(r.Context(), jobID, page, txt, "mupdf_fallback", "")
			}
		}
	}

	o.recordPageOutcome(r, jobID, page, true)
	w.WriteHeader(http.StatusOK)
}

// recordPageOutcome bumps the done/failed counters, refreshes progress and
// finalizes the job once every page is accounted for.
func (o *Orchestrator) recordPageOutcome(r *http.Request, jobID string, page int, failed bool) {
	ctx := r.Context()
	st, ok, err := o.deps.Status.Get(ctx, jobID)
	if err != nil || !ok {
		return
	}
	if st.Metadata == nil {
		st.Metadata = map[string]any{}
	}

	if failed {
		st.Metadata["pages_failed"] = intFromMeta(st.Metadata, "pages_failed") + 1
		st.Message = fmt.Sprintf("page %d failed", page)
	} else {
		st.Metadata["pages_done"] = intFromMeta(st.Metadata, "pages_done") + 1
		st.Message = fmt.Sprintf("page %d done", page)
	}

	done := intFromMeta(st.Metadata, "pages_done")
	fail := intFromMeta(st.Metadata, "pages_failed")
	total := intFromMeta(st.Metadata, "total_pages")
	if total > 0 {
		st.Progress = int(float64(done+fail) / float64(total) * 100)
	}
	_ = o.deps.Status.Set(ctx, jobID, st)

	if total > 0 && done+fail >= total {
		o.finalizeJobComplete(ctx, jobID, total)
	}
}

// joinDetectorOrder is the sort-failure fallback: OCR text in element id
// order, blocks separated by blank lines.
func joinDetectorOrder(elems []layout.Element, ocr map[int]string) string {
	ids := make([]int, 0, len(elems))
	for _, e := range elems {
		ids = append(ids, e.ID)
	}
	sort.Ints(ids)

	var blocks []string
	for _, id := range ids {
		if t := strings.TrimSpace(ocr[id]); t != "" {
			blocks = append(blocks, t)
		}
	}
	return formatter.CleanOutput(strings.Join(blocks, "\n\n"))
}
