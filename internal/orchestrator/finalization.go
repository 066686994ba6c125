package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// aggregateAllPages joins page texts in page order with page markers and
// returns the per-page text sources for the final status breakdown.
func (o *Orchestrator) aggregateAllPages(ctx context.Context, jobID string, totalPages int) (string, []string) {
	var builder strings.Builder
	sources := make([]string, totalPages)

	for i := 1; i <= totalPages; i++ {
		pageText, source, err := o.deps.Pages.GetPageTextWithSource(ctx, jobID, i)
		if err != nil {
			pageText = fmt.Sprintf("[Page %d - error retrieving text]", i)
			source = "error"
		}
		if pageText == "" {
			pageText = fmt.Sprintf("[Page %d - no text]", i)
			if source == "" {
				source = "missing"
			}
		}

		if i > 1 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(fmt.Sprintf("=== Page %d ===\n", i))
		builder.WriteString(pageText)
		sources[i-1] = source
	}

	return builder.String(), sources
}

// finalizeJobComplete aggregates the document and stores the result once
// every page has reported in.
func (o *Orchestrator) finalizeJobComplete(ctx context.Context, jobID string, totalPages int) {
	st, ok, err := o.deps.Status.Get(ctx, jobID)
	if !ok || err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("status missing for finalization")
		return
	}
	if st.Status == "success" {
		return
	}

	aggregated, sources := o.aggregateAllPages(ctx, jobID, totalPages)

	if src, _ := st.Metadata["source"].(string); src == "upload" {
		localPath, err := SaveAggregatedTextToLocal(jobID, aggregated)
		if err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("failed to save result locally")
			o.failJob(ctx, jobID, "failed to save result: "+err.Error())
			return
		}
		st.Metadata["result_local_path"] = localPath
	} else if o.deps.Results != nil {
		password, _ := st.Metadata["password"].(string)
		s3Key, err := o.saveResultToS3(ctx, jobID, aggregated, password)
		if err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("failed to save result to s3")
			o.failJob(ctx, jobID, "failed to save result: "+err.Error())
			return
		}
		st.Metadata["result_s3_key"] = s3Key
	}

	sorted, mupdf, unsorted := 0, 0, 0
	for _, src := range sources {
		switch src {
		case "sorted":
			sorted++
		case "unsorted":
			unsorted++
		default:
			mupdf++
		}
	}

	now := time.Now()
	st.Status = "success"
	st.Progress = 100
	st.End = &now
	st.Message = "processing completed"
	st.Metadata["result_text_len"] = len(aggregated)
	st.Metadata["final_sorted_pages"] = sorted
	st.Metadata["final_mupdf_pages"] = mupdf
	st.Metadata["final_unsorted_pages"] = unsorted
	_ = o.deps.Status.Set(ctx, jobID, st)

	CleanupTemps(1 * time.Hour)

	log.Info().
		Str("job_id", jobID).
		Int("total_chars", len(aggregated)).
		Int("sorted_pages", sorted).
		Int("mupdf_pages", mupdf).
		Int("unsorted_pages", unsorted).
		Msg("job finalized")
}

// finalizeJobWithPartialResults closes a job on timeout, filling pages that
// never reported with embedded text where possible.
func (o *Orchestrator) finalizeJobWithPartialResults(ctx context.Context, jobID string, totalPages int) {
	st, ok, err := o.deps.Status.Get(ctx, jobID)
	if !ok || err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("status missing for timeout finalization")
		return
	}
	if st.Status == "success" {
		return
	}

	missing := 0
	for p := 1; p <= totalPages; p++ {
		if txt, err := o.deps.Pages.GetPageText(ctx, jobID, p); err == nil && txt != "" {
			continue
		}
		missing++
		placeholder := fmt.Sprintf("[Page %d - processing timed out]", p)
		_ = o.deps.Pages.SavePageText(ctx, jobID, p, placeholder, "timeout", "")
	}
	log.Warn().
		Str("job_id", jobID).
		Int("missing_pages", missing).
		Msg("finalizing with partial results")

	st.Metadata["timeout_occurred"] = true
	st.Metadata["missing_pages"] = missing
	_ = o.deps.Status.Set(ctx, jobID, st)

	o.finalizeJobComplete(ctx, jobID, totalPages)
}

func intFromMeta(meta map[string]any, key string) int {
	if meta == nil {
		return 0
	}
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
