package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// monitorJobCompletion watches a job until every page reports or the job
// timeout expires. Timeout finalizes with whatever pages made it.
func (o *Orchestrator) monitorJobCompletion(ctx context.Context, jobID string, totalPages int, startTime time.Time) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Worker.JobTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	log.Info().
		Str("job_id", jobID).
		Int("total_pages", totalPages).
		Dur("timeout", o.cfg.Worker.JobTimeout).
		Msg("started job completion monitor")

	for {
		select {
		case <-ctx.Done():
			log.Warn().
				Str("job_id", jobID).
				Dur("timeout", o.cfg.Worker.JobTimeout).
				Msg("job timeout reached, finalizing with partial results")

			_ = o.deps.Queue.CancelJob(context.Background(), jobID)
			o.finalizeJobWithPartialResults(context.Background(), jobID, totalPages)
			return

		case <-ticker.C:
			if cancelled, _ := o.deps.Queue.IsCancelled(context.Background(), jobID); cancelled {
				log.Info().Str("job_id", jobID).Msg("job cancelled, stopping monitor")
				return
			}

			st, ok, err := o.deps.Status.Get(context.Background(), jobID)
			if !ok || err != nil {
				continue
			}
			if st.Status == "cancelled" {
				log.Info().Str("job_id", jobID).Msg("job cancelled via status, stopping monitor")
				return
			}
			if st.Status == "success" || st.Status == "failed" {
				log.Debug().
					Str("job_id", jobID).
					Str("status", st.Status).
					Dur("duration", time.Since(startTime)).
					Msg("job finished, stopping monitor")
				return
			}

			done := intFromMeta(st.Metadata, "pages_done")
			failed := intFromMeta(st.Metadata, "pages_failed")
			if done+failed >= totalPages {
				o.finalizeJobComplete(context.Background(), jobID, totalPages)
				return
			}
		}
	}
}
