package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/ai"
	"github.com/local/readorder/internal/metrics"
)

const visionSystemPrompt = `You describe a single element cropped from a scanned document page.
Return plain readable text only, no markdown. For a figure, state what it
shows in one or two sentences. For a table, reproduce rows as lines with
cells separated by " | ". For a flowchart, describe the steps in order.
Do not invent content that is not visible in the image.`

// describeVisual runs the 4-step provider/model failover for one visual
// element crop: primary provider primary model, primary provider secondary
// model, then the same two tiers on the secondary provider. A fatal error
// aborts the ladder; transient errors trip the shared breaker and fall
// through to the next rung.
func (w *Worker) describeVisual(ctx context.Context, job PageJob, elementID int, class, imageB64, ocrText string) (string, error) {
	primaryProv := w.cfg.Providers.PrimaryEngine
	secondaryProv := w.cfg.Providers.SecondaryEngine

	attempts := []struct {
		provider string
		model    string
	}{
		{primaryProv, w.model(primaryProv, "primary")},
		{primaryProv, w.model(primaryProv, "secondary")},
		{secondaryProv, w.model(secondaryProv, "primary")},
		{secondaryProv, w.model(secondaryProv, "secondary")},
	}

	var lastErr error
	seen := map[string]bool{}
	step := 0
	for _, a := range attempts {
		key := a.provider + "/" + a.model
		if a.model == "" || seen[key] {
			continue
		}
		seen[key] = true
		step++

		if w.breaker.IsOpen(ctx, a.provider, a.model) {
			log.Debug().
				Str("provider", a.provider).
				Str("model", a.model).
				Msg("circuit breaker open, skipping attempt")
			continue
		}

		release, ok := w.breaker.Allow(a.provider, a.model)
		if !ok {
			log.Debug().
				Str("provider", a.provider).
				Str("model", a.model).
				Msg("inflight cap reached, skipping attempt")
			continue
		}

		log.Info().
			Str("job_id", job.JobID).
			Int("page_id", job.PageID).
			Int("element_id", elementID).
			Str("provider", a.provider).
			Str("model", a.model).
			Int("attempt", step).
			Msg("describing visual element")

		resp, err := w.callProvider(job, a.provider, a.model, elementID, class, imageB64, ocrText)
		release()

		if err == nil {
			w.breaker.Close(ctx, a.provider, a.model)
			return resp.Text, nil
		}
		if isFatalError(err) {
			log.Error().
				Err(err).
				Str("job_id", job.JobID).
				Int("page_id", job.PageID).
				Str("provider", a.provider).
				Str("model", a.model).
				Msg("fatal provider error, aborting failover")
			return "", err
		}
		if isTransientError(err) {
			w.breaker.Open(ctx, a.provider, a.model)
		}
		lastErr = err
	}

	metrics.ObserveProvider("all", "all", "exhausted", 0)
	if lastErr == nil {
		lastErr = fmt.Errorf("no provider available for job %s page %d element %d",
			job.JobID, job.PageID, elementID)
	}
	return "", lastErr
}

// callProvider does one provider call with its own timeout. The timeout
// context is fresh rather than inherited so a previous attempt's deadline
// cannot poison this one.
func (w *Worker) callProvider(job PageJob, provider, model string, elementID int, class, imageB64, ocrText string) (ai.Response, error) {
	timeout := w.cfg.Worker.RequestTimeout

	req := ai.Request{
		JobID:        job.JobID,
		PageID:       job.PageID,
		ElementID:    elementID,
		Class:        class,
		Model:        model,
		Timeout:      timeout,
		ImageBase64:  imageB64,
		ImageMIME:    "image/jpeg",
		SystemPrompt: visionSystemPrompt,
		OCRText:      ocrText,
	}

	cctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var client ai.Client
	switch provider {
	case "openai":
		client = w.openai
	case "anthropic":
		client = w.anthropic
	default:
		return ai.Response{}, &ValidationError{Message: "unknown provider " + provider}
	}

	start := time.Now()
	resp, err := client.Do(cctx, req)
	dur := time.Since(start)

	if err != nil && cctx.Err() == context.DeadlineExceeded {
		metrics.ObserveProvider(provider, model, "timeout", dur)
		return ai.Response{}, &RateLimitError{Provider: provider, Model: model, Reason: "timeout"}
	}

	result := "success"
	if err != nil {
		switch {
		case ai.IsRateLimited(err):
			result = "rate_limited"
		case isTransientError(err):
			result = "transient"
		case isFatalError(err):
			result = "fatal"
		default:
			result = "unknown"
		}
	}
	metrics.ObserveProvider(provider, model, result, dur)

	if err != nil {
		log.Warn().
			Err(err).
			Str("job_id", job.JobID).
			Int("page_id", job.PageID).
			Str("provider", provider).
			Str("model", model).
			Dur("duration", dur).
			Str("result", result).
			Msg("provider call failed")
	} else {
		log.Debug().
			Str("job_id", job.JobID).
			Int("page_id", job.PageID).
			Str("provider", provider).
			Str("model", model).
			Dur("duration", dur).
			Int("tokens_in", resp.TokensIn).
			Int("tokens_out", resp.TokensOut).
			Msg("provider call success")
	}

	return resp, err
}

func (w *Worker) model(provider, tier string) string {
	var m struct{ Primary, Secondary, Fast string }
	switch provider {
	case "openai":
		m.Primary, m.Secondary, m.Fast = w.cfg.Providers.OpenAI.Primary, w.cfg.Providers.OpenAI.Secondary, w.cfg.Providers.OpenAI.Fast
	case "anthropic":
		m.Primary, m.Secondary, m.Fast = w.cfg.Providers.Anthropic.Primary, w.cfg.Providers.Anthropic.Secondary, w.cfg.Providers.Anthropic.Fast
	default:
		return ""
	}
	switch tier {
	case "secondary":
		return m.Secondary
	case "fast":
		return m.Fast
	default:
		return m.Primary
	}
}
