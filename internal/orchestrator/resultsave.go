package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// SaveAggregatedTextToLocal stores the aggregated document next to uploads.
// Directory defaults to ./uploads/results unless RESULT_DIR is set.
func SaveAggregatedTextToLocal(jobID, text string) (string, error) {
	dir := os.Getenv("RESULT_DIR")
	if dir == "" {
		dir = filepath.Join("uploads", "results")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(dir, fmt.Sprintf("%s_sorted_text.txt", jobID))
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// saveResultToS3 uploads the aggregated document under a versioned key so
// reprocessing never clobbers an earlier result.
func (o *Orchestrator) saveResultToS3(ctx context.Context, jobID, text, password string) (string, error) {
	baseKey := fmt.Sprintf("%s/%s/sorted_text", o.cfg.Storage.ResultPrefix, jobID)
	version, err := o.deps.Results.ListNextVersion(ctx, baseKey)
	if err != nil {
		version = 1
	}
	key := fmt.Sprintf("%s_v%d", baseKey, version)

	meta := &FileMeta{
		OriginalName: fmt.Sprintf("sorted_text_%s.txt", jobID),
		ContentType:  "text/plain; charset=utf-8",
	}
	if err := o.deps.Results.Upload(ctx, key, []byte(text), password, meta); err != nil {
		return "", err
	}
	return key, nil
}
