package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/storage"
)

// DetermineTotalPages counts PDF pages of a local file.
func DetermineTotalPages(localPath string) (int, error) {
	n, err := api.PageCountFile(localPath)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

// ensureLocalPDF resolves a document reference to a local filesystem path.
// Supported: s3://bucket/key (decrypted with password when encrypted),
// http(s):// URLs, file:// refs and plain paths. Remote documents land in a
// temp file the cleanup sweep removes later.
func ensureLocalPDF(ctx context.Context, ref, password string) (string, error) {
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}

	switch {
	case strings.HasPrefix(ref, "s3://"):
		return downloadS3ToTemp(ctx, ref, password)
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return downloadHTTPToTemp(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		return strings.TrimPrefix(ref, "file://"), nil
	default:
		return ref, nil
	}
}

func downloadHTTPToTemp(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d fetching %s", resp.StatusCode, url)
	}

	f, err := os.CreateTemp("", "pdfdl-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func downloadS3ToTemp(ctx context.Context, s3url, password string) (string, error) {
	path := strings.TrimPrefix(s3url, "s3://")
	slash := strings.Index(path, "/")
	if slash <= 0 {
		return "", fmt.Errorf("invalid s3 url: %s", s3url)
	}
	bucket := path[:slash]
	key := path[slash+1:]

	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return "", err
	}
	cli := s3.NewFromConfig(cfg)

	out, err := cli.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return "", err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", err
	}
	if storage.IsEncrypted(data) {
		data, err = storage.Decrypt(data, password)
		if err != nil {
			return "", fmt.Errorf("decrypt %s: %w", s3url, err)
		}
	}

	f, err := os.CreateTemp("", "s3pdf-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	log.Info().
		Str("bucket", bucket).
		Str("key", key).
		Str("file", filepath.Base(f.Name())).
		Msg("downloaded s3 pdf to temp")
	return f.Name(), nil
}
