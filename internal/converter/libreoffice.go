package converter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LibreOffice converts office documents to PDF via the soffice CLI so the
// rest of the pipeline only ever sees PDFs.
type LibreOffice struct {
	maxWorkers int
	semaphore  chan struct{}
}

func NewLibreOffice(maxWorkers int) *LibreOffice {
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	return &LibreOffice{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// CheckInstallation verifies the soffice binary is reachable.
func (l *LibreOffice) CheckInstallation() error {
	out, err := exec.Command("libreoffice", "--version").Output()
	if err != nil {
		return fmt.Errorf("libreoffice not found in PATH: %w", err)
	}
	log.Info().Str("version", strings.TrimSpace(string(out))).Msg("libreoffice found")
	return nil
}

// ConvertToPDF converts one document and returns the output PDF path.
// Each conversion gets a throwaway profile dir; concurrent conversions
// sharing one profile corrupt it.
func (l *LibreOffice) ConvertToPDF(ctx context.Context, inputPath, outputDir string) (string, error) {
	l.semaphore <- struct{}{}
	defer func() { <-l.semaphore }()

	start := time.Now()
	if err := validateInput(inputPath); err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	profileDir := filepath.Join(os.TempDir(), "lo_profile_"+uuid.NewString())
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return "", fmt.Errorf("create profile dir: %w", err)
	}
	defer os.RemoveAll(profileDir)

	cctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()
	cmd := exec.CommandContext(cctx,
		"libreoffice",
		fmt.Sprintf("-env:UserInstallation=file://%s", profileDir),
		"--headless",
		"--convert-to", "pdf",
		"--outdir", outputDir,
		inputPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		lower := strings.ToLower(string(out))
		if strings.Contains(lower, "password") || strings.Contains(lower, "encrypted") {
			return "", fmt.Errorf("document is password protected")
		}
		return "", fmt.Errorf("conversion failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	base := filepath.Base(inputPath)
	outPath := filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("output pdf not created: %w", err)
	}

	log.Info().
		Str("input", inputPath).
		Str("output", outPath).
		Dur("duration", time.Since(start)).
		Msg("converted to pdf")
	return outPath, nil
}

func validateInput(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory")
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty")
	}
	return nil
}
