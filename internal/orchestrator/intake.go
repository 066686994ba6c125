package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/filetype"
)

// materializePDF resolves a document reference to a local PDF path,
// converting office formats along the way.
func (o *Orchestrator) materializePDF(ctx context.Context, ref, password string) (string, error) {
	localPath, err := ensureLocalPDF(ctx, ref, password)
	if err != nil {
		return "", err
	}
	return o.convertIfOffice(ctx, localPath)
}

// convertIfOffice inspects the file by magic bytes and converts office
// documents to PDF. PDFs and unknown-but-probably-PDF content pass through;
// broken documents surface in the page count step instead.
func (o *Orchestrator) convertIfOffice(ctx context.Context, localPath string) (string, error) {
	info, err := filetype.New().Detect(localPath)
	if err != nil {
		log.Warn().Err(err).Str("file", localPath).Msg("file type detection failed, assuming pdf")
		return localPath, nil
	}

	switch info.Kind {
	case filetype.KindPDF:
		return localPath, nil
	case filetype.KindOffice:
		if o.deps.Convert == nil {
			return "", fmt.Errorf("office documents not supported (%s)", info.Description)
		}
		outDir := filepath.Join(os.TempDir(), "converted")
		pdfPath, err := o.deps.Convert.ConvertToPDF(ctx, localPath, outDir)
		if err != nil {
			return "", fmt.Errorf("convert %s to pdf: %w", info.Extension, err)
		}
		log.Info().Str("from", localPath).Str("to", pdfPath).Str("mime", info.MIMEType).Msg("converted office document")
		return pdfPath, nil
	case filetype.KindImage:
		return "", fmt.Errorf("standalone images are not supported: %s", info.MIMEType)
	default:
		return "", fmt.Errorf("unsupported file type: %s", info.MIMEType)
	}
}
