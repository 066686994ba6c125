package filetype

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind is what the pipeline does with a file.
type Kind int

const (
	KindUnsupported Kind = iota
	KindPDF    // processed directly
	KindOffice // converted to PDF first
	KindImage  // wrapped into a single-page render
)

// Info is the detected type of an input file.
type Info struct {
	MIMEType    string
	Extension   string
	Kind        Kind
	Description string
}

// Detector resolves real file types from magic bytes; filenames lie.
type Detector struct{}

func New() *Detector { return &Detector{} }

// office formats are ZIP or OLE containers; the container MIME alone cannot
// distinguish them, so the extension breaks the tie.
var zipOffice = map[string]string{
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".odt":  "application/vnd.oasis.opendocument.text",
	".ods":  "application/vnd.oasis.opendocument.spreadsheet",
	".odp":  "application/vnd.oasis.opendocument.presentation",
}

var oleOffice = map[string]string{
	".doc": "application/msword",
	".xls": "application/vnd.ms-excel",
	".ppt": "application/vnd.ms-powerpoint",
}

// Detect inspects magic bytes and classifies the file for the pipeline.
func (d *Detector) Detect(filePath string) (*Info, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("detect file type: %w", err)
	}

	mimeType := mtype.String()
	extension := mtype.Extension()
	ext := strings.ToLower(filepath.Ext(filePath))

	if mimeType == "application/zip" || strings.Contains(mimeType, "application/x-zip") {
		if override, ok := zipOffice[ext]; ok {
			mimeType = override
			extension = ext
		}
	}
	if mimeType == "application/x-ole-storage" || mimeType == "application/x-cfb" {
		if override, ok := oleOffice[ext]; ok {
			mimeType = override
			extension = ext
		}
	}

	info := &Info{MIMEType: mimeType, Extension: extension}
	classify(info)

	log.Debug().
		Str("file", filePath).
		Str("mime", mimeType).
		Str("desc", info.Description).
		Msg("detected file type")
	return info, nil
}

func classify(info *Info) {
	switch {
	case info.MIMEType == "application/pdf":
		info.Kind = KindPDF
		info.Description = "PDF document"
	case isOfficeMIME(info.MIMEType):
		info.Kind = KindOffice
		info.Description = "office document (needs conversion)"
	case strings.HasPrefix(info.MIMEType, "image/"):
		info.Kind = KindImage
		info.Description = "image file"
	default:
		info.Kind = KindUnsupported
		info.Description = "unsupported: " + info.MIMEType
	}
}

func isOfficeMIME(m string) bool {
	for _, v := range zipOffice {
		if m == v {
			return true
		}
	}
	for _, v := range oleOffice {
		if m == v {
			return true
		}
	}
	return m == "application/rtf"
}

// Supported reports whether the pipeline can process this file at all.
func (i *Info) Supported() bool { return i.Kind != KindUnsupported }
