package cvs

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"scholar-console/internal/shared/validate"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// MaxUploadBytes is the largest CV the console forwards.
	MaxUploadBytes = 10 << 20
)

const (
	msgFileRequired  = "Please choose a file to upload"
	msgFileType      = "Only PDF and DOCX files are accepted"
	msgFileTooLarge  = "File is larger than 10MB"
	msgPDFUnreadable = "PDF file could not be opened"
)

// ValidateUpload checks an upload before any network call and returns the
// detected content type. Types are sniffed from the bytes, not the name.
func ValidateUpload(filename string, data []byte) (string, validate.Errors) {
	errs := validate.Errors{}
	if _, ok := CleanFileName(filename); !ok || len(data) == 0 {
		errs.Add("file", msgFileRequired)
		return "", errs
	}
	if len(data) > MaxUploadBytes {
		errs.Add("file", msgFileTooLarge)
		return "", errs
	}

	kind := detect(filename, data)
	switch kind {
	case MimePDF:
		if err := openPDF(data); err != nil {
			errs.Add("file", msgPDFUnreadable)
		}
	case MimeDOCX:
	default:
		errs.Add("file", msgFileType)
	}
	return kind, errs
}

// CleanFileName strips directories and separators from a client-supplied
// name. Names that try to climb out of a directory are rejected.
func CleanFileName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if strings.Contains(name, "..") {
		return "", false
	}
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == "/" {
		return "", false
	}
	return name, true
}

func detect(filename string, data []byte) string {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is(MimePDF):
		return MimePDF
	case mt.Is(MimeDOCX):
		return MimeDOCX
	case mt.Is("application/zip"):
		// Some writers order zip entries so that the sniffer stops early.
		if hasZipEntry(data, "word/document.xml") {
			return MimeDOCX
		}
		if strings.EqualFold(filepath.Ext(filename), ".docx") && hasZipEntry(data, "[Content_Types].xml") {
			return MimeDOCX
		}
	}
	return strings.Split(mt.String(), ";")[0]
}

func openPDF(data []byte) error {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	if r.NumPage() < 1 {
		return fmt.Errorf("pdf has no pages")
	}
	return nil
}

func hasZipEntry(data []byte, entry string) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == entry {
			return true
		}
	}
	return false
}
