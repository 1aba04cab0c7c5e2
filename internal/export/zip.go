package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
)

// ErrNoDialogs is returned when a project has nothing to archive.
var ErrNoDialogs = errors.New("no dialogs found")

// DialogFile is one archive member: a dialog id and its export document.
type DialogFile struct {
	DialogID string
	Document Document
}

// WriteProjectZip writes one <dialogId>.json member per dialog, in the given order.
func WriteProjectZip(w io.Writer, files []DialogFile, modified time.Time) error {
	if len(files) == 0 {
		return ErrNoDialogs
	}

	zw := zip.NewWriter(w)
	for _, f := range files {
		body, err := Marshal(f.Document)
		if err != nil {
			return fmt.Errorf("encode dialog %s: %w", f.DialogID, err)
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     Filename(f.DialogID),
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", Filename(f.DialogID), err)
		}
		if _, err := fw.Write(body); err != nil {
			return fmt.Errorf("write %s: %w", Filename(f.DialogID), err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// ZipFilename names a project archive after the project and the UTC time of export.
func ZipFilename(projectName string, at time.Time) string {
	return projectName + "_dialogs_" + at.UTC().Format("2006-01-02T15-04-05") + ".zip"
}
