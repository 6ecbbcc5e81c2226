package conversion

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fileforge/fileforge/internal/storage"
)

// parseMemoryLimit caps the in-memory portion of multipart parsing;
// larger bodies spill to disk.
const parseMemoryLimit = 32 << 20

// UploadRule describes what a conversion operation accepts.
type UploadRule struct {
	// Field is the multipart form field carrying the file(s).
	Field string

	// MinFiles is the minimum number of files required (default 1).
	MinFiles int

	// Extensions is the accepted set of lowercase file extensions,
	// including the dot.
	Extensions []string
}

// SaveUploads validates the request's uploaded files against the rule and
// the size ceiling, then persists them into the temp root. Validation
// failures reject the request before anything is written to disk.
// The caller is responsible for removing the returned files.
func SaveUploads(w http.ResponseWriter, r *http.Request, paths *storage.Paths, maxSize int64, rule UploadRule) ([]storage.Stored, error) {
	if rule.Field == "" {
		rule.Field = "file"
	}
	if rule.MinFiles == 0 {
		rule.MinFiles = 1
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+parseMemoryLimit)
	if err := r.ParseMultipartForm(parseMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingFile, err)
	}

	headers := r.MultipartForm.File[rule.Field]
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingFile, rule.Field)
	}
	if len(headers) < rule.MinFiles {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrTooFewFiles, len(headers), rule.MinFiles)
	}

	// Validate every file before persisting any of them.
	for _, fh := range headers {
		if fh.Size > maxSize {
			return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, fh.Filename)
		}
		if len(rule.Extensions) > 0 && !extensionAllowed(fh.Filename, rule.Extensions) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fh.Filename)
		}
	}

	var stored []storage.Stored
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			Cleanup(paths, stored)
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		s, err := paths.SaveTemp(fh.Filename, f)
		f.Close()
		if err != nil {
			Cleanup(paths, stored)
			return nil, fmt.Errorf("save upload %s: %w", fh.Filename, err)
		}
		stored = append(stored, s)
	}
	return stored, nil
}

// Cleanup removes working files saved for a request.
func Cleanup(paths *storage.Paths, stored []storage.Stored) {
	for _, s := range stored {
		paths.Remove(s.Path)
	}
}

func extensionAllowed(filename string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
