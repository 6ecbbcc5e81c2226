package conversion_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fileforge/fileforge/internal/config"
	"github.com/fileforge/fileforge/internal/conversion"
	"github.com/fileforge/fileforge/internal/storage"
)

func newPaths(t *testing.T) *storage.Paths {
	t.Helper()
	root := t.TempDir()

	cfg := &config.StorageConfig{
		UploadsDir:    filepath.Join(root, "uploads"),
		OutputsDir:    filepath.Join(root, "outputs"),
		TempDir:       filepath.Join(root, "temp"),
		MaxUploadSize: "1MB",
	}
	paths, err := storage.New(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := paths.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	return paths
}

func multipartRequest(t *testing.T, field string, files map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("CreateFormFile() failed: %v", err)
		}
		if _, err := io.Copy(fw, strings.NewReader(content)); err != nil {
			t.Fatalf("write part failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/convert", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestSaveUploads_Success(t *testing.T) {
	paths := newPaths(t)
	r := multipartRequest(t, "file", map[string]string{"photo.png": "png bytes"})
	w := httptest.NewRecorder()

	stored, err := conversion.SaveUploads(w, r, paths, 1<<20, conversion.UploadRule{
		Extensions: []string{".png"},
	})
	if err != nil {
		t.Fatalf("SaveUploads() failed: %v", err)
	}

	if len(stored) != 1 {
		t.Fatalf("stored %d files, want 1", len(stored))
	}
	if stored[0].Filename != "photo.png" {
		t.Errorf("Filename = %q, want %q", stored[0].Filename, "photo.png")
	}
	if !strings.HasPrefix(stored[0].Path, paths.Temp()) {
		t.Errorf("Path = %q, want inside temp root", stored[0].Path)
	}
}

func TestSaveUploads_MissingField(t *testing.T) {
	paths := newPaths(t)
	r := multipartRequest(t, "wrong_field", map[string]string{"photo.png": "x"})
	w := httptest.NewRecorder()

	_, err := conversion.SaveUploads(w, r, paths, 1<<20, conversion.UploadRule{})
	if !errors.Is(err, conversion.ErrMissingFile) {
		t.Errorf("SaveUploads() error = %v, want ErrMissingFile", err)
	}
}

func TestSaveUploads_TooFewFiles(t *testing.T) {
	paths := newPaths(t)
	r := multipartRequest(t, "files", map[string]string{"only.pdf": "x"})
	w := httptest.NewRecorder()

	_, err := conversion.SaveUploads(w, r, paths, 1<<20, conversion.UploadRule{
		Field:    "files",
		MinFiles: 2,
	})
	if !errors.Is(err, conversion.ErrTooFewFiles) {
		t.Errorf("SaveUploads() error = %v, want ErrTooFewFiles", err)
	}
}

func TestSaveUploads_UnsupportedExtension(t *testing.T) {
	paths := newPaths(t)
	r := multipartRequest(t, "file", map[string]string{"document.exe": "x"})
	w := httptest.NewRecorder()

	_, err := conversion.SaveUploads(w, r, paths, 1<<20, conversion.UploadRule{
		Extensions: []string{".pdf"},
	})
	if !errors.Is(err, conversion.ErrUnsupportedType) {
		t.Errorf("SaveUploads() error = %v, want ErrUnsupportedType", err)
	}
}

func TestSaveUploads_FileTooLarge(t *testing.T) {
	paths := newPaths(t)
	r := multipartRequest(t, "file", map[string]string{"big.bin": strings.Repeat("x", 1024)})
	w := httptest.NewRecorder()

	_, err := conversion.SaveUploads(w, r, paths, 100, conversion.UploadRule{})
	if !errors.Is(err, conversion.ErrFileTooLarge) {
		t.Errorf("SaveUploads() error = %v, want ErrFileTooLarge", err)
	}
}

func TestSaveUploads_RejectsBeforeSaving(t *testing.T) {
	paths := newPaths(t)
	r := multipartRequest(t, "files", map[string]string{
		"good.pdf": "x",
		"bad.exe":  "x",
	})
	w := httptest.NewRecorder()

	_, err := conversion.SaveUploads(w, r, paths, 1<<20, conversion.UploadRule{
		Field:      "files",
		Extensions: []string{".pdf"},
	})
	if !errors.Is(err, conversion.ErrUnsupportedType) {
		t.Fatalf("SaveUploads() error = %v, want ErrUnsupportedType", err)
	}

	if size := paths.DirSizes().Temp; size != 0 {
		t.Errorf("temp root holds %d bytes after rejected batch, want 0", size)
	}
}
