package handlers_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fileforge/fileforge/pkg/handlers"
)

func TestRespondJSON(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.RespondJSON(w, http.StatusCreated, map[string]string{"key": "value"})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if body["key"] != "value" {
		t.Errorf("key = %q, want %q", body["key"], "value")
	}
}

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.RespondError(w, slog.New(slog.DiscardHandler), http.StatusBadRequest, errors.New("bad input"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if body["error"] != "bad input" {
		t.Errorf("error = %q, want %q", body["error"], "bad input")
	}
}

func TestRespondFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "on-disk-name.bin")
	if err := os.WriteFile(path, []byte("file content"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/download", nil)
	if err := handlers.RespondFile(w, r, path, "report.pdf", "application/pdf"); err != nil {
		t.Fatalf("RespondFile() failed: %v", err)
	}

	if w.Body.String() != "file content" {
		t.Errorf("body = %q, want %q", w.Body.String(), "file content")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.Contains(cd, `filename="report.pdf"`) {
		t.Errorf("Content-Disposition = %q, want declared filename, not the on-disk name", cd)
	}
	if cl := w.Header().Get("Content-Length"); cl != "12" {
		t.Errorf("Content-Length = %q, want %q", cl, "12")
	}
}

func TestRespondFile_Missing(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/download", nil)

	err := handlers.RespondFile(w, r, filepath.Join(t.TempDir(), "gone.pdf"), "gone.pdf", "application/pdf")
	if err == nil {
		t.Fatal("RespondFile() succeeded for a missing file")
	}
	if len(w.Header()) != 0 {
		t.Errorf("headers written for missing file: %v", w.Header())
	}
}
