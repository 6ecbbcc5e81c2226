package conversion_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fileforge/fileforge/internal/conversion"
	"github.com/fileforge/fileforge/internal/registry"
	"github.com/fileforge/fileforge/internal/tools"
)

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing file", conversion.ErrMissingFile, http.StatusBadRequest},
		{"too few files", conversion.ErrTooFewFiles, http.StatusBadRequest},
		{"unsupported type", conversion.ErrUnsupportedType, http.StatusBadRequest},
		{"invalid parameter", conversion.ErrInvalidParameter, http.StatusBadRequest},
		{"invalid input", conversion.ErrInvalidInput, http.StatusBadRequest},
		{"file too large", conversion.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"registry not found", registry.ErrNotFound, http.StatusNotFound},
		{"registry expired", registry.ErrExpired, http.StatusNotFound},
		{"missing tool", tools.ErrMissing, http.StatusServiceUnavailable},
		{"wrapped parameter", fmt.Errorf("%w: quality 0", conversion.ErrInvalidParameter), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := conversion.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFail_MissingTool(t *testing.T) {
	w := httptest.NewRecorder()
	err := fmt.Errorf("convert audio: %w", &tools.MissingError{Tool: tools.FFmpeg})

	conversion.Fail(w, slog.New(slog.DiscardHandler), err)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	if body["tool"] != "ffmpeg" {
		t.Errorf("tool = %v, want %q", body["tool"], "ffmpeg")
	}
	if body["download_url"] == nil {
		t.Error("body missing download_url")
	}
	if body["installation_instructions"] == nil {
		t.Error("body missing installation_instructions")
	}
}

func TestFail_PlainError(t *testing.T) {
	w := httptest.NewRecorder()

	conversion.Fail(w, slog.New(slog.DiscardHandler), conversion.ErrInvalidParameter)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if body["error"] == nil {
		t.Error("body missing error message")
	}
}
