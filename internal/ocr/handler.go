// Package ocr implements text extraction from images using tesseract.
package ocr

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/fileforge/fileforge/internal/conversion"
	"github.com/fileforge/fileforge/internal/storage"
	"github.com/fileforge/fileforge/internal/tools"
	"github.com/fileforge/fileforge/pkg/handlers"
	"github.com/fileforge/fileforge/pkg/routes"
)

var (
	ocrRule = conversion.UploadRule{
		Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff"},
	}

	// tesseract language codes: "eng", "deu", or combinations like "eng+deu".
	languagePattern = regexp.MustCompile(`^[a-z_]{3,}(\+[a-z_]{3,})*$`)
)

// Handler serves the OCR endpoints.
type Handler struct {
	paths     *storage.Paths
	runner    *tools.Runner
	maxUpload int64
	logger    *slog.Logger
}

// NewHandler creates the OCR handler.
func NewHandler(paths *storage.Paths, runner *tools.Runner, maxUpload int64, logger *slog.Logger) *Handler {
	return &Handler{
		paths:     paths,
		runner:    runner,
		maxUpload: maxUpload,
		logger:    logger.With("handler", "ocr"),
	}
}

// Routes returns the OCR route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/ocr",
		Description: "optical character recognition",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/extract-text", Handler: h.ExtractText},
		},
	}
}

// ExtractText runs tesseract on the uploaded image and returns the
// recognized text inline. Unlike the file conversions, OCR output is not
// registered for download.
func (h *Handler) ExtractText(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.Tesseract); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, ocrRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	language := r.FormValue("language")
	if language == "" {
		language = "eng"
	}
	if !languagePattern.MatchString(language) {
		conversion.Fail(w, h.logger,
			fmt.Errorf("%w: language %q", conversion.ErrInvalidParameter, language))
		return
	}

	workDir, err := h.paths.TempDir()
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer os.RemoveAll(workDir)

	// tesseract appends .txt to the output base.
	outBase := filepath.Join(workDir, "result")
	if err := h.runner.Run(r.Context(), tools.Tesseract, input.Path, outBase, "-l", language); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	text, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		conversion.Fail(w, h.logger, fmt.Errorf("read ocr output: %w", err))
		return
	}

	h.logger.Info("text extracted", "filename", input.Filename, "language", language, "bytes", len(text))
	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "text extracted",
		"language": language,
		"text":     string(text),
	})
}
