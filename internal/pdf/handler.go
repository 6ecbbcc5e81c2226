// Package pdf implements the PDF conversion operations: merge, split,
// compress, conversion to Word, encryption, decryption, watermarking,
// and rotation.
package pdf

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fileforge/fileforge/internal/conversion"
	"github.com/fileforge/fileforge/internal/storage"
	"github.com/fileforge/fileforge/internal/tools"
	"github.com/fileforge/fileforge/pkg/routes"
)

const mimePDF = "application/pdf"

var pdfRule = conversion.UploadRule{Extensions: []string{".pdf"}}

// Handler serves the PDF conversion endpoints.
type Handler struct {
	paths     *storage.Paths
	committer *conversion.Committer
	runner    *tools.Runner
	maxUpload int64
	logger    *slog.Logger
}

// NewHandler creates the PDF handler.
func NewHandler(paths *storage.Paths, committer *conversion.Committer, runner *tools.Runner, maxUpload int64, logger *slog.Logger) *Handler {
	return &Handler{
		paths:     paths,
		committer: committer,
		runner:    runner,
		maxUpload: maxUpload,
		logger:    logger.With("handler", "pdf"),
	}
}

// Routes returns the PDF route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/pdf",
		Description: "PDF conversion operations",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/merge", Handler: h.Merge},
			{Method: "POST", Pattern: "/split", Handler: h.Split},
			{Method: "POST", Pattern: "/compress", Handler: h.Compress},
			{Method: "POST", Pattern: "/to-word", Handler: h.ToWord},
			{Method: "POST", Pattern: "/encrypt", Handler: h.Encrypt},
			{Method: "POST", Pattern: "/decrypt", Handler: h.Decrypt},
			{Method: "POST", Pattern: "/watermark", Handler: h.Watermark},
			{Method: "POST", Pattern: "/rotate", Handler: h.Rotate},
		},
	}
}

// Merge combines two or more PDFs, in upload order, into one document.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	rule := pdfRule
	rule.Field = "files"
	rule.MinFiles = 2
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, rule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)

	inputs := make([]string, len(stored))
	for i, s := range stored {
		if err := validate(s.Path); err != nil {
			conversion.Fail(w, h.logger, err)
			return
		}
		inputs[i] = s.Path
	}

	output := h.paths.OutputPath("merged.pdf")
	if err := merge(inputs, output); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	entry, err := h.committer.Commit(r.Context(), "pdf-merge", conversion.Result{
		OutputPath: output,
		Filename:   "merged.pdf",
		MimeType:   mimePDF,
	})
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	conversion.Respond(w, fmt.Sprintf("merged %d documents", len(inputs)), "pdf", entry)
}

// Split extracts the selected pages into a single document when the
// pages parameter is present, or splits every page into its own document
// and returns them as a zip archive when it is absent.
func (h *Handler) Split(w http.ResponseWriter, r *http.Request) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, pdfRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	if raw := r.FormValue("pages"); raw != "" {
		pages, err := parsePages(raw)
		if err != nil {
			conversion.Fail(w, h.logger, err)
			return
		}
		filename := renamed(input.Filename, "_pages", ".pdf")
		output := h.paths.OutputPath(filename)
		if err := extractPages(input.Path, output, pages); err != nil {
			conversion.Fail(w, h.logger, err)
			return
		}
		h.commit(w, r, "pdf-split", output, filename, mimePDF, "pdf",
			fmt.Sprintf("extracted pages %s", raw))
		return
	}

	workDir, err := h.paths.TempDir()
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer os.RemoveAll(workDir)

	filename := renamed(input.Filename, "_pages", ".zip")
	output := h.paths.OutputPath(filename)
	if err := splitToZip(input.Path, workDir, output); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "pdf-split", output, filename, "application/zip", "zip",
		"split document into single pages")
}

// Compress optimizes the document, keeping the original when
// optimization does not reduce its size.
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, pdfRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	filename := renamed(input.Filename, "_compressed", ".pdf")
	output := h.paths.OutputPath(filename)
	if err := compress(input.Path, output); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "pdf-compress", output, filename, mimePDF, "pdf", "compressed document")
}

// ToWord converts the document to docx using LibreOffice.
func (h *Handler) ToWord(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.LibreOffice); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, pdfRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	workDir, err := h.paths.TempDir()
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer os.RemoveAll(workDir)

	err = h.runner.Run(r.Context(), tools.LibreOffice,
		"--headless", "--convert-to", "docx", "--outdir", workDir, input.Path)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	produced := producedDoc(workDir, input.Path)
	if _, err := os.Stat(produced); err != nil {
		conversion.Fail(w, h.logger, fmt.Errorf("%w: conversion produced no document", conversion.ErrInvalidInput))
		return
	}

	filename := renamed(input.Filename, "", ".docx")
	output := h.paths.OutputPath(filename)
	if err := copyFile(produced, output); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "pdf-to-word", output, filename,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx",
		"converted document to Word")
}

// Encrypt password-protects the document.
func (h *Handler) Encrypt(w http.ResponseWriter, r *http.Request) {
	h.withPassword(w, r, "pdf-encrypt", "_encrypted", "encrypted document", encrypt)
}

// Decrypt removes password protection from the document.
func (h *Handler) Decrypt(w http.ResponseWriter, r *http.Request) {
	h.withPassword(w, r, "pdf-decrypt", "_decrypted", "decrypted document", decrypt)
}

func (h *Handler) withPassword(w http.ResponseWriter, r *http.Request, operation, suffix, message string, op func(input, output, password string) error) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, pdfRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	password := r.FormValue("password")
	if password == "" {
		conversion.Fail(w, h.logger,
			fmt.Errorf("%w: password is required", conversion.ErrInvalidParameter))
		return
	}

	filename := renamed(input.Filename, suffix, ".pdf")
	output := h.paths.OutputPath(filename)
	if err := op(input.Path, output, password); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, operation, output, filename, mimePDF, "pdf", message)
}

// Watermark stamps diagonal text on every page.
func (h *Handler) Watermark(w http.ResponseWriter, r *http.Request) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, pdfRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	text := r.FormValue("watermark_text")
	if text == "" {
		conversion.Fail(w, h.logger,
			fmt.Errorf("%w: watermark_text is required", conversion.ErrInvalidParameter))
		return
	}

	filename := renamed(input.Filename, "_watermarked", ".pdf")
	output := h.paths.OutputPath(filename)
	if err := watermark(input.Path, output, text); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "pdf-watermark", output, filename, mimePDF, "pdf", "watermarked document")
}

// Rotate turns every page by the requested angle.
func (h *Handler) Rotate(w http.ResponseWriter, r *http.Request) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, pdfRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	degrees, err := rotationDegrees(r.FormValue("degrees"))
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	filename := renamed(input.Filename, "_rotated", ".pdf")
	output := h.paths.OutputPath(filename)
	if err := rotate(input.Path, output, degrees); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "pdf-rotate", output, filename, mimePDF, "pdf",
		fmt.Sprintf("rotated pages by %d degrees", degrees))
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request, operation, output, filename, mimeType, format, message string) {
	entry, err := h.committer.Commit(r.Context(), operation, conversion.Result{
		OutputPath: output,
		Filename:   filename,
		MimeType:   mimeType,
	})
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	conversion.Respond(w, message, format, entry)
}

func rotationDegrees(raw string) (int, error) {
	if raw == "" {
		return 90, nil
	}
	degrees, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: degrees %q", conversion.ErrInvalidParameter, raw)
	}
	switch degrees {
	case 90, 180, 270, -90, -180, -270:
		return degrees, nil
	default:
		return 0, fmt.Errorf("%w: degrees must be a multiple of 90", conversion.ErrInvalidParameter)
	}
}

// producedDoc returns the path soffice writes for the given input:
// the result is named after the input file, only the extension changes.
// The input extension is trimmed whatever its case, so doc.PDF and
// doc.pdf both map to doc.docx.
func producedDoc(workDir, inputPath string) string {
	base := filepath.Base(inputPath)
	return filepath.Join(workDir, strings.TrimSuffix(base, filepath.Ext(base))+".docx")
}

// renamed derives an output filename from the input, inserting a suffix
// before the new extension.
func renamed(filename, suffix, ext string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return base + suffix + ext
}
