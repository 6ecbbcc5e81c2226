// Package image implements the image conversion operations: format
// conversion, resizing, cropping, compression, grayscale, and background
// removal.
package image

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fileforge/fileforge/internal/conversion"
	"github.com/fileforge/fileforge/internal/storage"
	"github.com/fileforge/fileforge/internal/tools"
	"github.com/fileforge/fileforge/pkg/routes"
)

var imageRule = conversion.UploadRule{
	Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff"},
}

// Handler serves the image conversion endpoints.
type Handler struct {
	paths     *storage.Paths
	committer *conversion.Committer
	runner    *tools.Runner
	maxUpload int64
	logger    *slog.Logger
}

// NewHandler creates the image handler.
func NewHandler(paths *storage.Paths, committer *conversion.Committer, runner *tools.Runner, maxUpload int64, logger *slog.Logger) *Handler {
	return &Handler{
		paths:     paths,
		committer: committer,
		runner:    runner,
		maxUpload: maxUpload,
		logger:    logger.With("handler", "image"),
	}
}

// Routes returns the image route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/image",
		Description: "image conversion operations",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/convert", Handler: h.Convert},
			{Method: "POST", Pattern: "/resize", Handler: h.Resize},
			{Method: "POST", Pattern: "/crop", Handler: h.Crop},
			{Method: "POST", Pattern: "/compress", Handler: h.Compress},
			{Method: "POST", Pattern: "/grayscale", Handler: h.Grayscale},
			{Method: "POST", Pattern: "/remove-background", Handler: h.RemoveBackground},
		},
	}
}

// Convert re-encodes the image into the requested output format.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, imageRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	format := strings.ToLower(r.FormValue("output_format"))
	if format == "" {
		conversion.Fail(w, h.logger,
			fmt.Errorf("%w: output_format is required", conversion.ErrInvalidParameter))
		return
	}
	mime, err := mimeFor(format)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	filename := renamed(input.Filename, "", "."+format)
	output := h.paths.OutputPath(filename)
	if err := convert(input.Path, output); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "image-convert", output, filename, mime, format,
		fmt.Sprintf("converted image to %s", format))
}

// Resize scales the image. width and height are optional individually,
// but at least one must be present; a missing dimension preserves the
// aspect ratio.
func (h *Handler) Resize(w http.ResponseWriter, r *http.Request) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, imageRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	width, err := dimension(r.FormValue("width"))
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	height, err := dimension(r.FormValue("height"))
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	if width == 0 && height == 0 {
		conversion.Fail(w, h.logger,
			fmt.Errorf("%w: width or height is required", conversion.ErrInvalidParameter))
		return
	}

	filename := renamed(input.Filename, "_resized", filepath.Ext(input.Filename))
	output := h.paths.OutputPath(filename)
	if err := resize(input.Path, output, width, height); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "image-resize", output, filename, mimeOf(filename), formatOf(filename),
		fmt.Sprintf("resized image to %dx%d", width, height))
}

// Crop cuts the rectangle described by x, y, width, height out of the
// image.
func (h *Handler) Crop(w http.ResponseWriter, r *http.Request) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, imageRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	var region [4]int
	for i, field := range []string{"x", "y", "width", "height"} {
		value, err := strconv.Atoi(r.FormValue(field))
		if err != nil || value < 0 || (i >= 2 && value == 0) {
			conversion.Fail(w, h.logger,
				fmt.Errorf("%w: %s %q", conversion.ErrInvalidParameter, field, r.FormValue(field)))
			return
		}
		region[i] = value
	}

	filename := renamed(input.Filename, "_cropped", filepath.Ext(input.Filename))
	output := h.paths.OutputPath(filename)
	if err := crop(input.Path, output, region[0], region[1], region[2], region[3]); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "image-crop", output, filename, mimeOf(filename), formatOf(filename),
		"cropped image")
}

// Compress re-encodes the image as JPEG at the requested quality
// (1-100, default 75).
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, imageRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	quality := 75
	if raw := r.FormValue("quality"); raw != "" {
		quality, err = strconv.Atoi(raw)
		if err != nil || quality < 1 || quality > 100 {
			conversion.Fail(w, h.logger,
				fmt.Errorf("%w: quality %q", conversion.ErrInvalidParameter, raw))
			return
		}
	}

	filename := renamed(input.Filename, "_compressed", ".jpg")
	output := h.paths.OutputPath(filename)
	if err := compressJPEG(input.Path, output, quality); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "image-compress", output, filename, "image/jpeg", "jpg",
		fmt.Sprintf("compressed image at quality %d", quality))
}

// Grayscale converts the image to grayscale.
func (h *Handler) Grayscale(w http.ResponseWriter, r *http.Request) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, imageRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	filename := renamed(input.Filename, "_grayscale", filepath.Ext(input.Filename))
	output := h.paths.OutputPath(filename)
	if err := grayscale(input.Path, output); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "image-grayscale", output, filename, mimeOf(filename), formatOf(filename),
		"converted image to grayscale")
}

// RemoveBackground strips the image background using rembg. The result
// is always PNG to preserve transparency.
func (h *Handler) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.Rembg); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, imageRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	filename := renamed(input.Filename, "_nobg", ".png")
	output := h.paths.OutputPath(filename)
	if err := h.runner.Run(r.Context(), tools.Rembg, "i", input.Path, output); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "image-remove-background", output, filename, "image/png", "png",
		"removed image background")
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

func dimension(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("%w: dimension %q", conversion.ErrInvalidParameter, raw)
	}
	return value, nil
}

func formatOf(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

func mimeOf(filename string) string {
	if mime, err := mimeFor(formatOf(filename)); err == nil {
		return mime
	}
	return "application/octet-stream"
}

func renamed(filename, suffix, ext string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return base + suffix + ext
}
