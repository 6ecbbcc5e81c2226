// Package audio implements the audio conversion operations backed by
// ffmpeg: format conversion, trimming, merging, and volume adjustment.
package audio

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

var audioRule = conversion.UploadRule{
	Extensions: []string{".mp3", ".wav", ".ogg", ".flac", ".aac", ".m4a", ".wma", ".opus"},
}

// Handler serves the audio conversion endpoints.
type Handler struct {
	paths     *storage.Paths
	committer *conversion.Committer
	runner    *tools.Runner
	maxUpload int64
	logger    *slog.Logger
}

// NewHandler creates the audio handler.
func NewHandler(paths *storage.Paths, committer *conversion.Committer, runner *tools.Runner, maxUpload int64, logger *slog.Logger) *Handler {
	return &Handler{
		paths:     paths,
		committer: committer,
		runner:    runner,
		maxUpload: maxUpload,
		logger:    logger.With("handler", "audio"),
	}
}

// Routes returns the audio route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/audio",
		Description: "audio conversion operations",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/convert", Handler: h.Convert},
			{Method: "POST", Pattern: "/trim", Handler: h.Trim},
			{Method: "POST", Pattern: "/merge", Handler: h.Merge},
			{Method: "POST", Pattern: "/volume", Handler: h.Volume},
		},
	}
}

// Convert transcodes the audio into the requested format.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.FFmpeg); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, audioRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	opts := ConvertOptions{
		Format:  strings.ToLower(r.FormValue("output_format")),
		Bitrate: r.FormValue("bitrate"),
	}
	if opts.Format == "" {
		conversion.Fail(w, h.logger,
			fmt.Errorf("%w: output_format is required", conversion.ErrInvalidParameter))
		return
	}
	if raw := r.FormValue("sample_rate"); raw != "" {
		opts.SampleRate, err = strconv.Atoi(raw)
		if err != nil {
			conversion.Fail(w, h.logger,
				fmt.Errorf("%w: sample_rate %q", conversion.ErrInvalidParameter, raw))
			return
		}
	}

	filename := renamed(input.Filename, "", "."+opts.Format)
	output := h.paths.OutputPath(filename)
	args, err := convertArgs(input.Path, output, opts)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	if err := h.runner.Run(r.Context(), tools.FFmpeg, args...); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "audio-convert", output, filename, formats[opts.Format].mime, opts.Format,
		fmt.Sprintf("converted audio to %s", opts.Format))
}

// Trim cuts the range [start_time, end_time) in seconds out of the audio.
func (h *Handler) Trim(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.FFmpeg); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, audioRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	start, end, err := timeRange(r.FormValue("start_time"), r.FormValue("end_time"))
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	ext := filepath.Ext(input.Filename)
	filename := renamed(input.Filename, "_trimmed", ext)
	output := h.paths.OutputPath(filename)
	args, err := trimArgs(input.Path, output, start, end)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	if err := h.runner.Run(r.Context(), tools.FFmpeg, args...); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "audio-trim", output, filename, mimeOf(filename), formatOf(filename),
		fmt.Sprintf("trimmed audio to %gs-%gs", start, end))
}

// Merge concatenates two or more audio files, in upload order. All
// inputs must share a container format.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.FFmpeg); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	rule := audioRule
	rule.Field = "files"
	rule.MinFiles = 2
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, rule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)

	ext := strings.ToLower(filepath.Ext(stored[0].Filename))
	for _, s := range stored[1:] {
		if strings.ToLower(filepath.Ext(s.Filename)) != ext {
			conversion.Fail(w, h.logger,
				fmt.Errorf("%w: all files must share one format", conversion.ErrInvalidParameter))
			return
		}
	}

	listFile, err := h.writeConcatList(stored)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer os.Remove(listFile)

	filename := "merged" + ext
	output := h.paths.OutputPath(filename)
	if err := h.runner.Run(r.Context(), tools.FFmpeg, mergeArgs(listFile, output)...); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "audio-merge", output, filename, mimeOf(filename), formatOf(filename),
		fmt.Sprintf("merged %d audio files", len(stored)))
}

// Volume adjusts the gain by volume_db decibels, positive or negative.
func (h *Handler) Volume(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.FFmpeg); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, audioRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	db, err := strconv.ParseFloat(r.FormValue("volume_db"), 64)
	if err != nil {
		conversion.Fail(w, h.logger,
			fmt.Errorf("%w: volume_db %q", conversion.ErrInvalidParameter, r.FormValue("volume_db")))
		return
	}

	ext := filepath.Ext(input.Filename)
	filename := renamed(input.Filename, "_volume", ext)
	output := h.paths.OutputPath(filename)
	args, err := volumeArgs(input.Path, output, db)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	if err := h.runner.Run(r.Context(), tools.FFmpeg, args...); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "audio-volume", output, filename, mimeOf(filename), formatOf(filename),
		fmt.Sprintf("adjusted volume by %gdB", db))
}

// writeConcatList writes the ffmpeg concat demuxer list file naming the
// inputs in upload order.
func (h *Handler) writeConcatList(stored []storage.Stored) (string, error) {
	var sb strings.Builder
	for _, s := range stored {
		fmt.Fprintf(&sb, "file '%s'\n", s.Path)
	}
	listFile := h.paths.TempPath("concat.txt")
	if err := os.WriteFile(listFile, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return listFile, nil
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

func timeRange(startRaw, endRaw string) (float64, float64, error) {
	start, err := strconv.ParseFloat(startRaw, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start_time %q", conversion.ErrInvalidParameter, startRaw)
	}
	end, err := strconv.ParseFloat(endRaw, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end_time %q", conversion.ErrInvalidParameter, endRaw)
	}
	return start, end, nil
}

func formatOf(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

func mimeOf(filename string) string {
	if f, ok := formats[formatOf(filename)]; ok {
		return f.mime
	}
	return "application/octet-stream"
}

func renamed(filename, suffix, ext string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return base + suffix + ext
}
