// Package video implements the video conversion operations backed by
// ffmpeg: format conversion, compression, trimming, GIF creation, and
// audio extraction.
package video

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

var videoRule = conversion.UploadRule{
	Extensions: []string{".mp4", ".avi", ".mkv", ".mov", ".webm", ".flv", ".wmv", ".mpeg", ".mpg"},
}

// Handler serves the video conversion endpoints.
type Handler struct {
	paths     *storage.Paths
	committer *conversion.Committer
	runner    *tools.Runner
	maxUpload int64
	logger    *slog.Logger
}

// NewHandler creates the video handler.
func NewHandler(paths *storage.Paths, committer *conversion.Committer, runner *tools.Runner, maxUpload int64, logger *slog.Logger) *Handler {
	return &Handler{
		paths:     paths,
		committer: committer,
		runner:    runner,
		maxUpload: maxUpload,
		logger:    logger.With("handler", "video"),
	}
}

// Routes returns the video route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/video",
		Description: "video conversion operations",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/convert", Handler: h.Convert},
			{Method: "POST", Pattern: "/compress", Handler: h.Compress},
			{Method: "POST", Pattern: "/trim", Handler: h.Trim},
			{Method: "POST", Pattern: "/to-gif", Handler: h.ToGIF},
			{Method: "POST", Pattern: "/extract-audio", Handler: h.ExtractAudio},
		},
	}
}

// Convert transcodes the video into the requested container format.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.FFmpeg); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, videoRule)
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

	filename := renamed(input.Filename, "", "."+format)
	output := h.paths.OutputPath(filename)
	args, err := convertArgs(input.Path, output, format)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	if err := h.runner.Run(r.Context(), tools.FFmpeg, args...); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "video-convert", output, filename, formats[format], format,
		fmt.Sprintf("converted video to %s", format))
}

// Compress re-encodes the video with H.264 at the requested crf
// (18-51, default 28).
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.FFmpeg); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, videoRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	crf := 28
	if raw := r.FormValue("crf"); raw != "" {
		crf, err = strconv.Atoi(raw)
		if err != nil {
			conversion.Fail(w, h.logger,
				fmt.Errorf("%w: crf %q", conversion.ErrInvalidParameter, raw))
			return
		}
	}

	filename := renamed(input.Filename, "_compressed", ".mp4")
	output := h.paths.OutputPath(filename)
	args, err := compressArgs(input.Path, output, crf)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	if err := h.runner.Run(r.Context(), tools.FFmpeg, args...); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "video-compress", output, filename, "video/mp4", "mp4",
		fmt.Sprintf("compressed video at crf %d", crf))
}

// Trim cuts the range [start_time, end_time) in seconds out of the video.
func (h *Handler) Trim(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.FFmpeg); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, videoRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	start, err := strconv.ParseFloat(r.FormValue("start_time"), 64)
	if err != nil {
		conversion.Fail(w, h.logger,
			fmt.Errorf("%w: start_time %q", conversion.ErrInvalidParameter, r.FormValue("start_time")))
		return
	}
	end, err := strconv.ParseFloat(r.FormValue("end_time"), 64)
	if err != nil {
		conversion.Fail(w, h.logger,
			fmt.Errorf("%w: end_time %q", conversion.ErrInvalidParameter, r.FormValue("end_time")))
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
	h.commit(w, r, "video-trim", output, filename, mimeOf(filename), formatOf(filename),
		fmt.Sprintf("trimmed video to %gs-%gs", start, end))
}

// ToGIF converts the video to an animated GIF at the requested fps
// (default 10) and width (default 480, height follows aspect ratio).
func (h *Handler) ToGIF(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.FFmpeg); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, videoRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	fps, err := intParam(r.FormValue("fps"), 10)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	width, err := intParam(r.FormValue("width"), 480)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	filename := renamed(input.Filename, "", ".gif")
	output := h.paths.OutputPath(filename)
	args, err := gifArgs(input.Path, output, fps, width)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	if err := h.runner.Run(r.Context(), tools.FFmpeg, args...); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "video-to-gif", output, filename, "image/gif", "gif",
		"converted video to GIF")
}

// ExtractAudio pulls the audio track out of the video as mp3.
func (h *Handler) ExtractAudio(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Require(tools.FFmpeg); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}

	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, videoRule)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	defer conversion.Cleanup(h.paths, stored)
	input := stored[0]

	filename := renamed(input.Filename, "", ".mp3")
	output := h.paths.OutputPath(filename)
	if err := h.runner.Run(r.Context(), tools.FFmpeg, extractAudioArgs(input.Path, output)...); err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	h.commit(w, r, "video-extract-audio", output, filename, "audio/mpeg", "mp3",
		"extracted audio track")
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

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", conversion.ErrInvalidParameter, raw)
	}
	return value, nil
}

func mimeOf(filename string) string {
	if mime, ok := formats[formatOf(filename)]; ok {
		return mime
	}
	return "application/octet-stream"
}

func renamed(filename, suffix, ext string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return base + suffix + ext
}
