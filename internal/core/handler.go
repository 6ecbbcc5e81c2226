// Package core implements the service surface shared by every
// conversion domain: upload, download, health, supported formats,
// storage statistics, cleanup, and the conversion listing.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/fileforge/fileforge/internal/audio"
	"github.com/fileforge/fileforge/internal/conversion"
	"github.com/fileforge/fileforge/internal/image"
	"github.com/fileforge/fileforge/internal/registry"
	"github.com/fileforge/fileforge/internal/storage"
	"github.com/fileforge/fileforge/internal/tools"
	"github.com/fileforge/fileforge/internal/video"
	"github.com/fileforge/fileforge/pkg/handlers"
	"github.com/fileforge/fileforge/pkg/routes"
	"github.com/google/uuid"
)

// Handler serves the core endpoints.
type Handler struct {
	paths     *storage.Paths
	store     registry.Store
	committer *conversion.Committer
	sweeper   *storage.Sweeper
	runner    *tools.Runner
	maxUpload int64
	version   string
	started   time.Time
	logger    *slog.Logger
}

// NewHandler creates the core handler.
func NewHandler(paths *storage.Paths, store registry.Store, committer *conversion.Committer, sweeper *storage.Sweeper, runner *tools.Runner, maxUpload int64, version string, logger *slog.Logger) *Handler {
	return &Handler{
		paths:     paths,
		store:     store,
		committer: committer,
		sweeper:   sweeper,
		runner:    runner,
		maxUpload: maxUpload,
		version:   version,
		started:   time.Now(),
		logger:    logger.With("handler", "core"),
	}
}

// Routes returns the core route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/core",
		Description: "upload, download, and service operations",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/upload", Handler: h.Upload},
			{Method: "GET", Pattern: "/download/{conversion_id}", Handler: h.Download},
			{Method: "GET", Pattern: "/health", Handler: h.Health},
			{Method: "GET", Pattern: "/formats", Handler: h.Formats},
			{Method: "GET", Pattern: "/stats", Handler: h.Stats},
			{Method: "POST", Pattern: "/cleanup", Handler: h.Cleanup},
			{Method: "GET", Pattern: "/conversions", Handler: h.Conversions},
		},
	}
}

// Upload stores a file without converting it and registers it for
// download, so clients can stage inputs or round-trip files.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	stored, err := conversion.SaveUploads(w, r, h.paths, h.maxUpload, conversion.UploadRule{})
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	input := stored[0]

	// Move out of temp so the upload survives request cleanup.
	output := h.paths.OutputPath(input.Filename)
	if err := os.Rename(input.Path, output); err != nil {
		conversion.Cleanup(h.paths, stored)
		conversion.Fail(w, h.logger, fmt.Errorf("store upload: %w", err))
		return
	}

	contentType := "application/octet-stream"
	if r.MultipartForm != nil {
		if headers := r.MultipartForm.File["file"]; len(headers) > 0 {
			if ct := headers[0].Header.Get("Content-Type"); ct != "" {
				contentType = ct
			}
		}
	}

	entry, err := h.committer.Commit(r.Context(), "upload", conversion.Result{
		OutputPath: output,
		Filename:   input.Filename,
		MimeType:   contentType,
	})
	if err != nil {
		h.paths.Remove(output)
		conversion.Fail(w, h.logger, err)
		return
	}
	conversion.Respond(w, "file uploaded", formatOf(input.Filename), entry)
}

// Download streams a registered output. Unknown, expired, and
// missing-file identifiers all surface as 404 with distinct messages.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("conversion_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound,
			errors.New("unknown conversion id"))
		return
	}

	entry, err := h.store.Resolve(r.Context(), id)
	switch {
	case errors.Is(err, registry.ErrExpired):
		handlers.RespondError(w, h.logger, http.StatusNotFound,
			errors.New("download expired"))
		return
	case errors.Is(err, registry.ErrNotFound):
		handlers.RespondError(w, h.logger, http.StatusNotFound,
			errors.New("unknown conversion id"))
		return
	case err != nil:
		conversion.Fail(w, h.logger, err)
		return
	}

	// Check the file before streaming: once RespondFile has written
	// headers a failure can only be logged, not turned into a 404.
	if _, err := os.Stat(entry.Path); err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound,
			errors.New("output file no longer available"))
		return
	}

	if err := handlers.RespondFile(w, r, entry.Path, entry.Filename, entry.MimeType); err != nil {
		h.logger.Error("download interrupted", "conversion_id", id, "error", err)
		return
	}
	h.logger.Info("download served", "conversion_id", id, "filename", entry.Filename)
}

// Health reports service status, uptime, and external tool availability
// with installation guidance for anything missing.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	toolStatus := make([]map[string]any, 0, len(tools.All()))
	for _, t := range tools.All() {
		status := map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"available":   h.runner.Available(t),
		}
		if !h.runner.Available(t) {
			status["download_url"] = t.DownloadURL
			status["installation_instructions"] = t.Instructions
		}
		toolStatus = append(toolStatus, status)
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"tools":   toolStatus,
	})
}

// Formats lists the supported output formats per conversion domain.
func (h *Handler) Formats(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"pdf":             []string{"pdf", "docx", "zip"},
		"image":           image.Formats(),
		"audio":           audio.Formats(),
		"video":           video.Formats(),
		"ocr":             []string{"txt"},
		"max_upload_size": units.HumanSize(float64(h.maxUpload)),
	})
}

// Stats reports registry and storage usage.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Count(r.Context())
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	sizes := h.paths.DirSizes()

	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"active_downloads": count,
		"download_ttl":     h.committer.TTL().String(),
		"storage": map[string]any{
			"uploads_bytes": sizes.Uploads,
			"outputs_bytes": sizes.Outputs,
			"temp_bytes":    sizes.Temp,
			"uploads":       units.HumanSize(float64(sizes.Uploads)),
			"outputs":       units.HumanSize(float64(sizes.Outputs)),
			"temp":          units.HumanSize(float64(sizes.Temp)),
		},
	})
}

// Cleanup runs an expiry sweep immediately instead of waiting for the
// next scheduled pass.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	entries, files := h.sweeper.Sweep(r.Context())
	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"expired_entries": entries,
		"removed_files":   files,
	})
}

// Conversions lists registered downloads, newest first. The limit query
// parameter caps the result (default 50, max 500).
func (h *Handler) Conversions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			conversion.Fail(w, h.logger,
				fmt.Errorf("%w: limit %q", conversion.ErrInvalidParameter, raw))
			return
		}
		limit = min(parsed, 500)
	}

	entries, err := h.store.List(r.Context(), limit)
	if err != nil {
		conversion.Fail(w, h.logger, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"count":       len(entries),
		"conversions": entries,
	})
}

func formatOf(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i+1:]
		}
	}
	return "bin"
}
