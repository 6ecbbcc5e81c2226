// Package api composes the conversion handlers into the service's HTTP
// surface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/fileforge/fileforge/internal/audio"
	"github.com/fileforge/fileforge/internal/config"
	"github.com/fileforge/fileforge/internal/conversion"
	"github.com/fileforge/fileforge/internal/core"
	"github.com/fileforge/fileforge/internal/image"
	"github.com/fileforge/fileforge/internal/ocr"
	"github.com/fileforge/fileforge/internal/pdf"
	"github.com/fileforge/fileforge/internal/registry"
	"github.com/fileforge/fileforge/internal/storage"
	"github.com/fileforge/fileforge/internal/tools"
	"github.com/fileforge/fileforge/internal/video"
	"github.com/fileforge/fileforge/pkg/middleware"
	"github.com/fileforge/fileforge/pkg/routes"
	"github.com/rs/cors"
)

// BasePath is the URL prefix of every service endpoint.
const BasePath = "/api/v1"

// Version is the service version reported by the health endpoint.
// Overridden at build time via -ldflags.
var Version = "dev"

// Options collects the dependencies of the HTTP surface.
type Options struct {
	Config  *config.Config
	Paths   *storage.Paths
	Store   registry.Store
	Sweeper *storage.Sweeper
	Runner  *tools.Runner
	Logger  *slog.Logger
}

// New builds the routed and middleware-wrapped HTTP handler.
func New(opts Options) http.Handler {
	maxUpload := opts.Config.Storage.MaxUploadSizeBytes()
	committer := conversion.NewCommitter(opts.Store, opts.Config.Cleanup.TTLDuration(), opts.Logger)

	groups := []routes.Group{
		core.NewHandler(opts.Paths, opts.Store, committer, opts.Sweeper, opts.Runner,
			maxUpload, Version, opts.Logger).Routes(),
		pdf.NewHandler(opts.Paths, committer, opts.Runner, maxUpload, opts.Logger).Routes(),
		image.NewHandler(opts.Paths, committer, opts.Runner, maxUpload, opts.Logger).Routes(),
		audio.NewHandler(opts.Paths, committer, opts.Runner, maxUpload, opts.Logger).Routes(),
		video.NewHandler(opts.Paths, committer, opts.Runner, maxUpload, opts.Logger).Routes(),
		ocr.NewHandler(opts.Paths, opts.Runner, maxUpload, opts.Logger).Routes(),
	}

	mux := http.NewServeMux()
	routes.Register(mux, BasePath, groups...)

	var handler http.Handler = mux
	if opts.Config.CORS.Enabled {
		handler = cors.New(cors.Options{
			AllowedOrigins:   opts.Config.CORS.Origins,
			AllowedMethods:   opts.Config.CORS.AllowedMethods,
			AllowedHeaders:   opts.Config.CORS.AllowedHeaders,
			AllowCredentials: opts.Config.CORS.AllowCredentials,
			MaxAge:           opts.Config.CORS.MaxAge,
		}).Handler(handler)
	}
	handler = middleware.TrimSlash()(handler)
	handler = middleware.Logger(opts.Logger)(handler)
	handler = middleware.Recover(opts.Logger)(handler)
	return handler
}
