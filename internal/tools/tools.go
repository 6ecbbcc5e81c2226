// Package tools manages the external binaries some conversions depend on.
// A tool may legitimately be absent from the host; handlers check
// availability before invoking it and surface installation guidance
// when it is missing.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Tool describes an external binary dependency.
type Tool struct {
	Name         string
	Binary       string
	Description  string
	DownloadURL  string
	Instructions []string
}

// The external tools the service knows about.
var (
	FFmpeg = Tool{
		Name:        "ffmpeg",
		Binary:      "ffmpeg",
		Description: "audio and video transcoding engine",
		DownloadURL: "https://ffmpeg.org/download.html",
		Instructions: []string{
			"Debian/Ubuntu: apt-get install ffmpeg",
			"macOS: brew install ffmpeg",
			"Windows: download a build from https://ffmpeg.org/download.html and add it to PATH",
		},
	}

	Tesseract = Tool{
		Name:        "tesseract",
		Binary:      "tesseract",
		Description: "OCR engine",
		DownloadURL: "https://github.com/tesseract-ocr/tesseract",
		Instructions: []string{
			"Debian/Ubuntu: apt-get install tesseract-ocr",
			"macOS: brew install tesseract",
			"Windows: download the installer from https://github.com/UB-Mannheim/tesseract/wiki",
		},
	}

	LibreOffice = Tool{
		Name:        "libreoffice",
		Binary:      "soffice",
		Description: "document format conversion (PDF to Word)",
		DownloadURL: "https://www.libreoffice.org/download/",
		Instructions: []string{
			"Debian/Ubuntu: apt-get install libreoffice",
			"macOS: brew install --cask libreoffice",
			"Windows: download the installer from https://www.libreoffice.org/download/",
		},
	}

	Rembg = Tool{
		Name:        "rembg",
		Binary:      "rembg",
		Description: "image background removal",
		DownloadURL: "https://github.com/danielgatis/rembg",
		Instructions: []string{
			"pip install rembg[cli]",
		},
	}
)

// All returns every tool the service can use.
func All() []Tool {
	return []Tool{FFmpeg, Tesseract, LibreOffice, Rembg}
}

// Runner detects and invokes external tools. The lookup function is
// injectable for tests.
type Runner struct {
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// NewRunner creates a tool runner using the process PATH.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{
		lookPath: exec.LookPath,
		logger:   logger.With("system", "tools"),
	}
}

// NewRunnerWithLookup creates a runner with a custom binary lookup,
// used by tests to simulate missing tools.
func NewRunnerWithLookup(lookPath func(string) (string, error), logger *slog.Logger) *Runner {
	return &Runner{lookPath: lookPath, logger: logger.With("system", "tools")}
}

// Path returns the resolved path of the tool's binary, or an empty string
// when it is not installed.
func (r *Runner) Path(t Tool) string {
	path, err := r.lookPath(t.Binary)
	if err != nil {
		return ""
	}
	return path
}

// Available reports whether the tool's binary is on the PATH.
func (r *Runner) Available(t Tool) bool {
	return r.Path(t) != ""
}

// Require returns a *MissingError when the tool is not installed.
func (r *Runner) Require(t Tool) error {
	if !r.Available(t) {
		return &MissingError{Tool: t}
	}
	return nil
}

// Run invokes the tool with the given arguments. A non-zero exit is
// returned as an error carrying the tail of stderr, which is where
// ffmpeg and friends report what actually went wrong.
func (r *Runner) Run(ctx context.Context, t Tool, args ...string) error {
	if err := r.Require(t); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, t.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("running tool", "tool", t.Name, "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", t.Name, err, tail(stderr.String(), 500))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
