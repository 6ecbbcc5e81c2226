// Package storage manages the three on-disk roots of the conversion
// pipeline: uploads, outputs, and temp. Files are keyed by generated
// identifiers; all paths handed out by this package stay inside the
// configured roots.
package storage

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fileforge/fileforge/internal/config"
	"github.com/google/uuid"
)

const maxFilenameLength = 200

var (
	filenameSanitizeRegex   = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	multipleUnderscoreRegex = regexp.MustCompile(`_+`)
)

// Stored describes a file that has been persisted into one of the roots.
type Stored struct {
	Path     string
	Filename string
	Size     int64
}

// Paths provides access to the storage roots.
type Paths struct {
	uploads string
	outputs string
	temp    string
	logger  *slog.Logger
}

// New creates a storage system from the configured directories.
// Directories are resolved to absolute paths; creation is deferred to Start.
func New(cfg *config.StorageConfig, logger *slog.Logger) (*Paths, error) {
	uploads, err := filepath.Abs(cfg.UploadsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads_dir: %w", err)
	}
	outputs, err := filepath.Abs(cfg.OutputsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve outputs_dir: %w", err)
	}
	temp, err := filepath.Abs(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("resolve temp_dir: %w", err)
	}

	return &Paths{
		uploads: uploads,
		outputs: outputs,
		temp:    temp,
		logger:  logger.With("system", "storage"),
	}, nil
}

// Start creates the storage directories.
func (p *Paths) Start() error {
	for _, dir := range []string{p.uploads, p.outputs, p.temp} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	p.logger.Info("storage directories initialized",
		"uploads", p.uploads, "outputs", p.outputs, "temp", p.temp)
	return nil
}

// Uploads returns the uploads root.
func (p *Paths) Uploads() string { return p.uploads }

// Outputs returns the outputs root.
func (p *Paths) Outputs() string { return p.outputs }

// Temp returns the temp root.
func (p *Paths) Temp() string { return p.temp }

// SaveUpload persists an uploaded stream into the uploads root under a
// unique name derived from the sanitized original filename.
func (p *Paths) SaveUpload(filename string, r io.Reader) (Stored, error) {
	return p.save(p.uploads, filename, r)
}

// SaveTemp persists an uploaded stream into the temp root. Conversion
// handlers use this for working copies that are deleted after the request.
func (p *Paths) SaveTemp(filename string, r io.Reader) (Stored, error) {
	return p.save(p.temp, filename, r)
}

func (p *Paths) save(root, filename string, r io.Reader) (Stored, error) {
	name := SanitizeFilename(filename)
	path := filepath.Join(root, uuid.New().String()+"_"+name)

	tmpPath := path + ".part"
	f, err := os.Create(tmpPath)
	if err != nil {
		return Stored{}, fmt.Errorf("create file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return Stored{}, fmt.Errorf("write file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return Stored{}, fmt.Errorf("rename file: %w", err)
	}

	return Stored{Path: path, Filename: name, Size: size}, nil
}

// OutputPath returns a unique path for a generated output file.
func (p *Paths) OutputPath(name string) string {
	return filepath.Join(p.outputs, uuid.New().String()+"_"+SanitizeFilename(name))
}

// TempPath returns a unique path inside the temp root.
func (p *Paths) TempPath(name string) string {
	return filepath.Join(p.temp, uuid.New().String()+"_"+SanitizeFilename(name))
}

// TempDir creates and returns a unique working directory inside the temp
// root, for operations that produce multiple intermediate files.
func (p *Paths) TempDir() (string, error) {
	dir := filepath.Join(p.temp, uuid.New().String())
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return dir, nil
}

// Contains reports whether path is inside one of the storage roots.
func (p *Paths) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range []string{p.uploads, p.outputs, p.temp} {
		if strings.HasPrefix(abs, root+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// Remove deletes a file previously handed out by this package.
// Paths outside the storage roots are rejected. Removal of a missing
// file is not an error.
func (p *Paths) Remove(path string) error {
	if !p.Contains(path) {
		return ErrOutsideRoot
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Sizes reports the total bytes held in each root.
type Sizes struct {
	Uploads int64
	Outputs int64
	Temp    int64
}

// DirSizes walks the storage roots and returns their sizes.
func (p *Paths) DirSizes() Sizes {
	return Sizes{
		Uploads: dirSize(p.uploads),
		Outputs: dirSize(p.outputs),
		Temp:    dirSize(p.temp),
	}
}

func dirSize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// SanitizeFilename reduces a client-supplied filename to a safe form for
// filesystem use. The result never contains path separators.
func SanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	sanitized := filenameSanitizeRegex.ReplaceAllString(base, "_")
	sanitized = multipleUnderscoreRegex.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "._")

	if len(sanitized) > maxFilenameLength {
		ext := filepath.Ext(sanitized)
		keep := maxFilenameLength - len(ext)
		if keep < 1 {
			sanitized = sanitized[:maxFilenameLength]
		} else {
			sanitized = strings.TrimSuffix(sanitized, ext)[:keep] + ext
		}
	}

	if sanitized == "" || sanitized == "." || sanitized == ".." {
		return "file"
	}
	return sanitized
}
