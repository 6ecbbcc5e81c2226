package config

import (
	"fmt"
	"os"

	"github.com/docker/go-units"
)

const (
	// EnvStorageUploadsDir overrides the uploads directory.
	EnvStorageUploadsDir = "STORAGE_UPLOADS_DIR"

	// EnvStorageOutputsDir overrides the outputs directory.
	EnvStorageOutputsDir = "STORAGE_OUTPUTS_DIR"

	// EnvStorageTempDir overrides the temp directory.
	EnvStorageTempDir = "STORAGE_TEMP_DIR"

	// EnvStorageMaxUploadSize overrides the upload size ceiling.
	EnvStorageMaxUploadSize = "STORAGE_MAX_UPLOAD_SIZE"
)

// StorageConfig contains the file storage directories and upload limits.
type StorageConfig struct {
	UploadsDir       string `toml:"uploads_dir"`
	OutputsDir       string `toml:"outputs_dir"`
	TempDir          string `toml:"temp_dir"`
	MaxUploadSize    string `toml:"max_upload_size"`
	maxUploadSizeVal int64
}

// MaxUploadSizeBytes returns the parsed upload size ceiling in bytes.
func (c *StorageConfig) MaxUploadSizeBytes() int64 {
	return c.maxUploadSizeVal
}

// Finalize applies defaults, loads environment overrides, and validates the
// storage configuration.
func (c *StorageConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *StorageConfig) Merge(overlay *StorageConfig) {
	if overlay.UploadsDir != "" {
		c.UploadsDir = overlay.UploadsDir
	}
	if overlay.OutputsDir != "" {
		c.OutputsDir = overlay.OutputsDir
	}
	if overlay.TempDir != "" {
		c.TempDir = overlay.TempDir
	}
	if size, err := units.FromHumanSize(overlay.MaxUploadSize); err == nil {
		c.MaxUploadSize = overlay.MaxUploadSize
		c.maxUploadSizeVal = size
	}
}

func (c *StorageConfig) loadDefaults() {
	if c.UploadsDir == "" {
		c.UploadsDir = ".data/uploads"
	}
	if c.OutputsDir == "" {
		c.OutputsDir = ".data/outputs"
	}
	if c.TempDir == "" {
		c.TempDir = ".data/temp"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "100MB"
	}
}

func (c *StorageConfig) loadEnv() {
	if v := os.Getenv(EnvStorageUploadsDir); v != "" {
		c.UploadsDir = v
	}
	if v := os.Getenv(EnvStorageOutputsDir); v != "" {
		c.OutputsDir = v
	}
	if v := os.Getenv(EnvStorageTempDir); v != "" {
		c.TempDir = v
	}
	if v := os.Getenv(EnvStorageMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
}

func (c *StorageConfig) validate() error {
	if c.UploadsDir == "" || c.OutputsDir == "" || c.TempDir == "" {
		return fmt.Errorf("uploads_dir, outputs_dir, and temp_dir are required")
	}

	size, err := units.FromHumanSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	c.maxUploadSizeVal = size

	return nil
}
