package image

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fileforge/fileforge/internal/conversion"
)

// formats maps the supported output format names to their mime types.
var formats = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
}

// Formats returns the supported output format names.
func Formats() []string {
	return []string{"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff"}
}

func mimeFor(format string) (string, error) {
	mime, ok := formats[strings.ToLower(format)]
	if !ok {
		return "", fmt.Errorf("%w: format %q", conversion.ErrInvalidParameter, format)
	}
	return mime, nil
}

func open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", conversion.ErrInvalidInput, err)
	}
	return img, nil
}

func save(img image.Image, path string, opts ...imaging.EncodeOption) error {
	if err := imaging.Save(img, path, opts...); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

// resize scales the image to the requested dimensions. A zero width or
// height preserves the aspect ratio.
func resize(input, output string, width, height int) error {
	img, err := open(input)
	if err != nil {
		return err
	}
	return save(imaging.Resize(img, width, height, imaging.Lanczos), output)
}

func crop(input, output string, x, y, width, height int) error {
	img, err := open(input)
	if err != nil {
		return err
	}
	bounds := img.Bounds()
	rect := image.Rect(x, y, x+width, y+height)
	if !rect.In(bounds) {
		return fmt.Errorf("%w: crop region %v exceeds image bounds %v",
			conversion.ErrInvalidParameter, rect, bounds)
	}
	return save(imaging.Crop(img, rect), output)
}

// compressJPEG re-encodes the image as JPEG at the given quality.
func compressJPEG(input, output string, quality int) error {
	img, err := open(input)
	if err != nil {
		return err
	}
	return save(img, output, imaging.JPEGQuality(quality))
}

func grayscale(input, output string) error {
	img, err := open(input)
	if err != nil {
		return err
	}
	return save(imaging.Grayscale(img), output)
}

// convert re-encodes the image into the format implied by the output
// file's extension.
func convert(input, output string) error {
	img, err := open(input)
	if err != nil {
		return err
	}
	return save(img, output)
}
