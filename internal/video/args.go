package video

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fileforge/fileforge/internal/conversion"
)

// formats maps supported video output formats to their mime types.
var formats = map[string]string{
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"mov":  "video/quicktime",
	"webm": "video/webm",
}

// Formats returns the supported video output format names.
func Formats() []string {
	return []string{"mp4", "avi", "mkv", "mov", "webm"}
}

// convertArgs builds the ffmpeg invocation for a container/codec
// conversion. Codec selection is left to ffmpeg's per-container defaults.
func convertArgs(input, output, format string) ([]string, error) {
	if _, ok := formats[format]; !ok {
		return nil, fmt.Errorf("%w: video format %q", conversion.ErrInvalidParameter, format)
	}
	return []string{"-y", "-i", input, output}, nil
}

// compressArgs builds the ffmpeg invocation for H.264 re-encoding at the
// given constant rate factor. Higher crf means smaller output; 18-28 is
// the useful range, 23 the codec default.
func compressArgs(input, output string, crf int) ([]string, error) {
	if crf < 18 || crf > 51 {
		return nil, fmt.Errorf("%w: crf %d", conversion.ErrInvalidParameter, crf)
	}
	return []string{
		"-y",
		"-i", input,
		"-c:v", "libx264",
		"-crf", strconv.Itoa(crf),
		"-preset", "medium",
		"-c:a", "aac",
		output,
	}, nil
}

// trimArgs builds the ffmpeg invocation for cutting [start, end) out of
// the input without re-encoding.
func trimArgs(input, output string, start, end float64) ([]string, error) {
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: trim range %g-%g", conversion.ErrInvalidParameter, start, end)
	}
	return []string{
		"-y",
		"-i", input,
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-c", "copy",
		output,
	}, nil
}

// gifArgs builds the ffmpeg invocation for GIF conversion at the given
// frame rate and output width. Height follows the aspect ratio.
func gifArgs(input, output string, fps, width int) ([]string, error) {
	if fps < 1 || fps > 30 {
		return nil, fmt.Errorf("%w: fps %d", conversion.ErrInvalidParameter, fps)
	}
	if width < 16 || width > 1920 {
		return nil, fmt.Errorf("%w: width %d", conversion.ErrInvalidParameter, width)
	}
	filter := fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos", fps, width)
	return []string{
		"-y",
		"-i", input,
		"-vf", filter,
		"-loop", "0",
		output,
	}, nil
}

// extractAudioArgs builds the ffmpeg invocation for pulling the audio
// track out as mp3.
func extractAudioArgs(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-vn",
		"-c:a", "libmp3lame",
		"-q:a", "2",
		output,
	}
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

func formatOf(filename string) string {
	dot := strings.LastIndex(filename, ".")
	if dot < 0 {
		return ""
	}
	return strings.ToLower(filename[dot+1:])
}
