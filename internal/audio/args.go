package audio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fileforge/fileforge/internal/conversion"
)

// formats maps supported audio output formats to their mime types and
// ffmpeg codecs.
var formats = map[string]struct {
	mime  string
	codec string
}{
	"mp3":  {"audio/mpeg", "libmp3lame"},
	"wav":  {"audio/wav", "pcm_s16le"},
	"ogg":  {"audio/ogg", "libvorbis"},
	"flac": {"audio/flac", "flac"},
	"aac":  {"audio/aac", "aac"},
	"m4a":  {"audio/mp4", "aac"},
}

// Formats returns the supported audio output format names.
func Formats() []string {
	return []string{"mp3", "wav", "ogg", "flac", "aac", "m4a"}
}

// ConvertOptions are the tunables of an audio format conversion.
type ConvertOptions struct {
	Format     string
	Bitrate    string // e.g. "192k"
	SampleRate int    // e.g. 44100
}

func (o ConvertOptions) validate() (string, error) {
	f, ok := formats[strings.ToLower(o.Format)]
	if !ok {
		return "", fmt.Errorf("%w: audio format %q", conversion.ErrInvalidParameter, o.Format)
	}
	if o.Bitrate != "" && !validBitrate(o.Bitrate) {
		return "", fmt.Errorf("%w: bitrate %q", conversion.ErrInvalidParameter, o.Bitrate)
	}
	if o.SampleRate != 0 && (o.SampleRate < 8000 || o.SampleRate > 192000) {
		return "", fmt.Errorf("%w: sample_rate %d", conversion.ErrInvalidParameter, o.SampleRate)
	}
	return f.codec, nil
}

// convertArgs builds the ffmpeg invocation for a format conversion.
func convertArgs(input, output string, opts ConvertOptions) ([]string, error) {
	codec, err := opts.validate()
	if err != nil {
		return nil, err
	}
	args := []string{"-y", "-i", input, "-vn", "-c:a", codec}
	if opts.Bitrate != "" {
		args = append(args, "-b:a", opts.Bitrate)
	}
	if opts.SampleRate != 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	return append(args, output), nil
}

// trimArgs builds the ffmpeg invocation for cutting [start, end) out of
// the input. Stream copy keeps the cut lossless.
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

// mergeArgs builds the ffmpeg concat-demuxer invocation. listFile names
// the inputs, one "file '<path>'" line each.
func mergeArgs(listFile, output string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		output,
	}
}

// volumeArgs builds the ffmpeg invocation for a gain adjustment in
// decibels.
func volumeArgs(input, output string, db float64) ([]string, error) {
	if db < -60 || db > 60 {
		return nil, fmt.Errorf("%w: volume adjustment %gdB", conversion.ErrInvalidParameter, db)
	}
	return []string{
		"-y",
		"-i", input,
		"-filter:a", fmt.Sprintf("volume=%gdB", db),
		output,
	}, nil
}

func validBitrate(bitrate string) bool {
	trimmed := strings.TrimSuffix(strings.ToLower(bitrate), "k")
	value, err := strconv.Atoi(trimmed)
	return err == nil && value >= 8 && value <= 512
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
