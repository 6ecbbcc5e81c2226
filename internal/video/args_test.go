package video

import (
	"testing"

	"github.com/fileforge/fileforge/internal/conversion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertArgs(t *testing.T) {
	args, err := convertArgs("in.avi", "out.mp4", "mp4")
	require.NoError(t, err)
	assert.Equal(t, []string{"-y", "-i", "in.avi", "out.mp4"}, args)

	_, err = convertArgs("in.avi", "out.xyz", "xyz")
	assert.ErrorIs(t, err, conversion.ErrInvalidParameter)
}

func TestCompressArgs(t *testing.T) {
	args, err := compressArgs("in.mp4", "out.mp4", 28)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-y", "-i", "in.mp4",
		"-c:v", "libx264", "-crf", "28", "-preset", "medium",
		"-c:a", "aac",
		"out.mp4",
	}, args)
}

func TestCompressArgs_InvalidCRF(t *testing.T) {
	for _, crf := range []int{0, 17, 52, -1} {
		_, err := compressArgs("in.mp4", "out.mp4", crf)
		assert.ErrorIs(t, err, conversion.ErrInvalidParameter, "crf %d", crf)
	}
}

func TestTrimArgs(t *testing.T) {
	args, err := trimArgs("in.mp4", "out.mp4", 0, 30.25)
	require.NoError(t, err)
	assert.Equal(t, []string{"-y", "-i", "in.mp4", "-ss", "0", "-to", "30.25", "-c", "copy", "out.mp4"}, args)

	_, err = trimArgs("in.mp4", "out.mp4", 30, 10)
	assert.ErrorIs(t, err, conversion.ErrInvalidParameter)
}

func TestGifArgs(t *testing.T) {
	args, err := gifArgs("in.mp4", "out.gif", 10, 480)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-y", "-i", "in.mp4",
		"-vf", "fps=10,scale=480:-1:flags=lanczos",
		"-loop", "0",
		"out.gif",
	}, args)
}

func TestGifArgs_Invalid(t *testing.T) {
	_, err := gifArgs("in.mp4", "out.gif", 0, 480)
	assert.ErrorIs(t, err, conversion.ErrInvalidParameter)

	_, err = gifArgs("in.mp4", "out.gif", 10, 8)
	assert.ErrorIs(t, err, conversion.ErrInvalidParameter)
}

func TestExtractAudioArgs(t *testing.T) {
	args := extractAudioArgs("in.mp4", "out.mp3")
	assert.Equal(t, []string{"-y", "-i", "in.mp4", "-vn", "-c:a", "libmp3lame", "-q:a", "2", "out.mp3"}, args)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, "mp4", formatOf("clip.MP4"))
	assert.Equal(t, "", formatOf("noext"))
}
