package imaging

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestResizeFile_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	writePNG(t, path, 640, 480)

	require.NoError(t, ResizeFile(path, 250, 250))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 250, cfg.Width)
	assert.Equal(t, 250, cfg.Height)
}

func TestResizeFile_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	require.NoError(t, os.WriteFile(path, []byte("definitely not an image"), 0o644))

	err := ResizeFile(path, 250, 250)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "definitely not an image", string(data))
}

func TestResizeFile_InvalidSize(t *testing.T) {
	assert.Error(t, ResizeFile("unused", 0, 250))
}

// pngHeader returns a PNG signature and an RGBA IHDR chunk claiming w x h, with no pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 17)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:], w)
	binary.BigEndian.PutUint32(ihdr[8:], h)
	ihdr[12] = 8 // bit depth
	ihdr[13] = 6 // truecolor with alpha

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}

func TestResizeFile_RejectsOversizedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	header := pngHeader(15000, 15000)
	require.NoError(t, os.WriteFile(path, header, 0o644))

	err := ResizeFile(path, 250, 250)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.Contains(t, err.Error(), "exceeds")

	_, err = DetectFormat(path)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, header, data)
}

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "a.bin")
	writePNG(t, pngPath, 8, 8)
	format, err := DetectFormat(pngPath)
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	htmlPath := filepath.Join(dir, "evil.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<script>alert(1)</script>"), 0o644))
	_, err = DetectFormat(htmlPath)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestResizeFile_TruncatedPixelDataKeepsOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	header := pngHeader(4, 4)
	require.NoError(t, os.WriteFile(path, header, 0o644))

	err := ResizeFile(path, 250, 250)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, header, data)
}

func TestReplaceFile_FailedWriteKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avatar.png")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	err := replaceFile(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("encoder failed")
	})
	require.Error(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "original", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
