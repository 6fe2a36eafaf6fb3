package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

const (
	jpegQuality = 90

	// MaxPixels bounds width*height of an image accepted for decoding.
	MaxPixels = 25_000_000
)

// ErrUnsupportedImage is returned when the file is not a decodable png, jpeg or gif
// or is larger than MaxPixels.
var ErrUnsupportedImage = errors.New("unsupported image")

// DetectFormat reads only the image header at path and returns its format
// ("png", "jpeg" or "gif").
func DetectFormat(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()
	return detect(in)
}

func detect(r io.Reader) (string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	switch format {
	case "png", "jpeg", "gif":
	default:
		return "", fmt.Errorf("%w: format %q", ErrUnsupportedImage, format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, cfg.Width, cfg.Height, MaxPixels)
	}
	return format, nil
}

// ResizeFile scales the image at path to a width x height square in place,
// keeping the original encoding format. The file is left untouched on error.
func ResizeFile(path string, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid target size %dx%d", width, height)
	}

	in, err := os.Open(path)
	if err != nil {
		return err
	}
	src, format, err := decode(in)
	_ = in.Close()
	if err != nil {
		return err
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	return replaceFile(path, func(w io.Writer) error {
		switch format {
		case "png":
			return png.Encode(w, dst)
		case "gif":
			return gif.Encode(w, dst, nil)
		default:
			return jpeg.Encode(w, dst, &jpeg.Options{Quality: jpegQuality})
		}
	})
}

// decode checks the header before decoding so oversized images are never allocated.
func decode(f *os.File) (image.Image, string, error) {
	if _, err := detect(f); err != nil {
		return nil, "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", err
	}
	src, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return src, format, nil
}

// replaceFile writes a sibling temp file and renames it over path.
func replaceFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".resize-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	err = write(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}
