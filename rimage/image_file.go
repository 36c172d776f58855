package rimage

import (
	"bufio"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"golang.org/x/image/tiff"
)

// Supported encodings. PNG and TIFF carry 16-bit depth; the rest are preview formats.
const (
	FormatPNG  = "png"
	FormatTIFF = "tiff"
	FormatPPM  = "ppm"
	FormatQOI  = "qoi"
	FormatWebP = "webp"
)

// ReadDepthMap reads a 16-bit grayscale PNG or TIFF from disk as a DepthMap.
func ReadDepthMap(fn string) (*DepthMap, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return DecodeDepthMap(bufio.NewReader(f))
}

// DecodeDepthMap decodes a 16-bit grayscale PNG or TIFF stream.
func DecodeDepthMap(r io.Reader) (*DepthMap, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode depth image")
	}
	dm, err := ConvertImageToDepthMap(img)
	if err != nil {
		return nil, errors.Wrapf(err, "%s depth image", format)
	}
	return dm, nil
}

// WriteDepthMap writes dm to fn as a 16-bit grayscale PNG, or TIFF when fn ends in .tif/.tiff.
func WriteDepthMap(fn string, dm *DepthMap) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if FormatFromPath(fn) == FormatTIFF {
		return tiff.Encode(f, dm.ToGray16(), &tiff.Options{Compression: tiff.Deflate})
	}
	return png.Encode(f, dm.ToGray16())
}

// FormatFromPath picks an encoding from a file extension, defaulting to png.
func FormatFromPath(fn string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fn), ".")); ext {
	case "tif", FormatTIFF:
		return FormatTIFF
	case FormatPPM, FormatQOI, FormatWebP:
		return ext
	default:
		return FormatPNG
	}
}

// EncodeImage writes img to w in the given preview format.
func EncodeImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case FormatPNG, "":
		return png.Encode(w, img)
	case FormatPPM:
		return ppm.Encode(w, img)
	case FormatQOI:
		return qoi.Encode(w, img)
	case FormatWebP:
		return nativewebp.Encode(w, img, nil)
	default:
		return errors.Errorf("unsupported image format %q", format)
	}
}

// WriteImageToFile encodes img to fn, choosing the format from the extension.
func WriteImageToFile(fn string, img image.Image) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err := EncodeImage(w, img, FormatFromPath(fn)); err != nil {
		return err
	}
	return w.Flush()
}
