package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// RotateImage rotates img clockwise by degrees, which must be a multiple of 90.
func RotateImage(img image.Image, degrees int) (image.Image, error) {
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		return img, nil
	case 90:
		return imaging.Rotate270(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate90(img), nil
	default:
		return nil, errors.Errorf("can only rotate by multiples of 90 degrees, got %d", degrees)
	}
}

// ScaleImage resizes img by factor using nearest-neighbor sampling, so depth bands stay sharp.
func ScaleImage(img image.Image, factor float64) (image.Image, error) {
	if !(factor > 0) {
		return nil, errors.Errorf("scale factor must be positive, got %v", factor)
	}
	if factor == 1 {
		return img, nil
	}
	b := img.Bounds()
	w := int(float64(b.Dx())*factor + 0.5)
	h := int(float64(b.Dy())*factor + 0.5)
	if w < 1 || h < 1 {
		return nil, errors.Errorf("scaling %dx%d by %v leaves no pixels", b.Dx(), b.Dy(), factor)
	}
	return imaging.Resize(img, w, h, imaging.NearestNeighbor), nil
}
