package rimage

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// ToPrettyPicture colors each valid pixel by depth, near in warm hues and far in cool ones.
// The range is the map's own min/max clamped to [hardMin, hardMax]; a hardMax of 0 means no
// upper clamp. Pixels without data stay black.
func (dm *DepthMap) ToPrettyPicture(hardMin, hardMax Depth) image.Image {
	min, max := dm.MinMax()
	if min < hardMin {
		min = hardMin
	}
	if hardMax > 0 && max > hardMax {
		max = hardMax
	}

	img := image.NewRGBA(image.Rect(0, 0, dm.Width(), dm.Height()))
	span := float64(max) - float64(min)

	for y := 0; y < dm.Height(); y++ {
		for x := 0; x < dm.Width(); x++ {
			z := dm.GetDepth(x, y)
			if z == 0 {
				img.Set(x, y, color.Black)
				continue
			}
			if z < min {
				z = min
			}
			if z > max {
				z = max
			}

			ratio := 0.
			if span > 0 {
				ratio = (float64(z) - float64(min)) / span
			}

			hue := 30 + (200.0 * ratio)
			img.Set(x, y, colorful.Hsv(hue, 1.0, 1.0).Clamped())
		}
	}

	return img
}
