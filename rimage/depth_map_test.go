package rimage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/xfmoulet/qoi"
	"go.viam.com/test"
)

func makeRampDepthMap(width, height int) *DepthMap {
	dm := NewEmptyDepthMap(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dm.Set(x, y, Depth(100*(x+1)+y))
		}
	}
	return dm
}

func TestDepthMapBasics(t *testing.T) {
	dm := makeRampDepthMap(4, 3)
	test.That(t, dm.HasData(), test.ShouldBeTrue)
	test.That(t, dm.Width(), test.ShouldEqual, 4)
	test.That(t, dm.Height(), test.ShouldEqual, 3)
	test.That(t, dm.GetDepth(2, 1), test.ShouldEqual, Depth(301))
	test.That(t, dm.Get(image.Point{3, 2}), test.ShouldEqual, Depth(402))
	test.That(t, dm.Data()[1*4+2], test.ShouldEqual, Depth(301))

	dm.Set(0, 0, 0)
	min, max := dm.MinMax()
	test.That(t, min, test.ShouldEqual, Depth(101))
	test.That(t, max, test.ShouldEqual, Depth(402))
	test.That(t, dm.ValidCount(), test.ShouldEqual, 11)

	clone := dm.Clone()
	clone.Set(1, 1, 7)
	test.That(t, dm.GetDepth(1, 1), test.ShouldEqual, Depth(201))

	test.That(t, dm.At(-1, 0), test.ShouldResemble, color.Gray16{})
	test.That(t, dm.At(1, 1), test.ShouldResemble, color.Gray16{201})

	var nilMap *DepthMap
	test.That(t, nilMap.HasData(), test.ShouldBeFalse)
	test.That(t, NewEmptyDepthMap(0, 5).HasData(), test.ShouldBeFalse)
	test.That(t, NewEmptyDepthMap(-1, 5).Width(), test.ShouldEqual, 0)

	empty := NewEmptyDepthMap(2, 2)
	min, max = empty.MinMax()
	test.That(t, min, test.ShouldEqual, Depth(0))
	test.That(t, max, test.ShouldEqual, Depth(0))
}

func TestNewDepthMapFromData(t *testing.T) {
	dm, err := NewDepthMapFromData(2, 2, []Depth{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.GetDepth(0, 1), test.ShouldEqual, Depth(3))

	_, err = NewDepthMapFromData(2, 2, []Depth{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "needs 4 samples")

	_, err = NewDepthMapFromData(-2, 2, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConvertImageToDepthMap(t *testing.T) {
	dm := makeRampDepthMap(5, 4)

	same, err := ConvertImageToDepthMap(dm)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, dm)

	fromGray, err := ConvertImageToDepthMap(dm.ToGray16())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromGray.Data(), test.ShouldResemble, dm.Data())

	sub := dm.ToGray16().SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray16)
	fromSub, err := ConvertImageToDepthMap(sub)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromSub.Width(), test.ShouldEqual, 2)
	test.That(t, fromSub.GetDepth(0, 0), test.ShouldEqual, dm.GetDepth(1, 1))

	_, err = ConvertImageToDepthMap(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDepthMapFileRoundTrip(t *testing.T) {
	dm := makeRampDepthMap(7, 5)
	dm.Set(3, 3, 0)
	fn := filepath.Join(t.TempDir(), "depth.png")

	test.That(t, WriteDepthMap(fn, dm), test.ShouldBeNil)
	read, err := ReadDepthMap(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Width(), test.ShouldEqual, 7)
	test.That(t, read.Height(), test.ShouldEqual, 5)
	test.That(t, read.Data(), test.ShouldResemble, dm.Data())

	_, err = ReadDepthMap(filepath.Join(t.TempDir(), "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = DecodeDepthMap(bytes.NewReader([]byte("not a png")))
	test.That(t, err, test.ShouldNotBeNil)

	tif := filepath.Join(t.TempDir(), "depth.tiff")
	test.That(t, WriteDepthMap(tif, dm), test.ShouldBeNil)
	read, err = ReadDepthMap(tif)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Data(), test.ShouldResemble, dm.Data())

	// an 8-bit preview is not depth
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, dm.ToPrettyPicture(0, 0)), test.ShouldBeNil)
	_, err = DecodeDepthMap(&buf)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "png depth image")
}

func TestPrettyPicture(t *testing.T) {
	dm := makeRampDepthMap(4, 2)
	dm.Set(0, 0, 0)
	img := dm.ToPrettyPicture(0, 0)
	test.That(t, img.Bounds(), test.ShouldResemble, dm.Bounds())

	r, g, b, _ := img.At(0, 0).RGBA()
	test.That(t, r+g+b, test.ShouldEqual, uint32(0))
	r, g, b, _ = img.At(2, 1).RGBA()
	test.That(t, r+g+b, test.ShouldBeGreaterThan, uint32(0))

	// near and far ends of the range get different colors
	test.That(t, img.At(0, 1), test.ShouldNotResemble, img.At(3, 1))

	near, ok := colorful.MakeColor(img.At(0, 1))
	test.That(t, ok, test.ShouldBeTrue)
	hue, sat, val := near.Hsv()
	test.That(t, hue, test.ShouldAlmostEqual, 30, 1)
	test.That(t, sat, test.ShouldAlmostEqual, 1, 0.01)
	test.That(t, val, test.ShouldAlmostEqual, 1, 0.01)
	far, ok := colorful.MakeColor(img.At(3, 1))
	test.That(t, ok, test.ShouldBeTrue)
	hue, _, _ = far.Hsv()
	test.That(t, hue, test.ShouldAlmostEqual, 230, 1)

	// a flat map has no span and must not divide by zero
	flat := NewEmptyDepthMap(2, 2)
	for i := range flat.Data() {
		flat.Data()[i] = 500
	}
	flatImg := flat.ToPrettyPicture(0, 0)
	test.That(t, flatImg.At(0, 0), test.ShouldResemble, flatImg.At(1, 1))
}

func TestEncodeImage(t *testing.T) {
	img := makeRampDepthMap(3, 3).ToPrettyPicture(0, 0)

	var buf bytes.Buffer
	test.That(t, EncodeImage(&buf, img, FormatPNG), test.ShouldBeNil)
	_, err := png.Decode(&buf)
	test.That(t, err, test.ShouldBeNil)

	buf.Reset()
	test.That(t, EncodeImage(&buf, img, FormatQOI), test.ShouldBeNil)
	decoded, err := qoi.Decode(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.Bounds().Dx(), test.ShouldEqual, 3)

	buf.Reset()
	test.That(t, EncodeImage(&buf, img, FormatPPM), test.ShouldBeNil)
	test.That(t, bytes.HasPrefix(buf.Bytes(), []byte("P6")), test.ShouldBeTrue)

	buf.Reset()
	test.That(t, EncodeImage(&buf, img, FormatWebP), test.ShouldBeNil)
	test.That(t, bytes.HasPrefix(buf.Bytes(), []byte("RIFF")), test.ShouldBeTrue)

	test.That(t, EncodeImage(&buf, img, FormatTIFF), test.ShouldNotBeNil)

	test.That(t, FormatFromPath("out.PPM"), test.ShouldEqual, FormatPPM)
	test.That(t, FormatFromPath("out.qoi"), test.ShouldEqual, FormatQOI)
	test.That(t, FormatFromPath("out"), test.ShouldEqual, FormatPNG)
	test.That(t, FormatFromPath("depth.TIF"), test.ShouldEqual, FormatTIFF)
	test.That(t, FormatFromPath("out.webp"), test.ShouldEqual, FormatWebP)

	fn := filepath.Join(t.TempDir(), "preview.qoi")
	test.That(t, WriteImageToFile(fn, img), test.ShouldBeNil)
}

func TestRotateAndScale(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 3, 2))
	img.SetGray16(0, 0, color.Gray16{Y: 0xffff})

	rotated, err := RotateImage(img, 90)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rotated.Bounds().Dx(), test.ShouldEqual, 2)
	test.That(t, rotated.Bounds().Dy(), test.ShouldEqual, 3)
	// clockwise: the top-left pixel ends up top-right
	r, _, _, _ := rotated.At(1, 0).RGBA()
	test.That(t, r, test.ShouldEqual, uint32(0xffff))

	same, err := RotateImage(img, -360)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, image.Image(img))

	_, err = RotateImage(img, 45)
	test.That(t, err, test.ShouldNotBeNil)

	scaled, err := ScaleImage(img, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scaled.Bounds().Dx(), test.ShouldEqual, 6)
	test.That(t, scaled.Bounds().Dy(), test.ShouldEqual, 4)
	r, _, _, _ = scaled.At(1, 1).RGBA()
	test.That(t, r, test.ShouldEqual, uint32(0xffff))

	_, err = ScaleImage(img, 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = ScaleImage(img, 0.01)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDepthStats(t *testing.T) {
	dm := NewEmptyDepthMap(4, 1)
	dm.Set(0, 0, 1000)
	dm.Set(1, 0, 2000)
	dm.Set(2, 0, 3000)

	s, err := dm.Stats()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Total, test.ShouldEqual, 4)
	test.That(t, s.Valid, test.ShouldEqual, 3)
	test.That(t, s.ValidFraction(), test.ShouldAlmostEqual, 0.75)
	test.That(t, s.Min, test.ShouldEqual, Depth(1000))
	test.That(t, s.Max, test.ShouldEqual, Depth(3000))
	test.That(t, s.Mean, test.ShouldAlmostEqual, 2000.)
	test.That(t, s.Median, test.ShouldAlmostEqual, 2000.)
	test.That(t, s.P5, test.ShouldBeLessThanOrEqualTo, s.Median)
	test.That(t, s.P95, test.ShouldBeGreaterThanOrEqualTo, s.Median)

	empty, err := NewEmptyDepthMap(2, 2).Stats()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.Valid, test.ShouldEqual, 0)
	test.That(t, empty.Total, test.ShouldEqual, 4)

	var missing *DepthMap
	none, err := missing.Stats()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, none, test.ShouldResemble, DepthStats{})
}

func TestDepthStatsSmallSamples(t *testing.T) {
	for _, n := range []int{1, 2, 19, 20} {
		dm := NewEmptyDepthMap(n, 1)
		for x := 0; x < n; x++ {
			dm.Set(x, 0, Depth(1000+10*x))
		}
		s, err := dm.Stats()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.Valid, test.ShouldEqual, n)
		test.That(t, s.P5, test.ShouldBeGreaterThanOrEqualTo, float64(s.Min))
		test.That(t, s.P5, test.ShouldBeLessThanOrEqualTo, s.Median)
		test.That(t, s.P95, test.ShouldBeGreaterThanOrEqualTo, s.Median)
		test.That(t, s.P95, test.ShouldBeLessThanOrEqualTo, float64(s.Max))
	}

	single := NewEmptyDepthMap(1, 1)
	single.Set(0, 0, 1234)
	s, err := single.Stats()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.P5, test.ShouldEqual, 1234.)
	test.That(t, s.P95, test.ShouldEqual, 1234.)
}

func TestSaveDepthHistogram(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "hist.png")
	test.That(t, SaveDepthHistogram(fn, makeRampDepthMap(8, 8), 10, 0.001), test.ShouldBeNil)
	info, err := os.Stat(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)

	err = SaveDepthHistogram(filepath.Join(t.TempDir(), "empty.png"), NewEmptyDepthMap(2, 2), 10, 0.001)
	test.That(t, err, test.ShouldNotBeNil)
}
