package rimage

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DepthStats summarizes the valid pixels of a depth map, in raw depth units.
type DepthStats struct {
	Total  int
	Valid  int
	Min    Depth
	Max    Depth
	Mean   float64
	StdDev float64
	Median float64
	P5     float64
	P95    float64
}

// ValidFraction is the share of pixels with a depth return.
func (s DepthStats) ValidFraction() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Valid) / float64(s.Total)
}

func (dm *DepthMap) validSamples() stats.Float64Data {
	if !dm.HasData() {
		return nil
	}
	samples := make(stats.Float64Data, 0, dm.ValidCount())
	for _, d := range dm.Data() {
		if d != 0 {
			samples = append(samples, float64(d))
		}
	}
	return samples
}

// Stats computes DepthStats. Maps without any valid pixel only report counts.
func (dm *DepthMap) Stats() (DepthStats, error) {
	if !dm.HasData() {
		return DepthStats{}, nil
	}
	out := DepthStats{Total: dm.Width() * dm.Height()}
	samples := dm.validSamples()
	out.Valid = len(samples)
	if out.Valid == 0 {
		return out, nil
	}
	out.Min, out.Max = dm.MinMax()

	var err error
	if out.Mean, err = stats.Mean(samples); err != nil {
		return DepthStats{}, err
	}
	if out.StdDev, err = stats.StandardDeviation(samples); err != nil {
		return DepthStats{}, err
	}
	if out.Median, err = stats.Median(samples); err != nil {
		return DepthStats{}, err
	}
	if out.P5, err = stats.PercentileNearestRank(samples, 5); err != nil {
		return DepthStats{}, err
	}
	if out.P95, err = stats.PercentileNearestRank(samples, 95); err != nil {
		return DepthStats{}, err
	}
	return out, nil
}

// SaveDepthHistogram plots the distribution of valid depths in meters and saves it to fn. The
// image format follows the extension (png, svg, pdf, ...).
func SaveDepthHistogram(fn string, dm *DepthMap, bins int, depthScale float64) error {
	samples := dm.validSamples()
	if len(samples) == 0 {
		return errors.New("depth map has no valid pixels to plot")
	}
	values := make(plotter.Values, len(samples))
	for i, s := range samples {
		values[i] = s * depthScale
	}

	p := plot.New()
	p.Title.Text = "depth distribution"
	p.X.Label.Text = "depth (m)"
	p.Y.Label.Text = "pixels"

	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return errors.Wrap(err, "cannot bin depths")
	}
	p.Add(h)
	return p.Save(6*vg.Inch, 4*vg.Inch, fn)
}
