package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Agrid-Dev/docalc/internal/district"
)

var (
	ErrInvalidKind = errors.New("invalid chart kind")
	ErrSeriesShape = errors.New("chart series must be non-empty and of equal length")
)

// Kind selects the x axis of the chart.
type Kind string

const (
	KindTimeSeries Kind = "timeseries"
	KindDuration   Kind = "duration"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindTimeSeries:
		return KindTimeSeries, nil
	case KindDuration:
		return KindDuration, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

var (
	heatLineColor   = color.RGBA{R: 0xc0, G: 0x00, B: 0x00, A: 0xff}
	coolLineColor   = color.RGBA{R: 0x44, G: 0x72, B: 0xc4, A: 0xff}
	heatFillColor   = color.RGBA{R: 0xff, G: 0xc5, B: 0xb8, A: 0xff}
	coolFillColor   = color.RGBA{R: 0xc2, G: 0xd1, B: 0xed, A: 0xff}
	overlapColor    = color.RGBA{R: 0xe1, G: 0xd1, B: 0xe2, A: 0xff}
	defaultWidth    = 8 * vg.Inch
	defaultHeight   = 5 * vg.Inch
	demandAxisLabel = "Thermal demand (MW)"
)

// Series is what gets drawn: heating and cooling demand over a shared x axis
// and the coefficient printed inside the plot.
type Series struct {
	X      []float64
	Heat   []float64
	Cool   []float64
	XLabel string
	Label  string
}

// FromReport picks the district series of a report for the given kind.
func FromReport(r district.Report, kind Kind) (Series, error) {
	switch kind {
	case KindTimeSeries:
		x := make([]float64, r.Steps)
		for t := range x {
			x[t] = float64(t)
		}
		return Series{
			X:      x,
			Heat:   r.Heat,
			Cool:   r.Cool,
			XLabel: "Time (hours)",
			Label:  fmt.Sprintf("District DOC = %.3f", r.DistrictDOC),
		}, nil
	case KindDuration:
		return Series{
			X:      r.HeatCurve.Fractions,
			Heat:   r.HeatCurve.Values,
			Cool:   r.CoolCurve.Values,
			XLabel: "Duration (fraction of year)",
			Label:  fmt.Sprintf("Duration DOC = %.3f", r.DurationDOC),
		}, nil
	default:
		return Series{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
}

// Plot builds the chart: filled heating, cooling and overlap areas under the
// two demand lines.
func (s Series) Plot() (*plot.Plot, error) {
	n := len(s.X)
	if n == 0 || len(s.Heat) != n || len(s.Cool) != n {
		return nil, ErrSeriesShape
	}

	overlap := make([]float64, n)
	peak := 0.0
	for i := range overlap {
		overlap[i] = math.Min(s.Heat[i], s.Cool[i])
		peak = math.Max(peak, math.Max(s.Heat[i], s.Cool[i]))
	}

	heatArea, err := area(s.X, s.Heat, heatFillColor)
	if err != nil {
		return nil, err
	}
	coolArea, err := area(s.X, s.Cool, coolFillColor)
	if err != nil {
		return nil, err
	}
	overlapArea, err := area(s.X, overlap, overlapColor)
	if err != nil {
		return nil, err
	}
	heatLine, err := line(s.X, s.Heat, heatLineColor)
	if err != nil {
		return nil, err
	}
	coolLine, err := line(s.X, s.Cool, coolLineColor)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.X.Label.Text = s.XLabel
	p.Y.Label.Text = demandAxisLabel
	p.Add(heatArea, coolArea, overlapArea, heatLine, coolLine)
	p.Legend.Add("Heat demand", heatLine, heatArea)
	p.Legend.Add("Cold demand", coolLine, coolArea)
	p.Legend.Add("Overlap of demands", overlapArea)
	p.Legend.Top = true

	if peak == 0 {
		peak = 1
	}
	p.X.Min, p.X.Max = s.X[0], s.X[n-1]
	p.Y.Min, p.Y.Max = 0, peak*1.1

	if s.Label != "" {
		labels, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    plotter.XYs{{X: s.X[0] + 0.02*(s.X[n-1]-s.X[0]), Y: 0.05 * peak}},
			Labels: []string{s.Label},
		})
		if err != nil {
			return nil, fmt.Errorf("label: %w", err)
		}
		p.Add(labels)
	}
	return p, nil
}

// Save renders the series to a file; the format follows the extension.
func (s Series) Save(path string) error {
	p, err := s.Plot()
	if err != nil {
		return err
	}
	if err := p.Save(defaultWidth, defaultHeight, path); err != nil {
		return fmt.Errorf("save chart %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Write renders the series to w in the given format ("png", "svg", "pdf").
func (s Series) Write(w io.Writer, format string) error {
	p, err := s.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(defaultWidth, defaultHeight, format)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func area(x, y []float64, c color.Color) (*plotter.Polygon, error) {
	pts := make(plotter.XYs, 0, len(x)+2)
	pts = append(pts, plotter.XY{X: x[0], Y: 0})
	for i := range x {
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	pts = append(pts, plotter.XY{X: x[len(x)-1], Y: 0})

	poly, err := plotter.NewPolygon(pts)
	if err != nil {
		return nil, fmt.Errorf("area: %w", err)
	}
	poly.Color = c
	poly.LineStyle.Width = 0
	return poly, nil
}

func line(x, y []float64, c color.Color) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("line: %w", err)
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(1)
	return l, nil
}
