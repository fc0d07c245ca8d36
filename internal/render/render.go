// Package render draws points, centroids and labels. It is a pure sink: it
// never changes what it is given.
package render

import (
	"fmt"
	"image/color"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"kmeansviz/kmeans"
)

// Frame is one picture of a clustering run. Labels and Centroids may be
// empty, in which case only the raw points are drawn.
type Frame struct {
	Title     string
	Data      []kmeans.Point
	Centroids []kmeans.Point
	Labels    []int
}

// groups splits the points by label. Points without a valid label end up
// under kmeans.Unassigned.
func (f Frame) groups() (map[int][]kmeans.Point, []int) {
	groups := make(map[int][]kmeans.Point)
	for i, p := range f.Data {
		label := kmeans.Unassigned
		if i < len(f.Labels) && f.Labels[i] >= 0 {
			label = f.Labels[i]
		}
		groups[label] = append(groups[label], p)
	}
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return groups, ids
}

func seriesName(id int) string {
	if id == kmeans.Unassigned {
		return "Points"
	}
	return fmt.Sprintf("Cluster %d", id)
}

// Scatter builds an echarts scatter chart of the frame.
func Scatter(f Frame) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: f.Title}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: 1}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)

	groups, ids := f.groups()
	for _, id := range ids {
		points := make([]opts.ScatterData, 0, len(groups[id]))
		for _, p := range groups[id] {
			points = append(points, opts.ScatterData{Value: []interface{}{p.X, p.Y}, SymbolSize: 8})
		}
		scatter.AddSeries(seriesName(id), points).
			SetSeriesOptions(
				charts.WithLabelOpts(
					opts.Label{
						Show:     pointer(false),
						Position: "top",
					},
				),
			)
	}

	if len(f.Centroids) > 0 {
		centroids := make([]opts.ScatterData, 0, len(f.Centroids))
		for i, c := range f.Centroids {
			centroids = append(centroids, opts.ScatterData{
				Name:       fmt.Sprintf("Centroid %d", i),
				Value:      []interface{}{c.X, c.Y},
				Symbol:     "rect",
				SymbolSize: 12,
			})
		}
		scatter.AddSeries("Centroids", centroids, charts.WithItemStyleOpts(opts.ItemStyle{Color: "black"}))
	}
	return scatter
}

// HTML renders the frame as a standalone echarts page.
func HTML(w io.Writer, f Frame) error {
	return Scatter(f).Render(w)
}

// PNG renders the frame with gonum/plot.
func PNG(w io.Writer, f Frame, size vg.Length) error {
	p := plot.New()
	p.Title.Text = f.Title
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	groups, ids := f.groups()
	for i, id := range ids {
		s, err := plotter.NewScatter(xys(groups[id]))
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(seriesName(id), s)
	}

	if len(f.Centroids) > 0 {
		s, err := plotter.NewScatter(xys(f.Centroids))
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = color.Black
		s.GlyphStyle.Shape = draw.BoxGlyph{}
		s.GlyphStyle.Radius = vg.Points(4)
		p.Add(s)
		p.Legend.Add("Centroids", s)
	}

	wt, err := p.WriterTo(size, size, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

func xys(ps []kmeans.Point) plotter.XYs {
	out := make(plotter.XYs, len(ps))
	for i, p := range ps {
		out[i].X, out[i].Y = p.X, p.Y
	}
	return out
}

func pointer(b bool) *bool {
	return &b
}
