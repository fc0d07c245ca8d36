// Package dataset produces the point sets fed to the clustering engine.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"kmeansviz/kmeans"
)

// Generate returns n points drawn uniformly from [0,1)x[0,1).
func Generate(n int, src interface{ Float64() float64 }) []kmeans.Point {
	data := make([]kmeans.Point, n)
	for i := range data {
		data[i] = kmeans.Point{X: src.Float64(), Y: src.Float64()}
	}
	return data
}

// LoadCSV reads columns xCol and yCol of a CSV file and normalizes them into
// [0,1]. A first row that does not parse as numbers is treated as a header.
func LoadCSV(filename string, xCol, yCol int) ([]kmeans.Point, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open file")
	}
	defer file.Close()

	data, err := ReadCSV(file, xCol, yCol)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filename)
	}
	return Normalize(data), nil
}

// ReadCSV reads columns xCol and yCol without normalizing them.
func ReadCSV(r io.Reader, xCol, yCol int) ([]kmeans.Point, error) {
	if xCol < 0 || yCol < 0 {
		return nil, errors.Errorf("invalid columns %d, %d", xCol, yCol)
	}
	reader := csv.NewReader(r)
	rawData, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read file")
	}

	var data []kmeans.Point
	for i, line := range rawData {
		if xCol >= len(line) || yCol >= len(line) {
			return nil, errors.Errorf("line %d has %d columns, need %d", i+1, len(line), max(xCol, yCol)+1)
		}
		x, errX := strconv.ParseFloat(line[xCol], 64)
		y, errY := strconv.ParseFloat(line[yCol], 64)
		if errX != nil || errY != nil {
			if i == 0 {
				continue
			}
			return nil, errors.Errorf("line %d: unable to parse %q, %q as floats", i+1, line[xCol], line[yCol])
		}
		data = append(data, kmeans.Point{X: x, Y: y})
	}
	if len(data) == 0 {
		return nil, kmeans.ErrNoData
	}
	return data, nil
}

// Normalize rescales each axis into [0,1]. A constant axis maps to 0.5.
func Normalize(data []kmeans.Point) []kmeans.Point {
	if len(data) == 0 {
		return nil
	}
	xs := make([]float64, len(data))
	ys := make([]float64, len(data))
	for i, p := range data {
		xs[i], ys[i] = p.X, p.Y
	}
	scale(xs)
	scale(ys)

	out := make([]kmeans.Point, len(data))
	for i := range out {
		out[i] = kmeans.Point{X: xs[i], Y: ys[i]}
	}
	return out
}

func scale(v []float64) {
	lo, hi := floats.Min(v), floats.Max(v)
	if hi == lo {
		for i := range v {
			v[i] = 0.5
		}
		return
	}
	floats.AddConst(-lo, v)
	floats.Scale(1/(hi-lo), v)
}

// WriteCSV writes points as "x,y" rows with a header.
func WriteCSV(w io.Writer, data []kmeans.Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "y"}); err != nil {
		return err
	}
	for _, p := range data {
		row := []string{
			strconv.FormatFloat(p.X, 'f', -1, 64),
			strconv.FormatFloat(p.Y, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
