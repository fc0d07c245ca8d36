package dataset

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kmeansviz/kmeans"
)

func TestGenerate(t *testing.T) {
	data := Generate(100, rand.New(rand.NewSource(1)))
	require.Len(t, data, 100)
	for _, p := range data {
		assert.True(t, p.X >= 0 && p.X < 1)
		assert.True(t, p.Y >= 0 && p.Y < 1)
	}
	assert.Equal(t, data, Generate(100, rand.New(rand.NewSource(1))))
}

func TestReadCSV(t *testing.T) {
	in := "sepal_length,sepal_width,petal_length\n5.1,3.5,1.4\n4.9,3.0,1.4\n"
	data, err := ReadCSV(strings.NewReader(in), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []kmeans.Point{{X: 5.1, Y: 1.4}, {X: 4.9, Y: 1.4}}, data)

	_, err = ReadCSV(strings.NewReader("1,2\n3,x\n"), 0, 1)
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("1,2\n"), 0, 3)
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("x,y\n"), 0, 1)
	assert.ErrorIs(t, err, kmeans.ErrNoData)
}

func TestNormalize(t *testing.T) {
	data := Normalize([]kmeans.Point{{X: 2, Y: 7}, {X: 4, Y: 7}, {X: 3, Y: 7}})
	assert.Equal(t, []kmeans.Point{{X: 0, Y: 0.5}, {X: 1, Y: 0.5}, {X: 0.5, Y: 0.5}}, data)
	assert.Nil(t, Normalize(nil))
}

func TestLoadCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	src := []kmeans.Point{{X: 0, Y: 0.25}, {X: 1, Y: 1}, {X: 0.5, Y: 0}}
	require.NoError(t, WriteCSV(&buf, src))

	path := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	data, err := LoadCSV(path, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, src, data)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), 0, 1)
	assert.Error(t, err)
}
