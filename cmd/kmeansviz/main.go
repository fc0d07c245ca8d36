package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/plot/vg"

	"kmeansviz/internal/config"
	"kmeansviz/internal/dataset"
	"kmeansviz/internal/logging"
	"kmeansviz/internal/reference"
	"kmeansviz/internal/render"
	"kmeansviz/internal/server"
	"kmeansviz/kmeans"
)

const usage = `usage: kmeansviz <command> [flags]

commands:
  serve      run the HTTP visualization server
  fit        cluster a CSV file and print the result
  generate   print uniformly random points as CSV
`

func init() {
	log.SetPrefix("kmeansviz: ")
	log.SetFlags(log.Ltime | log.Lmicroseconds)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "serve":
		err = serve(args)
	case "fit":
		err = fit(args, os.Stdout)
	case "generate":
		err = generate(args, os.Stdout)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a TOML config file")
	addr := fs.String("addr", "", "listen address, overrides the config file")
	logLevel := fs.String("log-level", "", "debug, info, warn or error; overrides the config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.NewStdout(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Open http://localhost%s to see the visualization.", cfg.Server.Addr)
	return server.New(cfg, logger).Run(ctx)
}

type fitFlags struct {
	in       string
	xCol     int
	yCol     int
	k        int
	method   string
	seed     int64
	nInit    int
	strict   bool
	html     string
	png      string
	compare  bool
	logLevel string
}

func fit(args []string, out io.Writer) error {
	var f fitFlags
	fs := flag.NewFlagSet("fit", flag.ExitOnError)
	fs.StringVar(&f.in, "in", "", "CSV file with the points (required)")
	fs.IntVar(&f.xCol, "x", 0, "column used as x")
	fs.IntVar(&f.yCol, "y", 1, "column used as y")
	fs.IntVar(&f.k, "k", 3, "number of clusters")
	fs.StringVar(&f.method, "init", "k-means++", "random, k-means++ or farthest")
	fs.Int64Var(&f.seed, "seed", time.Now().UnixNano(), "random seed")
	fs.IntVar(&f.nInit, "n-init", kmeans.DefaultNInit, "restarts for random and k-means++")
	fs.BoolVar(&f.strict, "strict", false, "require bit-identical centroids to stop")
	fs.StringVar(&f.html, "html", "", "write an echarts page to this file")
	fs.StringVar(&f.png, "png", "", "write a PNG scatter plot to this file")
	fs.BoolVar(&f.compare, "compare", false, "compare labels with github.com/mpraski/clusters")
	fs.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.in == "" {
		return fmt.Errorf("fit: -in is required")
	}
	method, err := kmeans.ParseInitMethod(f.method)
	if err != nil {
		return err
	}
	if method == kmeans.Manual {
		return fmt.Errorf("fit: manual initialization is only available through the server")
	}
	level, err := logging.ParseLevel(f.logLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, level)

	start := time.Now()
	data, err := dataset.LoadCSV(f.in, f.xCol, f.yCol)
	if err != nil {
		return err
	}
	logger.Info("Data loading completed in %v. Total points: %d", time.Since(start), len(data))

	opts := []kmeans.Option{kmeans.WithSeed(f.seed), kmeans.WithLogger(logger)}
	if f.strict {
		opts = append(opts, kmeans.WithStrictConvergence())
	}
	res, err := kmeans.Fit(data, kmeans.Request{Method: method, K: f.k, NInit: f.nInit}, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Clustered %d points into %d clusters with %s in %d steps (inertia %.6f)\n\n",
		len(data), f.k, method, res.Steps, res.Inertia)
	writeCentroidTable(out, res)
	if len(res.History) > 1 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, asciigraph.Plot(res.History, asciigraph.Height(8), asciigraph.Caption("inertia per update step")))
	}

	if f.compare {
		ri, err := reference.Compare(data, res.Labels, f.k)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nRand index against mpraski/clusters: %.4f\n", ri)
	}

	frame := render.Frame{
		Title:     fmt.Sprintf("K-Means (%s, k=%d)", method, f.k),
		Data:      data,
		Centroids: res.Centroids,
		Labels:    res.Labels,
	}
	if f.html != "" {
		if err := writeFile(f.html, func(w io.Writer) error { return render.HTML(w, frame) }); err != nil {
			return err
		}
		logger.Info("Wrote %s", f.html)
	}
	if f.png != "" {
		if err := writeFile(f.png, func(w io.Writer) error { return render.PNG(w, frame, 6*vg.Inch) }); err != nil {
			return err
		}
		logger.Info("Wrote %s", f.png)
	}
	return nil
}

func writeCentroidTable(out io.Writer, res *kmeans.Result) {
	sizes := make([]int, len(res.Centroids))
	for _, l := range res.Labels {
		sizes[l]++
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Cluster", "X", "Y", "Points"})
	for i, c := range res.Centroids {
		table.Append([]string{
			strconv.Itoa(i),
			strconv.FormatFloat(c.X, 'f', 4, 64),
			strconv.FormatFloat(c.Y, 'f', 4, 64),
			strconv.Itoa(sizes[i]),
		})
	}
	table.Render()
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func generate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	n := fs.Int("n", 100, "number of points")
	seed := fs.Int64("seed", time.Now().UnixNano(), "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n < 1 {
		return fmt.Errorf("generate: -n must be positive")
	}
	return dataset.WriteCSV(out, dataset.Generate(*n, rand.New(rand.NewSource(*seed))))
}
