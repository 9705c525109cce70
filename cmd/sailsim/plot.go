package main

import (
	"flag"
	"fmt"
	"io"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sailsitl/sailsim/internal/geo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func plotCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	src := fs.String("db", "", "SQLite dump or JSON export to read")
	runID := fs.String("run", "", "run uuid")
	out := fs.String("out", "track.png", "output image; the extension selects the format")
	size := fs.Float64("size", 6, "image size in inches")
	route := fs.String("route", "", `planned route to overlay, "[[east,north],...]" in metres from home`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *src == "" {
		return fmt.Errorf("-db is required")
	}

	var planned geom.LineString
	if *route != "" {
		var err error
		if planned, err = geo.ParseTrack(*route); err != nil {
			return fmt.Errorf("-route: %w", err)
		}
	}

	rr, err := loadRecordedRun(*src, *runID)
	if err != nil {
		return err
	}
	if err := savePlot(rr, planned, *out, *size); err != nil {
		return err
	}
	fmt.Fprintln(stdout, *out)
	return nil
}

// savePlot draws the local track, north up, over the planned route when
// one is given.
func savePlot(rr recordedRun, planned geom.LineString, path string, sizeIn float64) error {
	if len(rr.Local) < 2 {
		return fmt.Errorf("run %s has %d positions, need at least 2", rr.UUID, len(rr.Local))
	}

	p := plot.New()
	p.Title.Text = rr.Name
	p.X.Label.Text = "east (m)"
	p.Y.Label.Text = "north (m)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(rr.Local))
	for i, en := range rr.Local {
		pts[i].X = en[0]
		pts[i].Y = en[1]
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("track line: %w", err)
	}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	if seq := planned.Coordinates(); seq.Length() > 0 {
		plan := make(plotter.XYs, seq.Length())
		for i := range plan {
			xy := seq.GetXY(i)
			plan[i].X, plan[i].Y = xy.X, xy.Y
		}
		planLine, err := plotter.NewLine(plan)
		if err != nil {
			return fmt.Errorf("route line: %w", err)
		}
		planLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(planLine)
		p.Legend.Add("planned", planLine)
		p.Legend.Add("sailed", line)
	}

	start, err := plotter.NewScatter(pts[:1])
	if err != nil {
		return fmt.Errorf("start marker: %w", err)
	}
	start.GlyphStyle.Radius = vg.Points(4)
	p.Add(start)

	side := vg.Length(sizeIn) * vg.Inch
	if err := p.Save(side, side, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
