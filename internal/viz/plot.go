package viz

import (
	"fmt"
	"io"

	"github.com/san-kum/polecart/internal/episode"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// AnglePlot builds a line chart of pole angle over steps for the selected
// episodes. An empty selection plots every episode.
func AnglePlot(rec *episode.Record, episodes []int) (*plot.Plot, error) {
	if len(episodes) == 0 {
		episodes = make([]int, rec.Len())
		for i := range episodes {
			episodes[i] = i
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s rollout", rec.Policy)
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Pole angle (rad)"

	for n, i := range episodes {
		ep, err := rec.Episode(i)
		if err != nil {
			return nil, err
		}
		points := make(plotter.XYs, ep.Len())
		for step, a := range ep.PoleAngles {
			points[step] = plotter.XY{X: float64(step), Y: a}
		}
		line, err := plotter.NewLine(points)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(n)
		p.Add(line)
		if len(episodes) <= 8 {
			p.Legend.Add(fmt.Sprintf("episode %d", i), line)
		}
	}
	return p, nil
}

// WritePNG renders AnglePlot as an 8x5 inch PNG.
func WritePNG(w io.Writer, rec *episode.Record, episodes []int) error {
	p, err := AnglePlot(rec, episodes)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
