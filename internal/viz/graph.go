package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/polecart/internal/episode"
)

// EpisodeGraph plots the pole angle and cart position of one episode.
func EpisodeGraph(index int, ep episode.Episode, width, height int) string {
	if ep.Len() == 0 {
		return ""
	}
	return asciigraph.PlotMany(
		[][]float64{ep.PoleAngles, ep.CartPositions},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Yellow),
		asciigraph.SeriesLegends("pole angle", "cart position"),
		asciigraph.Caption(fmt.Sprintf("episode %d", index)),
	)
}

// BalanceSparkline shows, per step, the fraction of episodes inside the
// reward band.
func BalanceSparkline(rec *episode.Record, width int) string {
	if rec.Len() == 0 {
		return ""
	}
	frac := make([]float64, rec.TotalSteps)
	for _, ep := range rec.Batch() {
		for step, r := range ep.Rewards() {
			frac[step] += r
		}
	}
	for i := range frac {
		frac[i] /= float64(rec.Len())
	}
	return Sparkline(frac, width)
}
