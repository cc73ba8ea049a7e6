package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/polecart/internal/episode"
)

type EpisodeData struct {
	Index         int       `json:"index"`
	BalancedSteps int       `json:"balanced_steps"`
	CartPositions []float64 `json:"cart_positions"`
	PoleAngles    []float64 `json:"pole_angles"`
}

type Document struct {
	ID           string             `json:"id"`
	Policy       string             `json:"policy"`
	EpisodeCount int                `json:"episode_count"`
	TotalSteps   int                `json:"total_steps"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Episodes     []EpisodeData      `json:"episodes"`
}

// WriteJSON encodes the selected episodes of rec. An empty selection means
// every episode.
func WriteJSON(w io.Writer, rec *episode.Record, episodes []int) error {
	doc := Document{
		ID:           rec.ID.String(),
		Policy:       rec.Policy,
		EpisodeCount: rec.EpisodeCount,
		TotalSteps:   rec.TotalSteps,
		Metrics:      rec.Metrics,
	}

	err := each(rec, episodes, func(i int, ep episode.Episode) error {
		doc.Episodes = append(doc.Episodes, EpisodeData{
			Index:         i,
			BalancedSteps: ep.BalancedSteps(),
			CartPositions: ep.CartPositions,
			PoleAngles:    ep.PoleAngles,
		})
		return nil
	})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// WriteCSV writes one row per episode step.
func WriteCSV(w io.Writer, rec *episode.Record, episodes []int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"episode", "step", "cart_position", "pole_angle"}); err != nil {
		return err
	}

	err := each(rec, episodes, func(i int, ep episode.Episode) error {
		idx := strconv.Itoa(i)
		for step := 0; step < ep.Len(); step++ {
			row := []string{
				idx,
				strconv.Itoa(step),
				strconv.FormatFloat(ep.CartPositions[step], 'g', -1, 64),
				strconv.FormatFloat(ep.PoleAngles[step], 'g', -1, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func each(rec *episode.Record, episodes []int, fn func(int, episode.Episode) error) error {
	if len(episodes) == 0 {
		episodes = make([]int, rec.Len())
		for i := range episodes {
			episodes[i] = i
		}
	}
	for _, i := range episodes {
		ep, err := rec.Episode(i)
		if err != nil {
			return err
		}
		if err := fn(i, ep); err != nil {
			return err
		}
	}
	return nil
}
