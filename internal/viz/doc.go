// Package viz renders rollout results for the terminal and as images.
//
//   - [Summary]: lipgloss panel of run settings and metrics
//   - [EpisodeGraph], [BalanceSparkline]: text charts of one or all episodes
//   - [Frame]: braille drawing of a single cart-pole
//   - [WritePNG]: pole angle chart via gonum/plot
package viz
