package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/san-kum/polecart/internal/cartpole"
	"github.com/san-kum/polecart/internal/compute"
	"github.com/san-kum/polecart/internal/config"
	"github.com/san-kum/polecart/internal/episode"
	"github.com/san-kum/polecart/internal/export"
	"github.com/san-kum/polecart/internal/metrics"
	"github.com/san-kum/polecart/internal/optim"
	"github.com/san-kum/polecart/internal/policy"
	"github.com/san-kum/polecart/internal/viz"
	"github.com/san-kum/polecart/internal/world"
	"github.com/spf13/cobra"
)

// frameHalfTrack is the cart offset drawn at the edge of --frame output.
const frameHalfTrack = 2.4

var (
	verbosity int

	configFile string
	preset     string

	policyKind   string
	backendName  string
	workers      int
	batchSize    int
	maxSteps     int
	seed         uint64
	modelKind    string
	hidden       int
	weightsFile  string
	start        string
	epsilonStart float64
	epsilonEnd   float64
	epsilonDecay float64

	episodeIndex int
	episodes     []int
	csvOut       bool
	jsonOut      bool
	pngFile      string
	showFrame    bool
	repeat       int
	parallel     int

	benchSteps int

	gridAxes    []string
	sweepMetric string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "polecart",
		Short:         "batched cart-pole rollouts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "log verbosity (repeat for more)")

	rolloutCmd := &cobra.Command{
		Use:   "rollout",
		Short: "run a batch of episodes and summarize them",
		Args:  cobra.NoArgs,
		RunE:  runRollout,
	}
	f := rolloutCmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVar(&policyKind, "policy", policy.KindDeterministic, "action policy")
	f.StringVar(&backendName, "backend", config.DefaultBackend, "compute backend")
	f.IntVar(&workers, "workers", 0, "cpu backend workers (0 = one per cpu)")
	f.IntVar(&batchSize, "batch", cartpole.DefaultBatchSize, "episodes per batch")
	f.IntVar(&maxSteps, "steps", config.DefaultMaxSteps, "steps per episode")
	f.Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
	f.StringVar(&modelKind, "model-kind", policy.KindMLP, "model: mlp or pd")
	f.IntVar(&hidden, "hidden", config.DefaultHidden, "model hidden units")
	f.StringVar(&weightsFile, "model", "", "model weights file (yaml)")
	f.StringVar(&start, "start", "", "start state: zero or random (default per policy)")
	f.Float64Var(&epsilonStart, "epsilon-start", config.DefaultEpsilonStart, "initial exploration rate")
	f.Float64Var(&epsilonEnd, "epsilon-end", config.DefaultEpsilonEnd, "final exploration rate")
	f.Float64Var(&epsilonDecay, "epsilon-decay", config.DefaultEpsilonDecay, "exploration decay in steps")
	f.IntVar(&episodeIndex, "episode", 0, "episode to graph")
	f.IntSliceVar(&episodes, "episodes", nil, "episodes to export (default all)")
	f.BoolVar(&csvOut, "csv", false, "write episodes as csv to stdout")
	f.BoolVar(&jsonOut, "json", false, "write episodes as json to stdout")
	f.StringVar(&pngFile, "png", "", "save a pole angle chart")
	f.BoolVar(&showFrame, "frame", false, "draw the final frame of the graphed episode")
	f.IntVar(&repeat, "repeat", 1, "independent rollouts to run")
	f.IntVar(&parallel, "parallel", 0, "concurrent rollouts (0 = unbounded)")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure stepping throughput per backend and batch size",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	benchCmd.Flags().IntVar(&benchSteps, "steps", 200, "steps per measurement")
	benchCmd.Flags().Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPOLICY\tMODEL\tBATCH\tSTEPS\tDT")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4f\n", name, cfg.Policy.Kind, cfg.Model.Kind, cfg.BatchSize, cfg.MaxSteps, cfg.Physics.Timestep)
			}
			return w.Flush()
		},
	}

	backendsCmd := &cobra.Command{
		Use:   "backends",
		Short: "list compute backends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range compute.Backends() {
				fmt.Println(name)
			}
		},
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a config file (default or from --preset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			return config.Save(args[0], cfg)
		},
	}
	initConfigCmd.Flags().StringVar(&preset, "preset", "", "preset to write")

	initWeightsCmd := &cobra.Command{
		Use:   "init-weights [path]",
		Short: "write freshly initialized model weights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return policy.SaveMLP(args[0], policy.NewMLP(hidden, seed))
		},
	}
	initWeightsCmd.Flags().IntVar(&hidden, "hidden", config.DefaultHidden, "hidden units")
	initWeightsCmd.Flags().Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")

	sweepCmd := &cobra.Command{
		Use:     "sweep",
		Short:   "grid search physics parameters for the best rollout metric",
		Example: "  polecart sweep --preset pd_balance --grid force_mag=5,10,20 --grid length=0.25,0.5,1",
		Args:    cobra.NoArgs,
		RunE:    runSweep,
	}
	sf := sweepCmd.Flags()
	sf.StringArrayVar(&gridAxes, "grid", nil, "parameter axis name=v1,v2,... (repeatable)")
	sf.StringVar(&sweepMetric, "metric", "balance_rate", "metric to maximize")
	sf.StringVar(&configFile, "config", "", "config file path (yaml)")
	sf.StringVar(&preset, "preset", "", "use preset configuration")
	sf.StringVar(&policyKind, "policy", policy.KindDeterministic, "action policy")
	sf.StringVar(&modelKind, "model-kind", policy.KindMLP, "model: mlp or pd")
	sf.StringVar(&start, "start", "", "start state: zero or random (default per policy)")
	sf.StringVar(&backendName, "backend", config.DefaultBackend, "compute backend")
	sf.IntVar(&batchSize, "batch", cartpole.DefaultBatchSize, "episodes per batch")
	sf.IntVar(&maxSteps, "steps", config.DefaultMaxSteps, "steps per episode")
	sf.Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
	_ = sweepCmd.MarkFlagRequired("grid")

	rootCmd.AddCommand(rolloutCmd, benchCmd, presetsCmd, backendsCmd, initConfigCmd, initWeightsCmd, sweepCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("policy") {
		cfg.Policy.Kind = policyKind
	}
	if flags.Changed("backend") {
		cfg.Backend = backendName
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("batch") {
		cfg.BatchSize = batchSize
	}
	if flags.Changed("steps") {
		cfg.MaxSteps = maxSteps
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("model-kind") {
		cfg.Model.Kind = modelKind
	}
	if flags.Changed("start") {
		cfg.Policy.Start = start
	}
	if flags.Changed("hidden") {
		cfg.Model.Hidden = hidden
	}
	if flags.Changed("model") {
		cfg.Model.Weights = weightsFile
	}
	if flags.Changed("epsilon-start") {
		cfg.Policy.EpsilonSchedule.Start = epsilonStart
	}
	if flags.Changed("epsilon-end") {
		cfg.Policy.End = epsilonEnd
	}
	if flags.Changed("epsilon-decay") {
		cfg.Policy.Decay = epsilonDecay
	}

	return cfg, cfg.Validate()
}

func runRollout(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger()

	w, err := world.FromConfig(cfg, nil)
	if err != nil {
		return err
	}
	defer w.Backend().Cleanup()
	w.SetLogger(log)
	w.AddMetric(func() metrics.Metric { return metrics.NewBalanceRate() })
	w.AddMetric(func() metrics.Metric { return metrics.NewActionEffort() })
	w.AddMetric(func() metrics.Metric { return metrics.NewMaxCartOffset() })

	var model policy.Model
	if cfg.Policy.Kind != policy.KindRandom {
		if model, err = world.NewModel(cfg); err != nil {
			return fmt.Errorf("failed to build model: %w", err)
		}
	}

	jobs := make([]world.Job, max(1, repeat))
	for i := range jobs {
		jobs[i] = world.JobFromConfig(cfg, model)
	}

	log.V(1).Info("starting", "backend", w.Backend().Name(), "batch_size", cfg.BatchSize, "max_steps", cfg.MaxSteps, "rollouts", len(jobs))
	began := time.Now()
	records, err := world.NewPool(w, parallel).Run(cmd.Context(), jobs)
	if err != nil {
		return err
	}
	elapsed := time.Since(began)

	rec := records[0]

	switch {
	case csvOut:
		return export.WriteCSV(os.Stdout, rec, episodes)
	case jsonOut:
		return export.WriteJSON(os.Stdout, rec, episodes)
	}

	if pngFile != "" {
		if err := savePNG(pngFile, rec); err != nil {
			return err
		}
	}

	ep, err := rec.Episode(episodeIndex)
	if err != nil {
		return err
	}

	instanceSteps := uint64(len(records) * cfg.BatchSize * cfg.MaxSteps)
	fields := []viz.Field{
		{Label: "policy", Value: rec.Policy},
		{Label: "backend", Value: w.Backend().Name()},
		{Label: "episodes", Value: strconv.Itoa(rec.EpisodeCount)},
		{Label: "steps", Value: strconv.Itoa(cfg.MaxSteps)},
		{Label: "elapsed", Value: elapsed.Round(time.Millisecond).String()},
		{Label: "instance steps", Value: humanize.Comma(int64(instanceSteps))},
	}
	if len(records) > 1 {
		fields = append(fields, viz.Field{Label: "rollouts", Value: strconv.Itoa(len(records))})
	}

	fmt.Println(viz.Summary("polecart "+rec.ID.String()[:8], fields, summaryMetrics(records)))
	fmt.Println()
	fmt.Println(viz.EpisodeGraph(episodeIndex, ep, 80, 12))
	fmt.Println()
	fmt.Println(viz.Subtle.Render("balanced fraction per step"))
	fmt.Println(viz.BalanceSparkline(rec, 80))

	if showFrame {
		last := cartpole.Observation{
			CartPosition: ep.CartPositions[ep.Len()-1],
			PoleAngle:    ep.PoleAngles[ep.Len()-1],
		}
		fmt.Println()
		fmt.Print(viz.Frame(last, frameHalfTrack, 40, 10))
	}

	return nil
}

// summaryMetrics averages every rollout metric across records and adds the
// best single-episode balanced fraction.
func summaryMetrics(records []*episode.Record) map[string]float64 {
	out := make(map[string]float64)
	best := 0.0
	for _, rec := range records {
		for name, v := range rec.Metrics {
			out[name] += v / float64(len(records))
		}
		for _, ep := range rec.Batch() {
			best = max(best, float64(ep.BalancedSteps())/float64(ep.Len()))
		}
	}
	out["best_episode_rate"] = best
	return out
}

func savePNG(path string, rec *episode.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	sel := episodes
	if len(sel) == 0 {
		sel = []int{episodeIndex}
	}
	if err := viz.WritePNG(file, rec, sel); err != nil {
		return err
	}
	fmt.Printf("chart saved to %s\n", path)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger()

	names := make([]string, 0, len(gridAxes))
	ranges := make([][]float64, 0, len(gridAxes))
	for _, axis := range gridAxes {
		name, values, err := optim.ParseAxis(axis)
		if err != nil {
			return err
		}
		if _, ok := cfg.Physics.GetParams()[name]; !ok {
			return fmt.Errorf("unknown physics parameter: %s", name)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	backend, err := compute.NewBackend(cfg.Backend, cfg.Workers, cfg.Seed)
	if err != nil {
		return err
	}
	defer backend.Cleanup()

	var model policy.Model
	if cfg.Policy.Kind != policy.KindRandom {
		if model, err = world.NewModel(cfg); err != nil {
			return fmt.Errorf("failed to build model: %w", err)
		}
	}

	evaluate := func(ctx context.Context, params map[string]float64) (float64, error) {
		point := cfg.Clone()
		for name, v := range params {
			if err := point.Physics.SetParam(name, v); err != nil {
				return 0, err
			}
		}
		w, err := world.FromConfig(point, backend)
		if err != nil {
			return 0, err
		}
		w.SetLogger(log)
		for _, m := range metrics.Defaults() {
			m := m
			w.AddMetric(func() metrics.Metric { return m })
		}

		rec, err := w.Rollout(world.JobFromConfig(point, model))
		if err != nil {
			return 0, err
		}
		score, ok := rec.Metrics[sweepMetric]
		if !ok {
			return 0, fmt.Errorf("unknown metric: %s", sweepMetric)
		}
		log.V(1).Info("sweep point", "params", params, sweepMetric, score)
		return score, nil
	}

	grid := optim.NewGridSearch(names, ranges)
	fmt.Printf("sweeping %d points\n\n", grid.Size())

	trials, best, err := grid.Search(cmd.Context(), evaluate)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(append(append([]string{}, names...), sweepMetric), "\t")))
	for _, tr := range trials {
		cells := make([]string, 0, len(names)+1)
		for _, name := range names {
			cells = append(cells, strconv.FormatFloat(tr.Params[name], 'g', -1, 64))
		}
		cells = append(cells, fmt.Sprintf("%.4f", tr.Score))
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fields := make([]viz.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, viz.Field{Label: name, Value: strconv.FormatFloat(best.Params[name], 'g', -1, 64)})
	}
	fmt.Println()
	fmt.Println(viz.Summary("best point", fields, map[string]float64{sweepMetric: best.Score}))
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	batches := []int{128, 1024, 8192}

	fmt.Printf("benchmarking %d steps\n\n", benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tBATCH\tTIME\tSTEPS/SEC\tINSTANCE STEPS/SEC\tBALANCE")

	for _, name := range compute.Backends() {
		if name == config.DefaultBackend {
			continue
		}
		for _, n := range batches {
			cfg := config.DefaultConfig()
			cfg.Backend = name
			cfg.BatchSize = n
			cfg.MaxSteps = benchSteps
			cfg.Seed = seed

			wd, err := world.FromConfig(cfg, nil)
			if err != nil {
				return err
			}
			wd.AddMetric(func() metrics.Metric { return metrics.NewBalanceRate() })

			x0 := cartpole.RandomBatchState(wd.Backend(), n)
			began := time.Now()
			res := wd.Run(x0, nil, policy.NewRandom(wd.Backend(), n))
			elapsed := time.Since(began)
			wd.Backend().Cleanup()

			perSec := float64(res.StepsTaken) / elapsed.Seconds()
			fmt.Fprintf(w, "%s\t%d\t%v\t%s\t%s\t%.3f\n",
				name,
				n,
				elapsed.Round(time.Microsecond),
				humanize.CommafWithDigits(perSec, 0),
				humanize.SIWithDigits(perSec*float64(n), 2, ""),
				res.Metrics["balance_rate"],
			)
		}
	}

	return w.Flush()
}
