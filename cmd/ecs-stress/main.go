package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	worlds := flag.Int("worlds", runtime.GOMAXPROCS(0), "The number of worlds simulated in parallel.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities per world.")
	lowHP := flag.Int("low-hp", 20, "Entities below this HP are tracked by the cached low-health query.")
	healEvery := flag.Int("heal-every", 10, "Heal half of the low-health entities every N frames, 0 disables.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error.")
	profileMode := flag.String("profile", "", "Write a cpu or mem profile to the working directory.")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		logger.Error("unknown profile mode", "profile", *profileMode)
		os.Exit(2)
	}

	if *worlds < 1 {
		*worlds = 1
	}
	cfg := config{entities: *entityCount, lowHP: *lowHP, healEvery: *healEvery}

	logger.Info("starting ECS stress test", "worlds", *worlds, "entities", *entityCount)

	sims := make([]*simulation, *worlds)
	for i := range sims {
		sim, err := newSimulation(i, cfg, logger)
		if err != nil {
			logger.Error("failed to set up world", "world", i, "err", err)
			os.Exit(1)
		}
		sims[i] = sim
	}
	logger.Info("population complete")

	report := &Report{
		Duration:       *duration,
		Worlds:         *worlds,
		Entities:       *entityCount,
		LowHP:          *lowHP,
		GCPauseMetrics: *gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info("running simulation", "duration", *duration)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for _, sim := range sims {
		g.Go(func() error {
			sim.run(ctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("simulation failed", "err", err)
		os.Exit(1)
	}
	report.TotalTime = time.Since(startTime)
	runtime.ReadMemStats(&report.MemStatsEnd)

	for _, sim := range sims {
		report.AddWorld(sim)
	}
	report.UpdateTime.Finalize()

	logger.Info("simulation finished", "updates", report.TotalUpdates)

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		logger.Error("failed to generate report", "err", err)
		os.Exit(1)
	}
	fmt.Println("--- End of Report ---")
}
