// Command stencil runs a distributed toroidal Life simulation: a goroutine
// per rank, communicating over an in-process message-passing world, seeded
// from a pattern and advanced for a fixed number of generations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"stencil/bench"
	"stencil/comm"
	"stencil/config"
	"stencil/decomp"
	"stencil/monitor"
	"stencil/simulate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseArgs registers every flag against defaults built from -config (if
// given) and parses args into cfg/ranks. -config is discovered with a first
// pass over the full flag set (so unrelated flags on the command line never
// trip an "unknown flag" error) before the real Config defaults are known,
// then every flag is registered a second time against those defaults and
// parsed for real; -config itself is a no-op the second time since its
// value was already consumed.
func parseArgs(args []string, cfg *config.Config, ranks *int) error {
	discovery := flag.NewFlagSet("stencil", flag.ContinueOnError)
	var configPath string
	discovery.StringVar(&configPath, "config", "", "optional YAML config file")
	discovery.IntVar(ranks, "ranks", 1, "number of simulated ranks")
	config.RegisterFlags(discovery, cfg)
	if err := discovery.Parse(args); err != nil {
		return err
	}

	if configPath == "" {
		return nil
	}
	loaded, err := config.FromYAML(configPath)
	if err != nil {
		return err
	}
	*cfg = loaded

	fs := flag.NewFlagSet("stencil", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", configPath, "optional YAML config file")
	fs.IntVar(ranks, "ranks", 1, "number of simulated ranks")
	config.RegisterFlags(fs, cfg)
	return fs.Parse(args)
}

func run() error {
	cfg := config.Defaults()
	var ranks int
	if err := parseArgs(os.Args[1:], &cfg, &ranks); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	plan, err := decomp.New(cfg.Ny, cfg.Nx, ranks, cfg.Layout())
	if err != nil {
		return err
	}

	ctx := context.Background()
	worlds, ctx := comm.NewLocalWorld(ctx, ranks)

	var telemetry chan simulate.Telemetry
	if cfg.Benchmark {
		telemetry = make(chan simulate.Telemetry, 16)
		srv := monitor.NewServer(telemetry)
		go func() {
			if err := srv.ListenAndServe(":8099"); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}()
	}

	result, err := simulate.RunAll(ctx, cfg, worlds, plan, telemetry)
	if err != nil {
		return err
	}

	if cfg.Benchmark {
		return bench.Write(os.Stdout, result.Report)
	}
	return nil
}
