package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"latmrg/internal/config"
	"latmrg/internal/logger"
	"latmrg/internal/store"
	"latmrg/merit"
	"latmrg/mrg"
	"latmrg/prof"
	"latmrg/report"
	"latmrg/seek"
)

var seekCmd = &cobra.Command{
	Use:   "seek <file>",
	Short: "Search for multipliers with a good figure of merit",
	Long: `Draw or enumerate multiplier vectors within the configured bounds, keep
those that satisfy the implementation condition and (optionally) give a
maximal period, and retain the best ones under the figure of merit.

Interrupting the search prints the generators retained so far.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeek,
}

func init() {
	f := seekCmd.Flags()
	f.Int("workers", 0, "evaluation workers (default from the document, else GOMAXPROCS)")
	f.Int64("tries", 0, "random draws (overrides the document)")
	f.String("seed", "", "seed of the random draws (overrides the document)")
	f.String("chart", "", "write an HTML page with the merit histogram and the best generator")
	f.String("report", "", "write the text report to this file")
}

func runSeek(cmd *cobra.Command, args []string) error {
	log := logger.L()
	ctx := cmd.Context()

	doc, err := config.LoadSeek(args[0])
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if v, _ := flags.GetInt("workers"); v > 0 {
		doc.Workers = v
	}
	if v, _ := flags.GetInt64("tries"); v > 0 {
		doc.Tries = v
	}
	if v, _ := flags.GetString("seed"); v != "" {
		doc.Seed = v
	}
	if v, _ := flags.GetString("chart"); v != "" {
		doc.Output.Chart = v
	}
	if v, _ := flags.GetString("report"); v != "" {
		doc.Output.Report = v
	}
	if v := viper.GetString("store"); v != "" {
		doc.Output.Store = v
	}
	if doc.Workers == 0 {
		doc.Workers = runtime.GOMAXPROCS(0)
	}

	cfg, err := doc.SearchConfig()
	if err != nil {
		return err
	}
	log.Info("search start", "modulus", cfg.Modulus, "order", cfg.K, "method", cfg.Method,
		"cond", cfg.Cond, "workers", cfg.Workers, "tries", cfg.Tries)

	start := time.Now()
	out, err := seek.Search(ctx, cfg, log)
	prof.Track(start, "search")
	interrupted := false
	if err != nil {
		if out == nil || ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
			return fmt.Errorf("search: %w", err)
		}
		interrupted = true
		log.Warn("search interrupted, reporting partial results", "tried", out.Stats.Tried)
	}

	rep := &report.Search{
		Modulus:  cfg.Modulus.String(),
		Order:    cfg.K,
		Method:   cfg.Method.String(),
		Cond:     cfg.Cond.String(),
		TestName: cfg.FOM.Test.Name(),
		Dims:     cfg.FOM.T,
		Outcome:  out,
		Stages:   prof.SnapshotAndReset(),
	}
	w, closeReport, err := openOutput(doc.Output.Report)
	if err != nil {
		return err
	}
	if err := report.WriteSearch(w, rep); err != nil {
		closeReport()
		return err
	}
	if err := closeReport(); err != nil {
		return err
	}

	if doc.Output.Chart != "" && len(out.Merits) > 0 {
		cs := []components.Charter{report.HistogramChart("merits of the evaluated generators", out.Merits)}
		if len(out.Best) > 0 {
			best := out.Best[0]
			cs = append(cs, report.MeritChart(best.Comp.String(), bestResult(best)))
		}
		if err := writeChart(doc.Output.Chart, cs...); err != nil {
			return err
		}
		log.Info("chart written", "path", doc.Output.Chart)
	}

	if doc.Output.Store != "" && len(out.Best) > 0 {
		run := &store.Run{
			Kind:      "seek",
			Generator: fmt.Sprintf("%s k=%d", cfg.Modulus, cfg.K),
			Test:      rep.TestName,
			Dims:      cfg.FOM.T,
			Merit:     out.Best[0].Merit,
			Elapsed:   out.Stats.Elapsed,
		}
		cs := make([]store.Candidate, len(out.Best))
		for i, c := range out.Best {
			cs[i] = store.Candidate{
				Rank:         i + 1,
				Generator:    c.Comp.String(),
				Coefficients: mrg.JoinInts(c.A),
				Merit:        c.Merit,
				Worst:        c.Worst,
				Values:       c.Values,
			}
		}
		id, err := storeResult(context.WithoutCancel(ctx), doc.Output.Store, run, cs)
		if err != nil {
			return err
		}
		log.Info("results stored", "db", doc.Output.Store, "run", id, "generators", len(cs))
	}
	if interrupted {
		return ctx.Err()
	}
	return nil
}

func bestResult(c seek.Candidate) *merit.Result {
	return &merit.Result{Merit: c.Merit, Worst: c.Worst, Values: c.Values}
}
