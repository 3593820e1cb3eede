package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"latmrg/internal/config"
	"latmrg/internal/logger"
	"latmrg/internal/store"
	"latmrg/mrg"
	"latmrg/prof"
	"latmrg/report"
)

var lattestCmd = &cobra.Command{
	Use:   "lattest <file>",
	Short: "Compute the figure of merit of one generator or lattice rule",
	Long: `Read a YAML, JSON or XML document describing a generator and a test,
optionally check that the generator has maximal period, and compute the
figure of merit M_{t1,...,td}.`,
	Args: cobra.ExactArgs(1),
	RunE: runLattest,
}

func init() {
	f := lattestCmd.Flags()
	f.String("chart", "", "write an HTML chart of the projection values to this file")
	f.String("report", "", "write the text report to this file (default from the document, else stdout)")
	f.Float64("threshold", 0, "stop at the first value worse than this")
}

func runLattest(cmd *cobra.Command, args []string) error {
	log := logger.L()
	ctx := cmd.Context()

	doc, err := config.LoadLattest(args[0])
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("chart"); v != "" {
		doc.Output.Chart = v
	}
	if v, _ := cmd.Flags().GetString("report"); v != "" {
		doc.Output.Report = v
	}
	if v := viper.GetString("store"); v != "" {
		doc.Output.Store = v
	}

	src, err := doc.Generator.Source()
	if err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	fom, err := doc.Test.FigureOfMerit()
	if err != nil {
		return fmt.Errorf("test: %w", err)
	}
	fom.Threshold, _ = cmd.Flags().GetFloat64("threshold")

	rep := &report.Test{
		Generator: fmt.Sprint(src),
		TestName:  fom.Test.Name(),
		Dims:      fom.T,
	}

	comp, isGen := src.(*mrg.Component)
	if doc.Period.Check {
		if !isGen {
			return fmt.Errorf("period check: %s is not a generator", doc.Generator.Type)
		}
		rep.Period, err = checkPeriod(ctx, comp, doc.Period.Decomp())
		if err != nil {
			return err
		}
		log.Info("period checked", "max", rep.Period.Max, "length", rep.Period.Length)
	}

	start := time.Now()
	res, err := fom.Compute(ctx, src)
	prof.Track(start, "fom")
	if err != nil {
		return fmt.Errorf("figure of merit: %w", err)
	}
	rep.Result = res
	rep.Stages = prof.SnapshotAndReset()
	log.Info("figure of merit", "merit", res.Merit, "worst", report.CoordsLabel(res.Worst),
		"projections", len(res.Values), "nodes", res.Nodes, "elapsed", res.Elapsed)

	w, closeReport, err := openOutput(doc.Output.Report)
	if err != nil {
		return err
	}
	if err := report.WriteTest(w, rep); err != nil {
		closeReport()
		return err
	}
	if err := closeReport(); err != nil {
		return err
	}

	if doc.Output.Chart != "" {
		if err := writeChart(doc.Output.Chart, report.MeritChart(rep.Generator, res)); err != nil {
			return err
		}
		log.Info("chart written", "path", doc.Output.Chart)
	}

	if doc.Output.Store != "" {
		coeffs := ""
		if isGen {
			coeffs = mrg.JoinInts(comp.A)
		}
		id, err := storeResult(ctx, doc.Output.Store, &store.Run{
			Kind:      "lattest",
			Generator: rep.Generator,
			Test:      rep.TestName,
			Dims:      fom.T,
			Merit:     res.Merit,
			Elapsed:   res.Elapsed,
		}, []store.Candidate{{
			Rank:         1,
			Generator:    rep.Generator,
			Coefficients: coeffs,
			Merit:        res.Merit,
			Worst:        res.Worst,
			Values:       res.Values,
		}})
		if err != nil {
			return err
		}
		log.Info("result stored", "db", doc.Output.Store, "run", id)
	}
	return nil
}

func checkPeriod(ctx context.Context, c *mrg.Component, opts mrg.DecompOptions) (*report.Period, error) {
	defer prof.Track(time.Now(), "maxperiod")
	ok, err := c.MaxPeriod(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("period check: %w", err)
	}
	p := &report.Period{Max: ok}
	if ok {
		p.Length = c.PeriodLength()
	}
	return p, nil
}

func writeChart(path string, cs ...components.Charter) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.RenderPage(f, cs...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func storeResult(ctx context.Context, path string, run *store.Run, cs []store.Candidate) (string, error) {
	defer prof.Track(time.Now(), "store")
	db, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer db.Close()
	if err := db.SaveResult(ctx, run, cs); err != nil {
		return "", err
	}
	return run.ID, nil
}
