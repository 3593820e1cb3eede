// Package report renders lattice test and search results as text and as
// go-echarts HTML pages.
package report

import (
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"latmrg/lattice"
	"latmrg/merit"
	"latmrg/mrg"
	"latmrg/prof"
	"latmrg/seek"
)

// Period is the outcome of a maximal-period check.
type Period struct {
	Max    bool
	Length *big.Int
}

// Test is what WriteTest prints.
type Test struct {
	Generator string
	Period    *Period
	TestName  string
	Dims      []int
	Result    *merit.Result
	Stages    []prof.Stage
}

// Search is what WriteSearch prints.
type Search struct {
	Modulus  string
	Order    int
	Method   string
	Cond     string
	TestName string
	Dims     []int
	Outcome  *seek.Outcome
	Stages   []prof.Stage
}

// CoordsLabel writes successive coordinate sets as "t=s" and other
// projections as "{i,j,...}".
func CoordsLabel(c []int) string {
	if lattice.IsSuccessive(c) {
		return "t=" + strconv.Itoa(len(c))
	}
	s := make([]string, len(c))
	for i, x := range c {
		s[i] = strconv.Itoa(x)
	}
	return "{" + strings.Join(s, ",") + "}"
}

func dimsLabel(d []int) string {
	s := make([]string, len(d))
	for i, x := range d {
		s[i] = strconv.Itoa(x)
	}
	return strings.Join(s, ",")
}

func writeStages(w io.Writer, stages []prof.Stage) {
	if len(stages) == 0 {
		return
	}
	fmt.Fprintln(w, "\nTimings:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, st := range stages {
		fmt.Fprintf(tw, "  %s\t%d\t%s\n", st.Label, st.Count, st.Total.Round(time.Microsecond))
	}
	tw.Flush()
}

// WriteTest prints the header, one line per evaluated projection and the
// resulting figure of merit.
func WriteTest(w io.Writer, t *Test) error {
	fmt.Fprintf(w, "Generator: %s\n", t.Generator)
	if t.Period != nil {
		if t.Period.Max {
			fmt.Fprintf(w, "Maximal period: yes (rho = %s)\n", t.Period.Length)
		} else {
			fmt.Fprintln(w, "Maximal period: no")
		}
	}
	fmt.Fprintf(w, "Test: %s, M_{%s}\n\n", t.TestName, dimsLabel(t.Dims))

	res := t.Result
	if res == nil {
		writeStages(w, t.Stages)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "projection\traw\tvalue\t")
	for _, v := range res.Values {
		fmt.Fprintf(tw, "%s\t%.6g\t%.6f\t\n", CoordsLabel(v.Coords), v.Raw, v.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nFigure of merit: %.6f at %s\n", res.Merit, CoordsLabel(res.Worst))
	if res.Rejected {
		fmt.Fprintln(w, "Stopped early: a value fell past the threshold")
	}
	fmt.Fprintf(w, "Projections: %d evaluated, %d skipped; %s enumeration nodes; %s\n",
		len(res.Values), res.Skipped, humanize.Comma(res.Nodes), res.Elapsed.Round(time.Microsecond))
	writeStages(w, t.Stages)
	return nil
}

// WriteSearch prints the retained generators and the search statistics.
func WriteSearch(w io.Writer, s *Search) error {
	fmt.Fprintf(w, "Search: m = %s, k = %d, method %s, condition %s\n", s.Modulus, s.Order, s.Method, s.Cond)
	fmt.Fprintf(w, "Test: %s, M_{%s}\n\n", s.TestName, dimsLabel(s.Dims))
	out := s.Outcome
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "rank\tmultipliers\tmerit\tworst")
	for i, c := range out.Best {
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%s\n", i+1, mrg.JoinInts(c.A), c.Merit, CoordsLabel(c.Worst))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	st := out.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Tried:              %s\n", humanize.Comma(st.Tried))
	fmt.Fprintf(w, "Condition rejected: %s\n", humanize.Comma(st.CondRejected))
	fmt.Fprintf(w, "Primitive a_k:      %s\n", humanize.Comma(st.PrimitiveHits))
	fmt.Fprintf(w, "Maximal period:     %s\n", humanize.Comma(st.MaxPeriodHits))
	fmt.Fprintf(w, "Fully evaluated:    %s\n", humanize.Comma(st.Evaluated))
	fmt.Fprintf(w, "Rejected early:     %s\n", humanize.Comma(st.Rejected))
	if st.NodeLimit > 0 {
		fmt.Fprintf(w, "Node limit hit:     %s\n", humanize.Comma(st.NodeLimit))
	}
	fmt.Fprintf(w, "Elapsed:            %s\n", st.Elapsed.Round(time.Millisecond))
	if len(out.Merits) > 0 {
		sm := Summarize(out.Merits)
		fmt.Fprintf(w, "Merits: n=%d mean=%.4f median=%.4f max=%.4f\n", sm.Count, sm.Mean, sm.Median, sm.Max)
	}
	writeStages(w, s.Stages)
	return nil
}
