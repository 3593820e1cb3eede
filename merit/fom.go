package merit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"latmrg/lattice"
)

// ErrNothingToTest is returned when every requested lattice is Z^s.
var ErrNothingToTest = errors.New("merit: no dimension or projection above the generator order")

// FigureOfMerit is M_{t1,...,td}: the worst test value over the successive
// dimensions FromDim..T[0] and over the projections of order s = 2..d on
// coordinates up to T[s-1].
type FigureOfMerit struct {
	T    []int
	Test Test
	// FromDim is the first successive dimension; 0 means order+1.
	FromDim int
	// Stationary restricts projections to those containing coordinate 1,
	// which is enough for a stationary sequence.
	Stationary bool
	// Threshold stops the computation as soon as a value is worse than it.
	// 0 disables early rejection.
	Threshold float64
	// Lacunary maps coordinate j to lag Lacunary[j-1]; nil means lag j-1.
	Lacunary []int64
}

// ProjValue is the value of the test on one projection.
type ProjValue struct {
	Coords []int
	Raw    float64
	Value  float64
}

// Result collects the values seen by Compute.
type Result struct {
	Merit    float64
	Worst    []int
	Values   []ProjValue
	Rejected bool
	Skipped  int
	Nodes    int64
	Elapsed  time.Duration
}

// Validate checks the dimension vector.
func (f *FigureOfMerit) Validate() error {
	if len(f.T) == 0 || f.T[0] < 1 {
		return errors.New("merit: figure of merit needs t1 >= 1")
	}
	for s := 2; s <= len(f.T); s++ {
		if f.T[s-1] < s {
			return fmt.Errorf("merit: t%d = %d is smaller than the projection order", s, f.T[s-1])
		}
	}
	if f.Test == nil {
		return errors.New("merit: no test")
	}
	if f.Lacunary != nil {
		need := f.T[0]
		for _, t := range f.T[1:] {
			if t > need {
				need = t
			}
		}
		if len(f.Lacunary) < need {
			return fmt.Errorf("merit: %d lacunary indices for %d coordinates", len(f.Lacunary), need)
		}
	}
	return nil
}

func (f *FigureOfMerit) worse(a, b float64) bool {
	if f.Test.LowerIsBetter() {
		return a > b
	}
	return a < b
}

// Compute evaluates src. Lattices equal to Z^s (a projection that fills the
// whole space) carry no information and are skipped, as are successive
// dimensions not above the order. Values are recorded in the order they
// are computed.
func (f *FigureOfMerit) Compute(ctx context.Context, src lattice.Source) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &Result{Merit: math.Inf(1)}
	if f.Test.LowerIsBetter() {
		res.Merit = math.Inf(-1)
	}
	order := src.Order()

	// stop reports whether evaluation must end early.
	eval := func(coords []int) (bool, error) {
		l, err := lattice.BuildCoords(src, coords, f.Lacunary)
		if err != nil {
			return false, err
		}
		if l.IsFull() {
			res.Skipped++
			return false, nil
		}
		m, err := f.Test.Evaluate(ctx, l)
		if err != nil {
			return false, fmt.Errorf("coordinates %v: %w", coords, err)
		}
		cp := append([]int(nil), coords...)
		res.Values = append(res.Values, ProjValue{Coords: cp, Raw: m.Raw, Value: m.Value})
		res.Nodes += m.Nodes
		if f.worse(m.Value, res.Merit) {
			res.Merit = m.Value
			res.Worst = cp
		}
		if f.Threshold != 0 && f.worse(m.Value, f.Threshold) {
			res.Rejected = true
			return true, nil
		}
		return false, nil
	}

	from := f.FromDim
	if from <= 0 {
		from = order + 1
	}
	coords := make([]int, 0, f.T[0])
	for t := 1; t <= f.T[0]; t++ {
		coords = append(coords, t)
		if t < from {
			continue
		}
		stop, err := eval(coords)
		if err != nil {
			return nil, err
		}
		if stop {
			res.Elapsed = time.Since(start)
			return res, nil
		}
	}

	var evalErr error
	for s := 2; s <= len(f.T); s++ {
		ok := lattice.Subsets(s, f.T[s-1], f.Stationary, func(c []int) bool {
			if lattice.IsSuccessive(c) && s <= f.T[0] && s >= from {
				return true
			}
			stop, err := eval(c)
			if err != nil {
				evalErr = err
				return false
			}
			return !stop
		})
		if evalErr != nil {
			return nil, evalErr
		}
		if !ok {
			break
		}
	}
	res.Elapsed = time.Since(start)
	if len(res.Values) == 0 {
		return nil, ErrNothingToTest
	}
	return res, nil
}
