package merit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"latmrg/lattice"
)

// ErrPAlpha is returned when P_alpha is asked for a lattice it cannot
// handle: more than one generator row or too many points.
var ErrPAlpha = errors.New("merit: P_alpha needs a rank-1 lattice with at most 2^22 points")

// Measure is the outcome of one test on one lattice.
type Measure struct {
	// Raw is the unnormalized quantity: a shortest vector length, a length
	// ratio or the P_alpha sum.
	Raw float64
	// Value is the normalized figure compared against other projections.
	Value float64
	Nodes int64
}

// Test evaluates a lattice. LowerIsBetter tells how values compare.
type Test interface {
	Name() string
	Evaluate(ctx context.Context, l *lattice.IntLattice) (Measure, error)
	LowerIsBetter() bool
}

// Spectral is the normalized spectral test: the shortest vector of the
// m-dual (distance between covering hyperplanes) or of the primal lattice,
// divided by its normalizer bound.
type Spectral struct {
	Normalizer *Normalizer
	Primal     bool
	Delta      float64
	Prec       uint
	MaxNodes   int64
}

func (s *Spectral) Name() string {
	side := "dual"
	if s.Primal {
		side = "primal"
	}
	return fmt.Sprintf("spectral(%s,%s,%s)", side, s.Normalizer.Norm, s.Normalizer.Kind)
}

func (s *Spectral) LowerIsBetter() bool { return false }

func (s *Spectral) Evaluate(ctx context.Context, l *lattice.IntLattice) (Measure, error) {
	if err := ctx.Err(); err != nil {
		return Measure{}, err
	}
	basis, logDet := l.Dual, l.LogDualDet()
	if s.Primal {
		basis, logDet = l.Basis, l.LogDet
	}
	sv, err := lattice.ShortestVector(basis, lattice.SVPOptions{
		Norm:     s.Normalizer.Norm,
		Delta:    s.Delta,
		Prec:     s.Prec,
		MaxNodes: s.MaxNodes,
	})
	if err != nil {
		return Measure{}, err
	}
	bound := s.Normalizer.Bound(l.Dim, logDet)
	return Measure{Raw: sv.Length, Value: sv.Length / bound, Nodes: sv.Nodes}, nil
}

// Beyer is the Beyer quotient |b_1| / |b_t| of a pairwise-reduced primal
// basis. 1 is best.
type Beyer struct {
	Delta float64
	Prec  uint
}

func (b *Beyer) Name() string        { return "beyer" }
func (b *Beyer) LowerIsBetter() bool { return false }

func (b *Beyer) Evaluate(ctx context.Context, l *lattice.IntLattice) (Measure, error) {
	if err := ctx.Err(); err != nil {
		return Measure{}, err
	}
	red := lattice.PairwiseReduce(lattice.LLL(l.Basis, b.Delta, b.Prec))
	first := new(big.Float).SetInt(lattice.NormSq(red[0]))
	last := new(big.Float).SetInt(lattice.NormSq(red[len(red)-1]))
	q, _ := new(big.Float).Quo(first, last).Float64()
	q = math.Sqrt(q)
	return Measure{Raw: q, Value: q}, nil
}

// PAlpha is the P_alpha criterion of a rank-1 lattice rule,
// P_alpha = -1 + (1/n) sum_i prod_j (1 + c_alpha B_alpha({i z_j / n})),
// with alpha in {2, 4, 6}. Smaller is better.
type PAlpha struct {
	Alpha int
}

// maxPAlphaPoints caps the O(n t) sum.
const maxPAlphaPoints = 1 << 22

func (p *PAlpha) Name() string        { return fmt.Sprintf("palpha(%d)", p.Alpha) }
func (p *PAlpha) LowerIsBetter() bool { return true }

func (p *PAlpha) Evaluate(ctx context.Context, l *lattice.IntLattice) (Measure, error) {
	if len(l.Gens) != 1 || !l.M.IsInt64() || l.M.Int64() > maxPAlphaPoints {
		return Measure{}, ErrPAlpha
	}
	coef, poly, err := bernoulli(p.Alpha)
	if err != nil {
		return Measure{}, err
	}
	n := l.M.Int64()
	z := make([]int64, len(l.Gens[0]))
	for j, x := range l.Gens[0] {
		z[j] = x.Int64()
	}
	sum := 0.0
	for i := int64(0); i < n; i++ {
		if i&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return Measure{}, err
			}
		}
		prod := 1.0
		for _, zj := range z {
			x := float64((i*zj)%n) / float64(n)
			prod *= 1 + coef*poly(x)
		}
		sum += prod
	}
	v := sum/float64(n) - 1
	return Measure{Raw: v, Value: v}, nil
}

// bernoulli returns c_alpha = (-1)^(alpha/2+1) (2 pi)^alpha / alpha! and
// the Bernoulli polynomial B_alpha.
func bernoulli(alpha int) (float64, func(float64) float64, error) {
	switch alpha {
	case 2:
		return 2 * math.Pi * math.Pi, func(x float64) float64 {
			return x*x - x + 1.0/6
		}, nil
	case 4:
		return -math.Pow(2*math.Pi, 4) / 24, func(x float64) float64 {
			x2 := x * x
			return x2*x2 - 2*x2*x + x2 - 1.0/30
		}, nil
	case 6:
		return math.Pow(2*math.Pi, 6) / 720, func(x float64) float64 {
			x2 := x * x
			return x2*x2*x2 - 3*x2*x2*x + 2.5*x2*x2 - 0.5*x2 + 1.0/42
		}, nil
	}
	return 0, nil, fmt.Errorf("merit: alpha must be 2, 4 or 6, got %d", alpha)
}

// TestOptions describes a test in configuration terms.
type TestOptions struct {
	Type       string // spectral | beyer | palpha
	Norm       string // l2 | l1
	Normalizer string // bestlat | rogers | minkowski | minkl1
	Primal     bool
	Alpha      int
	Delta      float64
	Prec       uint
	MaxNodes   int64
}

// NewTest builds the Test named by opts.
func NewTest(opts TestOptions) (Test, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Type)) {
	case "", "spectral":
		norm, err := lattice.ParseNorm(opts.Norm)
		if err != nil {
			return nil, err
		}
		kindName := opts.Normalizer
		if kindName == "" && norm == lattice.L1 {
			kindName = "minkl1"
		}
		kind, err := ParseNormaKind(kindName)
		if err != nil {
			return nil, err
		}
		nz, err := NewNormalizer(kind, norm)
		if err != nil {
			return nil, err
		}
		return &Spectral{Normalizer: nz, Primal: opts.Primal, Delta: opts.Delta, Prec: opts.Prec, MaxNodes: opts.MaxNodes}, nil
	case "beyer":
		return &Beyer{Delta: opts.Delta, Prec: opts.Prec}, nil
	case "palpha":
		alpha := opts.Alpha
		if alpha == 0 {
			alpha = 2
		}
		if _, _, err := bernoulli(alpha); err != nil {
			return nil, err
		}
		return &PAlpha{Alpha: alpha}, nil
	}
	return nil, fmt.Errorf("merit: unknown test %q", opts.Type)
}
