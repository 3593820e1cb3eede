package lattice

import (
	"errors"
	"math"
	"math/big"
)

// ErrNodeLimit is returned when the branch-and-bound exceeds its node
// budget. The Shortest returned alongside holds the best vector found.
var ErrNodeLimit = errors.New("lattice: enumeration node limit reached")

// SVPOptions tunes ShortestVector.
type SVPOptions struct {
	Norm     Norm
	Delta    float64
	Prec     uint
	MaxNodes int64 // 0 means unlimited
}

// Shortest is a shortest nonzero vector with its lengths.
type Shortest struct {
	Vector []*big.Int
	Sq     *big.Int // squared euclidean length
	L1     *big.Int
	Length float64 // length in the requested norm
	Nodes  int64
}

// ShortestVector finds a shortest nonzero vector of the lattice spanned by
// the rows of basis: LLL reduction, then a Fincke-Pohst enumeration visiting
// coefficients from the projected center outward. Candidates are checked
// in exact integer arithmetic, so rounding in the floating bounds can only
// cost extra nodes. For L1, vectors are enumerated inside the L2 ball of
// radius equal to the best L1 length found so far.
func ShortestVector(basis [][]*big.Int, opts SVPOptions) (*Shortest, error) {
	if len(basis) == 0 {
		return nil, ErrDimension
	}
	b := LLL(basis, opts.Delta, opts.Prec)
	n := len(b)
	g := newGSO(b, maxPrec(opts.Prec))
	mu := make([][]float64, n)
	bs := make([]float64, n)
	for i := 0; i < n; i++ {
		mu[i] = make([]float64, i)
		for j := 0; j < i; j++ {
			mu[i][j], _ = g.mu[i][j].Float64()
		}
		bs[i], _ = g.bs[i].Float64()
	}

	best := &Shortest{}
	setBest := func(v []*big.Int) {
		best.Vector = v
		best.Sq = NormSq(v)
		best.L1 = NormL1(v)
	}
	for _, row := range b {
		if best.Vector == nil || better(row, best, opts.Norm) {
			setBest(CopyBasis([][]*big.Int{row})[0])
		}
	}
	radius := func() float64 {
		var r float64
		if opts.Norm == L1 {
			r, _ = new(big.Float).SetInt(best.L1).Float64()
			r *= r
		} else {
			r, _ = new(big.Float).SetInt(best.Sq).Float64()
		}
		return r*(1+1e-9) + 1e-9
	}
	r2 := radius()

	x := make([]int64, n)
	var nodes int64
	cand := make([]*big.Int, len(b[0]))
	for i := range cand {
		cand[i] = new(big.Int)
	}
	t := new(big.Int)
	leaf := func() {
		for j := range cand {
			cand[j].SetInt64(0)
		}
		for i := 0; i < n; i++ {
			if x[i] == 0 {
				continue
			}
			xi := big.NewInt(x[i])
			for j := range cand {
				cand[j].Add(cand[j], t.Mul(xi, b[i][j]))
			}
		}
		if better(cand, best, opts.Norm) {
			setBest(CopyBasis([][]*big.Int{cand})[0])
			r2 = radius()
		}
	}

	var rec func(i int, partial float64, zeroAbove bool) error
	rec = func(i int, partial float64, zeroAbove bool) error {
		nodes++
		if opts.MaxNodes > 0 && nodes > opts.MaxNodes {
			return ErrNodeLimit
		}
		c := 0.0
		for j := i + 1; j < n; j++ {
			c -= float64(x[j]) * mu[j][i]
		}
		r0 := math.Round(c)
		for d := 0.0; ; d++ {
			if d > 0 {
				gap := d - 0.5
				if partial+gap*gap*bs[i] > r2 {
					break
				}
			}
			for s := 0; s < 2; s++ {
				if d == 0 && s == 1 {
					break
				}
				xf := r0 + d
				if s == 1 {
					xf = r0 - d
				}
				if zeroAbove && xf < 0 {
					continue
				}
				diff := xf - c
				p := partial + diff*diff*bs[i]
				if p > r2 {
					continue
				}
				x[i] = int64(xf)
				if i == 0 {
					if !(zeroAbove && x[i] == 0) {
						leaf()
					}
					continue
				}
				if err := rec(i-1, p, zeroAbove && x[i] == 0); err != nil {
					return err
				}
			}
		}
		x[i] = 0
		return nil
	}
	err := rec(n-1, 0, true)
	best.Nodes = nodes
	if opts.Norm == L1 {
		best.Length, _ = new(big.Float).SetInt(best.L1).Float64()
	} else {
		sq := new(big.Float).SetPrec(128).SetInt(best.Sq)
		best.Length, _ = sq.Sqrt(sq).Float64()
	}
	return best, err
}

func maxPrec(p uint) uint {
	if p == 0 {
		return DefaultPrec
	}
	return p
}

func better(v []*big.Int, best *Shortest, norm Norm) bool {
	if norm == L1 {
		l1 := NormL1(v)
		return l1.Sign() > 0 && l1.Cmp(best.L1) < 0
	}
	sq := NormSq(v)
	return sq.Sign() > 0 && sq.Cmp(best.Sq) < 0
}
