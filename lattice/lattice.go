// Package lattice builds the integer lattices associated with linear
// recurrence generators and finds short vectors in them.
//
// A lattice L of dimension t built here always contains mZ^t. Its m-dual
// L* = {h : h.v = 0 mod m for all v in L} is integral, and the bases kept
// in IntLattice satisfy Basis * Dual^T = m I.
package lattice

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Norm selects how vector lengths are measured.
type Norm int

const (
	L2 Norm = iota
	L1
)

func (n Norm) String() string {
	if n == L1 {
		return "L1"
	}
	return "L2"
}

// ParseNorm accepts "l1" and "l2" (case-insensitive); empty means L2.
func ParseNorm(s string) (Norm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "l2", "l2norm":
		return L2, nil
	case "l1", "l1norm":
		return L1, nil
	}
	return L2, fmt.Errorf("lattice: unknown norm %q", s)
}

// ErrDimension is returned for empty or inconsistent generator sets.
var ErrDimension = errors.New("lattice: bad dimension")

// Source produces the generator rows of a generator's point-set lattice.
// Row j, column i holds the output at lag lags[i] for the j-th unit initial
// state. The lattice is spanned by those rows and mZ^t.
type Source interface {
	Modulus() *big.Int
	Order() int
	Generators(lags []int64) ([][]*big.Int, error)
}

// IntLattice is an integral lattice containing mZ^Dim together with its
// m-dual.
type IntLattice struct {
	M      *big.Int
	Order  int
	Dim    int
	Coords []int
	Gens   [][]*big.Int
	Basis  [][]*big.Int
	Dual   [][]*big.Int
	LogDet float64
}

// Build returns the lattice of src on the given lags; coordinate i+1 is lag
// lags[i].
func Build(src Source, lags []int64) (*IntLattice, error) {
	gens, err := src.Generators(lags)
	if err != nil {
		return nil, err
	}
	l, err := FromGenerators(gens, src.Modulus())
	if err != nil {
		return nil, err
	}
	l.Order = src.Order()
	l.Coords = make([]int, len(lags))
	for i := range lags {
		l.Coords[i] = i + 1
	}
	return l, nil
}

// BuildCoords returns the lattice of src restricted to 1-based coordinates.
// Coordinate j maps to lag lac[j-1] when lac is given, to j-1 otherwise.
func BuildCoords(src Source, coords []int, lac []int64) (*IntLattice, error) {
	lags := make([]int64, len(coords))
	for i, c := range coords {
		if c < 1 {
			return nil, fmt.Errorf("%w: coordinate %d", ErrDimension, c)
		}
		if lac != nil {
			if c > len(lac) {
				return nil, fmt.Errorf("%w: coordinate %d beyond %d lacunary indices", ErrDimension, c, len(lac))
			}
			lags[i] = lac[c-1]
		} else {
			lags[i] = int64(c - 1)
		}
	}
	l, err := Build(src, lags)
	if err != nil {
		return nil, err
	}
	l.Coords = append([]int(nil), coords...)
	return l, nil
}

// FromGenerators computes a triangular basis of the lattice spanned by gens
// and mZ^t, where t is the row length, and its m-dual basis.
func FromGenerators(gens [][]*big.Int, m *big.Int) (*IntLattice, error) {
	if len(gens) == 0 || len(gens[0]) == 0 {
		return nil, ErrDimension
	}
	dim := len(gens[0])
	red := make([][]*big.Int, len(gens))
	for i, g := range gens {
		if len(g) != dim {
			return nil, fmt.Errorf("%w: generator %d has %d entries, want %d", ErrDimension, i, len(g), dim)
		}
		red[i] = make([]*big.Int, dim)
		for j, x := range g {
			red[i][j] = new(big.Int).Mod(x, m)
		}
	}
	basis := triangularize(red, m)
	dual, err := dualOfTriangular(basis, m)
	if err != nil {
		return nil, err
	}
	logDet := 0.0
	for i := 0; i < dim; i++ {
		logDet += LogBig(basis[i][i])
	}
	return &IntLattice{M: new(big.Int).Set(m), Order: len(gens), Dim: dim, Gens: red, Basis: basis, Dual: dual, LogDet: logDet}, nil
}

// Project returns the lattice obtained by keeping the given 1-based
// coordinates of l, rebuilt from l's generators.
func (l *IntLattice) Project(coords []int) (*IntLattice, error) {
	gens := make([][]*big.Int, len(l.Gens))
	for i, g := range l.Gens {
		gens[i] = make([]*big.Int, len(coords))
		for j, c := range coords {
			if c < 1 || c > l.Dim {
				return nil, fmt.Errorf("%w: coordinate %d outside 1..%d", ErrDimension, c, l.Dim)
			}
			gens[i][j] = g[c-1]
		}
	}
	p, err := FromGenerators(gens, l.M)
	if err != nil {
		return nil, err
	}
	p.Order = l.Order
	p.Coords = make([]int, len(coords))
	for i, c := range coords {
		if l.Coords != nil {
			p.Coords[i] = l.Coords[c-1]
		} else {
			p.Coords[i] = c
		}
	}
	return p, nil
}

// LogDualDet is the natural log of det(L*) = m^t / det(L).
func (l *IntLattice) LogDualDet() float64 {
	return float64(l.Dim)*LogBig(l.M) - l.LogDet
}

// IsFull reports whether L = Z^t, which makes every figure of merit on it
// meaningless.
func (l *IntLattice) IsFull() bool {
	for i := 0; i < l.Dim; i++ {
		if l.Basis[i][i].Cmp(big.NewInt(1)) != 0 {
			return false
		}
	}
	return true
}

// CheckDuality verifies Basis * Dual^T = m I.
func (l *IntLattice) CheckDuality() bool {
	for i := 0; i < l.Dim; i++ {
		for j := 0; j < l.Dim; j++ {
			d := Dot(l.Basis[i], l.Dual[j])
			if i == j {
				if d.Cmp(l.M) != 0 {
					return false
				}
			} else if d.Sign() != 0 {
				return false
			}
		}
	}
	return true
}

// Dot returns the inner product of a and b.
func Dot(a, b []*big.Int) *big.Int {
	s := new(big.Int)
	t := new(big.Int)
	for i := range a {
		s.Add(s, t.Mul(a[i], b[i]))
	}
	return s
}

// NormSq returns the squared euclidean length of v.
func NormSq(v []*big.Int) *big.Int {
	return Dot(v, v)
}

// NormL1 returns the sum of absolute values of v.
func NormL1(v []*big.Int) *big.Int {
	s := new(big.Int)
	t := new(big.Int)
	for _, x := range v {
		s.Add(s, t.Abs(x))
	}
	return s
}

// LogBig returns the natural log of x > 0 without overflowing float64.
func LogBig(x *big.Int) float64 {
	if x.Sign() <= 0 {
		return math.Inf(-1)
	}
	bl := x.BitLen()
	if bl <= 1000 {
		f, _ := new(big.Float).SetInt(x).Float64()
		return math.Log(f)
	}
	shift := bl - 64
	f, _ := new(big.Float).SetInt(new(big.Int).Rsh(x, uint(shift))).Float64()
	return math.Log(f) + float64(shift)*math.Ln2
}

// CopyBasis deep-copies a list of integer vectors.
func CopyBasis(b [][]*big.Int) [][]*big.Int {
	out := make([][]*big.Int, len(b))
	for i, row := range b {
		out[i] = make([]*big.Int, len(row))
		for j, x := range row {
			out[i][j] = new(big.Int).Set(x)
		}
	}
	return out
}

func (l *IntLattice) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "dim=%d m=%s coords=%v\n", l.Dim, l.M, l.Coords)
	for _, row := range l.Basis {
		for j, x := range row {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(x.String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
