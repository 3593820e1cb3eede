// Package merit computes figures of merit of lattices: normalized spectral
// test values, the Beyer quotient and P_alpha, and their worst case over
// dimensions and projections.
package merit

import (
	"fmt"
	"math"
	"strings"

	"latmrg/lattice"
)

// NormaKind names a family of bounds on the shortest vector.
type NormaKind int

const (
	BestLat NormaKind = iota
	Rogers
	Minkowski
	MinkL1
)

var normaNames = map[NormaKind]string{BestLat: "bestlat", Rogers: "rogers", Minkowski: "minkowski", MinkL1: "minkl1"}

func (k NormaKind) String() string { return normaNames[k] }

// ParseNormaKind maps a configuration name to a NormaKind; empty means
// bestlat.
func ParseNormaKind(s string) (NormaKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return BestLat, nil
	}
	for k, name := range normaNames {
		if name == s {
			return k, nil
		}
	}
	return BestLat, fmt.Errorf("merit: unknown normalizer %q", s)
}

// bestCenterDensity holds the center density delta_t of the densest known
// lattice packings in dimensions 1..24 (Conway & Sloane, table 1.2).
var bestCenterDensity = [...]float64{
	0.5, 0.28868, 0.17678, 0.125, 0.08839, 0.07217, 0.0625, 0.0625,
	0.04419, 0.0390625, 0.03516, 0.03704, 0.03516, 0.03608, 0.04419, 0.0625,
	0.0625, 0.07508, 0.08839, 0.13154, 0.17678, 0.33254, 0.5, 1.0,
}

// Normalizer turns the length of a shortest vector into a value in (0, 1]
// by dividing it by a bound for lattices of the same density.
type Normalizer struct {
	Kind NormaKind
	Norm lattice.Norm
}

// NewNormalizer validates the pairing of kind and norm: minkl1 is the only
// bound in the L1 norm.
func NewNormalizer(kind NormaKind, norm lattice.Norm) (*Normalizer, error) {
	if (kind == MinkL1) != (norm == lattice.L1) {
		return nil, fmt.Errorf("merit: normalizer %s does not apply to the %s norm", kind, norm)
	}
	return &Normalizer{Kind: kind, Norm: norm}, nil
}

// Gamma returns the Hermite-type constant gamma_t: lambda_1^2 <= gamma_t
// det^(2/t).
func (n *Normalizer) Gamma(t int) float64 {
	switch n.Kind {
	case BestLat:
		if t >= 1 && t <= len(bestCenterDensity) {
			return 4 * math.Pow(bestCenterDensity[t-1], 2/float64(t))
		}
		return rogersGamma(t)
	case Rogers:
		return rogersGamma(t)
	case Minkowski:
		lg, _ := math.Lgamma(2 + float64(t)/2)
		return 2 / math.Pi * math.Exp(2*lg/float64(t))
	}
	return 1
}

// Bound returns the largest shortest-vector length expected in a
// t-dimensional lattice with log determinant logDet.
func (n *Normalizer) Bound(t int, logDet float64) float64 {
	ft := float64(t)
	if n.Kind == MinkL1 {
		// lambda_1 in L1 <= (t! det)^(1/t).
		lf, _ := math.Lgamma(ft + 1)
		return math.Exp((lf + logDet) / ft)
	}
	return math.Sqrt(n.Gamma(t)) * math.Exp(logDet/ft)
}

// rogersGamma is Leech's approximation of the Rogers bound on the center
// density delta, turned into the Hermite constant 4 delta^(2/t).
// Dimensions 1-3 use the exact values.
func rogersGamma(t int) float64 {
	switch t {
	case 1:
		return 1
	case 2:
		return 2 / math.Sqrt(3)
	case 3:
		return math.Cbrt(2)
	}
	n := float64(t)
	// log2 of the bound on the center density.
	log2Delta := n/2*math.Log2(n/(4*math.Pi*math.E)) + 1.5*math.Log2(n) -
		math.Log2(math.E/math.Sqrt(math.Pi)) + 5.25/(n+2.5)
	return 4 * math.Exp2(2*log2Delta/n)
}
