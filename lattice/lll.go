package lattice

import (
	"math/big"
)

// DefaultPrec is the mantissa size of the Gram-Schmidt data.
const DefaultPrec uint = 256

// DefaultDelta is the Lovasz constant used when callers pass 0.
const DefaultDelta = 0.99999

// gso holds the Gram-Schmidt coefficients mu[i][j] (j < i) and the squared
// lengths bs[i] of the orthogonalized vectors.
type gso struct {
	prec uint
	mu   [][]*big.Float
	bs   []*big.Float
}

func (g *gso) f() *big.Float { return new(big.Float).SetPrec(g.prec) }

func newGSO(b [][]*big.Int, prec uint) *gso {
	n := len(b)
	g := &gso{prec: prec, mu: make([][]*big.Float, n), bs: make([]*big.Float, n)}
	r := make([][]*big.Float, n)
	for i := 0; i < n; i++ {
		r[i] = make([]*big.Float, i+1)
		g.mu[i] = make([]*big.Float, i)
		for j := 0; j <= i; j++ {
			v := g.f().SetInt(Dot(b[i], b[j]))
			for l := 0; l < j; l++ {
				v.Sub(v, g.f().Mul(g.mu[j][l], r[i][l]))
			}
			r[i][j] = v
			if j < i {
				g.mu[i][j] = g.f().Quo(v, g.bs[j])
			} else {
				g.bs[i] = v
			}
		}
	}
	return g
}

func roundFloat(x *big.Float) *big.Int {
	h := new(big.Float).SetPrec(x.Prec()).SetFloat64(0.5)
	y := new(big.Float).SetPrec(x.Prec())
	if x.Sign() >= 0 {
		y.Add(x, h)
		z, _ := y.Int(nil)
		return z
	}
	y.Sub(h, x)
	z, _ := y.Int(nil)
	return z.Neg(z)
}

// sizeReduce makes |mu[k][j]| <= 1/2 by subtracting a multiple of b[j].
func (g *gso) sizeReduce(b [][]*big.Int, k, j int) {
	q := roundFloat(g.mu[k][j])
	if q.Sign() == 0 {
		return
	}
	t := new(big.Int)
	for i := range b[k] {
		b[k][i].Sub(b[k][i], t.Mul(q, b[j][i]))
	}
	qf := g.f().SetInt(q)
	for l := 0; l < j; l++ {
		g.mu[k][l].Sub(g.mu[k][l], g.f().Mul(qf, g.mu[j][l]))
	}
	g.mu[k][j].Sub(g.mu[k][j], qf)
}

// swap exchanges b[k-1] and b[k] and updates the Gram-Schmidt data.
func (g *gso) swap(b [][]*big.Int, k int) {
	n := len(b)
	mu := g.mu[k][k-1]
	bb := g.f().Mul(mu, mu)
	bb.Mul(bb, g.bs[k-1])
	bb.Add(bb, g.bs[k])
	newMu := g.f().Mul(mu, g.bs[k-1])
	newMu.Quo(newMu, bb)
	newBk := g.f().Mul(g.bs[k-1], g.bs[k])
	newBk.Quo(newBk, bb)
	g.bs[k-1] = bb
	g.bs[k] = newBk
	b[k-1], b[k] = b[k], b[k-1]
	for j := 0; j < k-1; j++ {
		g.mu[k-1][j], g.mu[k][j] = g.mu[k][j], g.mu[k-1][j]
	}
	for i := k + 1; i < n; i++ {
		t := g.mu[i][k]
		nk := g.f().Mul(mu, t)
		nk.Sub(g.mu[i][k-1], nk)
		nk1 := g.f().Mul(newMu, nk)
		nk1.Add(t, nk1)
		g.mu[i][k] = nk
		g.mu[i][k-1] = nk1
	}
	g.mu[k][k-1] = newMu
}

// LLL returns an LLL-reduced copy of the basis b (linearly independent
// rows). delta in (1/4, 1) is the Lovasz constant and prec the floating
// point precision of the Gram-Schmidt data.
func LLL(b [][]*big.Int, delta float64, prec uint) [][]*big.Int {
	if delta <= 0.25 || delta >= 1 {
		delta = DefaultDelta
	}
	if prec == 0 {
		prec = DefaultPrec
	}
	out := CopyBasis(b)
	n := len(out)
	if n < 2 {
		return out
	}
	g := newGSO(out, prec)
	d := g.f().SetFloat64(delta)
	lhs := g.f()
	k := 1
	for k < n {
		g.sizeReduce(out, k, k-1)
		lhs.Mul(g.mu[k][k-1], g.mu[k][k-1])
		lhs.Sub(d, lhs)
		lhs.Mul(lhs, g.bs[k-1])
		if g.bs[k].Cmp(lhs) < 0 {
			g.swap(out, k)
			if k > 1 {
				k--
			}
			continue
		}
		for j := k - 2; j >= 0; j-- {
			g.sizeReduce(out, k, j)
		}
		k++
	}
	return out
}
