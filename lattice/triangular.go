package lattice

import (
	"fmt"
	"math/big"
)

// egcd returns (u, v, g) with a*u + b*v = g = gcd(a, b) >= 0. The solution
// is shifted along (b/g, -a/g) so that |v| is minimal, which keeps the
// row combinations in triangularize small.
func egcd(a, b *big.Int) (u, v, g *big.Int) {
	u, v = new(big.Int), new(big.Int)
	g = new(big.Int).GCD(u, v, a, b)
	if a.Sign() == 0 || b.Sign() == 0 || g.Sign() == 0 {
		return u, v, g
	}
	ag := new(big.Int).Quo(a, g)
	bg := new(big.Int).Quo(b, g)
	// k = round(v / ag); (u, v) -> (u + k bg, v - k ag)
	k := roundDiv(v, ag)
	if k.Sign() != 0 {
		u.Add(u, new(big.Int).Mul(k, bg))
		v.Sub(v, new(big.Int).Mul(k, ag))
	}
	return u, v, g
}

// roundDiv returns the integer nearest to a/d, d != 0, rounding halves up.
func roundDiv(a, d *big.Int) *big.Int {
	num := new(big.Int).Lsh(a, 1)
	den := new(big.Int).Lsh(d, 1)
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}
	num.Add(num, new(big.Int).Rsh(den, 1))
	return num.Div(num, den)
}

// triangularize returns an upper triangular basis (positive diagonal, off
// diagonal entries reduced mod m) of the lattice spanned by rows and mZ^t.
// rows are consumed.
func triangularize(rows [][]*big.Int, m *big.Int) [][]*big.Int {
	dim := len(rows[0])
	work := make([][]*big.Int, 0, len(rows)+dim)
	work = append(work, rows...)
	for i := 0; i < dim; i++ {
		e := make([]*big.Int, dim)
		for j := range e {
			e[j] = new(big.Int)
		}
		e[i].Set(m)
		work = append(work, e)
	}
	t := new(big.Int)
	for c := 0; c < dim; c++ {
		for r := c + 1; r < len(work); r++ {
			y := work[r][c]
			if y.Sign() == 0 {
				continue
			}
			x := work[c][c]
			if x.Sign() == 0 {
				work[c], work[r] = work[r], work[c]
				continue
			}
			u, v, g := egcd(x, y)
			xg := new(big.Int).Quo(x, g)
			yg := new(big.Int).Quo(y, g)
			pc, pr := work[c], work[r]
			nc := make([]*big.Int, dim)
			nr := make([]*big.Int, dim)
			for j := 0; j < dim; j++ {
				if j < c {
					nc[j], nr[j] = new(big.Int), new(big.Int)
					continue
				}
				a := new(big.Int).Mul(u, pc[j])
				a.Add(a, t.Mul(v, pr[j]))
				b := new(big.Int).Mul(xg, pr[j])
				b.Sub(b, t.Mul(yg, pc[j]))
				if j > c {
					a.Mod(a, m)
					b.Mod(b, m)
				}
				nc[j], nr[j] = a, b
			}
			work[c], work[r] = nc, nr
		}
		if work[c][c].Sign() < 0 {
			for j := c; j < dim; j++ {
				work[c][j].Neg(work[c][j])
				if j > c {
					work[c][j].Mod(work[c][j], m)
				}
			}
		}
	}
	return work[:dim]
}

// dualOfTriangular returns W with V W^T = m I for the upper triangular V.
// X = m V^(-1) is integral because L contains mZ^t; W = X^T.
func dualOfTriangular(v [][]*big.Int, m *big.Int) ([][]*big.Int, error) {
	n := len(v)
	x := make([][]*big.Int, n)
	rem := new(big.Int)
	t := new(big.Int)
	for i := 0; i < n; i++ {
		x[i] = make([]*big.Int, n)
		for j := range x[i] {
			x[i][j] = new(big.Int)
		}
		q, r := new(big.Int).QuoRem(m, v[i][i], rem)
		if r.Sign() != 0 {
			return nil, fmt.Errorf("lattice: pivot %s does not divide m", v[i][i])
		}
		x[i][i] = q
		for j := i + 1; j < n; j++ {
			s := new(big.Int)
			for l := i; l < j; l++ {
				s.Add(s, t.Mul(x[i][l], v[l][j]))
			}
			s.Neg(s)
			q, r := new(big.Int).QuoRem(s, v[j][j], rem)
			if r.Sign() != 0 {
				return nil, fmt.Errorf("lattice: dual basis is not integral at (%d,%d)", i, j)
			}
			x[i][j] = q
		}
	}
	w := make([][]*big.Int, n)
	for i := 0; i < n; i++ {
		w[i] = make([]*big.Int, n)
		for j := 0; j < n; j++ {
			w[i][j] = x[j][i]
		}
	}
	return w, nil
}
