package kfield

// Package kfield implements arithmetic in Z_m[X]/(f(X)) for a monic f of degree k.
// It is used to decide whether the characteristic polynomial of a linear
// recurrence modulo a prime is primitive, and to jump ahead in such recurrences.

import (
	"errors"
	"fmt"
	"math/big"

	"latmrg/primes"
)

// Ring describes Z_m[X]/(F) with F monic of degree K, stored by increasing
// powers F[0..K], F[K] = 1.
type Ring struct {
	M *big.Int
	K int
	F []*big.Int
}

// Elem is a residue class given by its K coefficients c_0..c_{K-1}.
type Elem []*big.Int

// New builds the ring from the coefficients c_0..c_k of f. The leading
// coefficient must be invertible modulo m; f is made monic.
func New(m *big.Int, coeffs []*big.Int) (*Ring, error) {
	if m == nil || m.Cmp(big.NewInt(2)) < 0 {
		return nil, errors.New("kfield: modulus must be at least 2")
	}
	k := len(coeffs) - 1
	if k < 1 {
		return nil, errors.New("kfield: degree must be positive")
	}
	lead := new(big.Int).Mod(coeffs[k], m)
	inv := new(big.Int).ModInverse(lead, m)
	if inv == nil {
		return nil, fmt.Errorf("kfield: leading coefficient %s not invertible mod %s", lead, m)
	}
	f := make([]*big.Int, k+1)
	for i := range coeffs {
		f[i] = new(big.Int).Mul(coeffs[i], inv)
		f[i].Mod(f[i], m)
	}
	return &Ring{M: new(big.Int).Set(m), K: k, F: f}, nil
}

// FromRecurrence returns the ring of f(x) = x^k - a_1 x^(k-1) - ... - a_k,
// the characteristic polynomial of x_n = a_1 x_(n-1) + ... + a_k x_(n-k).
func FromRecurrence(m *big.Int, a []*big.Int) (*Ring, error) {
	k := len(a)
	coeffs := make([]*big.Int, k+1)
	coeffs[k] = big.NewInt(1)
	for i := 1; i <= k; i++ {
		coeffs[k-i] = new(big.Int).Neg(a[i-1])
	}
	return New(m, coeffs)
}

// Zero returns the additive identity.
func (r *Ring) Zero() Elem {
	e := make(Elem, r.K)
	for i := range e {
		e[i] = new(big.Int)
	}
	return e
}

// One returns the multiplicative identity.
func (r *Ring) One() Elem {
	e := r.Zero()
	e[0].SetInt64(1)
	return e
}

// X returns the class of the indeterminate.
func (r *Ring) X() Elem {
	if r.K == 1 {
		e := r.Zero()
		e[0].Neg(r.F[0])
		e[0].Mod(e[0], r.M)
		return e
	}
	e := r.Zero()
	e[1].SetInt64(1)
	return e
}

// Mul returns a*b reduced modulo (F, M).
func (r *Ring) Mul(a, b Elem) Elem {
	k := r.K
	tmp := make([]*big.Int, 2*k-1)
	for i := range tmp {
		tmp[i] = new(big.Int)
	}
	t := new(big.Int)
	for i := 0; i < k; i++ {
		if a[i].Sign() == 0 {
			continue
		}
		for j := 0; j < k; j++ {
			if b[j].Sign() == 0 {
				continue
			}
			tmp[i+j].Add(tmp[i+j], t.Mul(a[i], b[j]))
		}
	}
	for i := 2*k - 2; i >= k; i-- {
		c := tmp[i].Mod(tmp[i], r.M)
		if c.Sign() == 0 {
			continue
		}
		for j := 0; j < k; j++ {
			tmp[i-k+j].Sub(tmp[i-k+j], t.Mul(c, r.F[j]))
		}
	}
	out := make(Elem, k)
	for i := 0; i < k; i++ {
		out[i] = tmp[i].Mod(tmp[i], r.M)
	}
	return out
}

// Pow returns base^e with square-and-multiply. e must be non-negative.
func (r *Ring) Pow(base Elem, e *big.Int) Elem {
	result := r.One()
	for i := e.BitLen() - 1; i >= 0; i-- {
		result = r.Mul(result, result)
		if e.Bit(i) == 1 {
			result = r.Mul(result, base)
		}
	}
	return result
}

// PowX returns x^e mod (F, M). Its coefficients c_j express the e-th term
// of the recurrence in terms of the k initial values: x_e = sum c_j x_j.
func (r *Ring) PowX(e *big.Int) Elem {
	return r.Pow(r.X(), e)
}

// Degree returns the degree of e, -1 for zero.
func (e Elem) Degree() int {
	for i := len(e) - 1; i >= 0; i-- {
		if e[i].Sign() != 0 {
			return i
		}
	}
	return -1
}

// Equal reports coefficient-wise equality.
func (e Elem) Equal(o Elem) bool {
	if len(e) != len(o) {
		return false
	}
	for i := range e {
		if e[i].Cmp(o[i]) != 0 {
			return false
		}
	}
	return true
}

// IsIrreducible runs the Ben-Or test on F. M must be prime.
func (r *Ring) IsIrreducible() bool {
	f := poly(r.F)
	x := poly{big.NewInt(0), big.NewInt(1)}
	xp := poly{big.NewInt(0), big.NewInt(1)}
	for i := 1; i <= r.K/2; i++ {
		xp = r.frobenius(xp)
		g, ok := polyGCD(polySub(xp, x, r.M), f, r.M)
		if !ok || len(g) > 1 {
			return false
		}
	}
	return true
}

// frobenius returns p^M mod F.
func (r *Ring) frobenius(p poly) poly {
	e := r.Zero()
	for i := 0; i < len(p) && i < r.K; i++ {
		e[i].Set(p[i])
	}
	return polyTrim(poly(r.Pow(e, r.M)), r.M)
}

// ConstTerm returns (-1)^k F[0], the product of the roots of F. For a
// recurrence polynomial this is (-1)^(k+1) a_k.
func (r *Ring) ConstTerm() *big.Int {
	v := new(big.Int).Set(r.F[0])
	if r.K%2 == 1 {
		v.Neg(v)
	}
	return v.Mod(v, r.M)
}

// IsPrimitive reports whether F is primitive over Z_M (M prime), using the
// conditions of Knuth (TAOCP 3.2.2):
//
//  1. (-1)^(k+1) a_k is a primitive root modulo M,
//  2. x^r mod (F, M) equals (-1)^(k+1) a_k, with r = (M^k-1)/(M-1),
//  3. x^(r/q) mod (F, M) has positive degree for each prime q dividing r, q < r.
//
// fm tests primitive roots modulo M and fr is the factorization of r; fr
// may be nil when k = 1.
func (r *Ring) IsPrimitive(fm *primes.PrimitiveInt, fr *primes.Factorization) bool {
	if !fm.IsPrimitiveElement(r.ConstTerm()) {
		return false
	}
	if r.K == 1 {
		return true
	}
	return r.IsPrimitive23(fr)
}

// IsPrimitive23 checks conditions 2 and 3 only.
func (r *Ring) IsPrimitive23(fr *primes.Factorization) bool {
	if r.K == 1 {
		return true
	}
	if fr == nil {
		return false
	}
	rr := primes.RatioR(r.M, r.K)
	if fr.N.Cmp(rr) != 0 {
		return false
	}
	want := r.Zero()
	want[0].Set(r.ConstTerm())
	if !r.PowX(rr).Equal(want) {
		return false
	}
	for _, e := range fr.InvFactors {
		if e.Cmp(big.NewInt(1)) == 0 {
			continue
		}
		if r.PowX(e).Degree() < 1 {
			return false
		}
	}
	return true
}

// ---------------- Polynomial helpers ----------------

type poly []*big.Int

func polyTrim(p poly, m *big.Int) poly {
	idx := len(p) - 1
	for idx > 0 && new(big.Int).Mod(p[idx], m).Sign() == 0 {
		idx--
	}
	if idx < 0 {
		return poly{new(big.Int)}
	}
	out := make(poly, idx+1)
	for i := 0; i <= idx; i++ {
		out[i] = new(big.Int).Mod(p[i], m)
	}
	return out
}

func polyIsZero(p poly) bool {
	return len(p) == 1 && p[0].Sign() == 0
}

func polySub(a, b poly, m *big.Int) poly {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(poly, n)
	for i := 0; i < n; i++ {
		out[i] = new(big.Int)
		if i < len(a) {
			out[i].Add(out[i], a[i])
		}
		if i < len(b) {
			out[i].Sub(out[i], b[i])
		}
	}
	return polyTrim(out, m)
}

// polyRem returns a mod b over Z_m; ok is false when the leading
// coefficient of b is not invertible.
func polyRem(a, b poly, m *big.Int) (poly, bool) {
	A := polyTrim(a, m)
	B := polyTrim(b, m)
	if len(A) < len(B) {
		return A, true
	}
	inv := new(big.Int).ModInverse(B[len(B)-1], m)
	if inv == nil {
		return nil, false
	}
	t := new(big.Int)
	for i := len(A) - 1; i >= len(B)-1; i-- {
		c := new(big.Int).Mul(A[i], inv)
		c.Mod(c, m)
		if c.Sign() == 0 {
			continue
		}
		off := i - (len(B) - 1)
		for j := range B {
			A[off+j].Sub(A[off+j], t.Mul(c, B[j]))
			A[off+j].Mod(A[off+j], m)
		}
	}
	if len(B) == 1 {
		return poly{new(big.Int)}, true
	}
	return polyTrim(A[:len(B)-1], m), true
}

func polyGCD(a, b poly, m *big.Int) (poly, bool) {
	A := polyTrim(a, m)
	B := polyTrim(b, m)
	for !polyIsZero(B) {
		r, ok := polyRem(A, B, m)
		if !ok {
			return nil, false
		}
		A, B = B, r
	}
	return A, true
}
