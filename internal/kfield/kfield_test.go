package kfield

import (
	"context"
	"math/big"
	"testing"

	"latmrg/primes"
)

// statePeriod returns the period of x_n = a1 x_{n-1} + a2 x_{n-2} mod m
// started from the impulse state (0, 1), or 0 if the state never recurs.
func statePeriod(m, a1, a2 int64) int64 {
	x0, x1 := int64(0), int64(1)
	for n := int64(1); n <= m*m; n++ {
		x0, x1 = x1, (a1*x1+a2*x0)%m
		if x0 == 0 && x1 == 1 {
			return n
		}
	}
	return 0
}

func TestIsPrimitiveMatchesBruteForce(t *testing.T) {
	const m = 7
	ctx := context.Background()
	fm, err := primes.NewPrimitiveInt(ctx, big.NewInt(m))
	if err != nil {
		t.Fatal(err)
	}
	fr, err := primes.Factorize(ctx, primes.RatioR(big.NewInt(m), 2))
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for a1 := int64(0); a1 < m; a1++ {
		for a2 := int64(1); a2 < m; a2++ {
			r, err := FromRecurrence(big.NewInt(m), []*big.Int{big.NewInt(a1), big.NewInt(a2)})
			if err != nil {
				t.Fatal(err)
			}
			want := statePeriod(m, a1, a2) == m*m-1
			if got := r.IsPrimitive(fm, fr); got != want {
				t.Fatalf("a=(%d,%d): IsPrimitive=%v want %v", a1, a2, got, want)
			}
			if want {
				count++
			}
		}
	}
	// phi(48)/2 primitive polynomials of degree 2 over F_7.
	if count != 8 {
		t.Fatalf("found %d primitive polynomials, want 8", count)
	}
}

func TestIsIrreducibleDegreeTwo(t *testing.T) {
	const m = 5
	for c1 := int64(0); c1 < m; c1++ {
		for c0 := int64(0); c0 < m; c0++ {
			r, err := New(big.NewInt(m), []*big.Int{big.NewInt(c0), big.NewInt(c1), big.NewInt(1)})
			if err != nil {
				t.Fatal(err)
			}
			hasRoot := false
			for x := int64(0); x < m; x++ {
				if (x*x+c1*x+c0)%m == 0 {
					hasRoot = true
				}
			}
			if r.IsIrreducible() == hasRoot {
				t.Fatalf("x^2+%dx+%d: irreducible=%v but hasRoot=%v", c1, c0, !hasRoot, hasRoot)
			}
		}
	}
}

func TestPowXJumpsAhead(t *testing.T) {
	m := big.NewInt(2147483647)
	a := []*big.Int{big.NewInt(1071064), big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(2113664)}
	r, err := FromRecurrence(m, a)
	if err != nil {
		t.Fatal(err)
	}
	state := []int64{3, 1, 4, 1, 5, 9, 2}
	seq := append([]int64(nil), state...)
	for n := len(state); n < 60; n++ {
		v := new(big.Int)
		for i := 1; i <= len(a); i++ {
			v.Add(v, new(big.Int).Mul(a[i-1], big.NewInt(seq[n-i])))
		}
		seq = append(seq, v.Mod(v, m).Int64())
	}
	for _, e := range []int64{0, 6, 7, 31, 59} {
		c := r.PowX(big.NewInt(e))
		v := new(big.Int)
		for j := range state {
			v.Add(v, new(big.Int).Mul(c[j], big.NewInt(state[j])))
		}
		if v.Mod(v, m).Int64() != seq[e] {
			t.Fatalf("x_%d: got %s want %d", e, v, seq[e])
		}
	}
}

func TestNewRejectsNonInvertibleLead(t *testing.T) {
	if _, err := New(big.NewInt(10), []*big.Int{big.NewInt(1), big.NewInt(2)}); err == nil {
		t.Fatalf("expected error for leading coefficient 2 mod 10")
	}
}

func TestPrimitiveImpliesIrreducible(t *testing.T) {
	const m = 5
	ctx := context.Background()
	fm, err := primes.NewPrimitiveInt(ctx, big.NewInt(m))
	if err != nil {
		t.Fatal(err)
	}
	fr, err := primes.Factorize(ctx, primes.RatioR(big.NewInt(m), 3))
	if err != nil {
		t.Fatal(err)
	}
	primitive, irreducible := 0, 0
	for a1 := int64(0); a1 < m; a1++ {
		for a2 := int64(0); a2 < m; a2++ {
			for a3 := int64(1); a3 < m; a3++ {
				r, err := FromRecurrence(big.NewInt(m), []*big.Int{big.NewInt(a1), big.NewInt(a2), big.NewInt(a3)})
				if err != nil {
					t.Fatal(err)
				}
				irr := r.IsIrreducible()
				if irr {
					irreducible++
				}
				if r.IsPrimitive(fm, fr) {
					primitive++
					if !irr {
						t.Fatalf("a=(%d,%d,%d): primitive but reducible", a1, a2, a3)
					}
				}
			}
		}
	}
	// (5^3-5)/3 monic irreducible cubics, phi(124)/3 of them primitive.
	if irreducible != 40 || primitive != 20 {
		t.Fatalf("found %d irreducible and %d primitive cubics, want 40 and 20", irreducible, primitive)
	}
}
