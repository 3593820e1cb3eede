package primes

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/tuneinsight/lattigo/v4/ring"
)

// ErrNotPrime is returned when a primitive-root test is asked for a modulus
// that is not prime.
var ErrNotPrime = errors.New("primes: modulus is not prime")

// fastModBits bounds moduli handled by the 64-bit exponentiation path.
const fastModBits = 62

// PrimitiveInt tests primitive roots modulo a prime P. F is the
// factorization of P-1 with its inverse factors computed.
type PrimitiveInt struct {
	P *big.Int
	F *Factorization
}

// NewPrimitiveInt factors p-1 and returns the tester.
func NewPrimitiveInt(ctx context.Context, p *big.Int) (*PrimitiveInt, error) {
	if IsPrime(p, 0) == Composite {
		return nil, fmt.Errorf("%w: %s", ErrNotPrime, p)
	}
	f, err := Factorize(ctx, new(big.Int).Sub(p, big.NewInt(1)))
	if err != nil {
		return nil, fmt.Errorf("factor %s-1: %w", p, err)
	}
	return &PrimitiveInt{P: new(big.Int).Set(p), F: f}, nil
}

// NewPrimitiveIntFromFactorization uses a known factorization of p-1.
func NewPrimitiveIntFromFactorization(p *big.Int, f *Factorization) (*PrimitiveInt, error) {
	want := new(big.Int).Sub(p, big.NewInt(1))
	if f.N.Cmp(want) != 0 {
		return nil, fmt.Errorf("primes: factorization is of %s, want %s", f.N, want)
	}
	if len(f.InvFactors) == 0 && len(f.Factors) > 0 {
		f.CalcInvFactors()
	}
	return &PrimitiveInt{P: new(big.Int).Set(p), F: f}, nil
}

// IsPrimitiveElement reports whether a generates the multiplicative group
// modulo P, that is a^((P-1)/q) != 1 for every prime q dividing P-1.
func (pi *PrimitiveInt) IsPrimitiveElement(a *big.Int) bool {
	x := new(big.Int).Mod(a, pi.P)
	if x.Sign() == 0 {
		return false
	}
	if pi.P.Cmp(big.NewInt(2)) == 0 {
		return true
	}
	if pi.P.BitLen() <= fastModBits {
		p := pi.P.Uint64()
		xv := x.Uint64()
		for _, e := range pi.F.InvFactors {
			if ring.ModExp(xv, e.Uint64(), p) == 1 {
				return false
			}
		}
		return true
	}
	y := new(big.Int)
	for _, e := range pi.F.InvFactors {
		if y.Exp(x, e, pi.P).Cmp(big.NewInt(1)) == 0 {
			return false
		}
	}
	return true
}

// IsPrimitiveElementK tests (-1)^(k+1) a_k where a holds the coefficients
// a_1..a_k of a recurrence of order k = len(a).
func (pi *PrimitiveInt) IsPrimitiveElementK(a []*big.Int) bool {
	k := len(a)
	if k == 0 {
		return false
	}
	v := new(big.Int).Set(a[k-1])
	if k%2 == 0 {
		v.Neg(v)
	}
	return pi.IsPrimitiveElement(v)
}
