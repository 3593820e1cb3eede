package primes

import (
	"context"
	"errors"
	"math/big"
)

// FinderOptions drives FindPrimes.
type FinderOptions struct {
	// E is the exponent: candidates lie near 2^E.
	E int
	// C1 and C2 bound the search to 2^E+C1 <= m <= 2^E+C2 when HasRange is
	// set. Otherwise the walk starts at 2^E-1 and goes down.
	C1, C2   int64
	HasRange bool
	// K > 1 additionally requires r = (m^K-1)/(m-1) to be prime.
	K int
	// Safe requires (m-1)/2 to be prime.
	Safe bool
	// Count is the number of primes wanted.
	Count int
	// Factor attaches the factorization of m-1 to each result.
	Factor bool
	Trials int
}

// Found is one prime returned by FindPrimes.
type Found struct {
	M      *big.Int
	Diff   *big.Int // M - 2^E
	Status PrimeType
	RStat  PrimeType // status of r when K > 1
	M1     *Factorization
}

// FindPrimes returns up to opts.Count primes closest to 2^E from below (or
// inside the requested range, largest first).
func FindPrimes(ctx context.Context, opts FinderOptions) ([]Found, error) {
	if opts.E < 2 {
		return nil, errors.New("primes: exponent must be at least 2")
	}
	if opts.Count <= 0 {
		opts.Count = 1
	}
	base := new(big.Int).Lsh(big.NewInt(1), uint(opts.E))
	m := new(big.Int)
	low := big.NewInt(3)
	if opts.HasRange {
		if opts.C1 > opts.C2 {
			return nil, errors.New("primes: empty range")
		}
		m.Add(base, big.NewInt(opts.C2))
		low.Add(base, big.NewInt(opts.C1))
	} else {
		m.Sub(base, big.NewInt(1))
	}
	if m.Bit(0) == 0 {
		m.Sub(m, big.NewInt(1))
	}
	var out []Found
	five := big.NewInt(5)
	two := big.NewInt(2)
	one := big.NewInt(1)
	r := new(big.Int)
	for ; m.Cmp(low) >= 0 && len(out) < opts.Count; m.Sub(m, two) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if r.Mod(m, five).Sign() == 0 && m.Cmp(five) != 0 {
			continue
		}
		if opts.Safe && m.Bit(1) == 0 {
			// m = 1 mod 4 makes (m-1)/2 even.
			continue
		}
		st := IsPrime(m, opts.Trials)
		if st == Composite {
			continue
		}
		if opts.Safe {
			h := new(big.Int).Rsh(m, 1)
			hs := IsPrime(h, opts.Trials)
			if hs == Composite {
				continue
			}
			st = Weaker(st, hs)
		}
		f := Found{M: new(big.Int).Set(m), Diff: new(big.Int).Sub(m, base), Status: st, RStat: Prime}
		if opts.K > 1 {
			rr := RatioR(m, opts.K)
			f.RStat = IsPrime(rr, opts.Trials)
			if f.RStat == Composite {
				continue
			}
		}
		if opts.Factor {
			fac, err := Factorize(ctx, new(big.Int).Sub(m, one))
			if err != nil && !errors.Is(err, ErrIncomplete) {
				return out, err
			}
			f.M1 = fac
		}
		out = append(out, f)
	}
	return out, nil
}

// RatioR returns (m^k-1)/(m-1).
func RatioR(m *big.Int, k int) *big.Int {
	one := big.NewInt(1)
	num := new(big.Int).Exp(m, big.NewInt(int64(k)), nil)
	num.Sub(num, one)
	den := new(big.Int).Sub(m, one)
	return num.Quo(num, den)
}
