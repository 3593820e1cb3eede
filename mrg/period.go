package mrg

import (
	"context"
	"fmt"
	"math/big"

	"latmrg/primes"
)

// DecompOptions says where the factorizations of m-1 and r = (m^k-1)/(m-1)
// come from. Files use the format of primes.ParseFactorization. RPrime
// declares r prime without testing it.
type DecompOptions struct {
	M1File string
	RFile  string
	RPrime bool
}

// Factorizations returns the cached factorizations of m-1 (as a primitive
// root tester) and of r; either may be nil before Decompose.
func (c *Component) Factorizations() (*primes.PrimitiveInt, *primes.Factorization) {
	return c.fm, c.fr
}

// SetFactorizations shares factorizations computed for another component
// with the same modulus and order.
func (c *Component) SetFactorizations(fm *primes.PrimitiveInt, fr *primes.Factorization) {
	c.fm, c.fr = fm, fr
}

// Decompose computes or reads the factorizations needed by MaxPeriod. The
// modulus must be prime.
func (c *Component) Decompose(ctx context.Context, opts DecompOptions) error {
	m := c.Mod.M
	if c.fm == nil {
		if opts.M1File != "" {
			f, err := primes.ReadFactorizationFile(opts.M1File)
			if err != nil {
				return err
			}
			fm, err := primes.NewPrimitiveIntFromFactorization(m, f)
			if err != nil {
				return err
			}
			c.fm = fm
		} else {
			fm, err := primes.NewPrimitiveInt(ctx, m)
			if err != nil {
				return err
			}
			c.fm = fm
		}
	}
	if c.K == 1 || c.fr != nil {
		return nil
	}
	r := primes.RatioR(m, c.K)
	switch {
	case opts.RPrime:
		f := primes.NewFactorization(r)
		f.Add(r, 1, primes.Prime)
		f.CalcInvFactors()
		c.fr = f
	case opts.RFile != "":
		f, err := primes.ReadFactorizationFile(opts.RFile)
		if err != nil {
			return err
		}
		if f.N.Cmp(r) != 0 {
			return fmt.Errorf("%s: factorization is of %s, want r = %s", opts.RFile, f.N, r)
		}
		c.fr = f
	default:
		f, err := primes.Factorize(ctx, r)
		if err != nil {
			return fmt.Errorf("factor r: %w", err)
		}
		c.fr = f
	}
	return nil
}

// MaxPeriod reports whether the generator reaches PeriodLength. Prime
// moduli use the primitivity of the characteristic polynomial, prime powers
// the multiplicative LCG criterion and mixed LCGs the Hull-Dobell theorem.
// A combination has maximal period when each part does.
func (c *Component) MaxPeriod(ctx context.Context, opts DecompOptions) (bool, error) {
	if c.Kind == Combo {
		for i, p := range c.Parts {
			ok, err := p.MaxPeriod(ctx, DecompOptions{})
			if err != nil {
				return false, fmt.Errorf("component %d: %w", i, err)
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	if c.C != nil && c.C.Sign() != 0 {
		return c.hullDobell(ctx)
	}
	if primes.IsPrime(c.Mod.M, 0) != primes.Composite {
		if err := c.Decompose(ctx, opts); err != nil {
			return false, err
		}
		return c.ring.IsPrimitive(c.fm, c.fr), nil
	}
	if c.K == 1 && c.Mod.IsPrimePower() {
		return c.Mod.PerMaxPowPrime(ctx, c.A[0])
	}
	return false, fmt.Errorf("%w: %s", ErrModulus, c.Mod)
}

// hullDobell: gcd(c, m) = 1, a-1 divisible by every prime of m, and by 4
// when 4 divides m.
func (c *Component) hullDobell(ctx context.Context) (bool, error) {
	m := c.Mod.M
	if new(big.Int).GCD(nil, nil, c.C, m).Cmp(big.NewInt(1)) != 0 {
		return false, nil
	}
	f, err := primes.Factorize(ctx, m)
	if err != nil {
		return false, err
	}
	am1 := new(big.Int).Sub(c.A[0], big.NewInt(1))
	r := new(big.Int)
	for _, p := range f.Primes() {
		if r.Mod(am1, p).Sign() != 0 {
			return false, nil
		}
	}
	four := big.NewInt(4)
	if r.Mod(m, four).Sign() == 0 && r.Mod(am1, four).Sign() != 0 {
		return false, nil
	}
	return true, nil
}
