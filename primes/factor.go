package primes

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrIncomplete is returned when a composite cofactor could not be split
// within the iteration budget.
var ErrIncomplete = errors.New("primes: factorization incomplete")

// Factor is one prime power p^Mult of a factorization.
type Factor struct {
	P      *big.Int
	Mult   int
	Status PrimeType
}

// Factorization holds N = prod P^Mult together with the inverse factors
// N/P used by primitivity tests.
type Factorization struct {
	N          *big.Int
	Factors    []Factor
	InvFactors []*big.Int
}

// NewFactorization returns an empty factorization of n.
func NewFactorization(n *big.Int) *Factorization {
	return &Factorization{N: new(big.Int).Set(n)}
}

// Add appends the factor p^mult.
func (f *Factorization) Add(p *big.Int, mult int, st PrimeType) {
	f.Factors = append(f.Factors, Factor{P: new(big.Int).Set(p), Mult: mult, Status: st})
}

// Unique sorts the factors and merges equal primes.
func (f *Factorization) Unique() {
	sort.Slice(f.Factors, func(i, j int) bool { return f.Factors[i].P.Cmp(f.Factors[j].P) < 0 })
	out := f.Factors[:0]
	for _, fc := range f.Factors {
		if n := len(out); n > 0 && out[n-1].P.Cmp(fc.P) == 0 {
			out[n-1].Mult += fc.Mult
			out[n-1].Status = Weaker(out[n-1].Status, fc.Status)
			continue
		}
		out = append(out, fc)
	}
	f.Factors = out
}

// CheckProduct reports whether the factors multiply back to N.
func (f *Factorization) CheckProduct() bool {
	prod := big.NewInt(1)
	pw := new(big.Int)
	for _, fc := range f.Factors {
		pw.Exp(fc.P, big.NewInt(int64(fc.Mult)), nil)
		prod.Mul(prod, pw)
	}
	return prod.Cmp(f.N) == 0
}

// Status is the weakest status among the factors; an empty factorization of
// 1 is Prime by convention.
func (f *Factorization) Status() PrimeType {
	st := Prime
	for _, fc := range f.Factors {
		st = Weaker(st, fc.Status)
	}
	return st
}

// Primes returns the distinct primes of the factorization.
func (f *Factorization) Primes() []*big.Int {
	out := make([]*big.Int, 0, len(f.Factors))
	for _, fc := range f.Factors {
		out = append(out, fc.P)
	}
	return out
}

// CalcInvFactors fills InvFactors with N/p for each distinct prime p,
// sorted in increasing order. N itself (p = 1) is never included.
func (f *Factorization) CalcInvFactors() {
	f.InvFactors = f.InvFactors[:0]
	for _, fc := range f.Factors {
		if fc.P.Cmp(big.NewInt(1)) <= 0 {
			continue
		}
		f.InvFactors = append(f.InvFactors, new(big.Int).Quo(f.N, fc.P))
	}
	sort.Slice(f.InvFactors, func(i, j int) bool { return f.InvFactors[i].Cmp(f.InvFactors[j]) < 0 })
}

// String renders the factorization in the text format read by
// ParseFactorization.
func (f *Factorization) String() string {
	var sb strings.Builder
	sb.WriteString(f.N.String())
	sb.WriteByte('\n')
	for _, fc := range f.Factors {
		fmt.Fprintf(&sb, "%s %d %s\n", fc.P.String(), fc.Mult, fc.Status.Code())
	}
	return sb.String()
}

// ParseFactorization reads a factorization: the number on the first line,
// then one "factor multiplicity status" triple per line. Blank lines and
// lines starting with '#' are skipped.
func ParseFactorization(r io.Reader) (*Factorization, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var f *Factorization
	line := 0
	for sc.Scan() {
		line++
		txt := strings.TrimSpace(sc.Text())
		if txt == "" || strings.HasPrefix(txt, "#") {
			continue
		}
		fields := strings.Fields(txt)
		if f == nil {
			n, ok := new(big.Int).SetString(fields[0], 10)
			if !ok {
				return nil, fmt.Errorf("primes: line %d: bad number %q", line, fields[0])
			}
			f = NewFactorization(n)
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("primes: line %d: want factor and multiplicity", line)
		}
		p, ok := new(big.Int).SetString(fields[0], 10)
		if !ok {
			return nil, fmt.Errorf("primes: line %d: bad factor %q", line, fields[0])
		}
		mult, err := strconv.Atoi(fields[1])
		if err != nil || mult <= 0 {
			return nil, fmt.Errorf("primes: line %d: bad multiplicity %q", line, fields[1])
		}
		st := Unknown
		if len(fields) > 2 {
			if st, err = ParsePrimeType(fields[2]); err != nil {
				return nil, fmt.Errorf("primes: line %d: %w", line, err)
			}
		}
		f.Add(p, mult, st)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("primes: empty factorization")
	}
	f.Unique()
	if !f.CheckProduct() {
		return nil, fmt.Errorf("primes: factors do not multiply to %s", f.N)
	}
	f.CalcInvFactors()
	return f, nil
}

// ReadFactorizationFile parses the factorization stored at path.
func ReadFactorizationFile(path string) (*Factorization, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := ParseFactorization(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// rhoBudget bounds the number of Pollard-Brent iterations per split attempt.
var rhoBudget = 1 << 22

// Factorize splits n > 0 into prime powers using trial division by the
// primes below 2^16 then Pollard-Brent rho. If a cofactor resists, it is
// kept with status Composite and ErrIncomplete is returned along with the
// partial result.
func Factorize(ctx context.Context, n *big.Int) (*Factorization, error) {
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("primes: cannot factor %s", n)
	}
	f := NewFactorization(n)
	rest := new(big.Int).Set(n)
	q, r := new(big.Int), new(big.Int)
	w := new(big.Int)
	for _, p := range smallPrimes {
		if rest.Cmp(big.NewInt(1)) == 0 {
			break
		}
		w.SetUint64(p)
		mult := 0
		for {
			q.QuoRem(rest, w, r)
			if r.Sign() != 0 {
				break
			}
			rest.Set(q)
			mult++
		}
		if mult > 0 {
			f.Add(w, mult, Prime)
		}
	}
	var incomplete bool
	if rest.Cmp(big.NewInt(1)) > 0 {
		stack := []*big.Int{rest}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			x := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if st := IsPrime(x, 0); st != Composite {
				f.Add(x, 1, st)
				continue
			}
			if s := new(big.Int).Sqrt(x); new(big.Int).Mul(s, s).Cmp(x) == 0 {
				stack = append(stack, s, new(big.Int).Set(s))
				continue
			}
			d, err := pollardBrent(ctx, x)
			if err != nil {
				return nil, err
			}
			if d == nil {
				f.Add(x, 1, Composite)
				incomplete = true
				continue
			}
			stack = append(stack, d, new(big.Int).Quo(x, d))
		}
	}
	f.Unique()
	f.CalcInvFactors()
	if incomplete {
		return f, ErrIncomplete
	}
	return f, nil
}

// pollardBrent returns a non-trivial divisor of the odd composite n, or nil
// when every tried polynomial x^2+c exhausts its budget.
func pollardBrent(ctx context.Context, n *big.Int) (*big.Int, error) {
	one := big.NewInt(1)
	for c := int64(1); c <= 8; c++ {
		cc := big.NewInt(c)
		step := func(x *big.Int) {
			x.Mul(x, x)
			x.Add(x, cc)
			x.Mod(x, n)
		}
		y := big.NewInt(2)
		x := new(big.Int)
		ys := new(big.Int)
		g := big.NewInt(1)
		prod := big.NewInt(1)
		diff := new(big.Int)
		const block = 128
		steps := 0
		for rlen := 1; g.Cmp(one) == 0; rlen *= 2 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if steps > rhoBudget {
				break
			}
			x.Set(y)
			for i := 0; i < rlen; i++ {
				step(y)
			}
			for k := 0; k < rlen && g.Cmp(one) == 0; k += block {
				ys.Set(y)
				lim := block
				if rlen-k < lim {
					lim = rlen - k
				}
				for i := 0; i < lim; i++ {
					step(y)
					diff.Sub(x, y)
					diff.Abs(diff)
					prod.Mul(prod, diff)
					prod.Mod(prod, n)
				}
				g.GCD(nil, nil, prod, n)
				steps += lim
			}
			steps += rlen
		}
		if g.Cmp(n) == 0 {
			// The block overshot: replay it one step at a time.
			g.SetInt64(1)
			for i := 0; i < block && g.Cmp(one) == 0; i++ {
				step(ys)
				diff.Sub(x, ys)
				diff.Abs(diff)
				g.GCD(nil, nil, diff, n)
			}
		}
		if g.Cmp(one) > 0 && g.Cmp(n) < 0 {
			return g, nil
		}
	}
	return nil, nil
}
