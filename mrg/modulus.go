// Package mrg describes linear recurrence generators: LCG, MRG, matrix MRG,
// multiply-with-carry and combined MRG, and decides whether they reach their
// maximal period.
package mrg

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"latmrg/primes"
)

// Modulus is m, remembering the representation m = B^E + C when known.
type Modulus struct {
	M *big.Int
	B *big.Int
	E int
	C *big.Int
}

// NewModulus wraps m > 1.
func NewModulus(m *big.Int) (*Modulus, error) {
	if m == nil || m.Cmp(big.NewInt(1)) <= 0 {
		return nil, fmt.Errorf("mrg: modulus must exceed 1, got %v", m)
	}
	return &Modulus{M: new(big.Int).Set(m)}, nil
}

// NewModulusBEC returns m = b^e + c.
func NewModulusBEC(b *big.Int, e int, c *big.Int) (*Modulus, error) {
	if b.Cmp(big.NewInt(2)) < 0 || e < 1 {
		return nil, fmt.Errorf("mrg: invalid base %s or exponent %d", b, e)
	}
	m := new(big.Int).Exp(b, big.NewInt(int64(e)), nil)
	m.Add(m, c)
	md, err := NewModulus(m)
	if err != nil {
		return nil, err
	}
	md.B = new(big.Int).Set(b)
	md.E = e
	md.C = new(big.Int).Set(c)
	return md, nil
}

// ParseModulus accepts the forms understood by ParseInt. A power form keeps
// its base, exponent and offset.
func ParseModulus(s string) (*Modulus, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if b, e, c, ok := splitPower(s); ok {
		return NewModulusBEC(b, e, c)
	}
	m, err := ParseInt(s)
	if err != nil {
		return nil, err
	}
	return NewModulus(m)
}

// ParseInt reads a signed integer written in decimal, in 0x-prefixed hex,
// or as b^e+c / b^e-c / b^e.
func ParseInt(s string) (*big.Int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return nil, errors.New("mrg: empty integer")
	}
	neg := false
	body := s
	if body[0] == '-' || body[0] == '+' {
		neg = body[0] == '-'
		body = body[1:]
	}
	var v *big.Int
	if b, e, c, ok := splitPower(body); ok {
		v = new(big.Int).Exp(b, big.NewInt(int64(e)), nil)
		v.Add(v, c)
	} else if len(body) > 2 && (body[:2] == "0x" || body[:2] == "0X") {
		x, ok := new(big.Int).SetString(body[2:], 16)
		if !ok {
			return nil, fmt.Errorf("mrg: invalid hex integer %q", s)
		}
		v = x
	} else {
		x, ok := new(big.Int).SetString(body, 10)
		if !ok {
			return nil, fmt.Errorf("mrg: invalid integer %q", s)
		}
		v = x
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}

// splitPower parses "b^e", "b^e+c" and "b^e-c".
func splitPower(s string) (b *big.Int, e int, c *big.Int, ok bool) {
	i := strings.IndexByte(s, '^')
	if i <= 0 {
		return nil, 0, nil, false
	}
	b, ok = new(big.Int).SetString(s[:i], 10)
	if !ok {
		return nil, 0, nil, false
	}
	rest := s[i+1:]
	j := strings.IndexAny(rest, "+-")
	expStr, offStr := rest, ""
	if j >= 0 {
		expStr, offStr = rest[:j], rest[j:]
	}
	e, err := strconv.Atoi(expStr)
	if err != nil || e < 0 {
		return nil, 0, nil, false
	}
	c = new(big.Int)
	if offStr != "" {
		if _, ok := c.SetString(strings.TrimPrefix(offStr, "+"), 10); !ok {
			return nil, 0, nil, false
		}
	}
	return b, e, c, true
}

// String prints the power form when known.
func (md *Modulus) String() string {
	if md.B == nil {
		return md.M.String()
	}
	switch md.C.Sign() {
	case 0:
		return fmt.Sprintf("%s^%d", md.B, md.E)
	case 1:
		return fmt.Sprintf("%s^%d+%s", md.B, md.E, md.C)
	default:
		return fmt.Sprintf("%s^%d-%s", md.B, md.E, new(big.Int).Neg(md.C))
	}
}

// IsPrimePower reports whether m = B^E with B prime.
func (md *Modulus) IsPrimePower() bool {
	return md.B != nil && md.C.Sign() == 0 && primes.IsPrime(md.B, 0) != primes.Composite
}

// PerMaxPowPrime reports whether the multiplicative LCG x_n = a x_(n-1) mod
// p^e reaches its maximal period. For p = 2 (e >= 3) that means a = 3 or 5
// mod 8; for odd p, a must be a primitive root modulo p with
// a^(p-1) != 1 mod p^2.
func (md *Modulus) PerMaxPowPrime(ctx context.Context, a *big.Int) (bool, error) {
	if !md.IsPrimePower() {
		return false, fmt.Errorf("mrg: %s is not a prime power", md)
	}
	p := md.B
	if p.Cmp(big.NewInt(2)) == 0 {
		r := new(big.Int).Mod(a, big.NewInt(8)).Int64()
		return r == 3 || r == 5, nil
	}
	pi, err := primes.NewPrimitiveInt(ctx, p)
	if err != nil {
		return false, err
	}
	if !pi.IsPrimitiveElement(a) {
		return false, nil
	}
	if md.E == 1 {
		return true, nil
	}
	p2 := new(big.Int).Mul(p, p)
	x := new(big.Int).Exp(a, new(big.Int).Sub(p, big.NewInt(1)), p2)
	return x.Cmp(big.NewInt(1)) != 0, nil
}

// PowPrimePeriod is the maximal period of a multiplicative LCG modulo p^e:
// 2^(e-2) for p = 2, (p-1) p^(e-1) otherwise.
func (md *Modulus) PowPrimePeriod() *big.Int {
	if md.B.Cmp(big.NewInt(2)) == 0 {
		if md.E < 3 {
			return big.NewInt(1)
		}
		return new(big.Int).Lsh(big.NewInt(1), uint(md.E-2))
	}
	out := new(big.Int).Exp(md.B, big.NewInt(int64(md.E-1)), nil)
	return out.Mul(out, new(big.Int).Sub(md.B, big.NewInt(1)))
}
