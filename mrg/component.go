package mrg

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"latmrg/internal/kfield"
	"latmrg/primes"
)

// Kind identifies the generator family.
type Kind int

const (
	LCG Kind = iota
	MRG
	MMRG
	MWC
	Combo
)

var kindNames = map[Kind]string{LCG: "lcg", MRG: "mrg", MMRG: "mmrg", MWC: "mwc", Combo: "combo"}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("mrg: unknown generator kind %q", s)
}

var (
	// ErrOrder is returned when the last multiplier vanishes modulo m.
	ErrOrder = errors.New("mrg: last multiplier is zero modulo m")
	// ErrModulus is returned when no period criterion applies to the modulus.
	ErrModulus = errors.New("mrg: no maximal-period criterion for this modulus")
)

// Component is one linear recurrence x_n = a_1 x_(n-1) + ... + a_k x_(n-k) + c mod m,
// or X_n = A X_(n-1) mod m for a matrix MRG. Multipliers are kept reduced
// to [0, m).
type Component struct {
	Kind Kind
	Mod  *Modulus
	K    int
	A    []*big.Int
	C    *big.Int

	Matrix Matrix

	MWCBase   *big.Int
	MWCCoeffs []*big.Int

	Parts []*Component

	ring *kfield.Ring
	fm   *primes.PrimitiveInt
	fr   *primes.Factorization
}

func reduceAll(v []*big.Int, m *big.Int) []*big.Int {
	out := make([]*big.Int, len(v))
	for i, x := range v {
		out[i] = new(big.Int).Mod(x, m)
	}
	return out
}

// NewMRG returns the MRG with multipliers a_1..a_k.
func NewMRG(mod *Modulus, a []*big.Int) (*Component, error) {
	if len(a) == 0 {
		return nil, errors.New("mrg: no multipliers")
	}
	c := &Component{Kind: MRG, Mod: mod, K: len(a), A: reduceAll(a, mod.M)}
	if len(a) == 1 {
		c.Kind = LCG
	}
	if c.A[c.K-1].Sign() == 0 {
		return nil, ErrOrder
	}
	ring, err := kfield.FromRecurrence(mod.M, c.A)
	if err != nil {
		return nil, err
	}
	c.ring = ring
	return c, nil
}

// NewLCG returns x_n = a x_(n-1) + inc mod m; inc may be nil.
func NewLCG(mod *Modulus, a, inc *big.Int) (*Component, error) {
	c, err := NewMRG(mod, []*big.Int{a})
	if err != nil {
		return nil, err
	}
	if inc != nil && inc.Sign() != 0 {
		c.C = new(big.Int).Mod(inc, mod.M)
	}
	return c, nil
}

// NewMMRG returns the matrix MRG X_n = A X_(n-1) mod m. The scalar
// multipliers are those of the characteristic polynomial of A, which every
// coordinate sequence satisfies.
func NewMMRG(mod *Modulus, a Matrix) (*Component, error) {
	k := len(a)
	if k == 0 {
		return nil, errors.New("mrg: empty matrix")
	}
	mat := make(Matrix, k)
	for i := range a {
		if len(a[i]) != k {
			return nil, fmt.Errorf("mrg: matrix row %d has %d entries, want %d", i, len(a[i]), k)
		}
		mat[i] = reduceAll(a[i], mod.M)
	}
	cp := CharPoly(mat, mod.M)
	coeffs := make([]*big.Int, k)
	for i := 1; i <= k; i++ {
		coeffs[i-1] = new(big.Int).Neg(cp[k-i])
		coeffs[i-1].Mod(coeffs[i-1], mod.M)
	}
	ring, err := kfield.New(mod.M, cp)
	if err != nil {
		return nil, err
	}
	return &Component{Kind: MMRG, Mod: mod, K: k, A: coeffs, Matrix: mat, ring: ring}, nil
}

// NewMWC returns the LCG equivalent to the multiply-with-carry generator of
// base b and coefficients e_0..e_r: m = sum e_l b^l and a = b^(-1) mod m.
func NewMWC(b *big.Int, e []*big.Int) (*Component, error) {
	m := new(big.Int)
	pw := big.NewInt(1)
	for _, x := range e {
		m.Add(m, new(big.Int).Mul(x, pw))
		pw.Mul(pw, b)
	}
	mod, err := NewModulus(m)
	if err != nil {
		return nil, fmt.Errorf("mwc: %w", err)
	}
	a := new(big.Int).ModInverse(b, m)
	if a == nil {
		return nil, fmt.Errorf("mwc: base %s not invertible modulo %s", b, m)
	}
	c, err := NewMRG(mod, []*big.Int{a})
	if err != nil {
		return nil, err
	}
	c.Kind = MWC
	c.MWCBase = new(big.Int).Set(b)
	c.MWCCoeffs = make([]*big.Int, len(e))
	for i, x := range e {
		c.MWCCoeffs[i] = new(big.Int).Set(x)
	}
	return c, nil
}

// LagMode selects one of the add-with-carry and subtract-with-borrow
// variants, given by the modulus of their equivalent LCG.
type LagMode int

const (
	AWC   LagMode = iota // m = b^r + b^s - 1
	AWCc                 // m = b^r + b^s + 1
	SWBI                 // m = b^r - b^s + 1
	SWBII                // m = b^r - b^s - 1
)

var lagModeNames = map[LagMode]string{AWC: "awc", AWCc: "awc-c", SWBI: "swb-i", SWBII: "swb-ii"}

func (l LagMode) String() string { return lagModeNames[l] }

// ParseLagMode maps awc, awc-c, swb-i and swb-ii to a LagMode.
func ParseLagMode(s string) (LagMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range lagModeNames {
		if name == s {
			return l, nil
		}
	}
	return AWC, fmt.Errorf("mrg: unknown AWC/SWB mode %q", s)
}

// NewAWCSWB returns the LCG equivalent to the AWC or SWB generator of base
// b and lags r > s >= 1; the lags may be given in either order. It is the
// MWC whose only non-zero coefficients are e_0, e_s and e_r = 1.
func NewAWCSWB(b *big.Int, r, s int, mode LagMode) (*Component, error) {
	if r < s {
		r, s = s, r
	}
	if s < 1 || r == s {
		return nil, fmt.Errorf("mrg: AWC/SWB lags r=%d s=%d, want r > s >= 1", r, s)
	}
	if _, ok := lagModeNames[mode]; !ok {
		return nil, fmt.Errorf("mrg: unknown AWC/SWB mode %d", int(mode))
	}
	e := make([]*big.Int, r+1)
	for i := range e {
		e[i] = new(big.Int)
	}
	e[r].SetInt64(1)
	e[s].SetInt64(1)
	if mode == SWBI || mode == SWBII {
		e[s].SetInt64(-1)
	}
	e[0].SetInt64(-1)
	if mode == AWCc || mode == SWBI {
		e[0].SetInt64(1)
	}
	return NewMWC(b, e)
}

// Combine builds the MRG equivalent to the combination of components with
// pairwise coprime moduli: m = prod m_j and each a_i is the CRT lift of the
// a_(j,i), orders being padded with zeros.
func Combine(parts ...*Component) (*Component, error) {
	if len(parts) < 2 {
		return nil, errors.New("mrg: combination needs at least two components")
	}
	k := 0
	moduli := make([]*big.Int, len(parts))
	for j, p := range parts {
		if p.Kind == Combo || p.Kind == MMRG || (p.C != nil && p.C.Sign() != 0) {
			return nil, fmt.Errorf("mrg: component %d (%s) cannot be combined", j, p.Kind)
		}
		if p.K > k {
			k = p.K
		}
		moduli[j] = p.Mod.M
	}
	a := make([]*big.Int, k)
	res := make([]*big.Int, len(parts))
	for i := 0; i < k; i++ {
		for j, p := range parts {
			res[j] = new(big.Int)
			if i < p.K {
				res[j].Set(p.A[i])
			}
		}
		v, err := crt(res, moduli)
		if err != nil {
			return nil, err
		}
		a[i] = v
	}
	m := big.NewInt(1)
	for _, x := range moduli {
		m.Mul(m, x)
	}
	mod, err := NewModulus(m)
	if err != nil {
		return nil, err
	}
	c, err := NewMRG(mod, a)
	if err != nil {
		return nil, err
	}
	c.Kind = Combo
	c.Parts = parts
	return c, nil
}

// Modulus returns m.
func (c *Component) Modulus() *big.Int { return c.Mod.M }

// Order returns k.
func (c *Component) Order() int { return c.K }

// Generators returns k rows, one per unit initial state e_j: entry (j, i) is
// the output of lag lags[i] when the generator starts from e_j. Lags count
// from 0, the first output of the initial state. A matrix MRG outputs the
// k components of each state in turn, so its first k lags are the identity.
func (c *Component) Generators(lags []int64) ([][]*big.Int, error) {
	rows := make([][]*big.Int, c.K)
	for j := range rows {
		rows[j] = make([]*big.Int, len(lags))
	}
	for i, lag := range lags {
		if lag < 0 {
			return nil, fmt.Errorf("mrg: negative lag %d", lag)
		}
		if c.Kind == MMRG {
			// The output stream is X_0, X_1, ... read component by
			// component: lag l is component l%k of X_(l/k) = A^(l/k) X_0.
			step, comp := lag/int64(c.K), int(lag%int64(c.K))
			p := c.Matrix.powMod(step, c.Mod.M)
			for j := 0; j < c.K; j++ {
				rows[j][i] = new(big.Int).Set(p[comp][j])
			}
			continue
		}
		x := c.ring.PowX(big.NewInt(lag))
		for j := 0; j < c.K; j++ {
			rows[j][i] = x[j]
		}
	}
	return rows, nil
}

// Next advances the generator by one step. For scalar recurrences state
// holds x_(n-k), ..., x_(n-1) and the result is the shifted state ending in
// x_n; for a matrix MRG state is X_(n-1).
func (c *Component) Next(state []*big.Int) []*big.Int {
	m := c.Mod.M
	if c.Kind == MMRG {
		return c.Matrix.mulVecMod(state, m)
	}
	x := new(big.Int)
	t := new(big.Int)
	for i := 1; i <= c.K; i++ {
		x.Add(x, t.Mul(c.A[i-1], state[c.K-i]))
	}
	if c.C != nil {
		x.Add(x, c.C)
	}
	x.Mod(x, m)
	out := make([]*big.Int, c.K)
	copy(out, state[1:])
	out[c.K-1] = x
	return out
}

// PeriodLength is the largest period the generator can reach: m^k-1 for a
// prime modulus, m for a mixed LCG, the prime-power bound for a
// multiplicative LCG modulo p^e and the lcm of the parts for a combination.
func (c *Component) PeriodLength() *big.Int {
	switch {
	case c.Kind == Combo:
		l := big.NewInt(1)
		for _, p := range c.Parts {
			pl := p.PeriodLength()
			g := new(big.Int).GCD(nil, nil, l, pl)
			l.Mul(l, pl)
			l.Quo(l, g)
		}
		return l
	case c.C != nil && c.C.Sign() != 0:
		return new(big.Int).Set(c.Mod.M)
	case c.K == 1 && c.Mod.B != nil && c.Mod.E > 1 && c.Mod.C.Sign() == 0:
		return c.Mod.PowPrimePeriod()
	}
	out := new(big.Int).Exp(c.Mod.M, big.NewInt(int64(c.K)), nil)
	return out.Sub(out, big.NewInt(1))
}

func (c *Component) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s m=%s k=%d", c.Kind, c.Mod, c.K)
	if c.Kind == MMRG {
		sb.WriteString(" A=[")
		for i, row := range c.Matrix {
			if i > 0 {
				sb.WriteString("; ")
			}
			for j, x := range row {
				if j > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(x.String())
			}
		}
		sb.WriteByte(']')
		return sb.String()
	}
	sb.WriteString(" a=(")
	sb.WriteString(JoinInts(c.A))
	sb.WriteByte(')')
	if c.C != nil {
		fmt.Fprintf(&sb, " c=%s", c.C)
	}
	if c.Kind == MWC {
		fmt.Fprintf(&sb, " b=%s e=(%s)", c.MWCBase, JoinInts(c.MWCCoeffs))
	}
	return sb.String()
}

// JoinInts formats integers separated by single spaces.
func JoinInts(v []*big.Int) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = x.String()
	}
	return strings.Join(s, " ")
}
