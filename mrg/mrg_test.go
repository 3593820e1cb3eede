package mrg

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func ints(v ...int64) []*big.Int {
	out := make([]*big.Int, len(v))
	for i, x := range v {
		out[i] = big.NewInt(x)
	}
	return out
}

func mustModulus(t *testing.T, s string) *Modulus {
	t.Helper()
	md, err := ParseModulus(s)
	if err != nil {
		t.Fatalf("ParseModulus(%q): %v", s, err)
	}
	return md
}

func TestParseModulus(t *testing.T) {
	cases := map[string]string{
		"2^31-1":     "2147483647",
		"2^32-209":   "4294967087",
		"7^2":        "49",
		"0x7fffffff": "2147483647",
		"101":        "101",
		"2^4+1":      "17",
	}
	for in, want := range cases {
		if got := mustModulus(t, in).M.String(); got != want {
			t.Fatalf("%s: got %s want %s", in, got, want)
		}
	}
	if s := mustModulus(t, "2^31-1").String(); s != "2^31-1" {
		t.Fatalf("String: got %q", s)
	}
	if _, err := ParseModulus("1"); err == nil {
		t.Fatalf("modulus 1 should be rejected")
	}
	v, err := ParseInt("-2^10+3")
	if err != nil || v.Int64() != -1027 {
		t.Fatalf("ParseInt(-2^10+3) = %v, %v", v, err)
	}
}

// bruteOrder returns the period of the state sequence started from the
// impulse state (0, ..., 0, 1).
func bruteOrder(c *Component, limit int) int {
	start := make([]*big.Int, c.K)
	for i := range start {
		start[i] = new(big.Int)
	}
	start[c.K-1].SetInt64(1)
	s := start
	for n := 1; n <= limit; n++ {
		s = c.Next(s)
		same := true
		for i := range s {
			if s[i].Cmp(start[i]) != 0 {
				same = false
				break
			}
		}
		if same {
			return n
		}
	}
	return 0
}

func TestMaxPeriodOrderThree(t *testing.T) {
	ctx := context.Background()
	md := mustModulus(t, "5")
	full := 124
	hits := 0
	for a1 := int64(0); a1 < 5; a1++ {
		for a2 := int64(0); a2 < 5; a2++ {
			for a3 := int64(1); a3 < 5; a3++ {
				c, err := NewMRG(md, ints(a1, a2, a3))
				if err != nil {
					t.Fatal(err)
				}
				got, err := c.MaxPeriod(ctx, DecompOptions{})
				if err != nil {
					t.Fatal(err)
				}
				want := bruteOrder(c, 130) == full
				if got != want {
					t.Fatalf("a=(%d,%d,%d): MaxPeriod=%v want %v", a1, a2, a3, got, want)
				}
				if got {
					hits++
				}
			}
		}
	}
	// phi(124)/3 primitive cubics over F_5.
	if hits != 20 {
		t.Fatalf("got %d maximal-period MRGs want 20", hits)
	}
}

func TestMaxPeriodKnownGenerators(t *testing.T) {
	ctx := context.Background()
	lcg, err := NewLCG(mustModulus(t, "2^31-1"), big.NewInt(16807), nil)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := lcg.MaxPeriod(ctx, DecompOptions{})
	if err != nil || !ok {
		t.Fatalf("MINSTD should have maximal period: %v %v", ok, err)
	}
	// First component of MRG32k3a: a = (0, 1403580, -810728).
	m1 := mustModulus(t, "2^32-209")
	c1, err := NewMRG(m1, ints(0, 1403580, -810728))
	if err != nil {
		t.Fatal(err)
	}
	ok, err = c1.MaxPeriod(ctx, DecompOptions{})
	if err != nil || !ok {
		t.Fatalf("MRG32k3a component 1 should have maximal period: %v %v", ok, err)
	}
	if want := new(big.Int).Sub(new(big.Int).Exp(m1.M, big.NewInt(3), nil), big.NewInt(1)); c1.PeriodLength().Cmp(want) != 0 {
		t.Fatalf("period length %s want %s", c1.PeriodLength(), want)
	}
}

func TestPerMaxPowPrime(t *testing.T) {
	ctx := context.Background()
	for _, s := range []string{"2^8", "3^4"} {
		md := mustModulus(t, s)
		m := md.M.Int64()
		full := md.PowPrimePeriod().Int64()
		for a := int64(1); a < m; a++ {
			if a%md.B.Int64() == 0 {
				continue
			}
			order := int64(1)
			for x := a % m; x != 1; x = x * a % m {
				order++
			}
			got, err := md.PerMaxPowPrime(ctx, big.NewInt(a))
			if err != nil {
				t.Fatal(err)
			}
			if got != (order == full) {
				t.Fatalf("m=%s a=%d order=%d: PerMaxPowPrime=%v", s, a, order, got)
			}
		}
	}
}

func TestHullDobell(t *testing.T) {
	ctx := context.Background()
	md := mustModulus(t, "2^4")
	for a := int64(1); a < 16; a++ {
		for inc := int64(1); inc < 16; inc++ {
			c, err := NewLCG(md, big.NewInt(a), big.NewInt(inc))
			if err != nil {
				t.Fatal(err)
			}
			seen := map[int64]bool{}
			x := int64(0)
			for i := 0; i < 16; i++ {
				seen[x] = true
				x = (a*x + inc) % 16
			}
			got, err := c.MaxPeriod(ctx, DecompOptions{})
			if err != nil {
				t.Fatal(err)
			}
			if got != (len(seen) == 16) {
				t.Fatalf("a=%d c=%d: MaxPeriod=%v but visited %d states", a, inc, got, len(seen))
			}
		}
	}
}

func TestCompositeModulusUnsupported(t *testing.T) {
	c, err := NewMRG(mustModulus(t, "15"), ints(2, 3))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.MaxPeriod(context.Background(), DecompOptions{}); !errors.Is(err, ErrModulus) {
		t.Fatalf("got %v want ErrModulus", err)
	}
}

func TestCombine(t *testing.T) {
	m1 := mustModulus(t, "2^32-209")
	m2 := mustModulus(t, "2^32-22853")
	c1, err := NewMRG(m1, ints(0, 1403580, -810728))
	if err != nil {
		t.Fatal(err)
	}
	c2, err := NewMRG(m2, ints(527612, 0, -1370589))
	if err != nil {
		t.Fatal(err)
	}
	cb, err := Combine(c1, c2)
	if err != nil {
		t.Fatal(err)
	}
	if cb.K != 3 || cb.Mod.M.Cmp(new(big.Int).Mul(m1.M, m2.M)) != 0 {
		t.Fatalf("unexpected combination %s", cb)
	}
	r := new(big.Int)
	for i := 0; i < 3; i++ {
		if r.Mod(cb.A[i], m1.M).Cmp(c1.A[i]) != 0 || r.Mod(cb.A[i], m2.M).Cmp(c2.A[i]) != 0 {
			t.Fatalf("a_%d = %s does not reduce to the components", i+1, cb.A[i])
		}
	}
	ok, err := cb.MaxPeriod(context.Background(), DecompOptions{})
	if err != nil || !ok {
		t.Fatalf("MRG32k3a components should both have maximal period: %v %v", ok, err)
	}
	want := new(big.Int).Mul(c1.PeriodLength(), c2.PeriodLength())
	want.Quo(want, big.NewInt(2))
	if cb.PeriodLength().Cmp(want) != 0 {
		t.Fatalf("combined period %s want %s", cb.PeriodLength(), want)
	}
}

func TestCombineRejectsSharedModulus(t *testing.T) {
	md := mustModulus(t, "101")
	c1, _ := NewLCG(md, big.NewInt(2), nil)
	c2, _ := NewLCG(md, big.NewInt(3), nil)
	if _, err := Combine(c1, c2); err == nil {
		t.Fatalf("expected error for equal moduli")
	}
}

func TestMWC(t *testing.T) {
	b := new(big.Int).Lsh(big.NewInt(1), 32)
	c, err := NewMWC(b, ints(-1, 0, 4294967118))
	if err != nil {
		t.Fatal(err)
	}
	prod := new(big.Int).Mul(c.A[0], b)
	if prod.Mod(prod, c.Mod.M).Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("a*b != 1 mod m")
	}
	want := new(big.Int).Mul(big.NewInt(4294967118), new(big.Int).Mul(b, b))
	want.Sub(want, big.NewInt(1))
	if c.Mod.M.Cmp(want) != 0 {
		t.Fatalf("m = %s want %s", c.Mod.M, want)
	}
}

func TestCharPolyCompanion(t *testing.T) {
	m := big.NewInt(1009)
	a := ints(5, 0, 17, 3)
	k := len(a)
	comp := zeroMatrix(k)
	for i := 0; i < k-1; i++ {
		comp[i][i+1].SetInt64(1)
	}
	for j := 0; j < k; j++ {
		comp[k-1][j].Set(a[k-1-j])
	}
	cp := CharPoly(comp, m)
	for i := 1; i <= k; i++ {
		want := new(big.Int).Neg(a[i-1])
		want.Mod(want, m)
		if cp[k-i].Cmp(want) != 0 {
			t.Fatalf("c_%d = %s want %s", k-i, cp[k-i], want)
		}
	}
	if cp[k].Int64() != 1 {
		t.Fatalf("not monic: %v", cp)
	}
}

func TestCharPolyCayleyHamilton(t *testing.T) {
	m := big.NewInt(97)
	A := Matrix{ints(3, 1, 4), ints(1, 5, 9), ints(2, 6, 5)}
	cp := CharPoly(A, m)
	sum := zeroMatrix(3)
	pw := identity(3)
	for i := 0; i <= 3; i++ {
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				sum[r][c].Add(sum[r][c], new(big.Int).Mul(cp[i], pw[r][c]))
			}
		}
		pw = pw.mulMod(A, m)
	}
	for r := range sum {
		for c := range sum[r] {
			if sum[r][c].Mod(sum[r][c], m).Sign() != 0 {
				t.Fatalf("p(A) != 0 at (%d,%d)", r, c)
			}
		}
	}
}

func TestMMRGMaxPeriod(t *testing.T) {
	md := mustModulus(t, "7")
	// Companion matrix of a primitive recurrence keeps maximal period.
	c, err := NewMMRG(md, Matrix{ints(0, 1), ints(3, 1)})
	if err != nil {
		t.Fatal(err)
	}
	x := []*big.Int{big.NewInt(0), big.NewInt(1)}
	start := []*big.Int{big.NewInt(0), big.NewInt(1)}
	period := 0
	for n := 1; n <= 49; n++ {
		x = c.Next(x)
		if x[0].Cmp(start[0]) == 0 && x[1].Cmp(start[1]) == 0 {
			period = n
			break
		}
	}
	ok, err := c.MaxPeriod(context.Background(), DecompOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ok != (period == 48) {
		t.Fatalf("MaxPeriod=%v but brute-force period %d", ok, period)
	}
}

func TestGeneratorsMatchRecurrence(t *testing.T) {
	md := mustModulus(t, "1009")
	c, err := NewMRG(md, ints(11, 0, 333))
	if err != nil {
		t.Fatal(err)
	}
	lags := []int64{0, 1, 2, 3, 7, 20}
	rows, err := c.Generators(lags)
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < c.K; j++ {
		state := ints(0, 0, 0)
		state[j].SetInt64(1)
		seq := []*big.Int{state[0], state[1], state[2]}
		s := state
		for len(seq) <= 20 {
			s = c.Next(s)
			seq = append(seq, s[c.K-1])
		}
		for i, lag := range lags {
			if rows[j][i].Cmp(seq[lag]) != 0 {
				t.Fatalf("row %d lag %d: got %s want %s", j, lag, rows[j][i], seq[lag])
			}
		}
	}
}

func TestMMRGGeneratorsMatchStateStream(t *testing.T) {
	md := mustModulus(t, "1009")
	c, err := NewMMRG(md, Matrix{ints(2, 5), ints(3, 1)})
	if err != nil {
		t.Fatal(err)
	}
	lags := []int64{0, 1, 2, 3, 4, 5, 6, 7, 11}
	rows, err := c.Generators(lags)
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < c.K; j++ {
		state := ints(0, 0)
		state[j].SetInt64(1)
		var stream []*big.Int
		for len(stream) <= 11 {
			stream = append(stream, state...)
			state = c.Next(state)
		}
		for i, lag := range lags {
			if rows[j][i].Cmp(stream[lag]) != 0 {
				t.Fatalf("row %d lag %d: got %s want %s", j, lag, rows[j][i], stream[lag])
			}
		}
		for i := 0; i < c.K; i++ {
			want := int64(0)
			if i == j {
				want = 1
			}
			if rows[j][i].Int64() != want {
				t.Fatalf("row %d lag %d: got %s, want identity", j, i, rows[j][i])
			}
		}
	}
}

func TestDecomposeFromFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, text string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	// m = 1009, k = 2: m-1 = 2^4 3^2 7 and r = m+1 = 2 5 101.
	m1 := write("m1", "1008\n2 4 P\n3 2 P\n7 1 P\n")
	r := write("r", "1010\n2 1 P\n5 1 P\n101 1 P\n")
	wrong := write("wrong", "1011\n3 1 P\n337 1 P\n")
	md := mustModulus(t, "1009")
	ctx := context.Background()

	for _, a := range [][]*big.Int{ints(1, 5), ints(7, 3), ints(0, 11)} {
		fromFiles, err := NewMRG(md, a)
		if err != nil {
			t.Fatal(err)
		}
		opts := DecompOptions{M1File: m1, RFile: r}
		if err := fromFiles.Decompose(ctx, opts); err != nil {
			t.Fatal(err)
		}
		fm, fr := fromFiles.Factorizations()
		if fm.F.N.Int64() != 1008 || len(fm.F.Factors) != 3 || fr.N.Int64() != 1010 || len(fr.Factors) != 3 {
			t.Fatalf("unexpected factorizations %v / %v", fm.F, fr)
		}
		computed, err := NewMRG(md, a)
		if err != nil {
			t.Fatal(err)
		}
		got, err := fromFiles.MaxPeriod(ctx, opts)
		if err != nil {
			t.Fatal(err)
		}
		want, err := computed.MaxPeriod(ctx, DecompOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("a=%v: MaxPeriod from files %v, computed %v", a, got, want)
		}
	}

	c, err := NewMRG(md, ints(1, 5))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Decompose(ctx, DecompOptions{RPrime: true}); err != nil {
		t.Fatal(err)
	}
	if _, fr := c.Factorizations(); len(fr.Factors) != 1 || fr.Factors[0].P.Int64() != 1010 || len(fr.InvFactors) != 1 {
		t.Fatalf("RPrime: unexpected factorization %v", fr)
	}

	c, err = NewMRG(md, ints(1, 5))
	if err != nil {
		t.Fatal(err)
	}
	err = c.Decompose(ctx, DecompOptions{RFile: wrong})
	if err == nil || !strings.Contains(err.Error(), "want r = 1010") {
		t.Fatalf("mismatched r file: got %v", err)
	}
}

func TestAWCSWB(t *testing.T) {
	b := big.NewInt(10)
	cases := []struct {
		mode LagMode
		m, a int64
	}{
		{AWC, 109, 11},
		{AWCc, 111, 100},
		{SWBI, 91, 82},
		{SWBII, 89, 9},
	}
	for _, tc := range cases {
		for _, lags := range [][2]int{{2, 1}, {1, 2}} {
			c, err := NewAWCSWB(b, lags[0], lags[1], tc.mode)
			if err != nil {
				t.Fatalf("%s: %v", tc.mode, err)
			}
			if c.Kind != MWC || c.Mod.M.Int64() != tc.m || c.A[0].Int64() != tc.a {
				t.Fatalf("%s lags %v: m=%s a=%s, want m=%d a=%d", tc.mode, lags, c.Mod.M, c.A[0], tc.m, tc.a)
			}
		}
		mode, err := ParseLagMode(tc.mode.String())
		if err != nil || mode != tc.mode {
			t.Fatalf("ParseLagMode(%q) = %v, %v", tc.mode, mode, err)
		}
	}
	if _, err := NewAWCSWB(b, 3, 0, AWC); err == nil {
		t.Fatalf("lag s = 0 accepted")
	}
	if _, err := NewAWCSWB(b, 2, 2, SWBI); err == nil {
		t.Fatalf("equal lags accepted")
	}
}
