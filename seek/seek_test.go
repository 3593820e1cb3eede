package seek

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"

	"latmrg/merit"
	"latmrg/mrg"
)

func spectralFOM(t *testing.T, dims ...int) merit.FigureOfMerit {
	t.Helper()
	test, err := merit.NewTest(merit.TestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return merit.FigureOfMerit{T: dims, Test: test}
}

func modulus(t *testing.T, s string) *mrg.Modulus {
	t.Helper()
	md, err := mrg.ParseModulus(s)
	if err != nil {
		t.Fatal(err)
	}
	return md
}

func TestExhaustiveLCGSearch(t *testing.T) {
	cfg := &Config{
		Modulus:   modulus(t, "1021"),
		K:         1,
		Bounds:    []Bound{{Lo: big.NewInt(2), Hi: big.NewInt(1020)}},
		Method:    Exhaustive,
		MaxPeriod: true,
		NumGen:    5,
		Workers:   4,
		FOM:       spectralFOM(t, 8),
	}
	out, err := Search(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Stats.Tried != 1019 {
		t.Fatalf("tried %d want 1019", out.Stats.Tried)
	}
	// phi(1020) primitive roots modulo 1021
	if out.Stats.MaxPeriodHits != 256 || out.Stats.PrimitiveHits != 256 {
		t.Fatalf("max period hits %d, primitive hits %d, want 256", out.Stats.MaxPeriodHits, out.Stats.PrimitiveHits)
	}
	if got := out.Stats.Evaluated + out.Stats.Rejected + out.Stats.NodeLimit; got != 256 {
		t.Fatalf("%d candidates reached the lattice tests, want 256", got)
	}
	if len(out.Best) != 5 {
		t.Fatalf("kept %d generators want 5", len(out.Best))
	}
	for i := 1; i < len(out.Best); i++ {
		if out.Best[i].Merit > out.Best[i-1].Merit {
			t.Fatalf("pool not sorted at %d", i)
		}
	}
	for _, c := range out.Best {
		ok, err := c.Comp.MaxPeriod(context.Background(), mrg.DecompOptions{})
		if err != nil || !ok {
			t.Fatalf("kept generator %s lacks maximal period", c.Comp)
		}
	}

	cfg.Workers = 1
	serial, err := Search(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range out.Best {
		if serial.Best[i].A[0].Cmp(out.Best[i].A[0]) != 0 || serial.Best[i].Merit != out.Best[i].Merit {
			t.Fatalf("rank %d: parallel %s (%f) serial %s (%f)", i, out.Best[i].A[0], out.Best[i].Merit, serial.Best[i].A[0], serial.Best[i].Merit)
		}
	}
	if worst := out.Best[len(out.Best)-1].Merit; out.Merits[len(out.Merits)-1] != out.Best[0].Merit || worst > out.Best[0].Merit {
		t.Fatalf("merits and pool disagree")
	}
}

func TestRandomSearchIsReproducible(t *testing.T) {
	run := func(workers int) *Outcome {
		cfg := &Config{
			Modulus:   modulus(t, "1021"),
			K:         2,
			Method:    Random,
			MaxPeriod: true,
			NumGen:    3,
			Tries:     300,
			Seed:      "latmrg",
			Workers:   workers,
			FOM:       spectralFOM(t, 6),
		}
		out, err := Search(context.Background(), cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}
	a, b := run(3), run(1)
	if a.Stats.Tried != 300 || a.Stats.MaxPeriodHits != b.Stats.MaxPeriodHits {
		t.Fatalf("stats differ: %+v vs %+v", a.Stats, b.Stats)
	}
	if len(a.Best) != len(b.Best) {
		t.Fatalf("kept %d vs %d", len(a.Best), len(b.Best))
	}
	for i := range a.Best {
		if compareInts(a.Best[i].A, b.Best[i].A) != 0 {
			t.Fatalf("rank %d differs: (%s) vs (%s)", i, mrg.JoinInts(a.Best[i].A), mrg.JoinInts(b.Best[i].A))
		}
	}
}

func TestSearchWithFixedComponent(t *testing.T) {
	fixed, err := mrg.NewLCG(modulus(t, "1019"), big.NewInt(2), nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &Config{
		Modulus: modulus(t, "1021"),
		K:       1,
		Bounds:  []Bound{{Lo: big.NewInt(60), Hi: big.NewInt(80)}},
		Method:  Exhaustive,
		Fixed:   []*mrg.Component{fixed},
		Workers: 2,
		FOM:     spectralFOM(t, 5),
	}
	out, err := Search(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := out.Best[0].Comp
	if c.Kind != mrg.Combo || c.Modulus().Cmp(big.NewInt(1019*1021)) != 0 {
		t.Fatalf("expected the combination modulo 1019*1021, got %s", c)
	}
}

func TestRNG(t *testing.T) {
	r1, err := NewRNG("seed")
	if err != nil {
		t.Fatal(err)
	}
	r2, _ := NewRNG("seed")
	lo, hi := big.NewInt(-5), big.NewInt(9)
	seen := map[int64]bool{}
	for i := 0; i < 500; i++ {
		x, err := r1.Between(lo, hi)
		if err != nil {
			t.Fatal(err)
		}
		y, _ := r2.Between(lo, hi)
		if x.Cmp(y) != 0 {
			t.Fatalf("draw %d: %s vs %s with the same seed", i, x, y)
		}
		if x.Cmp(lo) < 0 || x.Cmp(hi) > 0 {
			t.Fatalf("draw %s outside [%s, %s]", x, lo, hi)
		}
		seen[x.Int64()] = true
	}
	if len(seen) != 15 {
		t.Fatalf("saw %d distinct values want 15", len(seen))
	}
	if _, err := r1.Below(big.NewInt(0)); err == nil {
		t.Fatalf("empty range should fail")
	}
}

func TestImplementationConditions(t *testing.T) {
	m := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 31), big.NewInt(1))
	cases := []struct {
		a    int64
		want bool
	}{
		{16807, true},
		{-16807, true},
		{46341, true},
		{1 << 30, false},
		{1<<20 + 1, false},
	}
	for _, tc := range cases {
		if got := AppFactOK(big.NewInt(tc.a), m); got != tc.want {
			t.Fatalf("AppFactOK(%d) = %v want %v", tc.a, got, tc.want)
		}
	}
	pow2 := map[int64]bool{0: true, 1: true, 7: true, 12: true, -6: true, 1 << 40: true, 11: false, 13: false, -21: false}
	for a, want := range pow2 {
		if got := IsPower2Form(big.NewInt(a)); got != want {
			t.Fatalf("IsPower2Form(%d) = %v want %v", a, got, want)
		}
	}
}

func TestPower2Draws(t *testing.T) {
	cfg := &Config{
		Modulus: modulus(t, "2^31-1"),
		K:       2,
		Bounds:  []Bound{{Lo: big.NewInt(-(1 << 20)), Hi: big.NewInt(1 << 20)}},
		Method:  Random,
		Cond:    Power2,
		Tries:   20,
		Seed:    "p2",
		Workers: 2,
		NumGen:  4,
		FOM:     spectralFOM(t, 4),
	}
	out, err := Search(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Stats.CondRejected != 0 && out.Stats.CondRejected == out.Stats.Tried {
		t.Fatalf("every power-of-two draw was rejected")
	}
	for _, c := range out.Best {
		for _, a := range c.A {
			if !IsPower2Form(a) {
				t.Fatalf("multiplier %s is not ±2^q1 ± 2^q2", a)
			}
		}
		if c.A[0].CmpAbs(big.NewInt(1<<20)) > 0 {
			t.Fatalf("a_1 = %s outside its bound", c.A[0])
		}
	}
}

func TestParseMethodAndCond(t *testing.T) {
	if m, err := ParseMethod("Exhaustive"); err != nil || m != Exhaustive {
		t.Fatalf("ParseMethod: %v %v", m, err)
	}
	if c, err := ParseCond("power2"); err != nil || c != Power2 {
		t.Fatalf("ParseCond: %v %v", c, err)
	}
	if _, err := ParseCond("fast"); err == nil {
		t.Fatalf("unknown condition accepted")
	}
}

// cancelOnKeep cancels the search once the first generator enters the pool.
type cancelOnKeep struct{ cancel context.CancelFunc }

func (h cancelOnKeep) Enabled(context.Context, slog.Level) bool { return true }
func (h cancelOnKeep) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h cancelOnKeep) WithGroup(string) slog.Handler           { return h }

func (h cancelOnKeep) Handle(_ context.Context, r slog.Record) error {
	if r.Message == "candidate kept" {
		h.cancel()
	}
	return nil
}

func TestSearchCancelledKeepsPartialOutcome(t *testing.T) {
	cfg := &Config{
		Modulus:   modulus(t, "1021"),
		K:         1,
		Bounds:    []Bound{{Lo: big.NewInt(2), Hi: big.NewInt(1020)}},
		Method:    Exhaustive,
		MaxPeriod: true,
		NumGen:    5,
		Workers:   1,
		FOM:       spectralFOM(t, 8),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out, err := Search(ctx, cfg, slog.New(cancelOnKeep{cancel}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if out == nil {
		t.Fatalf("no partial outcome")
	}
	if len(out.Best) != 1 || out.Stats.Evaluated != 1 || len(out.Merits) != 1 {
		t.Fatalf("kept %d, evaluated %d: want the single generator seen before cancellation", len(out.Best), out.Stats.Evaluated)
	}
	if out.Best[0].Merit != out.Merits[0] {
		t.Fatalf("kept merit %f, recorded %f", out.Best[0].Merit, out.Merits[0])
	}

	cfg.MaxPeriod = false
	done, cancelDone := context.WithCancel(context.Background())
	cancelDone()
	out, err = Search(done, cfg, nil)
	if !errors.Is(err, context.Canceled) || out == nil || len(out.Best) != 0 {
		t.Fatalf("cancelled before start: outcome %+v, err %v", out, err)
	}
}
