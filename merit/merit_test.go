package merit

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"

	"latmrg/lattice"
	"latmrg/mrg"
)

func TestNormalizerConstants(t *testing.T) {
	best := &Normalizer{Kind: BestLat}
	if g := best.Gamma(8); math.Abs(g-2) > 1e-4 {
		t.Fatalf("gamma_8 = %f want 2", g)
	}
	if g := best.Gamma(24); math.Abs(g-4) > 1e-4 {
		t.Fatalf("gamma_24 = %f want 4", g)
	}
	rog := &Normalizer{Kind: Rogers}
	mink := &Normalizer{Kind: Minkowski}
	for d := 2; d <= 24; d++ {
		b := best.Gamma(d)
		if rog.Gamma(d) < b-1e-3 {
			t.Fatalf("Rogers bound %f below best lattice %f in dimension %d", rog.Gamma(d), b, d)
		}
		if mink.Gamma(d) < b-1e-3 {
			t.Fatalf("Minkowski bound %f below best lattice %f in dimension %d", mink.Gamma(d), b, d)
		}
	}
	if best.Gamma(30) != rog.Gamma(30) {
		t.Fatalf("bestlat beyond 24 should fall back on Rogers")
	}
	if _, err := NewNormalizer(MinkL1, lattice.L2); err == nil {
		t.Fatalf("minkl1 with L2 should be rejected")
	}
}

func minstd(t *testing.T) *mrg.Component {
	t.Helper()
	md, err := mrg.ParseModulus("2^31-1")
	if err != nil {
		t.Fatal(err)
	}
	c, err := mrg.NewLCG(md, big.NewInt(16807), nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSpectralMinstdDimensionTwo(t *testing.T) {
	test, err := NewTest(TestOptions{Type: "spectral"})
	if err != nil {
		t.Fatal(err)
	}
	l, err := lattice.BuildCoords(minstd(t), []int{1, 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, err := test.Evaluate(context.Background(), l)
	if err != nil {
		t.Fatal(err)
	}
	// The shortest dual vector is (-16807, 1).
	if math.Abs(m.Raw*m.Raw-282475250) > 1 {
		t.Fatalf("raw length^2 = %f want 282475250", m.Raw*m.Raw)
	}
	if math.Abs(m.Value-0.33751) > 1e-4 {
		t.Fatalf("S_2 = %f want 0.33751", m.Value)
	}
	primal, err := NewTest(TestOptions{Type: "spectral", Primal: true})
	if err != nil {
		t.Fatal(err)
	}
	pm, err := primal.Evaluate(context.Background(), l)
	if err != nil {
		t.Fatal(err)
	}
	// In dimension 2 the primal and dual shortest vectors have the same
	// normalized length.
	if math.Abs(pm.Value-m.Value) > 1e-6 {
		t.Fatalf("primal %f and dual %f values differ", pm.Value, m.Value)
	}
}

func TestFigureOfMerit(t *testing.T) {
	test, err := NewTest(TestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	fom := &FigureOfMerit{T: []int{8, 6, 4}, Test: test}
	res, err := fom.Compute(context.Background(), minstd(t))
	if err != nil {
		t.Fatal(err)
	}
	// dimensions 2..8, C(6,2)-1 pairs, C(4,3)-1 triples
	if want := 7 + 14 + 3; len(res.Values) != want {
		t.Fatalf("got %d values want %d", len(res.Values), want)
	}
	worst := math.Inf(1)
	for _, v := range res.Values {
		if v.Value <= 0 || v.Value > 1+1e-9 {
			t.Fatalf("value %f for %v outside (0, 1]", v.Value, v.Coords)
		}
		if v.Value < worst {
			worst = v.Value
		}
	}
	if res.Merit != worst {
		t.Fatalf("merit %f want worst value %f", res.Merit, worst)
	}
	if res.Rejected {
		t.Fatalf("no threshold, nothing should be rejected")
	}

	fom.Threshold = 0.5
	rej, err := fom.Compute(context.Background(), minstd(t))
	if err != nil {
		t.Fatal(err)
	}
	if !rej.Rejected || len(rej.Values) != 1 || rej.Merit >= 0.5 {
		t.Fatalf("expected rejection on S_2 = 0.3375, got %+v", rej)
	}
}

func TestFigureOfMeritStationary(t *testing.T) {
	test, _ := NewTest(TestOptions{})
	fom := &FigureOfMerit{T: []int{2, 6}, Test: test, Stationary: true}
	res, err := fom.Compute(context.Background(), minstd(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range res.Values {
		if v.Coords[0] != 1 {
			t.Fatalf("projection %v lacks coordinate 1", v.Coords)
		}
	}
	// {1,2} from the successive part plus {1,3}..{1,6}
	if len(res.Values) != 5 {
		t.Fatalf("got %d values want 5", len(res.Values))
	}
}

func TestFigureOfMeritNothingToTest(t *testing.T) {
	test, _ := NewTest(TestOptions{})
	fom := &FigureOfMerit{T: []int{1}, Test: test}
	if _, err := fom.Compute(context.Background(), minstd(t)); !errors.Is(err, ErrNothingToTest) {
		t.Fatalf("got %v want ErrNothingToTest", err)
	}
}

func TestPAlphaOneDimension(t *testing.T) {
	const n = 101
	l, err := lattice.Build(lattice.Korobov{N: big.NewInt(n), A: big.NewInt(12)}, []int64{0})
	if err != nil {
		t.Fatal(err)
	}
	m, err := (&PAlpha{Alpha: 2}).Evaluate(context.Background(), l)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Pi * math.Pi / (3 * n * n)
	if math.Abs(m.Value-want) > 1e-12 {
		t.Fatalf("P_2 = %g want %g", m.Value, want)
	}
}

func TestPAlphaPrefersBetterRule(t *testing.T) {
	const n = 1021
	p := &PAlpha{Alpha: 2}
	eval := func(a int64) float64 {
		l, err := lattice.Build(lattice.Korobov{N: big.NewInt(n), A: big.NewInt(a)}, []int64{0, 1})
		if err != nil {
			t.Fatal(err)
		}
		m, err := p.Evaluate(context.Background(), l)
		if err != nil {
			t.Fatal(err)
		}
		return m.Value
	}
	// a = 1 puts every point on the diagonal.
	if eval(1) <= eval(76) {
		t.Fatalf("diagonal rule should have a larger P_2")
	}
	if !p.LowerIsBetter() {
		t.Fatalf("P_alpha is smaller-is-better")
	}
}

func TestPAlphaRejectsMRG(t *testing.T) {
	md, _ := mrg.ParseModulus("101")
	c, err := mrg.NewMRG(md, []*big.Int{big.NewInt(2), big.NewInt(3)})
	if err != nil {
		t.Fatal(err)
	}
	l, err := lattice.BuildCoords(c, []int{1, 2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := (&PAlpha{Alpha: 2}).Evaluate(context.Background(), l); !errors.Is(err, ErrPAlpha) {
		t.Fatalf("got %v want ErrPAlpha", err)
	}
}

func TestBeyerQuotient(t *testing.T) {
	l, err := lattice.BuildCoords(minstd(t), []int{1, 2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, err := (&Beyer{}).Evaluate(context.Background(), l)
	if err != nil {
		t.Fatal(err)
	}
	if m.Value <= 0 || m.Value > 1 {
		t.Fatalf("Beyer quotient %f outside (0, 1]", m.Value)
	}
}

func TestNewTestErrors(t *testing.T) {
	if _, err := NewTest(TestOptions{Type: "palpha", Alpha: 3}); err == nil {
		t.Fatalf("alpha 3 should be rejected")
	}
	if _, err := NewTest(TestOptions{Type: "nope"}); err == nil {
		t.Fatalf("unknown test should be rejected")
	}
	tt, err := NewTest(TestOptions{Norm: "l1"})
	if err != nil {
		t.Fatal(err)
	}
	if sp := tt.(*Spectral); sp.Normalizer.Kind != MinkL1 {
		t.Fatalf("L1 should default to minkl1, got %s", sp.Normalizer.Kind)
	}
}

func TestFigureOfMeritLacunary(t *testing.T) {
	test, err := NewTest(TestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	lac := []int64{0, 1, 3, 7}
	fom := &FigureOfMerit{T: []int{4, 4}, Test: test, Lacunary: lac}
	src := minstd(t)
	res, err := fom.Compute(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	// dimensions 2..4 and the pairs of {1..4} except {1,2}
	if len(res.Values) != 3+5 {
		t.Fatalf("got %d values want 8", len(res.Values))
	}
	for _, v := range res.Values {
		lags := make([]int64, len(v.Coords))
		for i, c := range v.Coords {
			lags[i] = lac[c-1]
		}
		l, err := lattice.Build(src, lags)
		if err != nil {
			t.Fatal(err)
		}
		m, err := test.Evaluate(context.Background(), l)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(m.Value-v.Value) > 1e-12 {
			t.Fatalf("coordinates %v (lags %v): got %f want %f", v.Coords, lags, v.Value, m.Value)
		}
	}
	if math.Abs(res.Values[0].Value-0.33751) > 1e-4 {
		t.Fatalf("lags {0,1} give S_2 = %f want 0.33751", res.Values[0].Value)
	}

	fom.Lacunary = lac[:3]
	if _, err := fom.Compute(context.Background(), src); err == nil {
		t.Fatalf("three lacunary indices accepted for four coordinates")
	}
}
