// Package seek searches for linear recurrence generators with a good figure
// of merit, by random draws or by exhaustive enumeration of a box of
// multipliers.
package seek

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"latmrg/lattice"
	"latmrg/merit"
	"latmrg/mrg"
	"latmrg/primes"
)

// Method selects how multipliers are produced.
type Method int

const (
	Random Method = iota
	Exhaustive
)

func (m Method) String() string {
	if m == Exhaustive {
		return "exhaustive"
	}
	return "random"
}

// ParseMethod accepts "random" and "exhaustive"; empty means random.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "random":
		return Random, nil
	case "exhaustive":
		return Exhaustive, nil
	}
	return Random, fmt.Errorf("seek: unknown method %q", s)
}

// Cond restricts multipliers to forms with a fast implementation.
type Cond int

const (
	NoCond Cond = iota
	// AppFact: |a| < sqrt(m) or a (m mod a) < m, so that a x mod m can be
	// computed by approximate factoring without overflow.
	AppFact
	// Power2: a = ±2^q1 ± 2^q2.
	Power2
)

var condNames = map[Cond]string{NoCond: "none", AppFact: "appfact", Power2: "power2"}

func (c Cond) String() string { return condNames[c] }

// ParseCond maps a configuration name to a Cond; empty means none.
func ParseCond(s string) (Cond, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return NoCond, nil
	}
	for c, name := range condNames {
		if name == s {
			return c, nil
		}
	}
	return NoCond, fmt.Errorf("seek: unknown implementation condition %q", s)
}

// Bound is an inclusive range for one multiplier.
type Bound struct {
	Lo, Hi *big.Int
}

// Config describes a search.
type Config struct {
	Modulus *mrg.Modulus
	K       int
	// Bounds gives the range of a_1..a_k; missing or nil entries default to
	// [0, m-1].
	Bounds    []Bound
	Method    Method
	Cond      Cond
	MaxPeriod bool
	Decomp    mrg.DecompOptions
	// Fixed components are combined with every candidate before the
	// figure of merit is computed.
	Fixed []*mrg.Component
	// NumGen is the number of generators kept; 0 means 1.
	NumGen int
	// Tries is the number of draws for a random search and an upper bound
	// on the enumerated vectors for an exhaustive one (0: the whole box).
	Tries   int64
	Seed    string
	Workers int
	FOM     merit.FigureOfMerit
}

// Stats counts what happened to the candidates.
type Stats struct {
	Tried         int64
	CondRejected  int64
	PrimitiveHits int64
	MaxPeriodHits int64
	Evaluated     int64
	Rejected      int64
	NodeLimit     int64
	Elapsed       time.Duration
}

// Outcome is the result of Search.
type Outcome struct {
	Best  []Candidate
	Stats Stats
	// Merits holds the merit of every fully evaluated candidate, sorted.
	Merits []float64
}

type searcher struct {
	cfg    *Config
	log    *slog.Logger
	bounds []Bound
	fm     *primes.PrimitiveInt
	fr     *primes.Factorization
	pool   *pool

	tried, condRejected, primHits, periodHits atomic.Int64
	evaluated, rejected, nodeLimit            atomic.Int64

	mu     sync.Mutex
	merits []float64
}

func (c *Config) validate() error {
	if c.Modulus == nil {
		return errors.New("seek: no modulus")
	}
	if c.K < 1 {
		return fmt.Errorf("seek: order %d", c.K)
	}
	if len(c.Bounds) > c.K {
		return fmt.Errorf("seek: %d bounds for order %d", len(c.Bounds), c.K)
	}
	if c.Method == Random && c.Tries <= 0 {
		return errors.New("seek: a random search needs tries > 0")
	}
	if c.FOM.Test == nil {
		return errors.New("seek: no test")
	}
	return c.FOM.Validate()
}

func (c *Config) resolveBounds() ([]Bound, error) {
	m := c.Modulus.M
	out := make([]Bound, c.K)
	for i := range out {
		out[i] = Bound{Lo: big.NewInt(0), Hi: new(big.Int).Sub(m, big.NewInt(1))}
		if i < len(c.Bounds) {
			if b := c.Bounds[i]; b.Lo != nil && b.Hi != nil {
				if b.Lo.Cmp(b.Hi) > 0 {
					return nil, fmt.Errorf("seek: empty range [%s, %s] for a_%d", b.Lo, b.Hi, i+1)
				}
				out[i] = Bound{Lo: new(big.Int).Set(b.Lo), Hi: new(big.Int).Set(b.Hi)}
			}
		}
	}
	return out, nil
}

// Search runs the search and returns the best generators found. On
// cancellation it returns what was found so far together with ctx.Err().
func Search(ctx context.Context, cfg *Config, log *slog.Logger) (*Outcome, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	bounds, err := cfg.resolveBounds()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	numGen := cfg.NumGen
	if numGen <= 0 {
		numGen = 1
	}
	s := &searcher{cfg: cfg, log: log, bounds: bounds, pool: newPool(numGen, cfg.FOM.Test.LowerIsBetter())}
	if cfg.MaxPeriod {
		if err := s.decompose(ctx); err != nil {
			return nil, err
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan []*big.Int, workers*4)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := s.evaluate(ctx, a); err != nil && ctx.Err() == nil {
					fail(err)
				}
			}
		}()
	}

	var prodErr error
	if cfg.Method == Exhaustive {
		prodErr = s.enumerate(ctx, jobs)
	} else {
		prodErr = s.draw(ctx, jobs)
	}
	close(jobs)
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if prodErr != nil && ctx.Err() == nil {
		return nil, prodErr
	}

	out := &Outcome{Best: s.pool.best(), Merits: s.merits}
	sort.Float64s(out.Merits)
	out.Stats = Stats{
		Tried:         s.tried.Load(),
		CondRejected:  s.condRejected.Load(),
		PrimitiveHits: s.primHits.Load(),
		MaxPeriodHits: s.periodHits.Load(),
		Evaluated:     s.evaluated.Load(),
		Rejected:      s.rejected.Load(),
		NodeLimit:     s.nodeLimit.Load(),
		Elapsed:       time.Since(start),
	}
	log.Info("search done",
		"method", cfg.Method.String(),
		"tried", out.Stats.Tried,
		"max_period", out.Stats.MaxPeriodHits,
		"evaluated", out.Stats.Evaluated,
		"rejected", out.Stats.Rejected,
		"kept", len(out.Best),
		"elapsed", out.Stats.Elapsed)
	return out, ctx.Err()
}

// decompose factors m-1 and r once for all candidates.
func (s *searcher) decompose(ctx context.Context) error {
	m := s.cfg.Modulus.M
	if primes.IsPrime(m, 0) == primes.Composite {
		return nil
	}
	a := make([]*big.Int, s.cfg.K)
	for i := range a {
		a[i] = big.NewInt(0)
	}
	a[s.cfg.K-1] = big.NewInt(1)
	unit, err := mrg.NewMRG(s.cfg.Modulus, a)
	if err != nil {
		return err
	}
	if err := unit.Decompose(ctx, s.cfg.Decomp); err != nil {
		return fmt.Errorf("seek: factorizations: %w", err)
	}
	s.fm, s.fr = unit.Factorizations()
	s.log.Debug("factorizations ready", "m-1", s.fm.F.String(), "prime_modulus", true)
	return nil
}

func (s *searcher) evaluate(ctx context.Context, a []*big.Int) error {
	s.tried.Add(1)
	if !s.acceptable(a) {
		s.condRejected.Add(1)
		return nil
	}
	comp, err := mrg.NewMRG(s.cfg.Modulus, a)
	if errors.Is(err, mrg.ErrOrder) {
		s.condRejected.Add(1)
		return nil
	}
	if err != nil {
		return err
	}
	if s.cfg.MaxPeriod {
		if s.fm != nil {
			if !s.fm.IsPrimitiveElementK(comp.A) {
				return nil
			}
			s.primHits.Add(1)
			comp.SetFactorizations(s.fm, s.fr)
		}
		ok, err := comp.MaxPeriod(ctx, s.cfg.Decomp)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		s.periodHits.Add(1)
	}
	var src lattice.Source = comp
	target := comp
	if len(s.cfg.Fixed) > 0 {
		parts := append(append([]*mrg.Component(nil), s.cfg.Fixed...), comp)
		target, err = mrg.Combine(parts...)
		if err != nil {
			return err
		}
		src = target
	}

	fom := s.cfg.FOM
	fom.Threshold = s.pool.threshold()
	res, err := fom.Compute(ctx, src)
	if errors.Is(err, lattice.ErrNodeLimit) {
		s.nodeLimit.Add(1)
		s.log.Warn("node limit reached, candidate skipped", "a", mrg.JoinInts(a))
		return nil
	}
	if err != nil {
		return err
	}
	if res.Rejected {
		s.rejected.Add(1)
		return nil
	}
	s.evaluated.Add(1)
	s.mu.Lock()
	s.merits = append(s.merits, res.Merit)
	s.mu.Unlock()
	if s.pool.offer(Candidate{A: a, Comp: target, Merit: res.Merit, Worst: res.Worst, Values: res.Values}) {
		s.log.Debug("candidate kept", "a", mrg.JoinInts(a), "merit", res.Merit, "worst", res.Worst)
	}
	return nil
}

// acceptable applies the implementation condition.
func (s *searcher) acceptable(a []*big.Int) bool {
	switch s.cfg.Cond {
	case AppFact:
		for _, x := range a {
			if !AppFactOK(x, s.cfg.Modulus.M) {
				return false
			}
		}
	case Power2:
		for _, x := range a {
			if !IsPower2Form(x) {
				return false
			}
		}
	}
	return true
}

// AppFactOK reports whether a x mod m can be computed by approximate
// factoring: |a| < sqrt(m) or |a| (m mod |a|) < m.
func AppFactOK(a, m *big.Int) bool {
	abs := new(big.Int).Abs(a)
	if abs.Sign() == 0 {
		return true
	}
	sq := new(big.Int).Mul(abs, abs)
	if sq.Cmp(m) < 0 {
		return true
	}
	r := new(big.Int).Mod(m, abs)
	return r.Mul(r, abs).Cmp(m) < 0
}

// IsPower2Form reports whether a = ±2^q1 ± 2^q2 for some q1, q2 >= 0.
func IsPower2Form(a *big.Int) bool {
	if a.Sign() == 0 {
		return true
	}
	abs := new(big.Int).Abs(a)
	d := new(big.Int)
	for q := 0; q <= abs.BitLen()+1; q++ {
		p := new(big.Int).Lsh(big.NewInt(1), uint(q))
		for _, sign := range []int{1, -1} {
			if sign > 0 {
				d.Sub(abs, p)
			} else {
				d.Add(abs, p)
			}
			d.Abs(d)
			if isPowerOfTwo(d) {
				return true
			}
		}
	}
	return false
}

func isPowerOfTwo(x *big.Int) bool {
	if x.Sign() <= 0 {
		return false
	}
	return x.TrailingZeroBits() == uint(x.BitLen()-1)
}

func send(ctx context.Context, jobs chan<- []*big.Int, a []*big.Int) error {
	select {
	case jobs <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// draw produces cfg.Tries random multiplier vectors.
func (s *searcher) draw(ctx context.Context, jobs chan<- []*big.Int) error {
	rng, err := NewRNG(s.cfg.Seed)
	if err != nil {
		return err
	}
	for n := int64(0); n < s.cfg.Tries; n++ {
		a := make([]*big.Int, s.cfg.K)
		for i, b := range s.bounds {
			if s.cfg.Cond == Power2 {
				a[i], err = s.drawPower2(rng, b)
			} else {
				a[i], err = rng.Between(b.Lo, b.Hi)
			}
			if err != nil {
				return err
			}
		}
		if err := send(ctx, jobs, a); err != nil {
			return err
		}
	}
	return nil
}

// maxPower2Draws bounds the rejection loop of drawPower2.
const maxPower2Draws = 1 << 12

func (s *searcher) drawPower2(rng *RNG, b Bound) (*big.Int, error) {
	if b.Lo.Cmp(b.Hi) == 0 {
		return new(big.Int).Set(b.Lo), nil
	}
	bits := s.cfg.Modulus.M.BitLen()
	for try := 0; try < maxPower2Draws; try++ {
		q1, err := rng.Intn(bits)
		if err != nil {
			return nil, err
		}
		q2, err := rng.Intn(bits)
		if err != nil {
			return nil, err
		}
		signs, err := rng.Intn(4)
		if err != nil {
			return nil, err
		}
		x := new(big.Int).Lsh(big.NewInt(1), uint(q1))
		if signs&1 == 1 {
			x.Neg(x)
		}
		y := new(big.Int).Lsh(big.NewInt(1), uint(q2))
		if signs&2 == 2 {
			x.Sub(x, y)
		} else {
			x.Add(x, y)
		}
		if x.Cmp(b.Lo) >= 0 && x.Cmp(b.Hi) <= 0 {
			return x, nil
		}
	}
	return nil, fmt.Errorf("seek: no ±2^q1 ± 2^q2 multiplier in [%s, %s]", b.Lo, b.Hi)
}

// enumerate walks the box in lexicographic order, a_1 varying slowest.
func (s *searcher) enumerate(ctx context.Context, jobs chan<- []*big.Int) error {
	cur := make([]*big.Int, s.cfg.K)
	for i, b := range s.bounds {
		cur[i] = new(big.Int).Set(b.Lo)
	}
	one := big.NewInt(1)
	for n := int64(0); s.cfg.Tries <= 0 || n < s.cfg.Tries; n++ {
		a := make([]*big.Int, len(cur))
		for i, x := range cur {
			a[i] = new(big.Int).Set(x)
		}
		if err := send(ctx, jobs, a); err != nil {
			return err
		}
		i := len(cur) - 1
		for ; i >= 0; i-- {
			if cur[i].Cmp(s.bounds[i].Hi) < 0 {
				cur[i].Add(cur[i], one)
				break
			}
			cur[i].Set(s.bounds[i].Lo)
		}
		if i < 0 {
			return nil
		}
	}
	return nil
}
