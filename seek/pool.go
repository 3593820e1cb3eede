package seek

import (
	"math/big"
	"sort"
	"sync"

	"latmrg/merit"
	"latmrg/mrg"
)

// Candidate is a generator kept by a search.
type Candidate struct {
	// A holds the multipliers of the searched component as drawn.
	A []*big.Int
	// Comp is the generator that was evaluated: the searched component, or
	// its combination with the fixed components.
	Comp   *mrg.Component
	Merit  float64
	Worst  []int
	Values []merit.ProjValue
}

// pool keeps the n best candidates. Ties on merit are broken on the
// multipliers so the content does not depend on evaluation order.
type pool struct {
	mu    sync.Mutex
	n     int
	lower bool
	items []Candidate
}

func newPool(n int, lowerIsBetter bool) *pool {
	return &pool{n: n, lower: lowerIsBetter}
}

func (p *pool) before(a, b *Candidate) bool {
	if a.Merit != b.Merit {
		if p.lower {
			return a.Merit < b.Merit
		}
		return a.Merit > b.Merit
	}
	return compareInts(a.A, b.A) < 0
}

func compareInts(a, b []*big.Int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[i].Cmp(b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// threshold is the merit a candidate must not fall behind to enter the
// pool, or 0 while the pool is not full.
func (p *pool) threshold() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) < p.n {
		return 0
	}
	return p.items[len(p.items)-1].Merit
}

// offer inserts c when it ranks among the n best and reports whether it did.
func (p *pool) offer(c Candidate) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := sort.Search(len(p.items), func(i int) bool { return p.before(&c, &p.items[i]) })
	if i >= p.n {
		return false
	}
	if i > 0 && p.items[i-1].Merit == c.Merit && compareInts(p.items[i-1].A, c.A) == 0 {
		return false
	}
	p.items = append(p.items, Candidate{})
	copy(p.items[i+1:], p.items[i:])
	p.items[i] = c
	if len(p.items) > p.n {
		p.items = p.items[:p.n]
	}
	return true
}

func (p *pool) best() []Candidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Candidate(nil), p.items...)
}
