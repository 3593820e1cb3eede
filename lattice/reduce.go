package lattice

import (
	"math/big"
	"sort"
)

// PairwiseReduce applies Dieter's pairwise reduction to a copy of b: each
// vector is replaced by b_i - q b_j whenever that shortens it, until no pair
// improves. The result is sorted by increasing euclidean length. Run after
// LLL it approximates a Minkowski-reduced basis, which is what the Beyer
// quotient needs.
func PairwiseReduce(b [][]*big.Int) [][]*big.Int {
	out := CopyBasis(b)
	n := len(out)
	norms := make([]*big.Int, n)
	for i := range out {
		norms[i] = NormSq(out[i])
	}
	t := new(big.Int)
	for changed := true; changed; {
		changed = false
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j || norms[j].Sign() == 0 {
					continue
				}
				ip := Dot(out[i], out[j])
				// Only |2 ip| > |b_j|^2 can shorten b_i.
				if t.Abs(ip).Lsh(t, 1).Cmp(norms[j]) <= 0 {
					continue
				}
				q := roundDiv(ip, norms[j])
				cand := make([]*big.Int, len(out[i]))
				for l := range cand {
					cand[l] = new(big.Int).Mul(q, out[j][l])
					cand[l].Sub(out[i][l], cand[l])
				}
				cn := NormSq(cand)
				if cn.Cmp(norms[i]) < 0 {
					out[i], norms[i] = cand, cn
					changed = true
				}
			}
		}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return norms[idx[a]].Cmp(norms[idx[b]]) < 0 })
	sorted := make([][]*big.Int, n)
	for i, k := range idx {
		sorted[i] = out[k]
	}
	return sorted
}
