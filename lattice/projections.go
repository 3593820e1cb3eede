package lattice

// Subsets calls fn with every s-subset of {1..t} in lexicographic order.
// When withFirst is set only subsets containing 1 are produced. fn returns
// false to stop; Subsets then returns false as well. The slice passed to fn
// is reused between calls.
func Subsets(s, t int, withFirst bool, fn func([]int) bool) bool {
	if s < 1 || s > t {
		return true
	}
	cur := make([]int, s)
	start := 0
	if withFirst {
		cur[0] = 1
		start = 1
		if s == 1 {
			return fn(cur)
		}
	}
	var rec func(pos, from int) bool
	rec = func(pos, from int) bool {
		if pos == s {
			return fn(cur)
		}
		for v := from; v <= t-(s-pos-1); v++ {
			cur[pos] = v
			if !rec(pos+1, v+1) {
				return false
			}
		}
		return true
	}
	from := 1
	if withFirst {
		from = 2
	}
	return rec(start, from)
}

// IsSuccessive reports whether coords is exactly {1, ..., len(coords)}.
func IsSuccessive(coords []int) bool {
	for i, c := range coords {
		if c != i+1 {
			return false
		}
	}
	return true
}
