package mrg

import "math/big"

// Matrix is a square matrix over Z_m stored by rows.
type Matrix [][]*big.Int

func identity(n int) Matrix {
	out := zeroMatrix(n)
	for i := 0; i < n; i++ {
		out[i][i].SetInt64(1)
	}
	return out
}

func zeroMatrix(n int) Matrix {
	out := make(Matrix, n)
	for i := range out {
		out[i] = make([]*big.Int, n)
		for j := range out[i] {
			out[i][j] = new(big.Int)
		}
	}
	return out
}

func (a Matrix) mulMod(b Matrix, m *big.Int) Matrix {
	n := len(a)
	out := zeroMatrix(n)
	t := new(big.Int)
	for i := 0; i < n; i++ {
		for l := 0; l < n; l++ {
			if a[i][l].Sign() == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				out[i][j].Add(out[i][j], t.Mul(a[i][l], b[l][j]))
			}
		}
		for j := 0; j < n; j++ {
			out[i][j].Mod(out[i][j], m)
		}
	}
	return out
}

func (a Matrix) mulVecMod(v []*big.Int, m *big.Int) []*big.Int {
	out := make([]*big.Int, len(a))
	t := new(big.Int)
	for i := range a {
		s := new(big.Int)
		for j, x := range v {
			s.Add(s, t.Mul(a[i][j], x))
		}
		out[i] = s.Mod(s, m)
	}
	return out
}

func (a Matrix) powMod(e int64, m *big.Int) Matrix {
	result := identity(len(a))
	base := a
	for e > 0 {
		if e&1 == 1 {
			result = result.mulMod(base, m)
		}
		e >>= 1
		if e > 0 {
			base = base.mulMod(base, m)
		}
	}
	return result
}

// CharPoly returns the coefficients c_0..c_n (c_n = 1) of det(xI - A) over
// Z_m using Berkowitz's division-free algorithm, so m need not be prime.
func CharPoly(a Matrix, m *big.Int) []*big.Int {
	n := len(a)
	mod := func(x *big.Int) *big.Int { return x.Mod(x, m) }
	// vect holds the coefficients by decreasing powers.
	vect := []*big.Int{big.NewInt(1), mod(new(big.Int).Neg(a[0][0]))}
	t := new(big.Int)
	for r := 1; r < n; r++ {
		col := make([]*big.Int, r)
		for i := 0; i < r; i++ {
			col[i] = new(big.Int).Set(a[i][r])
		}
		toep := make([]*big.Int, r+2)
		toep[0] = big.NewInt(1)
		toep[1] = mod(new(big.Int).Neg(a[r][r]))
		v := col
		for i := 2; i <= r+1; i++ {
			s := new(big.Int)
			for j := 0; j < r; j++ {
				s.Add(s, t.Mul(a[r][j], v[j]))
			}
			toep[i] = mod(s.Neg(s))
			next := make([]*big.Int, r)
			for p := 0; p < r; p++ {
				acc := new(big.Int)
				for q := 0; q < r; q++ {
					acc.Add(acc, t.Mul(a[p][q], v[q]))
				}
				next[p] = mod(acc)
			}
			v = next
		}
		nv := make([]*big.Int, r+2)
		for i := 0; i <= r+1; i++ {
			s := new(big.Int)
			for j := 0; j <= r && j <= i; j++ {
				s.Add(s, t.Mul(toep[i-j], vect[j]))
			}
			nv[i] = mod(s)
		}
		vect = nv
	}
	out := make([]*big.Int, n+1)
	for i := 0; i <= n; i++ {
		out[i] = vect[n-i]
	}
	return out
}
