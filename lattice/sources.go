package lattice

import (
	"fmt"
	"math/big"
	"strings"
)

// Korobov is the rank-1 lattice rule with n points and generating vector
// (1, a, a^2, ...) mod n; it has the same point set lattice as the
// multiplicative LCG of multiplier a modulo n.
type Korobov struct {
	N *big.Int
	A *big.Int
}

func (k Korobov) Modulus() *big.Int { return k.N }
func (k Korobov) Order() int        { return 1 }
func (k Korobov) String() string    { return fmt.Sprintf("korobov n=%s a=%s", k.N, k.A) }

func (k Korobov) Generators(lags []int64) ([][]*big.Int, error) {
	row := make([]*big.Int, len(lags))
	for i, lag := range lags {
		if lag < 0 {
			return nil, fmt.Errorf("lattice: negative lag %d", lag)
		}
		row[i] = new(big.Int).Exp(k.A, big.NewInt(lag), k.N)
	}
	return [][]*big.Int{row}, nil
}

// Rank1 is the rank-1 lattice rule with n points and generating vector Z.
// Lag i selects Z[i].
type Rank1 struct {
	N *big.Int
	Z []*big.Int
}

func (r Rank1) Modulus() *big.Int { return r.N }
func (r Rank1) Order() int        { return 1 }

func (r Rank1) String() string {
	z := make([]string, len(r.Z))
	for i, x := range r.Z {
		z[i] = x.String()
	}
	return fmt.Sprintf("rank1 n=%s z=(%s)", r.N, strings.Join(z, " "))
}

func (r Rank1) Generators(lags []int64) ([][]*big.Int, error) {
	row := make([]*big.Int, len(lags))
	for i, lag := range lags {
		if lag < 0 || lag >= int64(len(r.Z)) {
			return nil, fmt.Errorf("%w: lag %d outside generating vector of length %d", ErrDimension, lag, len(r.Z))
		}
		row[i] = new(big.Int).Mod(r.Z[lag], r.N)
	}
	return [][]*big.Int{row}, nil
}
