package mrg

import (
	"errors"
	"fmt"
	"math/big"
)

// crt performs Garner recomposition: the unique x in [0, prod moduli) with
// x = residues[i] mod moduli[i]. Moduli must be pairwise coprime.
func crt(residues, moduli []*big.Int) (*big.Int, error) {
	if len(residues) == 0 || len(residues) != len(moduli) {
		return nil, errors.New("mrg: residue and modulus counts differ")
	}
	x := new(big.Int).Mod(residues[0], moduli[0])
	M := new(big.Int).Set(moduli[0])
	tmp := new(big.Int)
	for i := 1; i < len(residues); i++ {
		inv := new(big.Int).ModInverse(M, moduli[i])
		if inv == nil {
			return nil, fmt.Errorf("mrg: moduli %s and %s are not coprime", M, moduli[i])
		}
		t := new(big.Int).Sub(residues[i], x)
		t.Mod(t, moduli[i])
		t.Mul(t, inv)
		t.Mod(t, moduli[i])
		tmp.Mul(M, t)
		x.Add(x, tmp)
		M.Mul(M, moduli[i])
	}
	return x, nil
}
