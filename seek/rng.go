package seek

import (
	"fmt"
	"io"
	"math/big"

	"github.com/tuneinsight/lattigo/v4/utils"
	"golang.org/x/crypto/sha3"
)

// RNG draws reproducible big integers from a keyed PRNG. The key is the
// SHAKE-128 digest of the seed string, so equal seeds give equal searches.
type RNG struct {
	prng utils.PRNG
	buf  []byte
}

// NewRNG creates an RNG keyed by seed. An empty seed uses a fresh random
// key.
func NewRNG(seed string) (*RNG, error) {
	if seed == "" {
		prng, err := utils.NewPRNG()
		if err != nil {
			return nil, err
		}
		return &RNG{prng: prng}, nil
	}
	key := make([]byte, 32)
	h := sha3.NewShake128()
	h.Write([]byte(seed))
	h.Read(key)
	prng, err := utils.NewKeyedPRNG(key)
	if err != nil {
		return nil, err
	}
	return &RNG{prng: prng}, nil
}

// Below returns a uniform integer in [0, n) by rejection on the smallest
// byte string covering n.
func (r *RNG) Below(n *big.Int) (*big.Int, error) {
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("seek: empty range %s", n)
	}
	bits := n.BitLen()
	nb := (bits + 7) / 8
	if cap(r.buf) < nb {
		r.buf = make([]byte, nb)
	}
	buf := r.buf[:nb]
	mask := byte(0xff >> (uint(nb*8-bits) & 7))
	x := new(big.Int)
	for {
		if _, err := io.ReadFull(r.prng, buf); err != nil {
			return nil, fmt.Errorf("prng read: %w", err)
		}
		buf[0] &= mask
		x.SetBytes(buf)
		if x.Cmp(n) < 0 {
			return x, nil
		}
	}
}

// Between returns a uniform integer in [lo, hi].
func (r *RNG) Between(lo, hi *big.Int) (*big.Int, error) {
	span := new(big.Int).Sub(hi, lo)
	span.Add(span, big.NewInt(1))
	x, err := r.Below(span)
	if err != nil {
		return nil, err
	}
	return x.Add(x, lo), nil
}

// Intn returns a uniform int in [0, n).
func (r *RNG) Intn(n int) (int, error) {
	x, err := r.Below(big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(x.Int64()), nil
}
