// Package primes provides primality tests, integer factorization and
// primitive roots used to decide whether a linear recurrence has maximal period.
package primes

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/tuneinsight/lattigo/v4/ring"
)

// PrimeType is the outcome of a primality test.
type PrimeType int

const (
	Unknown PrimeType = iota
	Prime
	ProbPrime
	Composite
)

// DefaultTrials is the number of Miller-Rabin rounds used when a caller passes 0.
const DefaultTrials = 50

// trialLimit is (65537)^2: every composite below it has a divisor under 2^16.
var trialLimit = big.NewInt(4295098369)

// String returns the long name of t.
func (t PrimeType) String() string {
	switch t {
	case Prime:
		return "PRIME"
	case ProbPrime:
		return "PROB_PRIME"
	case Composite:
		return "COMPOSITE"
	default:
		return "UNKNOWN"
	}
}

// Code returns the one-letter code of t used in factorization files.
func (t PrimeType) Code() string {
	switch t {
	case Prime:
		return "P"
	case ProbPrime:
		return "Q"
	case Composite:
		return "C"
	default:
		return "U"
	}
}

// ParsePrimeType accepts both the one-letter code and the long name.
func ParsePrimeType(s string) (PrimeType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P", "PRIME":
		return Prime, nil
	case "Q", "PROB_PRIME":
		return ProbPrime, nil
	case "C", "COMPOSITE":
		return Composite, nil
	case "U", "UNKNOWN":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("primes: unknown prime status %q", s)
}

// Weaker returns the least certain of two statuses.
func Weaker(a, b PrimeType) PrimeType {
	rank := func(t PrimeType) int {
		switch t {
		case Prime:
			return 0
		case ProbPrime:
			return 1
		case Unknown:
			return 2
		default:
			return 3
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

var smallPrimes = sieve(1 << 16)

func sieve(n int) []uint64 {
	composite := make([]bool, n)
	var out []uint64
	for i := 2; i < n; i++ {
		if composite[i] {
			continue
		}
		out = append(out, uint64(i))
		for j := i * i; j < n; j += i {
			composite[j] = true
		}
	}
	return out
}

// SmallPrimes returns the primes below 2^16.
func SmallPrimes() []uint64 {
	return smallPrimes
}

// IsPrime classifies n. Numbers with no divisor below 2^16 and at most
// 4295098369 are proven prime, so are all 64-bit numbers passing
// Baillie-PSW. Larger numbers get trials Miller-Rabin rounds plus a
// Baillie-PSW test and are reported ProbPrime.
func IsPrime(n *big.Int, trials int) PrimeType {
	if n.Sign() <= 0 || n.Cmp(big.NewInt(2)) < 0 {
		return Composite
	}
	if n.IsUint64() {
		return isPrimeU64(n.Uint64())
	}
	r := new(big.Int)
	w := new(big.Int)
	for _, p := range smallPrimes {
		w.SetUint64(p)
		if r.Mod(n, w).Sign() == 0 {
			return Composite
		}
	}
	if trials <= 0 {
		trials = DefaultTrials
	}
	if n.ProbablyPrime(trials) {
		return ProbPrime
	}
	return Composite
}

func isPrimeU64(n uint64) PrimeType {
	for _, p := range smallPrimes {
		if p*p > n {
			return Prime
		}
		if n%p == 0 {
			if n == p {
				return Prime
			}
			return Composite
		}
	}
	if n <= trialLimit.Uint64() {
		return Prime
	}
	if ring.IsPrime(n) {
		return Prime
	}
	return Composite
}

// IsSafePrime reports whether both n and (n-1)/2 are prime. The returned
// status is the weaker of the two.
func IsSafePrime(n *big.Int, trials int) PrimeType {
	st := IsPrime(n, trials)
	if st == Composite {
		return Composite
	}
	if n.Bit(0) == 0 {
		return Composite
	}
	h := new(big.Int).Rsh(n, 1)
	hs := IsPrime(h, trials)
	if hs == Composite {
		return Composite
	}
	return Weaker(st, hs)
}
