package odds

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sort"
)

// RNG returns a uniform integer in [0, n).
type RNG interface {
	IntN(n int) int
}

type cryptoRNG struct{}

// NewCryptoRNG draws from crypto/rand. It holds no state and is safe for
// concurrent use.
func NewCryptoRNG() RNG {
	return cryptoRNG{}
}

func (cryptoRNG) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic("odds: crypto/rand failed: " + err.Error())
	}
	return int(v.Int64())
}

// NewSeededRNG is deterministic and must not be shared between goroutines.
func NewSeededRNG(seed uint64) RNG {
	return mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Select draws exactly one outcome from t.
func Select(t *Table, rng RNG) Outcome {
	return pick(t, rng.IntN(Permille))
}

func pick(t *Table, r int) Outcome {
	i := sort.SearchInts(t.bounds, r+1)
	if i < len(t.Outcomes) {
		return t.Outcomes[i]
	}
	return t.Loss()
}
