package scheduler

import "math/rand"

// Shuffler permutes candidate lists. Implementations decide the randomness
// source; a seeded *rand.Rand makes runs reproducible.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// NewSeededShuffler returns a deterministic shuffler for the seed.
func NewSeededShuffler(seed int64) Shuffler {
	return rand.New(rand.NewSource(seed)) //nolint:gosec
}

// identityShuffler leaves candidate order untouched.
type identityShuffler struct{}

func (identityShuffler) Shuffle(int, func(i, j int)) {}

func shuffledSlots(rng Shuffler, in []Slot) []Slot {
	out := make([]Slot, len(in))
	copy(out, in)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
