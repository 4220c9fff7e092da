package engine

// Stream is a deterministic random number substream. One Stream is derived
// per iteration from the run seed and the iteration index, so per-iteration
// draws are fixed by (seed, index) no matter how iterations are batched
// across workers.
//
// The generator is SplitMix64 (Steele, Lea, Flood 2014): a counter-based
// generator with a 64-bit state, full period, and strong output mixing.
// It replaces the shared mutable RNG a single-threaded sampler would use.
type Stream struct {
	state uint64
}

// NewStream derives the substream for one iteration of a run. The counter
// seed + iteration*golden is passed through the full avalanche finalizer
// before it becomes the stream state: without that, iteration i+1 would
// start exactly one counter step ahead of iteration i and replay its draws
// at a one-draw lag.
func NewStream(seed int64, iteration int) *Stream {
	return &Stream{state: mix64(uint64(seed) + uint64(iteration)*0x9E3779B97F4A7C15)}
}

// Next returns the next 64 random bits.
func (s *Stream) Next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	return mix64(s.state)
}

// mix64 is the SplitMix64 output finalizer (fmix64 avalanche).
func mix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Float64 returns a uniform draw in [0, 1) with 53 bits of precision.
func (s *Stream) Float64() float64 {
	return float64(s.Next()>>11) / (1 << 53)
}
