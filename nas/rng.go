package nas

import (
	"hash/fnv"
	"math/rand"
)

// === SearchKey ===

// SearchKey uniquely identifies a reproducible search run.
// Two searches with the same SearchKey and identical request and data
// MUST produce bit-for-bit identical results.
type SearchKey int64

// NewSearchKey creates a SearchKey from a seed value.
func NewSearchKey(seed int64) SearchKey {
	return SearchKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemData is the RNG subsystem for drawing the shared data sample.
	// Uses master seed directly so --seed maps onto the sample draw 1:1.
	SubsystemData = "data"

	// SubsystemSampling is the RNG subsystem for capping the cohort to num_samples.
	SubsystemSampling = "sampling"

	// SubsystemSynthetic is the RNG subsystem for synthetic dataset generation.
	SubsystemSynthetic = "synthetic"
)

// SubsystemInit returns the subsystem name for weight initialization of one config.
// Keyed by the config rather than its cohort position so a config gets the same
// weights no matter which worker evaluates it or in what order.
func SubsystemInit(cfg ArchitectureConfig) string {
	return "init/" + cfg.Key()
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemData: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
// DeriveSeed is pure and may be used to hand seeds to worker goroutines.
type PartitionedRNG struct {
	key        SearchKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SearchKey.
func NewPartitionedRNG(key SearchKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.DeriveSeed(name)))
	p.subsystems[name] = rng
	return rng
}

// DeriveSeed returns the seed ForSubsystem would use for name, without caching.
func (p *PartitionedRNG) DeriveSeed(name string) int64 {
	if name == SubsystemData {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the SearchKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SearchKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

func newRandFromSeed(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
