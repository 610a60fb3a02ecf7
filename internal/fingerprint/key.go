package fingerprint

// Bit budget of a packed key: two frequency bins and the chunk delta must
// fit a uint32. Config.Validate guarantees both at construction time, so
// pairs produced by GeneratePairs are always representable.
const (
	maxFreqBits  = 9
	maxDeltaBits = 14
)

// Key is a fingerprint hash: anchor bin, target bin and their chunk delta
// packed as [anchorBin | targetBin | delta]. The delta is relative, so a
// key is unaffected by the absolute position of the pair in the signal.
type Key uint32

// NewKey packs a pair into a key. ok is false when the pair is not
// representable: a negative delta or values outside the allotted bits.
// Collisions between unrelated pairs are expected and absorbed by the
// offset histogram, not treated as errors.
func NewKey(pair PeakPair) (key Key, ok bool) {
	delta := pair.DeltaTime()
	if delta < 0 || delta > 1<<maxDeltaBits-1 {
		return 0, false
	}
	anchorBin := pair.Anchor.FreqBin
	targetBin := pair.Target.FreqBin
	if anchorBin < 0 || anchorBin > 1<<maxFreqBits-1 ||
		targetBin < 0 || targetBin > 1<<maxFreqBits-1 {
		return 0, false
	}
	packed := uint32(anchorBin)<<(maxFreqBits+maxDeltaBits) |
		uint32(targetBin)<<maxDeltaBits |
		uint32(delta)
	return Key(packed), true
}
