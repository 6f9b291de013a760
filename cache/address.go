package cache

// Decode splits addr into its tag and set index under cfg. The block offset
// bits are dropped.
func Decode(addr uint64, cfg Config) (tag, setIndex uint64) {
	tagShift := cfg.BlockOffsetBits + cfg.SetIndexBits
	if tagShift < AddressBits {
		tag = addr >> tagShift
	}

	if cfg.SetIndexBits > 0 && cfg.BlockOffsetBits < AddressBits {
		setIndex = (addr >> cfg.BlockOffsetBits) & lowBits(cfg.SetIndexBits)
	}

	return tag, setIndex
}

// BlockAddress returns addr with its block offset bits cleared.
func BlockAddress(addr uint64, cfg Config) uint64 {
	return addr &^ lowBits(cfg.BlockOffsetBits)
}

// lowBits returns a mask with the n lowest bits set.
func lowBits(n uint) uint64 {
	if n >= AddressBits {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}
