package common

// AlignUp rounds value up to the next multiple of alignment.
// Alignment must be a power of two; an alignment of 0 returns value unchanged.
//
// Parameters:
//   - value: the value to align
//   - alignment: the required alignment
//
// Returns:
//   - uint64: value rounded up to the next multiple of alignment
func AlignUp(value, alignment uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}
