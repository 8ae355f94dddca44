package hal

// storeCompare32 writes a 64-bit compare value through two 32-bit halves.
// Parking the low half at all ones first means no intermediate value sits
// below both the old and the new deadline, so the split write cannot raise
// a spurious timer interrupt.
func storeCompare32(ticks uint64, low, high func(uint32)) {
	low(0xFFFF_FFFF)
	high(uint32(ticks >> 32))
	low(uint32(ticks))
}
