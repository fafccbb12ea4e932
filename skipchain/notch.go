package skipchain

// Notch returns the skip height of a sequence number: how many times the
// chain base divides it, which is the count of trailing zero digits of seq
// written in radix Base. Zero is divisible by everything, so the loop is
// bounded by the height cap; Notch(0) returns the cap and genesis is
// thereby the tallest checkpoint of any chain.
func (p Params) Notch(seq uint64) uint64 {
	var height uint64
	for seq%p.Base == 0 {
		height++
		seq /= p.Base
		if height >= p.HeightCap {
			return height
		}
	}
	return height
}
