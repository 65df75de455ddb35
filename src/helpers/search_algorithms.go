package helpers

// InsertPosition binary searches n ordered slots. cmp(i) reports how the
// key compares with slot i: negative if it sorts before, positive if after,
// zero if equal. The returned index is where the key belongs; on an exact
// match it is the matching slot.
func InsertPosition(n int, cmp func(i int) int) int {
	low, high := 0, n-1
	for low <= high {
		mid := (low + high) / 2
		c := cmp(mid)
		if c < 0 {
			high = mid - 1
		} else if c > 0 {
			low = mid + 1
		} else {
			return mid
		}
	}
	return high + 1
}
