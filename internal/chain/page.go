package chain

// PageBounds clamps the [offset, offset+pageSize) window to a list of n
// items. Callers slice their newest-first event lists with the result.
func PageBounds(n, pageSize, offset int) (lo, hi int) {
	if pageSize < 0 {
		pageSize = 0
	}
	lo = offset
	if lo < 0 {
		lo = 0
	}
	if lo > n {
		lo = n
	}
	hi = lo + pageSize
	if hi > n {
		hi = n
	}
	return lo, hi
}
