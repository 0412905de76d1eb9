package analyze

// Batches partitions the indices 0, ..., nData-1 into nBatches contiguous
// half-open ranges [lo, hi). The first nData%nBatches batches hold one extra
// element. If nBatches exceeds nData, nData batches are returned.
func Batches(nData, nBatches int) [][2]int {
	if nBatches <= 0 {
		panic("analyze: non-positive number of batches")
	}
	if nData < 0 {
		panic("analyze: negative amount of data")
	}
	if nBatches > nData {
		nBatches = nData
	}
	bounds := make([][2]int, nBatches)
	if nBatches == 0 {
		return bounds
	}
	size := nData / nBatches
	remainder := nData % nBatches

	idx := 0
	for i := range bounds {
		n := size
		if i < remainder {
			n++
		}
		bounds[i] = [2]int{idx, idx + n}
		idx += n
	}
	if idx != nData {
		panic("analyze: bad batch logic")
	}
	return bounds
}
