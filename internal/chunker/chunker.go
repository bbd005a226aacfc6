package chunker

// Chunk splits items into consecutive groups of at most size items, keeping
// their order. A size of zero or less keeps everything in a single group.
// An empty input yields no groups.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
