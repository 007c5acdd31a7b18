package protocol

// Checksum computes the packet checksum: the sum of all payload bytes,
// truncated to 8 bits. Overflow is discarded.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}
