package mpt

// BytesToNibbles expands a byte slice into its big-endian nibble path,
// high nibble first, the form every trie operation navigates on.
func BytesToNibbles(b []byte) []byte {
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, c>>4, c&0x0f)
	}
	return out
}

// NibblesToBytes packs a nibble path back into bytes. It panics if the
// path has an odd length, which should never occur for paths produced
// by BytesToNibbles or stored as trie keys derived from fixed-width
// hashes.
func NibblesToBytes(nibbles []byte) []byte {
	if len(nibbles)%2 != 0 {
		panic("mpt: odd nibble path length")
	}
	out := make([]byte, len(nibbles)/2)
	for i := range out {
		out[i] = nibbles[2*i]<<4 | nibbles[2*i+1]
	}
	return out
}
