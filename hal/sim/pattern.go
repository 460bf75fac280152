package sim

import "encoding/binary"

// WordSize is the size of one counter word: a 16-bit counter and 16 zero bits.
const WordSize = 4

// FillCounter writes consecutive counter words into buf starting at counter
// value word. Trailing bytes that do not fit a whole word are zeroed. It
// returns the counter value following the last word written.
func FillCounter(buf []byte, word uint64) uint64 {
	n := len(buf) / WordSize
	for i := 0; i < n; i++ {
		off := i * WordSize
		binary.LittleEndian.PutUint16(buf[off:], uint16(word))
		binary.LittleEndian.PutUint16(buf[off+2:], 0)
		word++
	}
	clear(buf[n*WordSize:])
	return word
}
