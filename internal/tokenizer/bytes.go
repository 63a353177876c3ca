package tokenizer

// byteToUnicode and its inverse implement GPT-2's reversible byte-to-rune
// remap: every one of the 256 possible bytes maps to a distinct printable
// rune, so arbitrary binary input can round-trip through a BPE vocabulary
// built from ordinary Unicode text.
var (
	byteToRune [256]rune
	runeToByte map[rune]byte
)

func init() {
	runeToByte = make(map[rune]byte, 256)

	printable := make(map[int]bool)
	addRange := func(lo, hi int) {
		for i := lo; i <= hi; i++ {
			printable[i] = true
		}
	}
	addRange('!', '~')
	addRange(0xA1, 0xAC)
	addRange(0xAE, 0xFF)

	n := 0
	for b := 0; b < 256; b++ {
		if printable[b] {
			byteToRune[b] = rune(b)
		} else {
			byteToRune[b] = rune(256 + n)
			n++
		}
	}
	for b := 0; b < 256; b++ {
		runeToByte[byteToRune[b]] = byte(b)
	}
}

// bytesToTokenString maps raw bytes into the remapped-rune string space
// the BPE vocabulary is built over.
func bytesToTokenString(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = byteToRune[c]
	}
	return string(runes)
}

// tokenStringToBytes inverts bytesToTokenString. Runes outside the
// 256-entry inverse table are dropped rather than causing undefined
// behavior, per the handling spec.md leaves to the implementer.
func tokenStringToBytes(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := runeToByte[r]; ok {
			out = append(out, b)
		}
	}
	return out
}
