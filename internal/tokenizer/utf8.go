package tokenizer

import "unicode/utf8"

// trimPartialRune drops an incomplete UTF-8 sequence at the end of b. Bytes
// that can never become valid are left in place.
func trimPartialRune(b []byte) []byte {
	for n := 1; n <= utf8.UTFMax && n <= len(b); n++ {
		if !utf8.RuneStart(b[len(b)-n]) {
			continue
		}
		if !utf8.FullRune(b[len(b)-n:]) {
			return b[:len(b)-n]
		}
		break
	}
	return b
}
