package marc

// HasCJK reports whether text contains a Hangul syllable or a CJK unified
// ideograph.
func HasCJK(text string) bool {
	for _, r := range text {
		if isHangulSyllable(r) || (r >= 0x4E00 && r <= 0x9FFF) {
			return true
		}
	}
	return false
}

func isHangulSyllable(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7AF
}

// hasHangul reports whether text contains a Hangul syllable. Leader label
// lines ("유형", "서지수준", ...) are recognised this way.
func hasHangul(text string) bool {
	for _, r := range text {
		if isHangulSyllable(r) {
			return true
		}
	}
	return false
}
