package usecase

// isSentenceEnd reports whether text[i] closes a sentence: a line break, or
// '.', '!' or '?' followed by whitespace or the end of the text
func isSentenceEnd(text string, i int) bool {
	switch text[i] {
	case '\n':
		return true
	case '.', '!', '?':
		if i+1 == len(text) {
			return true
		}
		switch text[i+1] {
		case ' ', '\t', '\r', '\n':
			return true
		}
	}
	return false
}

// firstSentenceBreak returns the offset just past the first sentence end in text[from:to], or -1
func firstSentenceBreak(text string, from, to int) int {
	for i := from; i < to; i++ {
		if isSentenceEnd(text, i) {
			return i + 1
		}
	}
	return -1
}

// lastSentenceBreak returns the offset just past the last sentence end in text[from:to], or -1
func lastSentenceBreak(text string, from, to int) int {
	for i := to - 1; i >= from; i-- {
		if isSentenceEnd(text, i) {
			return i + 1
		}
	}
	return -1
}

// sentenceBounds returns the span of the sentence holding text[start:end]
func sentenceBounds(text string, start, end int) (int, int) {
	lo := lastSentenceBreak(text, 0, start)
	if lo < 0 {
		lo = 0
	}
	hi := firstSentenceBreak(text, end, len(text))
	if hi < 0 {
		hi = len(text)
	}
	return lo, hi
}
