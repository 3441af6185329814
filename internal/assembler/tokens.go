package assembler

import "unicode"

// cyrillicWeight scales estimates for Cyrillic-dominant text: denser
// scripts cost more tokens per character.
const cyrillicWeight = 1.2

// EstimateTokens is a deterministic token-count heuristic: word-like
// runs, punctuation runs and newlines each count as one token, and the
// total is scaled when Cyrillic letters outnumber Latin ones. It is a
// pure function with no tokenizer state, so tests can assert exact values.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	var words, puncts, newlines int
	var cyr, lat int
	inWord, inPunct := false, false
	for _, r := range s {
		switch {
		case r == '\n':
			newlines++
			inWord, inPunct = false, false
		case unicode.IsSpace(r):
			inWord, inPunct = false, false
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if !inWord {
				words++
			}
			inWord, inPunct = true, false
			switch {
			case r >= 0x0400 && r <= 0x04FF:
				cyr++
			case r < 0x0080 && unicode.IsLetter(r):
				lat++
			}
		default:
			if !inPunct {
				puncts++
			}
			inWord, inPunct = false, true
		}
	}
	total := words + puncts + newlines
	if cyr > lat {
		total = int(float64(total) * cyrillicWeight)
	}
	return total
}
