package matching

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// similarity is 1 minus the edit distance normalized by the combined length, so
// identical strings score 1 and strings with nothing in common score 0.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)

	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}

	// DefaultOptions counts a substitution as a deletion plus an insertion.
	d := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)

	return 1 - float64(d)/float64(total)
}

// nameSimilarity compares an issuer name with the best-aligned run of words in a bank description.
// Bank descriptions wrap names in noise ("transf a comercial andes spa 12/01"), so the name is
// slid over every window of the same word count.
func nameSimilarity(description, name string) float64 {
	if description == "" || name == "" {
		return 0
	}

	if strings.Contains(description, name) {
		return 1
	}

	words := strings.Fields(description)
	n := len(strings.Fields(name))

	if n >= len(words) {
		return similarity(description, name)
	}

	best := 0.0

	for i := 0; i+n <= len(words); i++ {
		if s := similarity(strings.Join(words[i:i+n], " "), name); s > best {
			best = s
		}
	}

	return best
}
