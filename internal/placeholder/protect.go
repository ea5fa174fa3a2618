package placeholder

import (
	"fmt"
	"strings"
)

// Markers maps opaque markers back to the tokens they replaced. Index i holds
// the token for marker "[[PH<i+1>]]".
type Markers []string

func marker(i int) string {
	return fmt.Sprintf("[[PH%d]]", i+1)
}

// Protect replaces every placeholder token with an opaque marker so that a
// text rewriter cannot alter it. Repeated tokens share one marker.
func Protect(s string) (string, Markers) {
	var markers Markers
	index := make(map[string]int)

	out := tokenRe.ReplaceAllStringFunc(s, func(tok string) string {
		i, ok := index[tok]
		if !ok {
			i = len(markers)
			index[tok] = i
			markers = append(markers, tok)
		}
		return marker(i)
	})
	return out, markers
}

// Restore puts the original tokens back in place of their markers
func Restore(s string, markers Markers) string {
	if len(markers) == 0 {
		return s
	}
	pairs := make([]string, 0, len(markers)*2)
	for i, tok := range markers {
		pairs = append(pairs, marker(i), tok)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
