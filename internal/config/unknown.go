package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance bounds "did you mean?" suggestions.
const maxLevenshteinDistance = 3

// knownKeys lists the TOML keys of File, sorted, derived from its tags.
var knownKeys = func() []string {
	t := reflect.TypeOf(File{})
	keys := make([]string, 0, t.NumField())

	for i := range t.NumField() {
		if tag := t.Field(i).Tag.Get("toml"); tag != "" {
			keys = append(keys, tag)
		}
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys turns undecoded keys into errors, one per key, each with
// the closest known key when there is one.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	seen := make(map[string]bool)

	for _, key := range md.Undecoded() {
		top := strings.SplitN(key.String(), ".", 2)[0]
		if seen[top] {
			continue
		}

		seen[top] = true

		if suggestion := closestMatch(top, knownKeys); suggestion != "" {
			errs = append(errs, fmt.Errorf("unknown config key %q: did you mean %q?", top, suggestion))
		} else {
			errs = append(errs, fmt.Errorf("unknown config key %q", top))
		}
	}

	return errors.Join(errs...)
}

// closestMatch returns the known key nearest to unknown, or "" when none is
// within maxLevenshteinDistance. Ties go to the first key in sort order.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		if d := levenshtein(unknown, k); d < bestDist {
			bestDist = d
			best = k
		}
	}

	return best
}

// levenshtein computes the edit distance between a and b with two rows.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
