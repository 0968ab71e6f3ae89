package ui

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxDistance is the default maximum edit distance for a suggestion
	DefaultMaxDistance = 3
	// DefaultMaxSuggestions is the default maximum number of suggestions
	DefaultMaxSuggestions = 3
)

// SuggestOptions configures Suggest
type SuggestOptions struct {
	MaxDistance    int
	MaxSuggestions int
}

type scored struct {
	value    string
	distance int
}

// Suggest returns the candidates closest to target by edit distance, closest first and
// alphabetically among equals. Comparison ignores case. A candidate of the form
// "type.subType" also matches a target naming only its subtype.
//
// Example:
//
//	Suggest("field.strng", []string{"field.string", "field.int"}, nil)
//	// Returns: ["field.string"]
func Suggest(target string, candidates []string, opts *SuggestOptions) []string {
	maxDistance, maxSuggestions := DefaultMaxDistance, DefaultMaxSuggestions
	if opts != nil {
		if opts.MaxDistance > 0 {
			maxDistance = opts.MaxDistance
		}
		if opts.MaxSuggestions > 0 {
			maxSuggestions = opts.MaxSuggestions
		}
	}

	target = strings.ToLower(target)
	var matches []scored
	for _, candidate := range candidates {
		c := strings.ToLower(candidate)
		dist := Distance(target, c)
		if _, subType, ok := strings.Cut(c, "."); ok && !strings.Contains(target, ".") {
			dist = min(dist, Distance(target, subType))
		}
		if dist <= maxDistance {
			matches = append(matches, scored{value: candidate, distance: dist})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	result := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// Distance returns the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	s, t := []rune(a), []rune(b)
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	prev := make([]int, len(t)+1)
	cur := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		cur[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(t)]
}
