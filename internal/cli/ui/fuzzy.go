package ui

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxDistance is the largest edit distance still offered as a suggestion
	DefaultMaxDistance = 3
	// DefaultMaxSuggestions caps the number of suggestions
	DefaultMaxSuggestions = 3
)

// SuggestOptions configures suggestion matching
type SuggestOptions struct {
	MaxDistance    int  // default 3
	MaxSuggestions int  // default 3
	CaseSensitive  bool // default false
}

type suggestion struct {
	value    string
	distance int
}

// Suggest returns the candidates closest to target, nearest first. Ties
// keep candidate order.
//
// Example:
//
//	Suggest("SM_NL0", []string{"SM_NLO", "2HDM", "SMEFTsim"}, nil)
//	// Returns: ["SM_NLO"]
func Suggest(target string, candidates []string, opts *SuggestOptions) []string {
	o := SuggestOptions{MaxDistance: DefaultMaxDistance, MaxSuggestions: DefaultMaxSuggestions}
	if opts != nil {
		o.CaseSensitive = opts.CaseSensitive
		if opts.MaxDistance > 0 {
			o.MaxDistance = opts.MaxDistance
		}
		if opts.MaxSuggestions > 0 {
			o.MaxSuggestions = opts.MaxSuggestions
		}
	}

	var found []suggestion
	for _, candidate := range candidates {
		a, b := target, candidate
		if !o.CaseSensitive {
			a, b = strings.ToLower(a), strings.ToLower(b)
		}
		if d := Distance(a, b); d <= o.MaxDistance {
			found = append(found, suggestion{value: candidate, distance: d})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].distance < found[j].distance
	})

	result := make([]string, 0, o.MaxSuggestions)
	for i := 0; i < len(found) && i < o.MaxSuggestions; i++ {
		result = append(result, found[i].value)
	}
	return result
}

// SuggestFiles suggests catalog files for a mistyped file name. The .json
// extension is ignored while matching, so "SM_NLO" finds "SM_NL0.json".
func SuggestFiles(name string, files []string) []string {
	stems := make([]string, len(files))
	for i, f := range files {
		stems[i] = strings.TrimSuffix(f, ".json")
	}
	byStem := make(map[string]string, len(files))
	for i, stem := range stems {
		if _, ok := byStem[stem]; !ok {
			byStem[stem] = files[i]
		}
	}

	var out []string
	for _, stem := range Suggest(strings.TrimSuffix(name, ".json"), stems, nil) {
		out = append(out, byStem[stem])
	}
	return out
}

// Distance is the Levenshtein distance between a and b counted in runes:
// the fewest single-character insertions, deletions or substitutions
// turning one into the other.
//
//	Distance("kitten", "sitting") // 3
func Distance(a, b string) int {
	s, t := []rune(a), []rune(b)
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	// two rows of the edit matrix are enough
	prev := make([]int, len(t)+1)
	curr := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		curr[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(t)]
}
