package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxEditDistance bounds the typo distance for a suggestion.
const maxEditDistance = 2

// closestMatch finds the closest candidate to target: the best fuzzy
// subsequence match, else the nearest candidate within maxEditDistance
// edits. It returns "" if nothing is close.
func closestMatch(target string, candidates []string) string {
	if len(candidates) == 0 || target == "" {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDistance := "", maxEditDistance+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(target), c); d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}

// choiceError reports an invalid flag value with a "did you mean" hint.
func choiceError(flag, value string, choices []string) *CLIError {
	hint := "valid values: " + strings.Join(choices, ", ")
	if match := closestMatch(value, choices); match != "" {
		hint = fmt.Sprintf("did you mean %q? %s", match, hint)
	}
	return &CLIError{
		Type:    "usage",
		Message: fmt.Sprintf("invalid --%s %q", flag, value),
		Hint:    hint,
	}
}
