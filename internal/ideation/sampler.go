package ideation

import (
	"math/rand/v2"
	"slices"
)

// Sample returns a copy of categories in which every category holding more
// than k options keeps k of them, chosen by a Fisher–Yates shuffle followed by
// truncation. Other categories are copied unchanged. intn must return a
// uniform value in [0, n); nil uses math/rand/v2. A k of zero or less
// disables sampling.
func Sample(categories []CategoryWithOptions, k int, intn func(n int) int) []CategoryWithOptions {
	if intn == nil {
		intn = rand.IntN
	}

	out := make([]CategoryWithOptions, len(categories))
	for i, cat := range categories {
		out[i] = cat
		out[i].Options = slices.Clone(cat.Options)
		if k <= 0 || len(cat.Options) <= k {
			continue
		}

		shuffled := out[i].Options
		for j := len(shuffled) - 1; j >= 1; j-- {
			r := intn(j + 1)
			shuffled[j], shuffled[r] = shuffled[r], shuffled[j]
		}
		out[i].Options = shuffled[:k:k]
	}
	return out
}
