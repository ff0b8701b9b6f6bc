package ideation

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleProperties(t *testing.T) {
	input := []CategoryWithOptions{
		{Name: "big", Options: optionsFor("big", 40)},
		{Name: "small", Options: optionsFor("small", 3)},
		{Name: "exact", Options: optionsFor("exact", 5)},
		{Name: "fallback", Options: optionsFor("fallback", 9), Fallback: true},
	}
	original := cloneCategories(input)
	rng := rand.New(rand.NewPCG(1, 2))

	got := Sample(input, 5, rng.IntN)
	require.Len(t, got, len(input))

	// Input is never mutated.
	if diff := cmp.Diff(original, input); diff != "" {
		t.Fatalf("Sample mutated its input (-want +got):\n%s", diff)
	}

	for i, c := range got {
		assert.Equal(t, input[i].Name, c.Name)
		assert.Equal(t, input[i].Fallback, c.Fallback)
		if len(input[i].Options) <= 5 {
			if diff := cmp.Diff(input[i].Options, c.Options); diff != "" {
				t.Errorf("%s changed (-want +got):\n%s", c.Name, diff)
			}
			continue
		}

		require.Len(t, c.Options, 5, c.Name)
		seen := make(map[string]bool)
		for _, opt := range c.Options {
			assert.True(t, slices.Contains(input[i].Options, opt), "%q not from the original set", opt)
			assert.False(t, seen[opt], "duplicate %q", opt)
			seen[opt] = true
		}
	}
}

func TestSampleFisherYatesOrder(t *testing.T) {
	// intn always picking 0 swaps the current tail with the head:
	// [a b c d] -> i=3 swap(3,0) [d b c a] -> i=2 swap(2,0) [c b d a] -> i=1 swap(1,0) [b c d a]
	input := []CategoryWithOptions{{Name: "x", Options: []string{"a", "b", "c", "d"}}}
	var bounds []int
	intn := func(n int) int {
		bounds = append(bounds, n)
		return 0
	}

	got := Sample(input, 2, intn)
	assert.Equal(t, []string{"b", "c"}, got[0].Options)
	assert.Equal(t, []int{4, 3, 2}, bounds, "index drawn from [0, i] for i from last down to 1")
}

func TestSampleIsUniformEnough(t *testing.T) {
	input := []CategoryWithOptions{{Name: "x", Options: []string{"a", "b", "c", "d"}}}
	rng := rand.New(rand.NewPCG(7, 11))
	counts := make(map[string]int)
	const runs = 4000
	for i := 0; i < runs; i++ {
		got := Sample(input, 1, rng.IntN)
		counts[got[0].Options[0]]++
	}
	for _, opt := range input[0].Options {
		assert.InDelta(t, runs/4, counts[opt], runs/10, "option %q", opt)
	}
}

func TestSampleNonPositiveKDisablesSampling(t *testing.T) {
	input := []CategoryWithOptions{{Name: "x", Options: []string{"a", "b"}}}
	assert.Equal(t, input, Sample(input, 0, nil))
}

func cloneCategories(in []CategoryWithOptions) []CategoryWithOptions {
	out := make([]CategoryWithOptions, len(in))
	for i, c := range in {
		out[i] = c
		out[i].Options = slices.Clone(c.Options)
	}
	return out
}
