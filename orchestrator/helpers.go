package orchestrator

import (
	"fmt"
	"math/rand"
)

// AllExamples exports every test item.
const AllExamples = -1

// selectExamples draws k distinct indices from [0,n) uniformly at random.
// k == AllExamples selects every index.
func selectExamples(rng *rand.Rand, n, k int) (map[int]bool, error) {
	if k == AllExamples {
		k = n
	}
	if k < 0 || k > n {
		return nil, fmt.Errorf("orchestrator: cannot save %d examples out of %d items", k, n)
	}
	out := make(map[int]bool, k)
	if k == n {
		for i := 0; i < n; i++ {
			out[i] = true
		}
		return out, nil
	}
	for _, i := range rng.Perm(n)[:k] {
		out[i] = true
	}
	return out, nil
}

func inputName(metric string) string { return "input_" + metric }
