package pipeline

import "math/rand"

// applySampling reduces ids per spec §6's `--limit`/`--sample`/`--sample-seed`
// testing flags: sample first (a seeded Bernoulli draw per identifier, in
// input order, so the result is reproducible across runs given the same
// seed and input regardless of map iteration anywhere upstream), then
// limit truncates the sampled set to at most n entries. A zero sample
// fraction or non-positive limit leaves that stage a no-op.
func applySampling(ids []string, limit int, sample float64, seed int64) []string {
	out := ids

	if sample > 0 && sample < 1 {
		rng := rand.New(rand.NewSource(seed))

		sampled := make([]string, 0, len(ids))

		for _, id := range ids {
			if rng.Float64() < sample {
				sampled = append(sampled, id)
			}
		}

		out = sampled
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}
