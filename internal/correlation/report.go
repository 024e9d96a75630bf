package correlation

import (
	"math"
	"sort"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// Generate computes the Pearson correlation coefficient for every unordered
// pair of numeric (int or float) columns declared on s, over the records in
// ds. A pair with fewer than two jointly non-null observations is omitted —
// Pearson's r is undefined below that. Results are sorted by |PearsonR|
// descending (ties broken by column name) so the most significant
// relationships sort first, the same "most impactful first" ordering the
// teacher's pattern-suggestion step applies to its own ranked output.
func Generate(s *schema.Schema, ds *schema.Dataset) []Pair {
	numeric := numericColumns(s)
	if len(numeric) < 2 {
		return nil
	}

	var pairs []Pair

	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			xs, ys := jointSamples(ds, numeric[i], numeric[j])
			if len(xs) < 2 {
				continue
			}

			r := pearson(xs, ys)

			pairs = append(pairs, Pair{
				ColumnA:  numeric[i],
				ColumnB:  numeric[j],
				PearsonR: r,
				N:        len(xs),
			})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		ri, rj := math.Abs(pairs[i].PearsonR), math.Abs(pairs[j].PearsonR)
		if ri != rj {
			return ri > rj
		}

		if pairs[i].ColumnA != pairs[j].ColumnA {
			return pairs[i].ColumnA < pairs[j].ColumnA
		}

		return pairs[i].ColumnB < pairs[j].ColumnB
	})

	return pairs
}

func numericColumns(s *schema.Schema) []string {
	var names []string

	for _, col := range s.Columns {
		if col.Type == schema.ColumnInt || col.Type == schema.ColumnFloat {
			names = append(names, col.Name)
		}
	}

	return names
}

func jointSamples(ds *schema.Dataset, colA, colB string) (xs, ys []float64) {
	for _, rec := range ds.Records {
		a, aok := rec.Get(colA)
		b, bok := rec.Get(colB)

		if !aok || !bok || a.IsNull() || b.IsNull() {
			continue
		}

		xs = append(xs, numericValue(a))
		ys = append(ys, numericValue(b))
	}

	return xs, ys
}

func numericValue(v schema.Value) float64 {
	if v.Kind == schema.KindInt {
		return float64(v.Int)
	}

	return v.Float
}

// pearson computes the sample Pearson correlation coefficient. Returns 0
// when either series has zero variance (a constant column correlates with
// nothing, and division by zero is avoided rather than propagating NaN into
// the report).
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))

	var sumX, sumY, sumXY, sumX2, sumY2 float64

	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
		sumY2 += ys[i] * ys[i]
	}

	numerator := n*sumXY - sumX*sumY
	denominator := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))

	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}
