package ml

import (
	"fmt"
	"math/rand"
	"sort"
)

// FeatureImportance is the drop in out-of-sample score when a feature's
// column is shuffled.
type FeatureImportance struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// PermutationImportance shuffles each column repeats times and averages the
// score drop. The score is AUC, or accuracy at 0.5 when the labels hold a
// single class. Results are sorted by importance, highest first.
func PermutationImportance(model Model, x [][]float64, y []int, names []string, seed int64, repeats int) ([]FeatureImportance, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("no samples for permutation importance")
	}
	if len(names) != len(x[0]) {
		return nil, fmt.Errorf("have %d feature names for %d columns", len(names), len(x[0]))
	}
	if repeats <= 0 {
		repeats = 1
	}

	baseline, err := permutationScore(model, x, y)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	shuffled := make([][]float64, len(x))
	for i := range x {
		shuffled[i] = append([]float64(nil), x[i]...)
	}

	out := make([]FeatureImportance, len(names))
	for j, name := range names {
		var drop float64
		for r := 0; r < repeats; r++ {
			perm := rng.Perm(len(x))
			for i := range shuffled {
				shuffled[i][j] = x[perm[i]][j]
			}
			score, err := permutationScore(model, shuffled, y)
			if err != nil {
				return nil, err
			}
			drop += baseline - score
		}
		for i := range shuffled {
			shuffled[i][j] = x[i][j]
		}
		out[j] = FeatureImportance{Name: name, Importance: drop / float64(repeats)}
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out, nil
}

func permutationScore(model Model, x [][]float64, y []int) (float64, error) {
	probs, err := predictAll(model, x)
	if err != nil {
		return 0, err
	}

	var pos int
	for _, v := range y {
		pos += v
	}
	if pos > 0 && pos < len(y) {
		return AUC(probs, y), nil
	}
	return Evaluate(probs, y, 0.5).Accuracy, nil
}

func predictAll(model Model, x [][]float64) ([]float64, error) {
	probs := make([]float64, len(x))
	for i, row := range x {
		p, err := model.PredictProba(row)
		if err != nil {
			return nil, fmt.Errorf("prediction failed for row %d: %w", i, err)
		}
		probs[i] = p
	}
	return probs, nil
}
