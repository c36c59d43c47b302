package ml

import "sort"

// ModelMetrics contains out-of-sample performance metrics for a model
type ModelMetrics struct {
	Accuracy        float64 `json:"accuracy"`
	AUCScore        float64 `json:"auc_score"`
	F1Score         float64 `json:"f1_score"`
	Precision       float64 `json:"precision"`
	Recall          float64 `json:"recall"`
	ApprovalRate    float64 `json:"approval_rate"`
	Threshold       float64 `json:"threshold"`
	TrainingSamples int     `json:"training_samples"`
	TestSamples     int     `json:"test_samples"`
}

// Evaluate scores predicted probabilities against labels. A prediction is
// positive when p >= threshold.
func Evaluate(probs []float64, y []int, threshold float64) ModelMetrics {
	m := ModelMetrics{Threshold: threshold, TestSamples: len(y)}
	if len(y) == 0 {
		return m
	}

	var tp, fp, tn, fn int
	for i, p := range probs {
		predicted := p >= threshold
		switch {
		case predicted && y[i] == 1:
			tp++
		case predicted && y[i] == 0:
			fp++
		case !predicted && y[i] == 0:
			tn++
		default:
			fn++
		}
	}

	n := float64(len(y))
	m.Accuracy = float64(tp+tn) / n
	m.ApprovalRate = float64(tp+fp) / n
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1Score = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	m.AUCScore = AUC(probs, y)
	return m
}

// AUC is the area under the ROC curve computed from rank sums, with ties
// given their average rank. It returns 0.5 when only one class is present.
func AUC(probs []float64, y []int) float64 {
	n := len(probs)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return probs[order[a]] < probs[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && probs[order[j+1]] == probs[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	var pos, neg int
	var rankSum float64
	for i, label := range y {
		if label == 1 {
			pos++
			rankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}

	return (rankSum - float64(pos*(pos+1))/2) / float64(pos*neg)
}
