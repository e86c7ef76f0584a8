package model

import "sort"

// ROCAUC computes the area under the ROC curve by the rank statistic,
// sharing average ranks across tied scores.
func ROCAUC(y []int, scores []float64) float64 {
	n := len(y)
	if n == 0 {
		return 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && scores[idx[j]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var positives, rankSum float64
	for i, label := range y {
		if label == 1 {
			positives++
			rankSum += ranks[i]
		}
	}
	negatives := float64(n) - positives
	if positives == 0 || negatives == 0 {
		return 0.5
	}
	return (rankSum - positives*(positives+1)/2) / (positives * negatives)
}

// Accuracy is the fraction of thresholded predictions matching y.
func Accuracy(y []int, scores []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	correct := 0
	for i, label := range BinaryFromProba(scores, 0.5) {
		if label == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

// PrecisionRecallF1 reports positive-class metrics at the 0.5 cut.
func PrecisionRecallF1(y []int, scores []float64) (precision, recall, f1 float64) {
	var tp, fp, fn float64
	for i, label := range BinaryFromProba(scores, 0.5) {
		switch {
		case label == 1 && y[i] == 1:
			tp++
		case label == 1 && y[i] == 0:
			fp++
		case label == 0 && y[i] == 1:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// KSStat is the maximum separation between the score distributions of
// the two classes.
func KSStat(y []int, scores []float64) float64 {
	var pos, neg []float64
	for i, label := range y {
		if label == 1 {
			pos = append(pos, scores[i])
		} else {
			neg = append(neg, scores[i])
		}
	}
	if len(pos) == 0 || len(neg) == 0 {
		return 0
	}
	sort.Float64s(pos)
	sort.Float64s(neg)

	var maxGap float64
	i, j := 0, 0
	for i < len(pos) && j < len(neg) {
		// Tied scores advance both CDFs together; stepping one side
		// alone would fabricate a gap where the distributions agree.
		v1, v2 := pos[i], neg[j]
		if v1 <= v2 {
			i++
		}
		if v2 <= v1 {
			j++
		}
		gap := float64(i)/float64(len(pos)) - float64(j)/float64(len(neg))
		if gap < 0 {
			gap = -gap
		}
		if gap > maxGap {
			maxGap = gap
		}
	}
	return maxGap
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance is the population variance around the mean.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}
